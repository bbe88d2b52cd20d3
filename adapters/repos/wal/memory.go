//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package wal

import (
	"sync"

	"github.com/hashicorp/raft"

	cwal "github.com/weaviate/graphmeta/cluster/wal"
)

// MemoryBroker keeps topics in process memory. Logs created from the same
// broker share their topics, which lets tests reopen a log.
type MemoryBroker struct {
	mu     sync.Mutex
	topics map[string]*memoryTopic
}

type memoryTopic struct {
	meta       topicMeta
	partitions []*raft.InmemStore
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: map[string]*memoryTopic{}}
}

type memoryBackend struct {
	broker *MemoryBroker
	topic  string
}

func (b *memoryBackend) meta() (topicMeta, bool, error) {
	b.broker.mu.Lock()
	defer b.broker.mu.Unlock()
	t, ok := b.broker.topics[b.topic]
	if !ok {
		return topicMeta{}, false, nil
	}
	return t.meta, true, nil
}

func (b *memoryBackend) create(m topicMeta) error {
	b.broker.mu.Lock()
	defer b.broker.mu.Unlock()
	t := &memoryTopic{meta: m, partitions: make([]*raft.InmemStore, m.Partitions)}
	for i := range t.partitions {
		t.partitions[i] = raft.NewInmemStore()
	}
	b.broker.topics[b.topic] = t
	return nil
}

func (b *memoryBackend) remove() error {
	b.broker.mu.Lock()
	defer b.broker.mu.Unlock()
	delete(b.broker.topics, b.topic)
	return nil
}

func (b *memoryBackend) openPartition(id int32) (partitionStore, error) {
	b.broker.mu.Lock()
	defer b.broker.mu.Unlock()
	t, ok := b.broker.topics[b.topic]
	if !ok || int(id) >= len(t.partitions) {
		return nil, cwal.ErrNotInitialized
	}
	return inmemPartition{t.partitions[id]}, nil
}

// inmemPartition outlives the log it was opened by.
type inmemPartition struct {
	*raft.InmemStore
}

func (inmemPartition) Close() error { return nil }
