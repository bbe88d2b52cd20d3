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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/raft"
	raftbolt "github.com/hashicorp/raft-boltdb/v2"

	cwal "github.com/weaviate/graphmeta/cluster/wal"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
)

var (
	// stable store keys
	keyNextOffset = []byte("next_offset")
	keyTrimFloor  = []byte("trim_floor")
)

// partitionStore keeps the entries of one partition. Offset o lives at log
// index o+1 since raft reserves index 0.
type partitionStore interface {
	raft.LogStore
	raft.StableStore
	Close() error
}

type partition struct {
	id    int32
	store partitionStore

	mu     sync.RWMutex
	next   uint64 // offset of the next append
	floor  uint64 // lowest readable offset
	closed bool
	// notify is closed and replaced on every append and on close to wake
	// readers waiting at the tail.
	notify chan struct{}
}

func openPartition(id int32, store partitionStore) (*partition, error) {
	next, err := getUint64(store, keyNextOffset)
	if err != nil {
		return nil, fmt.Errorf("partition %d: read next offset: %w", id, err)
	}
	floor, err := getUint64(store, keyTrimFloor)
	if err != nil {
		return nil, fmt.Errorf("partition %d: read trim floor: %w", id, err)
	}
	// an append may have been stored without its next offset
	last, err := store.LastIndex()
	if err != nil {
		return nil, fmt.Errorf("partition %d: read last index: %w", id, err)
	}

	return &partition{
		id:     id,
		store:  store,
		next:   max(next, last),
		floor:  floor,
		notify: make(chan struct{}),
	}, nil
}

func getUint64(s raft.StableStore, key []byte) (uint64, error) {
	v, err := s.GetUint64(key)
	if errors.Is(err, raftbolt.ErrKeyNotFound) {
		return 0, nil
	}
	return v, err
}

func (p *partition) append(data []byte) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, cwal.ErrClosed
	}

	offset := p.next
	entry := &raft.Log{
		Index:      offset + 1,
		Term:       1,
		Type:       raft.LogCommand,
		Data:       append([]byte(nil), data...),
		AppendedAt: time.Now(),
	}
	if err := p.store.StoreLog(entry); err != nil {
		return 0, enterrors.NewDurability(fmt.Sprintf("partition %d: store entry %d", p.id, offset), err)
	}
	if err := p.store.SetUint64(keyNextOffset, offset+1); err != nil {
		return 0, enterrors.NewDurability(fmt.Sprintf("partition %d: store next offset", p.id), err)
	}
	p.next = offset + 1
	p.wake()
	return offset, nil
}

func (p *partition) wake() {
	close(p.notify)
	p.notify = make(chan struct{})
}

// get returns the entry at offset. If offset is not written yet it returns
// a channel closed on the next append instead.
func (p *partition) get(offset uint64) ([]byte, <-chan struct{}, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, nil, cwal.ErrClosed
	}
	if offset < p.floor {
		return nil, nil, fmt.Errorf("partition %d: offset %d is below trim floor %d: %w",
			p.id, offset, p.floor, cwal.ErrOffsetTrimmed)
	}
	if offset >= p.next {
		return nil, p.notify, nil
	}

	var entry raft.Log
	if err := p.store.GetLog(offset+1, &entry); err != nil {
		if errors.Is(err, raft.ErrLogNotFound) {
			return nil, nil, enterrors.NewDurability(fmt.Sprintf("partition %d: entry %d missing", p.id, offset), err)
		}
		return nil, nil, enterrors.NewDurability(fmt.Sprintf("partition %d: read entry %d", p.id, offset), err)
	}
	return append([]byte(nil), entry.Data...), nil, nil
}

// readable fails if offset is below the trim floor.
func (p *partition) readable(offset uint64) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return cwal.ErrClosed
	}
	if offset < p.floor {
		return fmt.Errorf("partition %d: offset %d is below trim floor %d: %w",
			p.id, offset, p.floor, cwal.ErrOffsetTrimmed)
	}
	return nil
}

// trim drops all entries below offset and returns how many were removed.
func (p *partition) trim(offset uint64) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, cwal.ErrClosed
	}
	if offset > p.next {
		return 0, enterrors.NewValidation("partition %d: cannot trim before %d, end offset is %d", p.id, offset, p.next)
	}
	if offset <= p.floor {
		return 0, nil
	}

	if err := p.store.DeleteRange(p.floor+1, offset); err != nil {
		return 0, enterrors.NewDurability(fmt.Sprintf("partition %d: delete entries", p.id), err)
	}
	if err := p.store.SetUint64(keyTrimFloor, offset); err != nil {
		return 0, enterrors.NewDurability(fmt.Sprintf("partition %d: store trim floor", p.id), err)
	}
	removed := offset - p.floor
	p.floor = offset
	return removed, nil
}

func (p *partition) endOffset() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.next
}

func (p *partition) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.wake()
	return p.store.Close()
}
