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

// Package wal implements the partitioned log on top of the raft log and
// stable store contracts. The bolt backend keeps one raft-boltdb file per
// partition, the memory backend one raft.InmemStore.
package wal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	cwal "github.com/weaviate/graphmeta/cluster/wal"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/usecases/monitoring"
)

// readAhead is the number of entries a reader fetches before its consumer
// asks for them.
const readAhead = 64

var defaultBroker = NewMemoryBroker()

// Log implements cluster/wal.Log.
type Log struct {
	cfg     cwal.Config
	logger  logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics
	backend backend

	mu         sync.Mutex
	closed     bool
	partitions []*partition // opened on first use
}

// New validates cfg and returns a log for its backend. The memory backend
// uses a broker shared by the whole process.
func New(cfg cwal.Config, logger logrus.FieldLogger, metrics *monitoring.PrometheusMetrics) (*Log, error) {
	return NewWithBroker(cfg, defaultBroker, logger, metrics)
}

// NewWithBroker is New with an explicit broker for the memory backend.
func NewWithBroker(cfg cwal.Config, broker *MemoryBroker, logger logrus.FieldLogger,
	metrics *monitoring.PrometheusMetrics,
) (*Log, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Log{
		cfg:     cfg,
		logger:  logger.WithField("topic", cfg.Topic),
		metrics: metrics,
	}
	switch cfg.Backend {
	case cwal.BackendBolt:
		b, err := newBoltBackend(cfg.DataPath, cfg.Topic, cfg.ProducerConfig, l.logger)
		if err != nil {
			return nil, fmt.Errorf("bolt backend: %w", err)
		}
		l.backend = b
	case cwal.BackendMemory:
		l.backend = &memoryBackend{broker: broker, topic: cfg.Topic}
	}
	if len(cfg.Servers) > 0 {
		l.logger.WithField("servers", cfg.Servers).
			Warnf("%s backend is local, ignoring servers", cfg.Backend)
	}
	return l, nil
}

func (l *Log) Partitions() int { return l.cfg.QueueCount }

func (l *Log) Init(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return cwal.ErrClosed
	}

	m, ok, err := l.backend.meta()
	if err != nil {
		return err
	}
	if ok {
		if err := l.checkMeta(m); err != nil {
			return err
		}
		l.logger.WithField("action", "wal_init").WithField("id", m.ID).
			Debug("log already initialized")
		return nil
	}

	if l.cfg.ReplicationFactor > 1 {
		l.logger.WithField("replication_factor", l.cfg.ReplicationFactor).
			Warn("local backends keep a single replica, replication factor is not enforced")
	}

	m = topicMeta{
		ID:                uuid.NewString(),
		Name:              l.cfg.Topic,
		Partitions:        l.cfg.QueueCount,
		ReplicationFactor: l.cfg.ReplicationFactor,
		CreatedAt:         time.Now().UTC(),
	}
	if err := l.backend.create(m); err != nil {
		return enterrors.NewDurability("create topic", err)
	}
	l.logger.WithFields(logrus.Fields{
		"action":     "wal_init",
		"id":         m.ID,
		"partitions": m.Partitions,
		"backend":    l.cfg.Backend,
	}).Info("log initialized")
	return nil
}

func (l *Log) checkMeta(m topicMeta) error {
	if m.Name != l.cfg.Topic {
		return enterrors.NewConsistency("topic metadata names %q, expected %q", m.Name, l.cfg.Topic)
	}
	if m.Partitions != l.cfg.QueueCount {
		return enterrors.NewValidation("topic %q has %d partitions, configured queue count is %d",
			m.Name, m.Partitions, l.cfg.QueueCount)
	}
	return nil
}

func (l *Log) Destroy(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return cwal.ErrClosed
	}

	if err := l.closePartitions(); err != nil {
		l.logger.WithError(err).Warn("close partitions before destroy")
	}
	if err := l.backend.remove(); err != nil {
		return enterrors.NewDurability("remove topic", err)
	}
	l.logger.WithField("action", "wal_destroy").Info("log destroyed")
	return nil
}

func (l *Log) Initialized(ctx context.Context) (bool, error) {
	_, ok, err := l.backend.meta()
	return ok, err
}

// partition opens every partition on first use.
func (l *Log) partition(id int32) (*partition, error) {
	if err := l.cfg.CheckPartition(id); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, cwal.ErrClosed
	}
	if l.partitions != nil {
		return l.partitions[id], nil
	}

	m, ok, err := l.backend.meta()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, cwal.ErrNotInitialized
	}
	if err := l.checkMeta(m); err != nil {
		return nil, err
	}

	parts := make([]*partition, 0, l.cfg.QueueCount)
	for i := 0; i < l.cfg.QueueCount; i++ {
		p, err := l.openPartition(int32(i))
		if err != nil {
			for _, opened := range parts {
				opened.close()
			}
			return nil, err
		}
		parts = append(parts, p)
	}
	l.partitions = parts

	l.logger.WithFields(logrus.Fields{
		"action":     "wal_open",
		"id":         m.ID,
		"partitions": len(parts),
	}).Debug("log opened")
	return l.partitions[id], nil
}

func (l *Log) openPartition(id int32) (*partition, error) {
	s, err := l.backend.openPartition(id)
	if err != nil {
		return nil, err
	}
	p, err := openPartition(id, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	return p, nil
}

func (l *Log) CreateWriter(partition int32) (cwal.Writer, error) {
	p, err := l.partition(partition)
	if err != nil {
		return nil, err
	}
	return &writer{log: l, p: p}, nil
}

func (l *Log) CreateReader(partition int32, from uint64) (cwal.Reader, error) {
	p, err := l.partition(partition)
	if err != nil {
		return nil, err
	}
	if err := p.readable(from); err != nil {
		return nil, err
	}
	return newReader(p, from, l.logger), nil
}

func (l *Log) DeleteBeforeOffset(ctx context.Context, partition int32, offset uint64) error {
	p, err := l.partition(partition)
	if err != nil {
		return err
	}
	removed, err := p.trim(offset)
	if err != nil {
		return err
	}
	l.metrics.WALTrimmed(partition, removed)
	l.logger.WithFields(logrus.Fields{
		"action":    "wal_trim",
		"partition": partition,
		"offset":    offset,
		"removed":   removed,
	}).Info("log trimmed")
	return nil
}

func (l *Log) EndOffset(partition int32) (uint64, error) {
	p, err := l.partition(partition)
	if err != nil {
		return 0, err
	}
	return p.endOffset(), nil
}

// Close closes all partitions. Readers blocked at the tail fail with
// ErrClosed.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.closePartitions()
}

func (l *Log) closePartitions() error {
	var result *multierror.Error
	for _, p := range l.partitions {
		if err := p.close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close partition %d: %w", p.id, err))
		}
	}
	l.partitions = nil
	return result.ErrorOrNil()
}
