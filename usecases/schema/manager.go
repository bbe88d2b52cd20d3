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

package schema

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/graphmeta/cluster/ddl"
	"github.com/weaviate/graphmeta/cluster/proto/api"
	"github.com/weaviate/graphmeta/cluster/snapshot"
	"github.com/weaviate/graphmeta/cluster/utils"
	cwal "github.com/weaviate/graphmeta/cluster/wal"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
	"github.com/weaviate/graphmeta/usecases/config"
	"github.com/weaviate/graphmeta/usecases/monitoring"
)

// Checkpoint is the durable state of the schema owner after a committed
// batch.
type Checkpoint struct {
	SnapshotID int64
	// Offsets holds the end offset of every log partition once the batch
	// was appended. Replay of a partition resumes there.
	Offsets []uint64
	Catalog *graphdef.GraphDef
}

// CheckpointStore persists checkpoints of the schema owner
type CheckpointStore interface {
	Save(ctx context.Context, cp Checkpoint) error
	// Load returns ok=false if nothing was saved yet.
	Load(ctx context.Context) (cp Checkpoint, ok bool, err error)
}

// BatchResult describes a committed batch.
type BatchResult struct {
	SchemaVersion int64
	SnapshotID    int64
	Operations    int
}

// Manager is the single schema owner. It serializes DDL batches, appends
// the resulting operations to every log partition and publishes the new
// catalog through the snapshot coordinator.
type Manager struct {
	sync.RWMutex

	log         cwal.Log
	store       CheckpointStore
	coordinator *snapshot.Coordinator
	replayer    *Replayer
	retry       config.AppendRetry
	logger      logrus.FieldLogger
	metrics     *monitoring.PrometheusMetrics

	writers    []cwal.Writer
	def        *graphdef.GraphDef
	snapshotID int64
	// failed is set when a batch could not be appended to every partition.
	// The next batch recovers first.
	failed error
	opened bool
}

func NewManager(log cwal.Log, store CheckpointStore, coordinator *snapshot.Coordinator,
	retry config.AppendRetry, logger logrus.FieldLogger, metrics *monitoring.PrometheusMetrics,
) *Manager {
	return &Manager{
		log:         log,
		store:       store,
		coordinator: coordinator,
		replayer:    NewReplayer(log, logger),
		retry:       retry,
		logger:      logger,
		metrics:     metrics,
		def:         graphdef.Empty(),
	}
}

// Open initializes the log if needed, restores the last checkpoint and
// replays whatever was appended after it.
func (m *Manager) Open(ctx context.Context) error {
	m.Lock()
	defer m.Unlock()
	if m.opened {
		return nil
	}

	ok, err := m.log.Initialized(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if err := m.log.Init(ctx); err != nil {
			return err
		}
	}

	writers := make([]cwal.Writer, m.log.Partitions())
	for p := range writers {
		w, err := m.log.CreateWriter(int32(p))
		if err != nil {
			closeWriters(writers)
			return fmt.Errorf("create writer for partition %d: %w", p, err)
		}
		writers[p] = w
	}
	m.writers = writers

	if err := m.recover(ctx); err != nil {
		closeWriters(m.writers)
		m.writers = nil
		return err
	}
	m.opened = true
	return nil
}

// recover rebuilds the catalog from the checkpoint and the log. Partitions
// which lag behind the most advanced one get the missing operations
// appended again.
func (m *Manager) recover(ctx context.Context) error {
	parts := m.log.Partitions()
	base := graphdef.Empty()
	snapshotID := m.snapshotID
	offsets := make([]uint64, parts)

	cp, ok, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	if ok {
		if len(cp.Offsets) != parts {
			return enterrors.NewConsistency("checkpoint %d covers %d partitions, log has %d",
				cp.SnapshotID, len(cp.Offsets), parts)
		}
		base = cp.Catalog
		snapshotID = max(snapshotID, cp.SnapshotID)
		copy(offsets, cp.Offsets)
	}

	replayed := make([]Replayed, parts)
	lead := 0
	for p := 0; p < parts; p++ {
		r, err := m.replayer.Replay(ctx, int32(p), offsets[p], base)
		if err != nil {
			return err
		}
		replayed[p] = r
		if r.GraphDef.Version() > replayed[lead].GraphDef.Version() {
			lead = p
		}
	}
	def := replayed[lead].GraphDef

	for p := 0; p < parts; p++ {
		have := replayed[p].GraphDef.Version()
		if have == def.Version() {
			continue
		}
		var missing []api.Operation
		for _, op := range replayed[lead].Applied {
			if op.SchemaVersion > have {
				op.PartitionID = int32(p)
				missing = append(missing, op)
			}
		}
		m.logger.WithFields(logrus.Fields{
			"action":    "schema_recover",
			"partition": p,
			"version":   have,
			"target":    def.Version(),
		}).Warnf("partition lags behind, appending %d operations again", len(missing))
		if err := m.appendPartition(ctx, int32(p), missing); err != nil {
			return err
		}
	}

	if advanced := def.Version() > base.Version(); advanced || !ok {
		if advanced && (ok || m.opened) {
			snapshotID++
		}
		if err := m.checkpoint(ctx, snapshotID, def); err != nil {
			return err
		}
	}

	m.def, m.snapshotID, m.failed = def, snapshotID, nil
	if state := m.coordinator.SnapshotWithSchema(); state.SnapshotID < snapshotID {
		publish := def
		if def.Version() <= state.Schema.Version() {
			publish = nil
		}
		if _, err := m.coordinator.AdvanceQuerySnapshotID(snapshotID, publish); err != nil {
			return err
		}
	}

	m.logger.WithFields(logrus.Fields{
		"action":      "schema_recover",
		"snapshot_id": snapshotID,
		"version":     def.Version(),
		"types":       len(def.TypeDefs()),
	}).Info("schema catalog restored")
	return nil
}

// SubmitBatch executes batch against the current catalog and makes the
// result durable on every partition before publishing it. A rejected batch
// leaves the catalog and the log untouched.
func (m *Manager) SubmitBatch(ctx context.Context, batch ddl.Batch) (BatchResult, error) {
	m.Lock()
	defer m.Unlock()
	if !m.opened {
		return BatchResult{}, enterrors.NewConsistency("schema manager is not open")
	}
	if m.failed != nil {
		m.logger.WithField("action", "schema_submit").WithError(m.failed).
			Warn("recovering after failed batch")
		if err := m.recover(ctx); err != nil {
			return BatchResult{}, err
		}
	}
	if len(batch.Requests) == 0 {
		return BatchResult{SchemaVersion: m.def.Version(), SnapshotID: m.snapshotID}, nil
	}

	res, err := ddl.ExecuteBatch(batch, m.def, m.log.Partitions())
	if err != nil {
		m.metrics.BatchFailed("rejected")
		return BatchResult{}, err
	}

	if err := m.appendAll(ctx, res); err != nil {
		m.failed = err
		m.metrics.BatchFailed("failed")
		return BatchResult{}, err
	}

	snapshotID := m.snapshotID + 1
	if err := m.checkpoint(ctx, snapshotID, res.GraphDef); err != nil {
		// the operations are durable, replay covers the gap
		m.logger.WithField("action", "schema_checkpoint").WithError(err).
			Error("could not save checkpoint")
	}
	m.def, m.snapshotID = res.GraphDef, snapshotID
	if _, err := m.coordinator.AdvanceQuerySnapshotID(snapshotID, res.GraphDef); err != nil {
		return BatchResult{}, err
	}

	types := make([]string, len(batch.Requests))
	for i, r := range batch.Requests {
		types[i] = r.OperationType().String()
	}
	m.metrics.BatchCommitted(types)
	m.logger.WithFields(logrus.Fields{
		"action":      "schema_submit",
		"requests":    len(batch.Requests),
		"version":     res.GraphDef.Version(),
		"snapshot_id": snapshotID,
	}).Info("batch committed")

	return BatchResult{
		SchemaVersion: res.GraphDef.Version(),
		SnapshotID:    snapshotID,
		Operations:    len(res.Operations),
	}, nil
}

// appendAll appends the operations of every partition concurrently. Within
// a partition operations keep their order.
func (m *Manager) appendAll(ctx context.Context, res *ddl.Result) error {
	eg, ctx := enterrors.NewErrorGroupWithContextWrapper(m.logger, ctx)
	for p := range m.writers {
		partition := int32(p)
		ops := res.PartitionOperations(partition)
		eg.Go(func() error {
			return m.appendPartition(ctx, partition, ops)
		}, partition)
	}
	return eg.Wait()
}

func (m *Manager) appendPartition(ctx context.Context, partition int32, ops []api.Operation) error {
	w := m.writers[partition]
	for _, op := range ops {
		data := op.Marshal()
		err := utils.RetryDurable(ctx, m.newBackoff(), func() error {
			_, err := w.Append(ctx, data)
			return err
		}, func(err error, next time.Duration) {
			m.logger.WithFields(logrus.Fields{
				"action":    "wal_append",
				"partition": partition,
				"version":   op.SchemaVersion,
			}).WithError(err).Warnf("append failed, retrying in %s", next)
		})
		if err != nil {
			return fmt.Errorf("partition %d version %d: %w", partition, op.SchemaVersion, err)
		}
	}
	return nil
}

func (m *Manager) newBackoff() backoff.BackOff {
	return utils.ConstantBackoff(m.retry.MaxRetries, m.retry.Interval)
}

func (m *Manager) checkpoint(ctx context.Context, snapshotID int64, def *graphdef.GraphDef) error {
	offsets := make([]uint64, m.log.Partitions())
	for p := range offsets {
		end, err := m.log.EndOffset(int32(p))
		if err != nil {
			return err
		}
		offsets[p] = end
	}
	return m.store.Save(ctx, Checkpoint{SnapshotID: snapshotID, Offsets: offsets, Catalog: def})
}

// GraphDef returns the latest committed catalog.
func (m *Manager) GraphDef() *graphdef.GraphDef {
	m.RLock()
	defer m.RUnlock()
	return m.def
}

func (m *Manager) SnapshotID() int64 {
	m.RLock()
	defer m.RUnlock()
	return m.snapshotID
}

// Close releases the writers. The log and the store stay open.
func (m *Manager) Close() error {
	m.Lock()
	defer m.Unlock()
	err := closeWriters(m.writers)
	m.writers = nil
	m.opened = false
	return err
}

func closeWriters(writers []cwal.Writer) error {
	var errs *multierror.Error
	for _, w := range writers {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
