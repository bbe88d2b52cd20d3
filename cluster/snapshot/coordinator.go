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

// Package snapshot tracks the snapshot id and catalog visible to readers and
// lets readers wait until a given snapshot id becomes visible.
package snapshot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/graphmeta/cluster/utils/priorityqueue"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
	"github.com/weaviate/graphmeta/usecases/monitoring"
)

// InitialSnapshotID is the snapshot id before the first advance.
const InitialSnapshotID int64 = -1

// State pairs a snapshot id with the catalog readers must use with it. A
// published State is never modified.
type State struct {
	SnapshotID int64
	Schema     *graphdef.GraphDef
}

// Listener is notified once the snapshot id it waits for is visible. It
// gets no payload; use SnapshotWithSchema to read the state.
type Listener interface {
	OnSnapshotAvailable()
}

type ListenerFunc func()

func (f ListenerFunc) OnSnapshotAvailable() { f() }

// Coordinator is advanced by a single owner and read by any number of
// readers. Reads are lock free.
type Coordinator struct {
	logger  logrus.FieldLogger
	metrics *monitoring.PrometheusMetrics

	state atomic.Pointer[State]

	mu        sync.Mutex
	targets   *priorityqueue.Queue[int64] // keys of listeners, smallest first
	listeners map[int64][]registered
	nextToken uint64
	pending   int
}

type registered struct {
	token uint64
	l     Listener
}

func NewCoordinator(logger logrus.FieldLogger, metrics *monitoring.PrometheusMetrics) *Coordinator {
	c := &Coordinator{
		logger:    logger,
		metrics:   metrics,
		targets:   priorityqueue.NewMin[int64](16),
		listeners: map[int64][]registered{},
	}
	c.state.Store(&State{SnapshotID: InitialSnapshotID, Schema: graphdef.Empty()})
	return c
}

// SnapshotWithSchema returns the current state.
func (c *Coordinator) SnapshotWithSchema() State {
	return *c.state.Load()
}

func (c *Coordinator) QuerySnapshotID() int64 {
	return c.state.Load().SnapshotID
}

// AdvanceQuerySnapshotID makes id visible and returns the previous id. It
// fails with errors.ErrConsistency unless id is greater than the current
// id, leaving the state unchanged. schema replaces the current catalog only
// if it is non-nil and has a greater version.
//
// Listeners waiting for id or less are notified after the new state is
// published, on the calling goroutine.
func (c *Coordinator) AdvanceQuerySnapshotID(id int64, schema *graphdef.GraphDef) (int64, error) {
	c.mu.Lock()
	old := c.state.Load()
	if id <= old.SnapshotID {
		c.mu.Unlock()
		return old.SnapshotID, enterrors.NewConsistency(
			"query snapshot id must increase, current %d, got %d", old.SnapshotID, id)
	}

	next := &State{SnapshotID: id, Schema: old.Schema}
	if schema != nil {
		if schema.Version() > old.Schema.Version() {
			next.Schema = schema
		} else {
			c.logger.WithFields(logrus.Fields{
				"action":         "snapshot_advance",
				"snapshot_id":    id,
				"schema_version": schema.Version(),
				"current":        old.Schema.Version(),
			}).Warn("ignoring stale schema")
		}
	}
	c.state.Store(next)
	ready := c.takeReady(id)
	pending := c.pending
	c.mu.Unlock()

	c.metrics.SnapshotAdvanced(id, next.Schema.Version())
	c.metrics.ListenersPending(pending)
	c.logger.WithFields(logrus.Fields{
		"action":         "snapshot_advance",
		"snapshot_id":    id,
		"previous":       old.SnapshotID,
		"schema_version": next.Schema.Version(),
		"listeners":      len(ready),
	}).Debug("query snapshot advanced")

	c.notify(ready)
	return old.SnapshotID, nil
}

// takeReady removes and returns the listeners waiting for id or less in
// ascending target order. c.mu must be held.
func (c *Coordinator) takeReady(id int64) []Listener {
	var ready []Listener
	for c.targets.Len() > 0 && c.targets.Top() <= id {
		target := c.targets.Pop()
		for _, r := range c.listeners[target] {
			ready = append(ready, r.l)
		}
		delete(c.listeners, target)
	}
	c.pending -= len(ready)
	return ready
}

// AddListener notifies l once target is visible. If it already is, l is
// called before AddListener returns.
func (c *Coordinator) AddListener(target int64, l Listener) {
	c.addListener(target, l)
}

// addListener returns a token for removeListener, or queued=false if l was
// notified right away.
func (c *Coordinator) addListener(target int64, l Listener) (token uint64, queued bool) {
	c.mu.Lock()
	if c.state.Load().SnapshotID >= target {
		c.mu.Unlock()
		c.notify([]Listener{l})
		return 0, false
	}
	if _, ok := c.listeners[target]; !ok {
		c.targets.Insert(target)
	}
	c.nextToken++
	token = c.nextToken
	c.listeners[target] = append(c.listeners[target], registered{token: token, l: l})
	c.pending++
	pending := c.pending
	c.mu.Unlock()

	c.metrics.ListenersPending(pending)
	return token, true
}

// removeListener drops a listener which was not notified yet. It reports
// false if the listener is already gone.
func (c *Coordinator) removeListener(target int64, token uint64) bool {
	c.mu.Lock()
	bucket := c.listeners[target]
	idx := -1
	for i, r := range bucket {
		if r.token == token {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	bucket = append(bucket[:idx], bucket[idx+1:]...)
	if len(bucket) == 0 {
		delete(c.listeners, target)
		c.targets.Remove(target)
	} else {
		c.listeners[target] = bucket
	}
	c.pending--
	pending := c.pending
	c.mu.Unlock()

	c.metrics.ListenersPending(pending)
	return true
}

// PendingListeners returns the number of listeners not notified yet.
func (c *Coordinator) PendingListeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// WaitForSnapshot blocks until id is visible or ctx is done.
func (c *Coordinator) WaitForSnapshot(ctx context.Context, id int64) error {
	if c.QuerySnapshotID() >= id {
		return nil
	}

	start := time.Now()
	visible := make(chan struct{})
	token, queued := c.addListener(id, ListenerFunc(func() { close(visible) }))

	select {
	case <-visible:
		c.metrics.SnapshotWaited(time.Since(start))
		return nil
	case <-ctx.Done():
		if queued {
			c.removeListener(id, token)
		}
		return fmt.Errorf("wait for snapshot %d, current %d: %w", id, c.QuerySnapshotID(), ctx.Err())
	}
}

func (c *Coordinator) notify(listeners []Listener) {
	for _, l := range listeners {
		c.safeNotify(l)
	}
}

func (c *Coordinator) safeNotify(l Listener) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.ListenerFailed()
			c.logger.WithFields(logrus.Fields{
				"action":      "snapshot_notify",
				"snapshot_id": c.QuerySnapshotID(),
			}).Errorf("snapshot listener panicked: %v", r)
		}
	}()
	l.OnSnapshotAvailable()
}
