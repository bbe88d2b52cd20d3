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
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/graphmeta/adapters/repos/wal"
	"github.com/weaviate/graphmeta/cluster/snapshot"
	cwal "github.com/weaviate/graphmeta/cluster/wal"
	"github.com/weaviate/graphmeta/usecases/config"
)

type fakeCheckpointStore struct {
	sync.Mutex
	cp      Checkpoint
	ok      bool
	saves   int
	saveErr error
}

func (f *fakeCheckpointStore) Save(_ context.Context, cp Checkpoint) error {
	f.Lock()
	defer f.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	cp.Offsets = append([]uint64(nil), cp.Offsets...)
	f.cp, f.ok = cp, true
	f.saves++
	return nil
}

func (f *fakeCheckpointStore) Load(context.Context) (Checkpoint, bool, error) {
	f.Lock()
	defer f.Unlock()
	return f.cp, f.ok, nil
}

func (f *fakeCheckpointStore) set(cp Checkpoint) {
	f.Lock()
	defer f.Unlock()
	f.cp, f.ok = cp, true
}

// fakeWriter decides per call whether an append fails and whether the data
// is stored anyway, as happens when an acknowledgement is lost.
type fakeWriter struct {
	mock.Mock
	cwal.Writer
}

func (f *fakeWriter) Append(ctx context.Context, data []byte) (uint64, error) {
	args := f.Called(data)
	err, persist := args.Error(0), args.Bool(1)
	if err == nil || persist {
		off, werr := f.Writer.Append(ctx, data)
		if werr != nil {
			return 0, werr
		}
		if err == nil {
			return off, nil
		}
	}
	return 0, err
}

// fakeLog hands out fakeWriters for selected partitions.
type fakeLog struct {
	cwal.Log
	writers map[int32]*fakeWriter
}

func (f *fakeLog) CreateWriter(partition int32) (cwal.Writer, error) {
	w, err := f.Log.CreateWriter(partition)
	if err != nil {
		return nil, err
	}
	if fw, ok := f.writers[partition]; ok {
		fw.Writer = w
		return fw, nil
	}
	return w, nil
}

func newTestLog(t *testing.T, queues int) cwal.Log {
	cfg := cwal.DefaultConfig()
	cfg.Backend = cwal.BackendMemory
	cfg.QueueCount = queues
	logger, _ := test.NewNullLogger()
	l, err := wal.NewWithBroker(cfg, wal.NewMemoryBroker(), logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func testRetry() config.AppendRetry {
	return config.AppendRetry{MaxRetries: 2, Interval: time.Millisecond}
}

func newTestManager(t *testing.T, log cwal.Log, store CheckpointStore) (*Manager, *snapshot.Coordinator) {
	logger, _ := test.NewNullLogger()
	coord := snapshot.NewCoordinator(logger, nil)
	m := NewManager(log, store, coord, testRetry(), logger, nil)
	t.Cleanup(func() { m.Close() })
	return m, coord
}
