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
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cwal "github.com/weaviate/graphmeta/cluster/wal"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
)

type factory func(t *testing.T, queues int) (open func() *Log)

func backends() map[string]factory {
	return map[string]factory{
		cwal.BackendBolt: func(t *testing.T, queues int) func() *Log {
			cfg := cwal.DefaultConfig()
			cfg.DataPath = t.TempDir()
			cfg.QueueCount = queues
			cfg.MaxMessageSize = 1024
			cfg.ProducerConfig = map[string]string{"no_sync": "true", "bolt_timeout": "1s"}
			return func() *Log {
				logger, _ := test.NewNullLogger()
				l, err := New(cfg, logger, nil)
				require.NoError(t, err)
				return l
			}
		},
		cwal.BackendMemory: func(t *testing.T, queues int) func() *Log {
			cfg := cwal.DefaultConfig()
			cfg.Backend = cwal.BackendMemory
			cfg.QueueCount = queues
			cfg.MaxMessageSize = 1024
			broker := NewMemoryBroker()
			return func() *Log {
				logger, _ := test.NewNullLogger()
				l, err := NewWithBroker(cfg, broker, logger, nil)
				require.NoError(t, err)
				return l
			}
		},
	}
}

func forEachBackend(t *testing.T, queues int, fn func(t *testing.T, open func() *Log)) {
	for name, f := range backends() {
		t.Run(name, func(t *testing.T) {
			fn(t, f(t, queues))
		})
	}
}

func initLog(t *testing.T, open func() *Log) *Log {
	l := open()
	require.NoError(t, l.Init(context.Background()))
	t.Cleanup(func() { l.Close() })
	return l
}

func next(t *testing.T, r cwal.Reader) cwal.Entry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	e, err := r.Next(ctx)
	require.NoError(t, err)
	return e
}

func TestLog_Lifecycle(t *testing.T) {
	forEachBackend(t, 2, func(t *testing.T, open func() *Log) {
		ctx := context.Background()
		l := open()
		defer l.Close()

		ok, err := l.Initialized(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = l.CreateWriter(0)
		assert.ErrorIs(t, err, cwal.ErrNotInitialized)

		require.NoError(t, l.Init(ctx))
		require.NoError(t, l.Init(ctx), "init is idempotent")
		ok, err = l.Initialized(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = l.CreateWriter(2)
		assert.ErrorIs(t, err, cwal.ErrInvalidPartition)

		w, err := l.CreateWriter(1)
		require.NoError(t, err)
		_, err = w.Append(ctx, []byte("x"))
		require.NoError(t, err)

		require.NoError(t, l.Destroy(ctx))
		require.NoError(t, l.Destroy(ctx), "destroy is idempotent")
		ok, err = l.Initialized(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, l.Init(ctx))
		end, err := l.EndOffset(1)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), end, "a recreated topic starts empty")
	})
}

func TestLog_RoundTrip(t *testing.T) {
	forEachBackend(t, 3, func(t *testing.T, open func() *Log) {
		ctx := context.Background()
		l := initLog(t, open)

		w, err := l.CreateWriter(1)
		require.NoError(t, err)
		defer w.Close()

		var offsets []uint64
		for i := 0; i < 5; i++ {
			off, err := w.Append(ctx, []byte(fmt.Sprintf("entry-%d", i)))
			require.NoError(t, err)
			offsets = append(offsets, off)
		}
		assert.Equal(t, []uint64{0, 1, 2, 3, 4}, offsets)

		r, err := l.CreateReader(1, 2)
		require.NoError(t, err)
		defer r.Close()
		for i := 2; i < 5; i++ {
			e := next(t, r)
			assert.Equal(t, uint64(i), e.Offset)
			assert.Equal(t, int32(1), e.Partition)
			assert.Equal(t, []byte(fmt.Sprintf("entry-%d", i)), e.Data)
		}

		end, err := l.EndOffset(1)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), end)
		end, err = l.EndOffset(0)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), end, "partitions are independent")
	})
}

func TestLog_Reopen(t *testing.T) {
	forEachBackend(t, 1, func(t *testing.T, open func() *Log) {
		ctx := context.Background()
		l := open()
		require.NoError(t, l.Init(ctx))
		w, err := l.CreateWriter(0)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			_, err := w.Append(ctx, []byte{byte(i)})
			require.NoError(t, err)
		}
		require.NoError(t, l.DeleteBeforeOffset(ctx, 0, 1))
		require.NoError(t, l.Close())

		_, err = w.Append(ctx, []byte{9})
		assert.ErrorIs(t, err, cwal.ErrClosed)

		l = initLog(t, open)
		end, err := l.EndOffset(0)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), end)

		_, err = l.CreateReader(0, 0)
		assert.ErrorIs(t, err, cwal.ErrOffsetTrimmed, "trim floor survives reopen")

		w, err = l.CreateWriter(0)
		require.NoError(t, err)
		off, err := w.Append(ctx, []byte{3})
		require.NoError(t, err)
		assert.Equal(t, uint64(3), off)
	})
}

func TestLog_Trim(t *testing.T) {
	forEachBackend(t, 1, func(t *testing.T, open func() *Log) {
		ctx := context.Background()
		l := initLog(t, open)
		w, err := l.CreateWriter(0)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			_, err := w.Append(ctx, []byte{byte(i)})
			require.NoError(t, err)
		}

		require.NoError(t, l.DeleteBeforeOffset(ctx, 0, 6))
		require.NoError(t, l.DeleteBeforeOffset(ctx, 0, 4), "trimming below the floor is a no-op")

		for _, from := range []uint64{0, 3, 5} {
			_, err := l.CreateReader(0, from)
			assert.ErrorIs(t, err, cwal.ErrOffsetTrimmed, "from %d", from)
		}

		r, err := l.CreateReader(0, 6)
		require.NoError(t, err)
		defer r.Close()
		e := next(t, r)
		assert.Equal(t, uint64(6), e.Offset)
		assert.Equal(t, []byte{6}, e.Data)

		err = l.DeleteBeforeOffset(ctx, 0, 11)
		assert.ErrorIs(t, err, enterrors.ErrValidation, "cannot trim beyond the tail")
		require.NoError(t, l.DeleteBeforeOffset(ctx, 0, 10), "trimming everything is allowed")

		end, err := l.EndOffset(0)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), end)
	})
}

func TestLog_TrimAtTailKeepsReaderWaiting(t *testing.T) {
	forEachBackend(t, 1, func(t *testing.T, open func() *Log) {
		ctx := context.Background()
		l := initLog(t, open)

		// trimming an empty log at its tail leaves a waiting reader intact
		r, err := l.CreateReader(0, 0)
		require.NoError(t, err)
		defer r.Close()

		require.NoError(t, l.DeleteBeforeOffset(ctx, 0, 0))
		w, err := l.CreateWriter(0)
		require.NoError(t, err)
		_, err = w.Append(ctx, []byte("a"))
		require.NoError(t, err)

		e := next(t, r)
		assert.Equal(t, []byte("a"), e.Data)
	})
}

func TestLog_TailBlocks(t *testing.T) {
	forEachBackend(t, 1, func(t *testing.T, open func() *Log) {
		ctx := context.Background()
		l := initLog(t, open)

		r, err := l.CreateReader(0, 0)
		require.NoError(t, err)
		defer r.Close()

		short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
		_, err = r.Next(short)
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		got := make(chan cwal.Entry, 1)
		go func() {
			e, err := r.Next(ctx)
			if err == nil {
				got <- e
			}
		}()

		w, err := l.CreateWriter(0)
		require.NoError(t, err)
		_, err = w.Append(ctx, []byte("late"))
		require.NoError(t, err)

		select {
		case e := <-got:
			assert.Equal(t, []byte("late"), e.Data)
		case <-time.After(2 * time.Second):
			t.Fatal("reader did not observe the append")
		}
	})
}

func TestLog_CloseUnblocksReaders(t *testing.T) {
	forEachBackend(t, 1, func(t *testing.T, open func() *Log) {
		l := initLog(t, open)

		r1, err := l.CreateReader(0, 0)
		require.NoError(t, err)
		r2, err := l.CreateReader(0, 0)
		require.NoError(t, err)

		errs := make(chan error, 2)
		for _, r := range []cwal.Reader{r1, r2} {
			r := r
			go func() {
				_, err := r.Next(context.Background())
				errs <- err
			}()
		}

		time.Sleep(20 * time.Millisecond)
		require.NoError(t, r1.Close())
		require.NoError(t, l.Close())

		for i := 0; i < 2; i++ {
			select {
			case err := <-errs:
				assert.ErrorIs(t, err, cwal.ErrClosed)
			case <-time.After(2 * time.Second):
				t.Fatal("reader stayed blocked")
			}
		}
	})
}

func TestLog_MaxMessageSize(t *testing.T) {
	forEachBackend(t, 1, func(t *testing.T, open func() *Log) {
		ctx := context.Background()
		l := initLog(t, open)
		w, err := l.CreateWriter(0)
		require.NoError(t, err)

		_, err = w.Append(ctx, make([]byte, 1025))
		assert.ErrorIs(t, err, enterrors.ErrValidation)
		_, err = w.Append(ctx, make([]byte, 1024))
		assert.NoError(t, err)
	})
}

func TestLog_ConcurrentWriters(t *testing.T) {
	forEachBackend(t, 4, func(t *testing.T, open func() *Log) {
		ctx := context.Background()
		l := initLog(t, open)

		const perWriter = 50
		var wg sync.WaitGroup
		for p := int32(0); p < 4; p++ {
			for k := 0; k < 2; k++ {
				w, err := l.CreateWriter(p)
				require.NoError(t, err)
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						if _, err := w.Append(ctx, []byte("x")); err != nil {
							t.Error(err)
							return
						}
					}
				}()
			}
		}
		wg.Wait()

		for p := int32(0); p < 4; p++ {
			end, err := l.EndOffset(p)
			require.NoError(t, err)
			assert.Equal(t, uint64(2*perWriter), end)
		}
	})
}

func TestLog_PartitionCountMismatch(t *testing.T) {
	dir := t.TempDir()
	logger, _ := test.NewNullLogger()
	cfg := cwal.DefaultConfig()
	cfg.DataPath = dir
	cfg.QueueCount = 2

	l, err := New(cfg, logger, nil)
	require.NoError(t, err)
	require.NoError(t, l.Init(context.Background()))
	require.NoError(t, l.Close())
	assert.FileExists(t, filepath.Join(dir, cfg.Topic, "partition-1.db"))
	assert.FileExists(t, filepath.Join(dir, cfg.Topic, topicMetaFile))

	cfg.QueueCount = 3
	l, err = New(cfg, logger, nil)
	require.NoError(t, err)
	defer l.Close()
	assert.ErrorIs(t, l.Init(context.Background()), enterrors.ErrValidation)
	_, err = l.CreateWriter(0)
	assert.ErrorIs(t, err, enterrors.ErrValidation)
}

func TestLog_BadProducerConfig(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cfg := cwal.DefaultConfig()
	cfg.DataPath = t.TempDir()

	cfg.ProducerConfig = map[string]string{"no_sync": "maybe"}
	_, err := New(cfg, logger, nil)
	assert.Error(t, err)

	cfg.ProducerConfig = map[string]string{"linger_ms": "5"}
	_, err = New(cfg, logger, nil)
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "linger_ms", hook.LastEntry().Data["setting"])
}

func TestLog_CrashBetweenEntryAndOffset(t *testing.T) {
	dir := t.TempDir()
	logger, _ := test.NewNullLogger()
	cfg := cwal.DefaultConfig()
	cfg.DataPath = dir

	l, err := New(cfg, logger, nil)
	require.NoError(t, err)
	require.NoError(t, l.Init(context.Background()))
	w, err := l.CreateWriter(0)
	require.NoError(t, err)
	_, err = w.Append(context.Background(), []byte("a"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	// simulate an entry stored without its next offset
	b, err := newBoltBackend(dir, cfg.Topic, nil, logger)
	require.NoError(t, err)
	s, err := b.openPartition(0)
	require.NoError(t, err)
	require.NoError(t, s.SetUint64(keyNextOffset, 0))
	require.NoError(t, s.Close())

	l, err = New(cfg, logger, nil)
	require.NoError(t, err)
	defer l.Close()
	end, err := l.EndOffset(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), end)
}
