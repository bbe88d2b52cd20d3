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
	"sync"
)

type iterItem[T any] struct {
	value T
	err   error
	done  bool
}

// BlockingIterator hands values from an asynchronous producer to a
// synchronous consumer through a bounded buffer.
//
// The producer calls Put for every value and ends the stream with exactly
// one of Finish or Fail. Only the first Fail is kept; the consumer gets it
// from Next once the values buffered before it are drained. Close unblocks
// both sides at once without waiting for further data.
type BlockingIterator[T any] struct {
	items  chan iterItem[T]
	closed chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	ended     bool  // producer side: Finish or Fail was called
	terminal  error // consumer side: sticky error returned by Next
}

func NewBlockingIterator[T any](capacity int) *BlockingIterator[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &BlockingIterator[T]{
		items:  make(chan iterItem[T], capacity),
		closed: make(chan struct{}),
	}
}

// Put blocks while the buffer is full. It fails with ErrClosed once the
// consumer closed the iterator and with ErrDone after Finish or Fail.
func (it *BlockingIterator[T]) Put(ctx context.Context, v T) error {
	it.mu.Lock()
	ended := it.ended
	it.mu.Unlock()
	if ended {
		return ErrDone
	}
	return it.send(ctx, iterItem[T]{value: v})
}

// Finish enqueues the end of stream marker.
func (it *BlockingIterator[T]) Finish(ctx context.Context) error {
	if !it.end() {
		return ErrDone
	}
	return it.send(ctx, iterItem[T]{done: true})
}

// Fail enqueues err as the final item. It reports whether err was accepted;
// later failures are dropped.
func (it *BlockingIterator[T]) Fail(ctx context.Context, err error) bool {
	if !it.end() {
		return false
	}
	return it.send(ctx, iterItem[T]{err: err}) == nil
}

func (it *BlockingIterator[T]) end() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.ended {
		return false
	}
	it.ended = true
	return true
}

func (it *BlockingIterator[T]) send(ctx context.Context, item iterItem[T]) error {
	select {
	case <-it.closed:
		return ErrClosed
	default:
	}
	select {
	case it.items <- item:
		return nil
	case <-it.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next blocks until a value is available. It returns ErrDone after Finish,
// the producer's error after Fail and ErrClosed after Close; all three are
// sticky.
func (it *BlockingIterator[T]) Next(ctx context.Context) (T, error) {
	var zero T

	it.mu.Lock()
	terminal := it.terminal
	it.mu.Unlock()
	if terminal != nil {
		return zero, terminal
	}

	select {
	case <-it.closed:
		return zero, it.setTerminal(ErrClosed)
	default:
	}

	select {
	case item := <-it.items:
		switch {
		case item.done:
			return zero, it.setTerminal(ErrDone)
		case item.err != nil:
			return zero, it.setTerminal(item.err)
		default:
			return item.value, nil
		}
	case <-it.closed:
		return zero, it.setTerminal(ErrClosed)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (it *BlockingIterator[T]) setTerminal(err error) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.terminal == nil {
		it.terminal = err
	}
	return it.terminal
}

// Close releases a producer blocked in Put and a consumer blocked in Next.
// It is safe to call more than once.
func (it *BlockingIterator[T]) Close() {
	it.closeOnce.Do(func() { close(it.closed) })
}

// Closed is closed once Close was called.
func (it *BlockingIterator[T]) Closed() <-chan struct{} {
	return it.closed
}
