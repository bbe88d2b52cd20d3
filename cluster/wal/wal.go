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

// Package wal defines the partitioned, offset addressed, append only log
// every committed schema operation is written to.
//
// Entries of one partition are totally ordered by offset. There is no
// ordering across partitions.
package wal

import (
	"context"
)

// Entry is one record read back from a partition.
type Entry struct {
	Partition int32
	Offset    uint64
	Data      []byte
}

// Log is a topic made of Config.QueueCount partitions.
type Log interface {
	// Init creates the topic. It is idempotent.
	Init(ctx context.Context) error
	// Destroy removes the topic and all of its entries. It is idempotent.
	Destroy(ctx context.Context) error
	Initialized(ctx context.Context) (bool, error)

	CreateWriter(partition int32) (Writer, error)
	// CreateReader returns a reader positioned at from. Reading an offset
	// below the trim floor fails with ErrOffsetTrimmed.
	CreateReader(partition int32, from uint64) (Reader, error)
	// DeleteBeforeOffset irrevocably removes every entry with an offset
	// strictly lower than offset.
	DeleteBeforeOffset(ctx context.Context, partition int32, offset uint64) error
	// EndOffset is the offset the next append to partition will get.
	EndOffset(partition int32) (uint64, error)

	Partitions() int
	Close() error
}

// Writer appends to a single partition.
type Writer interface {
	// Append blocks until data is durably stored and returns its offset.
	// Backend failures wrap errors.ErrDurability.
	Append(ctx context.Context, data []byte) (uint64, error)
	Close() error
}

// Reader yields the entries of a single partition in offset order. Next
// blocks at the tail until a new entry is appended, ctx is done or the
// reader is closed.
type Reader interface {
	Next(ctx context.Context) (Entry, error)
	Close() error
}
