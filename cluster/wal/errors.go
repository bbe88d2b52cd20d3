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
)

var (
	// ErrOffsetTrimmed is returned when reading below the trim floor of a
	// partition.
	ErrOffsetTrimmed = errors.New("offset trimmed")
	// ErrNotInitialized is returned by operations on a topic Init has not
	// created yet, or Destroy has removed.
	ErrNotInitialized = errors.New("log not initialized")
	// ErrClosed is returned by a closed log, writer, reader or iterator.
	ErrClosed = errors.New("closed")
	// ErrDone is returned by an iterator whose producer signalled completion.
	ErrDone             = errors.New("no more entries")
	ErrInvalidPartition = errors.New("invalid partition")
)
