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
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	cwal "github.com/weaviate/graphmeta/cluster/wal"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
)

type writer struct {
	log    *Log
	p      *partition
	closed atomic.Bool
}

// Append has no timeout of its own; ctx is only checked before the write.
func (w *writer) Append(ctx context.Context, data []byte) (uint64, error) {
	if w.closed.Load() {
		return 0, cwal.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if limit := w.log.cfg.MaxMessageSize; len(data) > limit {
		return 0, enterrors.NewValidation("partition %d: entry of %d bytes exceeds max message size %d",
			w.p.id, len(data), limit)
	}

	start := time.Now()
	offset, err := w.p.append(data)
	w.log.metrics.WALAppend(w.p.id, time.Since(start), err)
	if err != nil {
		return 0, err
	}

	w.log.logger.WithFields(logrus.Fields{
		"action":    "wal_append",
		"partition": w.p.id,
		"offset":    offset,
	}).Debug("entry appended")
	return offset, nil
}

func (w *writer) Close() error {
	w.closed.Store(true)
	return nil
}
