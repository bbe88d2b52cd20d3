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

	"github.com/sirupsen/logrus"

	cwal "github.com/weaviate/graphmeta/cluster/wal"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
)

// reader pumps entries of a partition into a blocking iterator from a
// background goroutine.
type reader struct {
	p  *partition
	it *cwal.BlockingIterator[cwal.Entry]
}

func newReader(p *partition, from uint64, logger logrus.FieldLogger) *reader {
	r := &reader{
		p:  p,
		it: cwal.NewBlockingIterator[cwal.Entry](readAhead),
	}
	enterrors.GoWrapper(func() { r.pump(from) }, logger)
	return r
}

func (r *reader) pump(offset uint64) {
	ctx := context.Background()
	for {
		data, wait, err := r.p.get(offset)
		if err != nil {
			r.it.Fail(ctx, err)
			return
		}
		if wait != nil {
			select {
			case <-wait:
				continue
			case <-r.it.Closed():
				return
			}
		}

		entry := cwal.Entry{Partition: r.p.id, Offset: offset, Data: data}
		if err := r.it.Put(ctx, entry); err != nil {
			return
		}
		offset++
	}
}

func (r *reader) Next(ctx context.Context) (cwal.Entry, error) {
	return r.it.Next(ctx)
}

func (r *reader) Close() error {
	r.it.Close()
	return nil
}
