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

	"github.com/sirupsen/logrus"

	"github.com/weaviate/graphmeta/cluster/ddl"
	"github.com/weaviate/graphmeta/cluster/proto/api"
	cwal "github.com/weaviate/graphmeta/cluster/wal"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
)

// Replayed is the outcome of replaying one partition.
type Replayed struct {
	GraphDef *graphdef.GraphDef
	// Applied holds the operations which moved the catalog, in log order.
	Applied []api.Operation
	// Skipped counts entries already covered by the starting catalog.
	Skipped int
	// Next is the offset following the last entry read.
	Next uint64
}

// Replayer rebuilds catalogs from the operations stored in a log partition.
type Replayer struct {
	log    cwal.Log
	logger logrus.FieldLogger
}

func NewReplayer(log cwal.Log, logger logrus.FieldLogger) *Replayer {
	return &Replayer{log: log, logger: logger}
}

// Replay reads partition from offset from up to its current end and applies
// every operation on top of def. It stops at the first entry which cannot be
// decoded or applied.
func (r *Replayer) Replay(ctx context.Context, partition int32, from uint64, def *graphdef.GraphDef) (Replayed, error) {
	if def == nil {
		def = graphdef.Empty()
	}
	out := Replayed{GraphDef: def, Next: from}

	end, err := r.log.EndOffset(partition)
	if err != nil {
		return out, err
	}
	if from > end {
		return out, enterrors.NewReplay(
			fmt.Sprintf("partition %d: resume offset %d beyond end %d", partition, from, end), nil)
	}
	if from == end {
		return out, nil
	}

	reader, err := r.log.CreateReader(partition, from)
	if err != nil {
		return out, enterrors.NewReplay(fmt.Sprintf("partition %d: open reader at %d", partition, from), err)
	}
	defer reader.Close()

	for out.Next < end {
		e, err := reader.Next(ctx)
		if err != nil {
			return out, err
		}
		op, err := api.UnmarshalOperation(partition, e.Data)
		if err != nil {
			return out, enterrors.NewReplay(fmt.Sprintf("partition %d offset %d", partition, e.Offset), err)
		}
		next, applied, err := ddl.ApplyOperation(out.GraphDef, op)
		if err != nil {
			return out, fmt.Errorf("offset %d: %w", e.Offset, err)
		}
		if applied {
			out.Applied = append(out.Applied, op)
		} else {
			out.Skipped++
		}
		out.GraphDef = next
		out.Next = e.Offset + 1
	}

	r.logger.WithFields(logrus.Fields{
		"action":    "schema_replay",
		"partition": partition,
		"from":      from,
		"to":        out.Next,
		"applied":   len(out.Applied),
		"skipped":   out.Skipped,
		"version":   out.GraphDef.Version(),
	}).Debug("partition replayed")
	return out, nil
}
