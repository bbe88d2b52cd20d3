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

package main

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/graphmeta/adapters/repos/wal"
	"github.com/weaviate/graphmeta/cluster/ddl"
	cwal "github.com/weaviate/graphmeta/cluster/wal"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
	"github.com/weaviate/graphmeta/usecases/schema"
)

type fakeLoader struct {
	cp schema.Checkpoint
	ok bool
}

func (f fakeLoader) Load(context.Context) (schema.Checkpoint, bool, error) {
	return f.cp, f.ok, nil
}

func memoryLog(t *testing.T, queues int) (cwal.Config, *wal.Log) {
	cfg := cwal.DefaultConfig()
	cfg.Backend = cwal.BackendMemory
	cfg.QueueCount = queues
	logger, _ := test.NewNullLogger()
	l, err := wal.NewWithBroker(cfg, wal.NewMemoryBroker(), logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return cfg, l
}

func TestCheckTrim(t *testing.T) {
	cfg := cwal.DefaultConfig()
	cfg.QueueCount = 2
	covered := fakeLoader{ok: true, cp: schema.Checkpoint{Offsets: []uint64{5, 3}, Catalog: graphdef.Empty()}}

	tests := []struct {
		name      string
		store     fakeLoader
		partition int32
		offset    uint64
		wantErr   bool
	}{
		{"covered", covered, 0, 5, false},
		{"below checkpoint", covered, 1, 2, false},
		{"beyond checkpoint", covered, 1, 4, true},
		{"negative partition", covered, -1, 0, true},
		{"unknown partition", covered, 2, 0, true},
		{"no checkpoint", fakeLoader{}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTrim(context.Background(), cfg, tt.store, tt.partition, tt.offset)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, enterrors.ErrValidation)
		})
	}
}

func TestLatestCatalog_MostAdvancedPartition(t *testing.T) {
	ctx := context.Background()
	_, log := memoryLog(t, 2)
	logger, _ := test.NewNullLogger()

	def, err := latestCatalog(ctx, log, fakeLoader{}, logger)
	require.NoError(t, err)
	assert.Equal(t, int64(0), def.Version(), "uninitialized log")

	require.NoError(t, log.Init(ctx))
	res, err := ddl.ExecuteBatch(ddl.Batch{Requests: []ddl.Request{
		ddl.CreateVertexTypeRequest{Label: "person"},
		ddl.CreateEdgeTypeRequest{Label: "knows"},
	}}, graphdef.Empty(), 2)
	require.NoError(t, err)

	// partition 0 only got the first operation
	w0, err := log.CreateWriter(0)
	require.NoError(t, err)
	defer w0.Close()
	_, err = w0.Append(ctx, res.PartitionOperations(0)[0].Marshal())
	require.NoError(t, err)

	w1, err := log.CreateWriter(1)
	require.NoError(t, err)
	defer w1.Close()
	for _, op := range res.PartitionOperations(1) {
		_, err := w1.Append(ctx, op.Marshal())
		require.NoError(t, err)
	}

	def, err = latestCatalog(ctx, log, fakeLoader{}, logger)
	require.NoError(t, err)
	assert.True(t, res.GraphDef.Equal(def))
	assert.True(t, def.HasLabel("knows"))
}

func TestLatestCatalog_CheckpointMismatch(t *testing.T) {
	_, log := memoryLog(t, 2)
	logger, _ := test.NewNullLogger()
	store := fakeLoader{ok: true, cp: schema.Checkpoint{Offsets: []uint64{0}, Catalog: graphdef.Empty()}}

	_, err := latestCatalog(context.Background(), log, store, logger)
	assert.ErrorIs(t, err, enterrors.ErrConsistency)
}
