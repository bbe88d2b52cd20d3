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
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
	ucs "github.com/weaviate/graphmeta/usecases/schema"
)

func testCatalog(version int64) *graphdef.GraphDef {
	return graphdef.NewBuilder(nil).
		SetLabelIdx(1).
		SetPropertyIdx(1).
		SetTableIdx(1).
		PutPropertyNameToID("id", 1).
		AddTypeDef(graphdef.TypeDef{
			LabelID: 1,
			Label:   "person",
			Kind:    graphdef.TypeKindVertex,
			Properties: []graphdef.PropertyDef{
				{ID: 1, InnerID: 1, Name: "id", DataType: graphdef.DataTypeLong, PrimaryKey: true},
			},
		}).
		PutVertexTableID(1, 1).
		SetVersion(version).
		Build()
}

func openStore(t *testing.T, dir string) *Store {
	logger, _ := test.NewNullLogger()
	s := NewStore(dir, logger)
	require.NoError(t, s.Open())
	return s
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	cp := ucs.Checkpoint{SnapshotID: 4, Offsets: []uint64{3, 3}, Catalog: testCatalog(3)}
	require.NoError(t, s.Save(ctx, cp))
	require.NoError(t, s.Save(ctx, ucs.Checkpoint{SnapshotID: 5, Offsets: []uint64{4, 4}, Catalog: testCatalog(4)}))
	require.NoError(t, s.Close())

	s = openStore(t, dir)
	defer s.Close()

	got, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5), got.SnapshotID)
	assert.Equal(t, []uint64{4, 4}, got.Offsets)
	assert.True(t, testCatalog(4).Equal(got.Catalog))

	versions, err := s.Versions()
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, versions)

	old, err := s.GraphDef(3)
	require.NoError(t, err)
	assert.True(t, cp.Catalog.Equal(old))

	_, err = s.GraphDef(9)
	assert.ErrorIs(t, err, enterrors.ErrNotFound)
}

func TestStore_SaveRequiresCatalog(t *testing.T) {
	s := openStore(t, t.TempDir())
	defer s.Close()
	assert.Error(t, s.Save(context.Background(), ucs.Checkpoint{SnapshotID: 1}))
}

func TestStore_NewerLayoutRejected(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	require.NoError(t, s.Close())

	logger, _ := test.NewNullLogger()
	older := NewStore(dir, logger)
	older.version = 0
	err := older.Open()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "higher than")
}
