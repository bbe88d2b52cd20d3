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

package graphdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

func personType() TypeDef {
	return TypeDef{
		LabelID: 1,
		Label:   "person",
		Kind:    TypeKindVertex,
		Properties: []PropertyDef{
			{ID: 1, InnerID: 1, Name: "id", DataType: DataTypeLong, PrimaryKey: true},
			{ID: 2, InnerID: 2, Name: "name", DataType: DataTypeString, DefaultValue: []byte("anonymous"), Comment: "full name"},
			{ID: 3, InnerID: 3, Name: "tags", DataType: DataTypeStringList, DefaultValue: []byte{}},
		},
	}
}

func sampleGraphDef() *GraphDef {
	knows := TypeDef{
		LabelID:    2,
		Label:      "knows",
		Kind:       TypeKindEdge,
		Properties: []PropertyDef{{ID: 4, InnerID: 1, Name: "since", DataType: DataTypeDate}},
	}
	ek := EdgeKind{EdgeLabelID: 2, SrcLabelID: 1, DstLabelID: 1}
	return NewBuilder(nil).
		SetVersion(3).
		SetLabelIdx(2).
		SetPropertyIdx(4).
		SetTableIdx(2).
		AddTypeDef(personType()).
		AddTypeDef(knows).
		PutPropertyNameToID("id", 1).
		PutPropertyNameToID("name", 2).
		PutPropertyNameToID("tags", 3).
		PutPropertyNameToID("since", 4).
		PutVertexTableID(1, 1).
		AddEdgeKind(ek).
		PutEdgeTableID(ek, 2).
		Build()
}

func TestBuilderDoesNotMutateOld(t *testing.T) {
	old := sampleGraphDef()
	oldBytes := old.Marshal()

	next := NewBuilder(old).
		SetVersion(old.Version() + 1).
		RemoveTypeDef(2).
		RemoveEdgeKind(EdgeKind{EdgeLabelID: 2, SrcLabelID: 1, DstLabelID: 1}).
		ClearUnusedPropertyNames().
		Build()

	assert.Equal(t, oldBytes, old.Marshal())
	assert.True(t, old.HasLabel("knows"))
	assert.False(t, next.HasLabel("knows"))
	assert.Equal(t, int64(4), next.Version())
	assert.Empty(t, next.EdgeKinds())

	_, ok := next.PropertyID("since")
	assert.False(t, ok, "unused property name must be cleared")
	_, ok = next.PropertyID("name")
	assert.True(t, ok)
	assert.Equal(t, int32(4), next.PropertyIdx(), "counter must not go back")
}

func TestBuilderReuseAfterBuild(t *testing.T) {
	b := NewBuilder(nil).SetVersion(1)
	first := b.Build()
	b.SetVersion(2).AddTypeDef(personType())

	assert.Equal(t, int64(1), first.Version())
	assert.False(t, first.HasLabel("person"))
}

func TestTypeDefLookup(t *testing.T) {
	g := sampleGraphDef()

	td, err := g.TypeDef("person")
	require.Nil(t, err)
	assert.True(t, td.Equal(personType()))
	assert.Len(t, td.PrimaryKeys(), 1)

	td.Properties[0].Name = "changed"
	again, _ := g.TypeDef("person")
	assert.Equal(t, "id", again.Properties[0].Name, "returned types must be copies")

	_, err = g.TypeDef("unknown")
	assert.ErrorIs(t, err, enterrors.ErrNotFound)
	_, err = g.TypeDefByID(42)
	assert.ErrorIs(t, err, enterrors.ErrNotFound)

	td, err = g.TypeDefByID(2)
	require.Nil(t, err)
	assert.Equal(t, "knows", td.Label)
}

func TestEdgeKindQueries(t *testing.T) {
	g := sampleGraphDef()
	ek := EdgeKind{EdgeLabelID: 2, SrcLabelID: 1, DstLabelID: 1}

	assert.True(t, g.HasEdgeKind(ek))
	assert.Equal(t, []EdgeKind{ek}, g.EdgeKindsOf(2))
	assert.Empty(t, g.EdgeKindsOf(1))
	assert.True(t, g.IsVertexReferenced(1))
	assert.False(t, g.IsVertexReferenced(2))

	table, ok := g.EdgeTableID(ek)
	assert.True(t, ok)
	assert.Equal(t, int64(2), table)
	table, ok = g.VertexTableID(1)
	assert.True(t, ok)
	assert.Equal(t, int64(1), table)
}

func TestProtoRoundTrip(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		g, err := Unmarshal(Empty().Marshal())
		require.Nil(t, err)
		assert.True(t, g.Equal(Empty()))
		assert.Empty(t, Empty().Marshal())
	})

	t.Run("populated catalog is byte stable", func(t *testing.T) {
		g := sampleGraphDef()
		data := g.Marshal()

		parsed, err := Unmarshal(data)
		require.Nil(t, err)
		assert.Equal(t, data, parsed.Marshal())
		assert.Equal(t, g.PropertyNameToID(), parsed.PropertyNameToID())
		assert.Equal(t, g.TypeDefs(), parsed.TypeDefs())
	})

	t.Run("default value presence survives", func(t *testing.T) {
		parsed, err := Unmarshal(sampleGraphDef().Marshal())
		require.Nil(t, err)
		td, err := parsed.TypeDef("person")
		require.Nil(t, err)

		assert.False(t, td.Properties[0].HasDefault())
		assert.Equal(t, []byte("anonymous"), td.Properties[1].DefaultValue)
		assert.True(t, td.Properties[2].HasDefault())
		assert.Empty(t, td.Properties[2].DefaultValue)
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		data := sampleGraphDef().Marshal()
		data = protowire.AppendTag(data, 99, protowire.VarintType)
		data = protowire.AppendVarint(data, 7)

		parsed, err := Unmarshal(data)
		require.Nil(t, err)
		assert.True(t, parsed.Equal(sampleGraphDef()))
	})

	t.Run("truncated input", func(t *testing.T) {
		data := sampleGraphDef().Marshal()
		_, err := Unmarshal(data[:len(data)-1])
		assert.Error(t, err)
	})
}

func TestParseDataType(t *testing.T) {
	tests := []struct {
		in      string
		want    DataType
		wantErr bool
	}{
		{in: "int", want: DataTypeInt},
		{in: "STRING_LIST", want: DataTypeStringList},
		{in: " Timestamp ", want: DataTypeTimestamp},
		{in: "decimal", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDataType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
	assert.False(t, DataTypeUnknown.Valid())
}
