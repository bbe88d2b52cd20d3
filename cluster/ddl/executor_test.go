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

package ddl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaviate/graphmeta/cluster/proto/api"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
)

func intProp(name string) PropertySpec {
	return PropertySpec{Name: name, DataType: graphdef.DataTypeInt}
}

func createBatch() Batch {
	return Batch{Requests: []Request{
		CreateVertexTypeRequest{Label: "vertex1", Properties: []PropertySpec{intProp("p1")}},
		CreateEdgeTypeRequest{Label: "edge1", Properties: []PropertySpec{intProp("p1")}},
		AddEdgeKindRequest{EdgeLabel: "edge1", SrcVertexLabel: "vertex1", DstVertexLabel: "vertex1"},
	}}
}

func dropBatch() Batch {
	return Batch{Requests: []Request{
		RemoveEdgeKindRequest{EdgeLabel: "edge1", SrcVertexLabel: "vertex1", DstVertexLabel: "vertex1"},
		DropEdgeTypeRequest{Label: "edge1"},
		DropVertexTypeRequest{Label: "vertex1"},
	}}
}

func opTypes(ops []api.Operation) []api.OperationType {
	out := make([]api.OperationType, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.Type)
	}
	return out
}

func TestExecuteBatch_CreateAndDrop(t *testing.T) {
	res, err := ExecuteBatch(createBatch(), graphdef.Empty(), 1)
	require.NoError(t, err)

	def := res.GraphDef
	assert.Equal(t, int64(3), def.Version())
	assert.Equal(t, int32(2), def.LabelIdx())
	assert.Equal(t, int32(1), def.PropertyIdx())
	assert.Equal(t, int64(2), def.TableIdx())
	assert.Equal(t, []api.OperationType{
		api.OperationTypeCreateVertexType,
		api.OperationTypeCreateEdgeType,
		api.OperationTypeAddEdgeKind,
	}, opTypes(res.Operations))
	for i, op := range res.Operations {
		assert.Equal(t, int64(i+1), op.SchemaVersion)
		assert.Equal(t, int32(0), op.PartitionID)
	}

	vertex, err := def.TypeDef("vertex1")
	require.NoError(t, err)
	edge, err := def.TypeDef("edge1")
	require.NoError(t, err)
	assert.Equal(t, graphdef.LabelID(1), vertex.LabelID)
	assert.Equal(t, graphdef.LabelID(2), edge.LabelID)
	assert.Equal(t, vertex.Properties[0].ID, edge.Properties[0].ID, "same name shares the global id")

	ek := graphdef.EdgeKind{EdgeLabelID: 2, SrcLabelID: 1, DstLabelID: 1}
	assert.True(t, def.HasEdgeKind(ek))
	tableID, ok := def.EdgeTableID(ek)
	require.True(t, ok)
	assert.Equal(t, int64(2), tableID)

	res, err = ExecuteBatch(dropBatch(), def, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.GraphDef.Version())
	assert.Empty(t, res.GraphDef.TypeDefs())
	assert.Empty(t, res.GraphDef.EdgeKinds())
	assert.Empty(t, res.GraphDef.PropertyNameToID())
	assert.Equal(t, []api.OperationType{
		api.OperationTypeRemoveEdgeKind,
		api.OperationTypeDropEdgeType,
		api.OperationTypeDropVertexType,
	}, opTypes(res.Operations))

	// input catalog is untouched
	assert.Equal(t, int64(3), def.Version())
	assert.Len(t, def.TypeDefs(), 2)
}

func TestExecuteBatch_Partitions(t *testing.T) {
	res, err := ExecuteBatch(createBatch(), nil, 3)
	require.NoError(t, err)
	require.Len(t, res.Operations, 9)

	for p := int32(0); p < 3; p++ {
		ops := res.PartitionOperations(p)
		require.Len(t, ops, 3)
		for i, op := range ops {
			assert.Equal(t, p, op.PartitionID)
			assert.Equal(t, int64(i+1), op.SchemaVersion)
		}
		assert.Equal(t, opTypes(res.PartitionOperations(0)), opTypes(ops))
	}
}

func TestExecuteBatch_InvalidPartitionCount(t *testing.T) {
	_, err := ExecuteBatch(createBatch(), nil, 0)
	require.ErrorIs(t, err, enterrors.ErrValidation)
}

func TestExecuteBatch_Rejections(t *testing.T) {
	base, err := ExecuteBatch(createBatch(), nil, 1)
	require.NoError(t, err)
	def := base.GraphDef

	tests := []struct {
		name string
		req  Request
	}{
		{"empty label", CreateVertexTypeRequest{Label: " "}},
		{"existing label", CreateVertexTypeRequest{Label: "vertex1"}},
		{"existing label other kind", CreateEdgeTypeRequest{Label: "vertex1"}},
		{"duplicate property", CreateVertexTypeRequest{Label: "v", Properties: []PropertySpec{intProp("a"), intProp("a")}}},
		{"empty property name", CreateVertexTypeRequest{Label: "v", Properties: []PropertySpec{intProp("")}}},
		{"unknown data type", CreateVertexTypeRequest{Label: "v", Properties: []PropertySpec{{Name: "a"}}}},
		{"property type clash", CreateVertexTypeRequest{Label: "v", Properties: []PropertySpec{
			{Name: "p1", DataType: graphdef.DataTypeString},
		}}},
		{"list primary key", CreateVertexTypeRequest{Label: "v", Properties: []PropertySpec{
			{Name: "a", DataType: graphdef.DataTypeIntList, PrimaryKey: true},
		}}},
		{"duplicate edge kind", AddEdgeKindRequest{EdgeLabel: "edge1", SrcVertexLabel: "vertex1", DstVertexLabel: "vertex1"}},
		{"edge kind with vertex as edge", AddEdgeKindRequest{EdgeLabel: "vertex1", SrcVertexLabel: "vertex1", DstVertexLabel: "vertex1"}},
		{"edge kind with edge as source", AddEdgeKindRequest{EdgeLabel: "edge1", SrcVertexLabel: "edge1", DstVertexLabel: "vertex1"}},
		{"edge kind unknown destination", AddEdgeKindRequest{EdgeLabel: "edge1", SrcVertexLabel: "vertex1", DstVertexLabel: "nope"}},
		{"remove missing edge kind", RemoveEdgeKindRequest{EdgeLabel: "edge1", SrcVertexLabel: "vertex1", DstVertexLabel: "nope"}},
		{"drop referenced vertex", DropVertexTypeRequest{Label: "vertex1"}},
		{"drop edge with kinds", DropEdgeTypeRequest{Label: "edge1"}},
		{"drop unknown", DropVertexTypeRequest{Label: "nope"}},
		{"drop edge as vertex", DropVertexTypeRequest{Label: "edge1"}},
		{"prepare unknown edge kind", PrepareDataLoadRequest{Target: DataLoadTarget{Label: "edge1", SrcLabel: "vertex1", DstLabel: "edge1"}}},
		{"commit unallocated table", CommitDataLoadRequest{Target: DataLoadTarget{Label: "vertex1"}, TableIdx: 42}},
		{"commit zero table", CommitDataLoadRequest{Target: DataLoadTarget{Label: "vertex1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// a valid request in front must not leak into def either
			batch := Batch{Requests: []Request{
				CreateVertexTypeRequest{Label: "other", Properties: []PropertySpec{intProp("x")}},
				tt.req,
			}}
			res, err := ExecuteBatch(batch, def, 2)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, enterrors.ErrValidation), err.Error())
			assert.Contains(t, err.Error(), "request 1")

			assert.Equal(t, int64(3), def.Version())
			assert.False(t, def.HasLabel("other"))
			_, ok := def.PropertyID("x")
			assert.False(t, ok)
		})
	}
}

func TestExecuteBatch_IDsNotReused(t *testing.T) {
	res, err := ExecuteBatch(createBatch(), nil, 1)
	require.NoError(t, err)
	res, err = ExecuteBatch(dropBatch(), res.GraphDef, 1)
	require.NoError(t, err)

	res, err = ExecuteBatch(Batch{Requests: []Request{
		CreateVertexTypeRequest{Label: "vertex1", Properties: []PropertySpec{intProp("p1")}},
	}}, res.GraphDef, 1)
	require.NoError(t, err)

	def := res.GraphDef
	td, err := def.TypeDef("vertex1")
	require.NoError(t, err)
	assert.Equal(t, graphdef.LabelID(3), td.LabelID)
	assert.Equal(t, int32(2), td.Properties[0].ID)
	tableID, ok := def.VertexTableID(td.LabelID)
	require.True(t, ok)
	assert.Equal(t, int64(3), tableID)
	assert.Equal(t, int64(7), def.Version())
}

func TestExecuteBatch_DataLoad(t *testing.T) {
	res, err := ExecuteBatch(createBatch(), nil, 1)
	require.NoError(t, err)
	def := res.GraphDef

	res, err = ExecuteBatch(Batch{Requests: []Request{
		PrepareDataLoadRequest{Target: DataLoadTarget{Label: "vertex1"}},
		PrepareDataLoadRequest{Target: DataLoadTarget{Label: "edge1", SrcLabel: "vertex1", DstLabel: "vertex1"}},
	}}, def, 1)
	require.NoError(t, err)
	require.Len(t, res.Operations, 2)

	p, err := res.Operations[0].DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, api.PrepareDataLoadPayload{Target: api.DataLoadTarget{LabelID: 1}, TableIdx: 3}, p)

	p, err = res.Operations[1].DecodePayload()
	require.NoError(t, err)
	prepared := p.(api.PrepareDataLoadPayload)
	assert.True(t, prepared.Target.IsEdgeKind())
	assert.Equal(t, int64(4), prepared.TableIdx)
	assert.Equal(t, int64(4), res.GraphDef.TableIdx())

	// the live table stays in place until the loaded data is swapped in
	tableID, _ := res.GraphDef.VertexTableID(1)
	assert.Equal(t, int64(1), tableID)

	res, err = ExecuteBatch(Batch{Requests: []Request{
		CommitDataLoadRequest{Target: DataLoadTarget{Label: "vertex1"}, TableIdx: 3, Path: "/data/vertex1"},
	}}, res.GraphDef, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.GraphDef.Version())
	assert.Equal(t, int64(4), res.GraphDef.TableIdx())
}

func TestExecuteBatch_PointerRequests(t *testing.T) {
	res, err := ExecuteBatch(Batch{Requests: []Request{
		&CreateVertexTypeRequest{Label: "person", Properties: []PropertySpec{
			{Name: "id", DataType: graphdef.DataTypeLong, PrimaryKey: true},
			{Name: "name", DataType: graphdef.DataTypeString, Comment: "display name"},
		}},
	}}, nil, 1)
	require.NoError(t, err)

	td, err := res.GraphDef.TypeDef("person")
	require.NoError(t, err)
	require.Len(t, td.Properties, 2)
	assert.Equal(t, int32(1), td.Properties[0].InnerID)
	assert.Equal(t, int32(2), td.Properties[1].InnerID)
	assert.Equal(t, []string{"id"}, pkNames(td))
}

func pkNames(td graphdef.TypeDef) []string {
	var out []string
	for _, p := range td.PrimaryKeys() {
		out = append(out, p.Name)
	}
	return out
}

func TestExecuteBatch_EmptyBatch(t *testing.T) {
	def := graphdef.Empty()
	res, err := ExecuteBatch(Batch{}, def, 4)
	require.NoError(t, err)
	assert.Empty(t, res.Operations)
	assert.True(t, def.Equal(res.GraphDef))
}
