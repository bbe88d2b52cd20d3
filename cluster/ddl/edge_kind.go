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
	"github.com/weaviate/graphmeta/cluster/proto/api"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
)

func resolveEdgeKind(def *graphdef.GraphDef, edge, src, dst string) (graphdef.EdgeKind, error) {
	edgeType, err := typeOfKind(def, edge, graphdef.TypeKindEdge)
	if err != nil {
		return graphdef.EdgeKind{}, err
	}
	srcType, err := typeOfKind(def, src, graphdef.TypeKindVertex)
	if err != nil {
		return graphdef.EdgeKind{}, err
	}
	dstType, err := typeOfKind(def, dst, graphdef.TypeKindVertex)
	if err != nil {
		return graphdef.EdgeKind{}, err
	}
	return graphdef.EdgeKind{
		EdgeLabelID: edgeType.LabelID,
		SrcLabelID:  srcType.LabelID,
		DstLabelID:  dstType.LabelID,
	}, nil
}

func addEdgeKind(r AddEdgeKindRequest, def *graphdef.GraphDef) (*graphdef.GraphDef, api.Payload, error) {
	ek, err := resolveEdgeKind(def, r.EdgeLabel, r.SrcVertexLabel, r.DstVertexLabel)
	if err != nil {
		return nil, nil, err
	}
	if def.HasEdgeKind(ek) {
		return nil, nil, enterrors.NewValidation("edge kind %s->%s->%s already exists",
			r.SrcVertexLabel, r.EdgeLabel, r.DstVertexLabel)
	}

	tableIdx := def.TableIdx() + 1
	next := graphdef.NewBuilder(def).
		AddEdgeKind(ek).
		SetTableIdx(tableIdx).
		PutEdgeTableID(ek, tableIdx).
		SetVersion(def.Version() + 1).
		Build()
	return next, api.AddEdgeKindPayload{EdgeKind: ek, TableIdx: tableIdx}, nil
}

func removeEdgeKind(r RemoveEdgeKindRequest, def *graphdef.GraphDef) (*graphdef.GraphDef, api.Payload, error) {
	ek, err := resolveEdgeKind(def, r.EdgeLabel, r.SrcVertexLabel, r.DstVertexLabel)
	if err != nil {
		return nil, nil, err
	}
	if !def.HasEdgeKind(ek) {
		return nil, nil, enterrors.NewValidation("edge kind %s->%s->%s does not exist",
			r.SrcVertexLabel, r.EdgeLabel, r.DstVertexLabel)
	}

	next := graphdef.NewBuilder(def).
		RemoveEdgeKind(ek).
		ClearUnusedPropertyNames().
		SetVersion(def.Version() + 1).
		Build()
	return next, api.RemoveEdgeKindPayload{EdgeKind: ek}, nil
}
