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

// dropVertexType rejects the drop while an edge kind still uses the vertex
// label as source or destination.
func dropVertexType(r DropVertexTypeRequest, def *graphdef.GraphDef) (*graphdef.GraphDef, api.Payload, error) {
	td, err := typeOfKind(def, r.Label, graphdef.TypeKindVertex)
	if err != nil {
		return nil, nil, err
	}
	if def.IsVertexReferenced(td.LabelID) {
		return nil, nil, enterrors.NewValidation("vertex type %q is still referenced by an edge kind", r.Label)
	}

	next := graphdef.NewBuilder(def).
		RemoveTypeDef(td.LabelID).
		ClearUnusedPropertyNames().
		SetVersion(def.Version() + 1).
		Build()
	return next, api.DropVertexTypePayload{LabelID: td.LabelID}, nil
}

// dropEdgeType rejects the drop while the edge label owns any edge kind.
func dropEdgeType(r DropEdgeTypeRequest, def *graphdef.GraphDef) (*graphdef.GraphDef, api.Payload, error) {
	td, err := typeOfKind(def, r.Label, graphdef.TypeKindEdge)
	if err != nil {
		return nil, nil, err
	}
	if kinds := def.EdgeKindsOf(td.LabelID); len(kinds) > 0 {
		return nil, nil, enterrors.NewValidation("edge type %q still has %d edge kind(s)", r.Label, len(kinds))
	}

	next := graphdef.NewBuilder(def).
		RemoveTypeDef(td.LabelID).
		ClearUnusedPropertyNames().
		SetVersion(def.Version() + 1).
		Build()
	return next, api.DropEdgeTypePayload{LabelID: td.LabelID}, nil
}
