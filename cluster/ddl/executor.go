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

// Package ddl turns batches of schema change requests into a new catalog
// version and the operations every log partition has to absorb.
//
// ExecuteBatch is a pure function. Callers serialize invocations; the
// executor itself holds no state.
package ddl

import (
	"fmt"

	"github.com/weaviate/graphmeta/cluster/proto/api"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
)

// Result of an accepted batch. Operations hold one operation per partition
// per request, grouped by request in batch order and by partition id within
// a request.
type Result struct {
	GraphDef   *graphdef.GraphDef
	Operations []api.Operation
}

// PartitionOperations returns the operations routed to partition in append
// order.
func (r *Result) PartitionOperations(partition int32) []api.Operation {
	var out []api.Operation
	for _, op := range r.Operations {
		if op.PartitionID == partition {
			out = append(out, op)
		}
	}
	return out
}

// ExecuteBatch validates and applies batch against def. Every request sees
// the effects of the requests before it. If any request is rejected the
// whole batch fails with an error wrapping errors.ErrValidation and def is
// left untouched.
func ExecuteBatch(batch Batch, def *graphdef.GraphDef, partitionCount int) (*Result, error) {
	if partitionCount < 1 {
		return nil, enterrors.NewValidation("partition count must be at least 1, got %d", partitionCount)
	}
	if def == nil {
		def = graphdef.Empty()
	}

	ops := make([]api.Operation, 0, len(batch.Requests)*partitionCount)
	cur := def
	for i, req := range batch.Requests {
		next, payload, err := execute(req, cur)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		if next.Version() != cur.Version()+1 {
			return nil, enterrors.NewConsistency("request %d moved version from %d to %d", i, cur.Version(), next.Version())
		}

		op := api.NewOperation(0, next.Version(), payload)
		for p := 0; p < partitionCount; p++ {
			op.PartitionID = int32(p)
			ops = append(ops, op)
		}
		cur = next
	}

	return &Result{GraphDef: cur, Operations: ops}, nil
}

func execute(req Request, def *graphdef.GraphDef) (*graphdef.GraphDef, api.Payload, error) {
	switch r := req.(type) {
	case CreateVertexTypeRequest:
		return createVertexType(r, def)
	case *CreateVertexTypeRequest:
		return createVertexType(*r, def)
	case CreateEdgeTypeRequest:
		return createEdgeType(r, def)
	case *CreateEdgeTypeRequest:
		return createEdgeType(*r, def)
	case AddEdgeKindRequest:
		return addEdgeKind(r, def)
	case *AddEdgeKindRequest:
		return addEdgeKind(*r, def)
	case RemoveEdgeKindRequest:
		return removeEdgeKind(r, def)
	case *RemoveEdgeKindRequest:
		return removeEdgeKind(*r, def)
	case DropVertexTypeRequest:
		return dropVertexType(r, def)
	case *DropVertexTypeRequest:
		return dropVertexType(*r, def)
	case DropEdgeTypeRequest:
		return dropEdgeType(r, def)
	case *DropEdgeTypeRequest:
		return dropEdgeType(*r, def)
	case PrepareDataLoadRequest:
		return prepareDataLoad(r, def)
	case *PrepareDataLoadRequest:
		return prepareDataLoad(*r, def)
	case CommitDataLoadRequest:
		return commitDataLoad(r, def)
	case *CommitDataLoadRequest:
		return commitDataLoad(*r, def)
	default:
		return nil, nil, enterrors.NewValidation("unsupported request %T", req)
	}
}

// typeOfKind resolves label and checks it is a type of the expected kind.
func typeOfKind(def *graphdef.GraphDef, label string, kind graphdef.TypeKind) (graphdef.TypeDef, error) {
	td, err := def.TypeDef(label)
	if err != nil {
		return graphdef.TypeDef{}, enterrors.NewValidation("%s label %q does not exist", kind, label)
	}
	if td.Kind != kind {
		return graphdef.TypeDef{}, enterrors.NewValidation("label %q is of kind %s, expected %s", label, td.Kind, kind)
	}
	return td, nil
}
