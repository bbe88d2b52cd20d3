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
	"github.com/weaviate/graphmeta/entities/graphdef"
)

// Request is a single schema change. The set of requests is closed and maps
// one to one onto operation types.
type Request interface {
	OperationType() api.OperationType
	isRequest()
}

// Batch is executed all or nothing, requests in order.
type Batch struct {
	Requests []Request
}

// PropertySpec declares a property of a new type. Ids are assigned by the
// executor.
type PropertySpec struct {
	Name         string
	DataType     graphdef.DataType
	DefaultValue []byte
	PrimaryKey   bool
	Comment      string
}

// DataLoadTarget names a vertex label, or an edge kind if SrcLabel and
// DstLabel are set.
type DataLoadTarget struct {
	Label    string
	SrcLabel string
	DstLabel string
}

func (t DataLoadTarget) isEdgeKind() bool { return t.SrcLabel != "" || t.DstLabel != "" }

type CreateVertexTypeRequest struct {
	Label      string
	Properties []PropertySpec
}

func (CreateVertexTypeRequest) OperationType() api.OperationType {
	return api.OperationTypeCreateVertexType
}
func (CreateVertexTypeRequest) isRequest() {}

type CreateEdgeTypeRequest struct {
	Label      string
	Properties []PropertySpec
}

func (CreateEdgeTypeRequest) OperationType() api.OperationType {
	return api.OperationTypeCreateEdgeType
}
func (CreateEdgeTypeRequest) isRequest() {}

type AddEdgeKindRequest struct {
	EdgeLabel      string
	SrcVertexLabel string
	DstVertexLabel string
}

func (AddEdgeKindRequest) OperationType() api.OperationType { return api.OperationTypeAddEdgeKind }
func (AddEdgeKindRequest) isRequest()                       {}

type RemoveEdgeKindRequest struct {
	EdgeLabel      string
	SrcVertexLabel string
	DstVertexLabel string
}

func (RemoveEdgeKindRequest) OperationType() api.OperationType {
	return api.OperationTypeRemoveEdgeKind
}
func (RemoveEdgeKindRequest) isRequest() {}

type DropVertexTypeRequest struct {
	Label string
}

func (DropVertexTypeRequest) OperationType() api.OperationType {
	return api.OperationTypeDropVertexType
}
func (DropVertexTypeRequest) isRequest() {}

type DropEdgeTypeRequest struct {
	Label string
}

func (DropEdgeTypeRequest) OperationType() api.OperationType { return api.OperationTypeDropEdgeType }
func (DropEdgeTypeRequest) isRequest()                       {}

type PrepareDataLoadRequest struct {
	Target DataLoadTarget
}

func (PrepareDataLoadRequest) OperationType() api.OperationType {
	return api.OperationTypePrepareDataLoad
}
func (PrepareDataLoadRequest) isRequest() {}

// CommitDataLoadRequest marks a bulk load into a table prepared earlier as
// complete.
type CommitDataLoadRequest struct {
	Target   DataLoadTarget
	TableIdx int64
	Path     string
}

func (CommitDataLoadRequest) OperationType() api.OperationType {
	return api.OperationTypeCommitDataLoad
}
func (CommitDataLoadRequest) isRequest() {}
