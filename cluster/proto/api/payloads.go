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

package api

import (
	"errors"
	"fmt"

	"github.com/weaviate/graphmeta/entities/graphdef"
	"github.com/weaviate/graphmeta/entities/protoutil"
)

var errMissingField = errors.New("missing required field")

// Payload is the type specific body of an operation. The set of payloads is
// closed; decodePayload must handle every implementation.
type Payload interface {
	Type() OperationType
	Marshal() []byte
	isPayload()
}

// DataLoadTarget is the table a bulk load writes to: a vertex label, or an
// edge kind if source and destination labels are set.
type DataLoadTarget struct {
	LabelID    graphdef.LabelID
	SrcLabelID graphdef.LabelID
	DstLabelID graphdef.LabelID
}

func (t DataLoadTarget) IsEdgeKind() bool {
	return t.SrcLabelID != 0 || t.DstLabelID != 0
}

func (t DataLoadTarget) EdgeKind() graphdef.EdgeKind {
	return graphdef.EdgeKind{EdgeLabelID: t.LabelID, SrcLabelID: t.SrcLabelID, DstLabelID: t.DstLabelID}
}

func (t DataLoadTarget) marshal() []byte {
	var b []byte
	b = protoutil.AppendInt32(b, 1, int32(t.LabelID))
	b = protoutil.AppendInt32(b, 2, int32(t.SrcLabelID))
	b = protoutil.AppendInt32(b, 3, int32(t.DstLabelID))
	return b
}

func unmarshalDataLoadTarget(data []byte) (DataLoadTarget, error) {
	var t DataLoadTarget
	err := protoutil.Walk(data, func(f protoutil.Field) error {
		switch f.Num {
		case 1:
			t.LabelID = graphdef.LabelID(f.Int32())
		case 2:
			t.SrcLabelID = graphdef.LabelID(f.Int32())
		case 3:
			t.DstLabelID = graphdef.LabelID(f.Int32())
		}
		return nil
	})
	return t, err
}

type CreateVertexTypePayload struct {
	TypeDef  graphdef.TypeDef
	TableIdx int64
}

func (CreateVertexTypePayload) Type() OperationType { return OperationTypeCreateVertexType }
func (CreateVertexTypePayload) isPayload()          {}

func (p CreateVertexTypePayload) Marshal() []byte {
	var b []byte
	b = protoutil.AppendMessage(b, 1, graphdef.MarshalTypeDef(p.TypeDef))
	b = protoutil.AppendInt64(b, 2, p.TableIdx)
	return b
}

type CreateEdgeTypePayload struct {
	TypeDef graphdef.TypeDef
}

func (CreateEdgeTypePayload) Type() OperationType { return OperationTypeCreateEdgeType }
func (CreateEdgeTypePayload) isPayload()          {}

func (p CreateEdgeTypePayload) Marshal() []byte {
	return protoutil.AppendMessage(nil, 1, graphdef.MarshalTypeDef(p.TypeDef))
}

type AddEdgeKindPayload struct {
	EdgeKind graphdef.EdgeKind
	TableIdx int64
}

func (AddEdgeKindPayload) Type() OperationType { return OperationTypeAddEdgeKind }
func (AddEdgeKindPayload) isPayload()          {}

func (p AddEdgeKindPayload) Marshal() []byte {
	var b []byte
	b = protoutil.AppendMessage(b, 1, graphdef.MarshalEdgeKind(p.EdgeKind))
	b = protoutil.AppendInt64(b, 2, p.TableIdx)
	return b
}

type RemoveEdgeKindPayload struct {
	EdgeKind graphdef.EdgeKind
}

func (RemoveEdgeKindPayload) Type() OperationType { return OperationTypeRemoveEdgeKind }
func (RemoveEdgeKindPayload) isPayload()          {}

func (p RemoveEdgeKindPayload) Marshal() []byte {
	return protoutil.AppendMessage(nil, 1, graphdef.MarshalEdgeKind(p.EdgeKind))
}

type DropVertexTypePayload struct {
	LabelID graphdef.LabelID
}

func (DropVertexTypePayload) Type() OperationType { return OperationTypeDropVertexType }
func (DropVertexTypePayload) isPayload()          {}

func (p DropVertexTypePayload) Marshal() []byte {
	return protoutil.AppendInt32(nil, 1, int32(p.LabelID))
}

type DropEdgeTypePayload struct {
	LabelID graphdef.LabelID
}

func (DropEdgeTypePayload) Type() OperationType { return OperationTypeDropEdgeType }
func (DropEdgeTypePayload) isPayload()          {}

func (p DropEdgeTypePayload) Marshal() []byte {
	return protoutil.AppendInt32(nil, 1, int32(p.LabelID))
}

type PrepareDataLoadPayload struct {
	Target   DataLoadTarget
	TableIdx int64
}

func (PrepareDataLoadPayload) Type() OperationType { return OperationTypePrepareDataLoad }
func (PrepareDataLoadPayload) isPayload()          {}

func (p PrepareDataLoadPayload) Marshal() []byte {
	var b []byte
	b = protoutil.AppendMessage(b, 1, p.Target.marshal())
	b = protoutil.AppendInt64(b, 2, p.TableIdx)
	return b
}

// CommitDataLoadPayload marks the completion of a bulk load into TableIdx.
// It does not change the catalog beyond its version.
type CommitDataLoadPayload struct {
	Target   DataLoadTarget
	TableIdx int64
	Path     string
}

func (CommitDataLoadPayload) Type() OperationType { return OperationTypeCommitDataLoad }
func (CommitDataLoadPayload) isPayload()          {}

func (p CommitDataLoadPayload) Marshal() []byte {
	var b []byte
	b = protoutil.AppendMessage(b, 1, p.Target.marshal())
	b = protoutil.AppendInt64(b, 2, p.TableIdx)
	b = protoutil.AppendString(b, 3, p.Path)
	return b
}

func decodePayload(t OperationType, data []byte) (Payload, error) {
	switch t {
	case OperationTypeCreateVertexType:
		var p CreateVertexTypePayload
		seen, err := walkTypeDefPayload(data, &p.TypeDef, &p.TableIdx)
		if err != nil {
			return nil, err
		}
		if !seen {
			return nil, fmt.Errorf("type_def: %w", errMissingField)
		}
		return p, nil
	case OperationTypeCreateEdgeType:
		var p CreateEdgeTypePayload
		seen, err := walkTypeDefPayload(data, &p.TypeDef, nil)
		if err != nil {
			return nil, err
		}
		if !seen {
			return nil, fmt.Errorf("type_def: %w", errMissingField)
		}
		return p, nil
	case OperationTypeAddEdgeKind:
		var p AddEdgeKindPayload
		seen, err := walkEdgeKindPayload(data, &p.EdgeKind, &p.TableIdx)
		if err != nil {
			return nil, err
		}
		if !seen {
			return nil, fmt.Errorf("edge_kind: %w", errMissingField)
		}
		return p, nil
	case OperationTypeRemoveEdgeKind:
		var p RemoveEdgeKindPayload
		seen, err := walkEdgeKindPayload(data, &p.EdgeKind, nil)
		if err != nil {
			return nil, err
		}
		if !seen {
			return nil, fmt.Errorf("edge_kind: %w", errMissingField)
		}
		return p, nil
	case OperationTypeDropVertexType:
		id, err := walkLabelIDPayload(data)
		if err != nil {
			return nil, err
		}
		return DropVertexTypePayload{LabelID: id}, nil
	case OperationTypeDropEdgeType:
		id, err := walkLabelIDPayload(data)
		if err != nil {
			return nil, err
		}
		return DropEdgeTypePayload{LabelID: id}, nil
	case OperationTypePrepareDataLoad:
		var p PrepareDataLoadPayload
		err := protoutil.Walk(data, func(f protoutil.Field) (err error) {
			switch f.Num {
			case 1:
				p.Target, err = unmarshalDataLoadTarget(f.Bytes)
			case 2:
				p.TableIdx = f.Int64()
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case OperationTypeCommitDataLoad:
		var p CommitDataLoadPayload
		err := protoutil.Walk(data, func(f protoutil.Field) (err error) {
			switch f.Num {
			case 1:
				p.Target, err = unmarshalDataLoadTarget(f.Bytes)
			case 2:
				p.TableIdx = f.Int64()
			case 3:
				p.Path = f.Text()
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperationType, int32(t))
	}
}

func walkTypeDefPayload(data []byte, td *graphdef.TypeDef, tableIdx *int64) (seen bool, err error) {
	err = protoutil.Walk(data, func(f protoutil.Field) (err error) {
		switch f.Num {
		case 1:
			seen = true
			*td, err = graphdef.UnmarshalTypeDef(f.Bytes)
		case 2:
			if tableIdx != nil {
				*tableIdx = f.Int64()
			}
		}
		return err
	})
	return seen, err
}

func walkEdgeKindPayload(data []byte, ek *graphdef.EdgeKind, tableIdx *int64) (seen bool, err error) {
	err = protoutil.Walk(data, func(f protoutil.Field) (err error) {
		switch f.Num {
		case 1:
			seen = true
			*ek, err = graphdef.UnmarshalEdgeKind(f.Bytes)
		case 2:
			if tableIdx != nil {
				*tableIdx = f.Int64()
			}
		}
		return err
	})
	return seen, err
}

func walkLabelIDPayload(data []byte) (graphdef.LabelID, error) {
	var id graphdef.LabelID
	err := protoutil.Walk(data, func(f protoutil.Field) error {
		if f.Num == 1 {
			id = graphdef.LabelID(f.Int32())
		}
		return nil
	})
	if err == nil && id == 0 {
		err = fmt.Errorf("label_id: %w", errMissingField)
	}
	return id, err
}
