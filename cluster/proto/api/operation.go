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

	"github.com/weaviate/graphmeta/entities/protoutil"
)

// ErrUnknownOperationType is returned when decoding an operation whose type
// this binary does not know. Such an operation must never be skipped.
var ErrUnknownOperationType = errors.New("unknown operation type")

type OperationType int32

const (
	OperationTypeUnknown OperationType = iota
	OperationTypeCreateVertexType
	OperationTypeCreateEdgeType
	OperationTypeAddEdgeKind
	OperationTypeDropVertexType
	OperationTypeDropEdgeType
	OperationTypeRemoveEdgeKind
	OperationTypePrepareDataLoad
	OperationTypeCommitDataLoad
)

var operationTypeNames = map[OperationType]string{
	OperationTypeCreateVertexType: "CreateVertexType",
	OperationTypeCreateEdgeType:   "CreateEdgeType",
	OperationTypeAddEdgeKind:      "AddEdgeKind",
	OperationTypeDropVertexType:   "DropVertexType",
	OperationTypeDropEdgeType:     "DropEdgeType",
	OperationTypeRemoveEdgeKind:   "RemoveEdgeKind",
	OperationTypePrepareDataLoad:  "PrepareDataLoad",
	OperationTypeCommitDataLoad:   "CommitDataLoad",
}

func (t OperationType) String() string {
	if name, ok := operationTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("OperationType(%d)", int32(t))
}

func (t OperationType) Known() bool {
	_, ok := operationTypeNames[t]
	return ok
}

const (
	operationSchemaVersion = 1
	operationType          = 2
	operationPayload       = 3
)

// Operation is an immutable, partition routed record of one committed
// mutation. PartitionID is routing information and not part of the encoded
// form; the log partition an operation is read from determines it.
type Operation struct {
	PartitionID   int32
	SchemaVersion int64
	Type          OperationType
	Payload       []byte
}

// NewOperation encodes p as the payload of a new operation.
func NewOperation(partitionID int32, schemaVersion int64, p Payload) Operation {
	return Operation{
		PartitionID:   partitionID,
		SchemaVersion: schemaVersion,
		Type:          p.Type(),
		Payload:       p.Marshal(),
	}
}

// Marshal encodes {schemaVersion, type, payload}.
func (op Operation) Marshal() []byte {
	var b []byte
	b = protoutil.AppendInt64(b, operationSchemaVersion, op.SchemaVersion)
	b = protoutil.AppendVarint(b, operationType, uint64(op.Type))
	b = protoutil.AppendBytes(b, operationPayload, op.Payload)
	return b
}

// UnmarshalOperation decodes an operation read from the given partition. It
// fails with ErrUnknownOperationType for types this binary does not know.
func UnmarshalOperation(partitionID int32, data []byte) (Operation, error) {
	op := Operation{PartitionID: partitionID}
	err := protoutil.Walk(data, func(f protoutil.Field) error {
		switch f.Num {
		case operationSchemaVersion:
			op.SchemaVersion = f.Int64()
		case operationType:
			op.Type = OperationType(f.Varint)
		case operationPayload:
			op.Payload = f.CopyBytes()
		}
		return nil
	})
	if err != nil {
		return Operation{}, fmt.Errorf("unmarshal operation: %w", err)
	}
	if !op.Type.Known() {
		return Operation{}, fmt.Errorf("unmarshal operation: %w: %d", ErrUnknownOperationType, int32(op.Type))
	}
	return op, nil
}

// DecodePayload decodes the typed payload of op.
func (op Operation) DecodePayload() (Payload, error) {
	p, err := decodePayload(op.Type, op.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", op.Type, err)
	}
	return p, nil
}
