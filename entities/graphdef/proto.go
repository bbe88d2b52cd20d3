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
	"fmt"
	"slices"

	"github.com/weaviate/graphmeta/entities/protoutil"
)

// Field numbers of the catalog messages. They must never be reused.
const (
	graphDefVersion     = 1
	graphDefLabelIdx    = 2
	graphDefPropertyIdx = 3
	graphDefTableIdx    = 4
	graphDefTypes       = 5
	graphDefEdgeKinds   = 6
	graphDefPropNames   = 7
	graphDefVertexTable = 8
	graphDefEdgeTable   = 9

	typeDefLabelID    = 1
	typeDefLabel      = 2
	typeDefKind       = 3
	typeDefProperties = 4

	propID         = 1
	propInnerID    = 2
	propName       = 3
	propDataType   = 4
	propDefault    = 5
	propPrimaryKey = 6
	propComment    = 7

	edgeKindEdge = 1
	edgeKindSrc  = 2
	edgeKindDst  = 3

	entryKey   = 1
	entryValue = 2
)

// Marshal encodes the catalog in its proto form. Repeated fields are sorted
// so that equal catalogs always produce identical bytes.
func (g *GraphDef) Marshal() []byte {
	var b []byte
	b = protoutil.AppendInt64(b, graphDefVersion, g.version)
	b = protoutil.AppendInt32(b, graphDefLabelIdx, g.labelIdx)
	b = protoutil.AppendInt32(b, graphDefPropertyIdx, g.propertyIdx)
	b = protoutil.AppendInt64(b, graphDefTableIdx, g.tableIdx)

	for _, td := range g.TypeDefs() {
		b = protoutil.AppendMessage(b, graphDefTypes, MarshalTypeDef(td))
	}
	for _, ek := range g.EdgeKinds() {
		b = protoutil.AppendMessage(b, graphDefEdgeKinds, MarshalEdgeKind(ek))
	}

	names := make([]string, 0, len(g.propertyNameToID))
	for name := range g.propertyNameToID {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		var e []byte
		e = protoutil.AppendString(e, entryKey, name)
		e = protoutil.AppendInt32(e, entryValue, g.propertyNameToID[name])
		b = protoutil.AppendMessage(b, graphDefPropNames, e)
	}

	vertexIDs := make([]LabelID, 0, len(g.vertexTableIDs))
	for id := range g.vertexTableIDs {
		vertexIDs = append(vertexIDs, id)
	}
	slices.Sort(vertexIDs)
	for _, id := range vertexIDs {
		var e []byte
		e = protoutil.AppendInt32(e, entryKey, int32(id))
		e = protoutil.AppendInt64(e, entryValue, g.vertexTableIDs[id])
		b = protoutil.AppendMessage(b, graphDefVertexTable, e)
	}

	edgeSet := make(map[EdgeKind]struct{}, len(g.edgeTableIDs))
	for ek := range g.edgeTableIDs {
		edgeSet[ek] = struct{}{}
	}
	for _, ek := range sortedEdgeKinds(edgeSet) {
		var e []byte
		e = protoutil.AppendMessage(e, entryKey, MarshalEdgeKind(ek))
		e = protoutil.AppendInt64(e, entryValue, g.edgeTableIDs[ek])
		b = protoutil.AppendMessage(b, graphDefEdgeTable, e)
	}
	return b
}

// Unmarshal decodes a catalog from its proto form. Unknown fields are
// ignored.
func Unmarshal(data []byte) (*GraphDef, error) {
	b := NewBuilder(nil)
	err := protoutil.Walk(data, func(f protoutil.Field) error {
		switch f.Num {
		case graphDefVersion:
			b.SetVersion(f.Int64())
		case graphDefLabelIdx:
			b.SetLabelIdx(f.Int32())
		case graphDefPropertyIdx:
			b.SetPropertyIdx(f.Int32())
		case graphDefTableIdx:
			b.SetTableIdx(f.Int64())
		case graphDefTypes:
			td, err := UnmarshalTypeDef(f.Bytes)
			if err != nil {
				return err
			}
			b.AddTypeDef(td)
		case graphDefEdgeKinds:
			ek, err := UnmarshalEdgeKind(f.Bytes)
			if err != nil {
				return err
			}
			b.AddEdgeKind(ek)
		case graphDefPropNames:
			var (
				name string
				id   int32
			)
			if err := protoutil.Walk(f.Bytes, func(e protoutil.Field) error {
				switch e.Num {
				case entryKey:
					name = e.Text()
				case entryValue:
					id = e.Int32()
				}
				return nil
			}); err != nil {
				return fmt.Errorf("property name entry: %w", err)
			}
			b.PutPropertyNameToID(name, id)
		case graphDefVertexTable:
			var (
				id    LabelID
				table int64
			)
			if err := protoutil.Walk(f.Bytes, func(e protoutil.Field) error {
				switch e.Num {
				case entryKey:
					id = LabelID(e.Int32())
				case entryValue:
					table = e.Int64()
				}
				return nil
			}); err != nil {
				return fmt.Errorf("vertex table entry: %w", err)
			}
			b.PutVertexTableID(id, table)
		case graphDefEdgeTable:
			var (
				ek    EdgeKind
				table int64
			)
			if err := protoutil.Walk(f.Bytes, func(e protoutil.Field) error {
				switch e.Num {
				case entryKey:
					var err error
					ek, err = UnmarshalEdgeKind(e.Bytes)
					return err
				case entryValue:
					table = e.Int64()
				}
				return nil
			}); err != nil {
				return fmt.Errorf("edge table entry: %w", err)
			}
			b.PutEdgeTableID(ek, table)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal graph def: %w", err)
	}
	return b.Build(), nil
}

func MarshalTypeDef(td TypeDef) []byte {
	var b []byte
	b = protoutil.AppendInt32(b, typeDefLabelID, int32(td.LabelID))
	b = protoutil.AppendString(b, typeDefLabel, td.Label)
	b = protoutil.AppendVarint(b, typeDefKind, uint64(td.Kind))
	for _, p := range td.Properties {
		b = protoutil.AppendMessage(b, typeDefProperties, marshalPropertyDef(p))
	}
	return b
}

func UnmarshalTypeDef(data []byte) (TypeDef, error) {
	var td TypeDef
	err := protoutil.Walk(data, func(f protoutil.Field) error {
		switch f.Num {
		case typeDefLabelID:
			td.LabelID = LabelID(f.Int32())
		case typeDefLabel:
			td.Label = f.Text()
		case typeDefKind:
			td.Kind = TypeKind(f.Varint)
		case typeDefProperties:
			p, err := unmarshalPropertyDef(f.Bytes)
			if err != nil {
				return err
			}
			td.Properties = append(td.Properties, p)
		}
		return nil
	})
	if err != nil {
		return TypeDef{}, fmt.Errorf("unmarshal type def: %w", err)
	}
	return td, nil
}

func marshalPropertyDef(p PropertyDef) []byte {
	var b []byte
	b = protoutil.AppendInt32(b, propID, p.ID)
	b = protoutil.AppendInt32(b, propInnerID, p.InnerID)
	b = protoutil.AppendString(b, propName, p.Name)
	b = protoutil.AppendVarint(b, propDataType, uint64(p.DataType))
	b = protoutil.AppendBytes(b, propDefault, p.DefaultValue)
	b = protoutil.AppendBool(b, propPrimaryKey, p.PrimaryKey)
	b = protoutil.AppendString(b, propComment, p.Comment)
	return b
}

func unmarshalPropertyDef(data []byte) (PropertyDef, error) {
	var p PropertyDef
	err := protoutil.Walk(data, func(f protoutil.Field) error {
		switch f.Num {
		case propID:
			p.ID = f.Int32()
		case propInnerID:
			p.InnerID = f.Int32()
		case propName:
			p.Name = f.Text()
		case propDataType:
			p.DataType = DataType(f.Varint)
		case propDefault:
			p.DefaultValue = f.CopyBytes()
		case propPrimaryKey:
			p.PrimaryKey = f.Bool()
		case propComment:
			p.Comment = f.Text()
		}
		return nil
	})
	if err != nil {
		return PropertyDef{}, fmt.Errorf("property def: %w", err)
	}
	return p, nil
}

func MarshalEdgeKind(ek EdgeKind) []byte {
	var b []byte
	b = protoutil.AppendInt32(b, edgeKindEdge, int32(ek.EdgeLabelID))
	b = protoutil.AppendInt32(b, edgeKindSrc, int32(ek.SrcLabelID))
	b = protoutil.AppendInt32(b, edgeKindDst, int32(ek.DstLabelID))
	return b
}

func UnmarshalEdgeKind(data []byte) (EdgeKind, error) {
	var ek EdgeKind
	err := protoutil.Walk(data, func(f protoutil.Field) error {
		switch f.Num {
		case edgeKindEdge:
			ek.EdgeLabelID = LabelID(f.Int32())
		case edgeKindSrc:
			ek.SrcLabelID = LabelID(f.Int32())
		case edgeKindDst:
			ek.DstLabelID = LabelID(f.Int32())
		}
		return nil
	})
	if err != nil {
		return EdgeKind{}, fmt.Errorf("unmarshal edge kind: %w", err)
	}
	return ek, nil
}
