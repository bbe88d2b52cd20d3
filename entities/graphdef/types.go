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
	"bytes"
	"fmt"
	"strings"
)

// LabelID identifies a vertex or edge type. Ids are allocated from the
// catalog's label counter and never reassigned.
type LabelID int32

// TypeKind tells vertex types apart from edge types
type TypeKind uint8

const (
	TypeKindUnknown TypeKind = iota
	TypeKindVertex
	TypeKindEdge
)

func (k TypeKind) String() string {
	switch k {
	case TypeKindVertex:
		return "VERTEX"
	case TypeKindEdge:
		return "EDGE"
	default:
		return "UNKNOWN"
	}
}

type DataType uint8

const (
	DataTypeUnknown DataType = iota
	DataTypeBool
	DataTypeChar
	DataTypeShort
	DataTypeInt
	DataTypeLong
	DataTypeFloat
	DataTypeDouble
	DataTypeString
	DataTypeBytes
	DataTypeIntList
	DataTypeLongList
	DataTypeFloatList
	DataTypeDoubleList
	DataTypeStringList
	DataTypeDate
	DataTypeTime
	DataTypeTimestamp
)

var dataTypeNames = map[DataType]string{
	DataTypeBool:       "BOOL",
	DataTypeChar:       "CHAR",
	DataTypeShort:      "SHORT",
	DataTypeInt:        "INT",
	DataTypeLong:       "LONG",
	DataTypeFloat:      "FLOAT",
	DataTypeDouble:     "DOUBLE",
	DataTypeString:     "STRING",
	DataTypeBytes:      "BYTES",
	DataTypeIntList:    "INT_LIST",
	DataTypeLongList:   "LONG_LIST",
	DataTypeFloatList:  "FLOAT_LIST",
	DataTypeDoubleList: "DOUBLE_LIST",
	DataTypeStringList: "STRING_LIST",
	DataTypeDate:       "DATE",
	DataTypeTime:       "TIME",
	DataTypeTimestamp:  "TIMESTAMP",
}

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return "UNKNOWN"
}

func (d DataType) Valid() bool {
	_, ok := dataTypeNames[d]
	return ok
}

// ParseDataType parses the name of a data type, case insensitive.
func ParseDataType(s string) (DataType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for dt, n := range dataTypeNames {
		if n == name {
			return dt, nil
		}
	}
	return DataTypeUnknown, fmt.Errorf("unknown data type %q", s)
}

// PropertyDef describes a single property of a type. ID is the global
// property id shared by all types using the same property name, InnerID is
// the position of the property within its type starting at 1.
type PropertyDef struct {
	ID       int32
	InnerID  int32
	Name     string
	DataType DataType
	// DefaultValue is nil if the property has no default.
	DefaultValue []byte
	PrimaryKey   bool
	Comment      string
}

func (p PropertyDef) HasDefault() bool { return p.DefaultValue != nil }

func (p PropertyDef) equal(o PropertyDef) bool {
	return p.ID == o.ID && p.InnerID == o.InnerID && p.Name == o.Name &&
		p.DataType == o.DataType && p.PrimaryKey == o.PrimaryKey && p.Comment == o.Comment &&
		(p.DefaultValue == nil) == (o.DefaultValue == nil) && bytes.Equal(p.DefaultValue, o.DefaultValue)
}

type TypeDef struct {
	LabelID    LabelID
	Label      string
	Kind       TypeKind
	Properties []PropertyDef
}

// Property returns the property with the given name
func (t TypeDef) Property(name string) (PropertyDef, bool) {
	for _, p := range t.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDef{}, false
}

// PrimaryKeys returns the primary key properties in declaration order.
func (t TypeDef) PrimaryKeys() []PropertyDef {
	var pks []PropertyDef
	for _, p := range t.Properties {
		if p.PrimaryKey {
			pks = append(pks, p)
		}
	}
	return pks
}

// Equal compares all fields including property order.
func (t TypeDef) Equal(o TypeDef) bool {
	if t.LabelID != o.LabelID || t.Label != o.Label || t.Kind != o.Kind ||
		len(t.Properties) != len(o.Properties) {
		return false
	}
	for i := range t.Properties {
		if !t.Properties[i].equal(o.Properties[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of t.
func (t TypeDef) Clone() TypeDef {
	cp := t
	if t.Properties != nil {
		cp.Properties = make([]PropertyDef, len(t.Properties))
		for i, p := range t.Properties {
			if p.DefaultValue != nil {
				p.DefaultValue = append([]byte{}, p.DefaultValue...)
			}
			cp.Properties[i] = p
		}
	}
	return cp
}

// EdgeKind is a (edge label, source vertex label, destination vertex label)
// triple. A single edge label may own several kinds.
type EdgeKind struct {
	EdgeLabelID LabelID
	SrcLabelID  LabelID
	DstLabelID  LabelID
}

func (e EdgeKind) String() string {
	return fmt.Sprintf("%d:%d->%d", e.EdgeLabelID, e.SrcLabelID, e.DstLabelID)
}

func (e EdgeKind) less(o EdgeKind) bool {
	if e.EdgeLabelID != o.EdgeLabelID {
		return e.EdgeLabelID < o.EdgeLabelID
	}
	if e.SrcLabelID != o.SrcLabelID {
		return e.SrcLabelID < o.SrcLabelID
	}
	return e.DstLabelID < o.DstLabelID
}
