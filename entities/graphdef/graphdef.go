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
	"maps"
	"slices"

	enterrors "github.com/weaviate/graphmeta/entities/errors"
)

// GraphDef is an immutable, versioned snapshot of the graph schema. A new
// version is always derived through a Builder; a published GraphDef is never
// mutated.
type GraphDef struct {
	version     int64
	labelIdx    int32
	propertyIdx int32
	tableIdx    int64

	propertyNameToID map[string]int32
	types            map[LabelID]TypeDef
	labelToID        map[string]LabelID
	edgeKinds        map[EdgeKind]struct{}
	vertexTableIDs   map[LabelID]int64
	edgeTableIDs     map[EdgeKind]int64
}

// Empty returns the catalog at version 0 without any type.
func Empty() *GraphDef {
	return NewBuilder(nil).Build()
}

func (g *GraphDef) Version() int64 { return g.version }

// LabelIdx is the last allocated label id.
func (g *GraphDef) LabelIdx() int32 { return g.labelIdx }

// PropertyIdx is the last allocated global property id.
func (g *GraphDef) PropertyIdx() int32 { return g.propertyIdx }

// TableIdx is the last allocated physical table id.
func (g *GraphDef) TableIdx() int64 { return g.tableIdx }

func (g *GraphDef) HasLabel(label string) bool {
	_, ok := g.labelToID[label]
	return ok
}

// TypeDef returns the type registered under label.
func (g *GraphDef) TypeDef(label string) (TypeDef, error) {
	id, ok := g.labelToID[label]
	if !ok {
		return TypeDef{}, enterrors.NewNotFound("schema element %q", label)
	}
	return g.types[id].Clone(), nil
}

// TypeDefByID returns the type registered under id.
func (g *GraphDef) TypeDefByID(id LabelID) (TypeDef, error) {
	td, ok := g.types[id]
	if !ok {
		return TypeDef{}, enterrors.NewNotFound("schema element with label id %d", id)
	}
	return td.Clone(), nil
}

// TypeDefs returns all types ordered by label id.
func (g *GraphDef) TypeDefs() []TypeDef {
	ids := make([]LabelID, 0, len(g.types))
	for id := range g.types {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]TypeDef, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.types[id].Clone())
	}
	return out
}

func (g *GraphDef) HasEdgeKind(ek EdgeKind) bool {
	_, ok := g.edgeKinds[ek]
	return ok
}

// EdgeKinds returns all edge kinds in a stable order.
func (g *GraphDef) EdgeKinds() []EdgeKind {
	return sortedEdgeKinds(g.edgeKinds)
}

// EdgeKindsOf returns the kinds owned by the given edge label.
func (g *GraphDef) EdgeKindsOf(edgeLabelID LabelID) []EdgeKind {
	var out []EdgeKind
	for _, ek := range g.EdgeKinds() {
		if ek.EdgeLabelID == edgeLabelID {
			out = append(out, ek)
		}
	}
	return out
}

// IsVertexReferenced reports whether any edge kind uses the vertex label as
// source or destination.
func (g *GraphDef) IsVertexReferenced(vertexLabelID LabelID) bool {
	for ek := range g.edgeKinds {
		if ek.SrcLabelID == vertexLabelID || ek.DstLabelID == vertexLabelID {
			return true
		}
	}
	return false
}

func (g *GraphDef) VertexTableID(id LabelID) (int64, bool) {
	t, ok := g.vertexTableIDs[id]
	return t, ok
}

func (g *GraphDef) EdgeTableID(ek EdgeKind) (int64, bool) {
	t, ok := g.edgeTableIDs[ek]
	return t, ok
}

func (g *GraphDef) PropertyID(name string) (int32, bool) {
	id, ok := g.propertyNameToID[name]
	return id, ok
}

// PropertyNameToID returns a copy of the global property name mapping.
func (g *GraphDef) PropertyNameToID() map[string]int32 {
	return maps.Clone(g.propertyNameToID)
}

// Equal compares two catalogs by their wire form.
func (g *GraphDef) Equal(o *GraphDef) bool {
	if g == nil || o == nil {
		return g == o
	}
	return bytes.Equal(g.Marshal(), o.Marshal())
}

func sortedEdgeKinds(set map[EdgeKind]struct{}) []EdgeKind {
	out := make([]EdgeKind, 0, len(set))
	for ek := range set {
		out = append(out, ek)
	}
	slices.SortFunc(out, func(a, b EdgeKind) int {
		switch {
		case a.less(b):
			return -1
		case b.less(a):
			return 1
		default:
			return 0
		}
	})
	return out
}

// Builder derives a new GraphDef from an old one. The old catalog is copied
// on construction so it is never affected by the builder.
type Builder struct {
	g GraphDef
}

// NewBuilder starts from old, or from an empty catalog if old is nil.
func NewBuilder(old *GraphDef) *Builder {
	b := &Builder{}
	if old == nil {
		b.g = GraphDef{
			propertyNameToID: map[string]int32{},
			types:            map[LabelID]TypeDef{},
			labelToID:        map[string]LabelID{},
			edgeKinds:        map[EdgeKind]struct{}{},
			vertexTableIDs:   map[LabelID]int64{},
			edgeTableIDs:     map[EdgeKind]int64{},
		}
		return b
	}
	b.g = old.clone()
	return b
}

func (g *GraphDef) clone() GraphDef {
	types := make(map[LabelID]TypeDef, len(g.types))
	for id, td := range g.types {
		types[id] = td.Clone()
	}
	return GraphDef{
		version:          g.version,
		labelIdx:         g.labelIdx,
		propertyIdx:      g.propertyIdx,
		tableIdx:         g.tableIdx,
		propertyNameToID: maps.Clone(g.propertyNameToID),
		types:            types,
		labelToID:        maps.Clone(g.labelToID),
		edgeKinds:        maps.Clone(g.edgeKinds),
		vertexTableIDs:   maps.Clone(g.vertexTableIDs),
		edgeTableIDs:     maps.Clone(g.edgeTableIDs),
	}
}

// Version returns the version the builder currently holds.
func (b *Builder) Version() int64 { return b.g.version }

func (b *Builder) SetVersion(v int64) *Builder {
	b.g.version = v
	return b
}

func (b *Builder) SetLabelIdx(idx int32) *Builder {
	b.g.labelIdx = idx
	return b
}

func (b *Builder) SetPropertyIdx(idx int32) *Builder {
	b.g.propertyIdx = idx
	return b
}

func (b *Builder) SetTableIdx(idx int64) *Builder {
	b.g.tableIdx = idx
	return b
}

// AddTypeDef registers td, replacing any type with the same label id.
func (b *Builder) AddTypeDef(td TypeDef) *Builder {
	if old, ok := b.g.types[td.LabelID]; ok {
		delete(b.g.labelToID, old.Label)
	}
	b.g.types[td.LabelID] = td.Clone()
	b.g.labelToID[td.Label] = td.LabelID
	return b
}

// RemoveTypeDef removes the type and its vertex table mapping.
func (b *Builder) RemoveTypeDef(id LabelID) *Builder {
	if td, ok := b.g.types[id]; ok {
		delete(b.g.labelToID, td.Label)
		delete(b.g.types, id)
	}
	delete(b.g.vertexTableIDs, id)
	return b
}

func (b *Builder) PutPropertyNameToID(name string, id int32) *Builder {
	b.g.propertyNameToID[name] = id
	return b
}

func (b *Builder) AddEdgeKind(ek EdgeKind) *Builder {
	b.g.edgeKinds[ek] = struct{}{}
	return b
}

// RemoveEdgeKind removes the kind and its table mapping.
func (b *Builder) RemoveEdgeKind(ek EdgeKind) *Builder {
	delete(b.g.edgeKinds, ek)
	delete(b.g.edgeTableIDs, ek)
	return b
}

func (b *Builder) PutVertexTableID(id LabelID, tableID int64) *Builder {
	b.g.vertexTableIDs[id] = tableID
	return b
}

func (b *Builder) PutEdgeTableID(ek EdgeKind, tableID int64) *Builder {
	b.g.edgeTableIDs[ek] = tableID
	return b
}

// ClearUnusedPropertyNames drops names from the global property mapping
// which are not used by any remaining type. The property counter is left
// untouched, so a dropped id is never handed out again.
func (b *Builder) ClearUnusedPropertyNames() *Builder {
	used := map[string]struct{}{}
	for _, td := range b.g.types {
		for _, p := range td.Properties {
			used[p.Name] = struct{}{}
		}
	}
	for name := range b.g.propertyNameToID {
		if _, ok := used[name]; !ok {
			delete(b.g.propertyNameToID, name)
		}
	}
	return b
}

// Build returns a new immutable GraphDef. The builder may be used further
// without affecting the returned value.
func (b *Builder) Build() *GraphDef {
	g := b.g.clone()
	return &g
}
