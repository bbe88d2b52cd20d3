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
	"strings"

	"github.com/weaviate/graphmeta/cluster/proto/api"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
)

func createVertexType(r CreateVertexTypeRequest, def *graphdef.GraphDef) (*graphdef.GraphDef, api.Payload, error) {
	b, td, err := createType(def, graphdef.TypeKindVertex, r.Label, r.Properties)
	if err != nil {
		return nil, nil, err
	}

	tableIdx := def.TableIdx() + 1
	b.SetTableIdx(tableIdx).PutVertexTableID(td.LabelID, tableIdx)

	return b.Build(), api.CreateVertexTypePayload{TypeDef: td, TableIdx: tableIdx}, nil
}

// createEdgeType allocates no table id; tables belong to edge kinds.
func createEdgeType(r CreateEdgeTypeRequest, def *graphdef.GraphDef) (*graphdef.GraphDef, api.Payload, error) {
	b, td, err := createType(def, graphdef.TypeKindEdge, r.Label, r.Properties)
	if err != nil {
		return nil, nil, err
	}
	return b.Build(), api.CreateEdgeTypePayload{TypeDef: td}, nil
}

// createType validates a new type and returns a builder holding it, with
// the label and property counters advanced and the version bumped.
func createType(def *graphdef.GraphDef, kind graphdef.TypeKind, label string,
	props []PropertySpec,
) (*graphdef.Builder, graphdef.TypeDef, error) {
	if strings.TrimSpace(label) == "" {
		return nil, graphdef.TypeDef{}, enterrors.NewValidation("label must not be empty")
	}
	if def.HasLabel(label) {
		return nil, graphdef.TypeDef{}, enterrors.NewValidation("label %q already exists", label)
	}
	if err := validateProperties(def, label, props); err != nil {
		return nil, graphdef.TypeDef{}, err
	}

	b := graphdef.NewBuilder(def)
	labelID := graphdef.LabelID(def.LabelIdx() + 1)
	propertyIdx := def.PropertyIdx()

	td := graphdef.TypeDef{
		LabelID:    labelID,
		Label:      label,
		Kind:       kind,
		Properties: make([]graphdef.PropertyDef, 0, len(props)),
	}
	for i, ps := range props {
		id, ok := def.PropertyID(ps.Name)
		if !ok {
			propertyIdx++
			id = propertyIdx
			b.PutPropertyNameToID(ps.Name, id)
		}
		td.Properties = append(td.Properties, graphdef.PropertyDef{
			ID:           id,
			InnerID:      int32(i + 1),
			Name:         ps.Name,
			DataType:     ps.DataType,
			DefaultValue: ps.DefaultValue,
			PrimaryKey:   ps.PrimaryKey,
			Comment:      ps.Comment,
		})
	}

	b.SetLabelIdx(int32(labelID)).
		SetPropertyIdx(propertyIdx).
		AddTypeDef(td).
		SetVersion(def.Version() + 1)
	return b, td, nil
}

func validateProperties(def *graphdef.GraphDef, label string, props []PropertySpec) error {
	existing := map[string]graphdef.DataType{}
	for _, td := range def.TypeDefs() {
		for _, p := range td.Properties {
			existing[p.Name] = p.DataType
		}
	}

	seen := make(map[string]struct{}, len(props))
	for _, p := range props {
		if strings.TrimSpace(p.Name) == "" {
			return enterrors.NewValidation("type %q: property name must not be empty", label)
		}
		if _, ok := seen[p.Name]; ok {
			return enterrors.NewValidation("type %q: duplicate property %q", label, p.Name)
		}
		seen[p.Name] = struct{}{}

		if !p.DataType.Valid() {
			return enterrors.NewValidation("type %q: property %q has unknown data type", label, p.Name)
		}
		if dt, ok := existing[p.Name]; ok && dt != p.DataType {
			return enterrors.NewValidation("type %q: property %q already exists with data type %s", label, p.Name, dt)
		}
		if p.PrimaryKey && isListType(p.DataType) {
			return enterrors.NewValidation("type %q: primary key %q must not be a list", label, p.Name)
		}
	}
	return nil
}

func isListType(dt graphdef.DataType) bool {
	switch dt {
	case graphdef.DataTypeIntList, graphdef.DataTypeLongList, graphdef.DataTypeFloatList,
		graphdef.DataTypeDoubleList, graphdef.DataTypeStringList:
		return true
	default:
		return false
	}
}
