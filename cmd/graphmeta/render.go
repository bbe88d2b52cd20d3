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

package main

import (
	"gopkg.in/yaml.v2"

	"github.com/weaviate/graphmeta/entities/graphdef"
)

type catalogView struct {
	Version     int64          `yaml:"version"`
	LabelIdx    int32          `yaml:"label_idx"`
	PropertyIdx int32          `yaml:"property_idx"`
	TableIdx    int64          `yaml:"table_idx"`
	Types       []typeView     `yaml:"types"`
	EdgeKinds   []edgeKindView `yaml:"edge_kinds,omitempty"`
}

type typeView struct {
	ID         graphdef.LabelID `yaml:"id"`
	Label      string           `yaml:"label"`
	Kind       string           `yaml:"kind"`
	Table      int64            `yaml:"table,omitempty"`
	Properties []propertyView   `yaml:"properties,omitempty"`
}

type propertyView struct {
	ID         int32   `yaml:"id"`
	Name       string  `yaml:"name"`
	Type       string  `yaml:"type"`
	PrimaryKey bool    `yaml:"primary_key,omitempty"`
	Default    *string `yaml:"default,omitempty"`
	Comment    string  `yaml:"comment,omitempty"`
}

type edgeKindView struct {
	Edge  string `yaml:"edge"`
	Src   string `yaml:"src"`
	Dst   string `yaml:"dst"`
	Table int64  `yaml:"table,omitempty"`
}

func renderCatalog(def *graphdef.GraphDef) ([]byte, error) {
	v := catalogView{
		Version:     def.Version(),
		LabelIdx:    def.LabelIdx(),
		PropertyIdx: def.PropertyIdx(),
		TableIdx:    def.TableIdx(),
		Types:       []typeView{},
	}
	labels := map[graphdef.LabelID]string{}
	for _, td := range def.TypeDefs() {
		labels[td.LabelID] = td.Label
		tv := typeView{ID: td.LabelID, Label: td.Label, Kind: td.Kind.String()}
		if t, ok := def.VertexTableID(td.LabelID); ok {
			tv.Table = t
		}
		for _, p := range td.Properties {
			pv := propertyView{
				ID:         p.ID,
				Name:       p.Name,
				Type:       p.DataType.String(),
				PrimaryKey: p.PrimaryKey,
				Comment:    p.Comment,
			}
			if p.HasDefault() {
				d := string(p.DefaultValue)
				pv.Default = &d
			}
			tv.Properties = append(tv.Properties, pv)
		}
		v.Types = append(v.Types, tv)
	}
	for _, ek := range def.EdgeKinds() {
		ev := edgeKindView{Edge: labels[ek.EdgeLabelID], Src: labels[ek.SrcLabelID], Dst: labels[ek.DstLabelID]}
		if t, ok := def.EdgeTableID(ek); ok {
			ev.Table = t
		}
		v.EdgeKinds = append(v.EdgeKinds, ev)
	}
	return yaml.Marshal(v)
}
