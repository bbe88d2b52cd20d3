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

package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/weaviate/graphmeta/cluster/ddl"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
)

// batchFile is the YAML form of a DDL batch:
//
//	requests:
//	  - create_vertex_type:
//	      label: person
//	      properties:
//	        - {name: id, type: LONG, primary_key: true}
//	  - add_edge_kind: {edge: knows, src: person, dst: person}
type batchFile struct {
	Requests []requestEntry `yaml:"requests"`
}

type requestEntry struct {
	CreateVertexType *typeEntry     `yaml:"create_vertex_type"`
	CreateEdgeType   *typeEntry     `yaml:"create_edge_type"`
	AddEdgeKind      *edgeKindEntry `yaml:"add_edge_kind"`
	RemoveEdgeKind   *edgeKindEntry `yaml:"remove_edge_kind"`
	DropVertexType   *labelEntry    `yaml:"drop_vertex_type"`
	DropEdgeType     *labelEntry    `yaml:"drop_edge_type"`
	PrepareDataLoad  *dataLoadEntry `yaml:"prepare_data_load"`
	CommitDataLoad   *dataLoadEntry `yaml:"commit_data_load"`
}

type typeEntry struct {
	Label      string          `yaml:"label"`
	Properties []propertyEntry `yaml:"properties"`
}

type propertyEntry struct {
	Name       string  `yaml:"name"`
	Type       string  `yaml:"type"`
	PrimaryKey bool    `yaml:"primary_key"`
	Default    *string `yaml:"default"`
	Comment    string  `yaml:"comment"`
}

type edgeKindEntry struct {
	Edge string `yaml:"edge"`
	Src  string `yaml:"src"`
	Dst  string `yaml:"dst"`
}

type labelEntry struct {
	Label string `yaml:"label"`
}

type dataLoadEntry struct {
	Label string `yaml:"label"`
	Src   string `yaml:"src"`
	Dst   string `yaml:"dst"`
	Table int64  `yaml:"table"`
	Path  string `yaml:"path"`
}

// LoadBatchFile reads a YAML batch from path.
func LoadBatchFile(path string) (ddl.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ddl.Batch{}, err
	}
	b, err := ParseBatch(data)
	if err != nil {
		return ddl.Batch{}, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ParseBatch decodes a YAML batch. Unknown keys are rejected.
func ParseBatch(data []byte) (ddl.Batch, error) {
	var f batchFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return ddl.Batch{}, enterrors.NewValidation("parse batch: %v", err)
	}
	batch := ddl.Batch{Requests: make([]ddl.Request, 0, len(f.Requests))}
	for i, e := range f.Requests {
		req, err := e.request()
		if err != nil {
			return ddl.Batch{}, fmt.Errorf("request %d: %w", i, err)
		}
		batch.Requests = append(batch.Requests, req)
	}
	return batch, nil
}

func (e requestEntry) request() (ddl.Request, error) {
	var reqs []ddl.Request
	if e.CreateVertexType != nil {
		props, err := e.CreateVertexType.properties()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, ddl.CreateVertexTypeRequest{Label: e.CreateVertexType.Label, Properties: props})
	}
	if e.CreateEdgeType != nil {
		props, err := e.CreateEdgeType.properties()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, ddl.CreateEdgeTypeRequest{Label: e.CreateEdgeType.Label, Properties: props})
	}
	if k := e.AddEdgeKind; k != nil {
		reqs = append(reqs, ddl.AddEdgeKindRequest{EdgeLabel: k.Edge, SrcVertexLabel: k.Src, DstVertexLabel: k.Dst})
	}
	if k := e.RemoveEdgeKind; k != nil {
		reqs = append(reqs, ddl.RemoveEdgeKindRequest{EdgeLabel: k.Edge, SrcVertexLabel: k.Src, DstVertexLabel: k.Dst})
	}
	if e.DropVertexType != nil {
		reqs = append(reqs, ddl.DropVertexTypeRequest{Label: e.DropVertexType.Label})
	}
	if e.DropEdgeType != nil {
		reqs = append(reqs, ddl.DropEdgeTypeRequest{Label: e.DropEdgeType.Label})
	}
	if d := e.PrepareDataLoad; d != nil {
		reqs = append(reqs, ddl.PrepareDataLoadRequest{Target: d.target()})
	}
	if d := e.CommitDataLoad; d != nil {
		reqs = append(reqs, ddl.CommitDataLoadRequest{Target: d.target(), TableIdx: d.Table, Path: d.Path})
	}

	if len(reqs) != 1 {
		return nil, enterrors.NewValidation("expected exactly one operation, got %d", len(reqs))
	}
	return reqs[0], nil
}

func (t *typeEntry) properties() ([]ddl.PropertySpec, error) {
	out := make([]ddl.PropertySpec, 0, len(t.Properties))
	for _, p := range t.Properties {
		dt, err := graphdef.ParseDataType(p.Type)
		if err != nil {
			return nil, enterrors.NewValidation("property %q: %v", p.Name, err)
		}
		spec := ddl.PropertySpec{
			Name:       p.Name,
			DataType:   dt,
			PrimaryKey: p.PrimaryKey,
			Comment:    p.Comment,
		}
		if p.Default != nil {
			spec.DefaultValue = []byte(*p.Default)
		}
		out = append(out, spec)
	}
	return out, nil
}

func (d *dataLoadEntry) target() ddl.DataLoadTarget {
	return ddl.DataLoadTarget{Label: d.Label, SrcLabel: d.Src, DstLabel: d.Dst}
}
