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
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
)

func resolveTarget(def *graphdef.GraphDef, t DataLoadTarget) (api.DataLoadTarget, error) {
	if !t.isEdgeKind() {
		td, err := typeOfKind(def, t.Label, graphdef.TypeKindVertex)
		if err != nil {
			return api.DataLoadTarget{}, err
		}
		return api.DataLoadTarget{LabelID: td.LabelID}, nil
	}

	ek, err := resolveEdgeKind(def, t.Label, t.SrcLabel, t.DstLabel)
	if err != nil {
		return api.DataLoadTarget{}, err
	}
	if !def.HasEdgeKind(ek) {
		return api.DataLoadTarget{}, enterrors.NewValidation("edge kind %s->%s->%s does not exist",
			t.SrcLabel, t.Label, t.DstLabel)
	}
	return api.DataLoadTarget{LabelID: ek.EdgeLabelID, SrcLabelID: ek.SrcLabelID, DstLabelID: ek.DstLabelID}, nil
}

// prepareDataLoad reserves a fresh table id a bulk load can write into
// without touching the live table of the target.
func prepareDataLoad(r PrepareDataLoadRequest, def *graphdef.GraphDef) (*graphdef.GraphDef, api.Payload, error) {
	target, err := resolveTarget(def, r.Target)
	if err != nil {
		return nil, nil, err
	}

	tableIdx := def.TableIdx() + 1
	next := graphdef.NewBuilder(def).
		SetTableIdx(tableIdx).
		SetVersion(def.Version() + 1).
		Build()
	return next, api.PrepareDataLoadPayload{Target: target, TableIdx: tableIdx}, nil
}

func commitDataLoad(r CommitDataLoadRequest, def *graphdef.GraphDef) (*graphdef.GraphDef, api.Payload, error) {
	target, err := resolveTarget(def, r.Target)
	if err != nil {
		return nil, nil, err
	}
	if r.TableIdx <= 0 || r.TableIdx > def.TableIdx() {
		return nil, nil, enterrors.NewValidation("table %d was never allocated", r.TableIdx)
	}

	next := graphdef.NewBuilder(def).
		SetVersion(def.Version() + 1).
		Build()
	return next, api.CommitDataLoadPayload{Target: target, TableIdx: r.TableIdx, Path: r.Path}, nil
}
