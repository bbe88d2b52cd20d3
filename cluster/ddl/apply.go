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
	"fmt"

	"github.com/weaviate/graphmeta/cluster/proto/api"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
)

// ApplyOperation replays a committed operation on def. Operations at or
// below the current version were already absorbed and are skipped with
// applied == false. A version gap, an unknown type or a payload that does
// not fit def fail with an error wrapping errors.ErrReplay.
//
// Ids carried by the payload are trusted; the counters of def are moved up
// to cover them so a replayed catalog never hands out an id twice.
func ApplyOperation(def *graphdef.GraphDef, op api.Operation) (*graphdef.GraphDef, bool, error) {
	if def == nil {
		def = graphdef.Empty()
	}
	if op.SchemaVersion <= def.Version() {
		return def, false, nil
	}
	if op.SchemaVersion != def.Version()+1 {
		return nil, false, enterrors.NewReplay(
			fmt.Sprintf("partition %d: version gap, catalog at %d, operation at %d",
				op.PartitionID, def.Version(), op.SchemaVersion), nil)
	}

	payload, err := op.DecodePayload()
	if err != nil {
		return nil, false, enterrors.NewReplay(
			fmt.Sprintf("partition %d: version %d", op.PartitionID, op.SchemaVersion), err)
	}

	b := graphdef.NewBuilder(def)
	if err := applyPayload(b, def, payload); err != nil {
		return nil, false, enterrors.NewReplay(
			fmt.Sprintf("partition %d: apply %s at version %d", op.PartitionID, op.Type, op.SchemaVersion), err)
	}
	return b.SetVersion(op.SchemaVersion).Build(), true, nil
}

func applyPayload(b *graphdef.Builder, def *graphdef.GraphDef, payload api.Payload) error {
	switch p := payload.(type) {
	case api.CreateVertexTypePayload:
		if err := applyTypeDef(b, def, p.TypeDef, graphdef.TypeKindVertex); err != nil {
			return err
		}
		raiseTableIdx(b, def, p.TableIdx)
		b.PutVertexTableID(p.TypeDef.LabelID, p.TableIdx)
	case api.CreateEdgeTypePayload:
		return applyTypeDef(b, def, p.TypeDef, graphdef.TypeKindEdge)
	case api.AddEdgeKindPayload:
		if def.HasEdgeKind(p.EdgeKind) {
			return fmt.Errorf("edge kind %s already exists", p.EdgeKind)
		}
		if err := checkKind(def, p.EdgeKind.EdgeLabelID, graphdef.TypeKindEdge); err != nil {
			return err
		}
		if err := checkKind(def, p.EdgeKind.SrcLabelID, graphdef.TypeKindVertex); err != nil {
			return err
		}
		if err := checkKind(def, p.EdgeKind.DstLabelID, graphdef.TypeKindVertex); err != nil {
			return err
		}
		raiseTableIdx(b, def, p.TableIdx)
		b.AddEdgeKind(p.EdgeKind).PutEdgeTableID(p.EdgeKind, p.TableIdx)
	case api.RemoveEdgeKindPayload:
		if !def.HasEdgeKind(p.EdgeKind) {
			return fmt.Errorf("edge kind %s does not exist", p.EdgeKind)
		}
		b.RemoveEdgeKind(p.EdgeKind).ClearUnusedPropertyNames()
	case api.DropVertexTypePayload:
		if err := checkKind(def, p.LabelID, graphdef.TypeKindVertex); err != nil {
			return err
		}
		b.RemoveTypeDef(p.LabelID).ClearUnusedPropertyNames()
	case api.DropEdgeTypePayload:
		if err := checkKind(def, p.LabelID, graphdef.TypeKindEdge); err != nil {
			return err
		}
		b.RemoveTypeDef(p.LabelID).ClearUnusedPropertyNames()
	case api.PrepareDataLoadPayload:
		raiseTableIdx(b, def, p.TableIdx)
	case api.CommitDataLoadPayload:
	default:
		return fmt.Errorf("unsupported payload %T", payload)
	}
	return nil
}

func applyTypeDef(b *graphdef.Builder, def *graphdef.GraphDef, td graphdef.TypeDef, kind graphdef.TypeKind) error {
	if td.Kind != kind {
		return fmt.Errorf("type %q has kind %s, expected %s", td.Label, td.Kind, kind)
	}
	if def.HasLabel(td.Label) {
		return fmt.Errorf("label %q already exists", td.Label)
	}
	if _, err := def.TypeDefByID(td.LabelID); err == nil {
		return fmt.Errorf("label id %d already in use", td.LabelID)
	}

	if int32(td.LabelID) > def.LabelIdx() {
		b.SetLabelIdx(int32(td.LabelID))
	}
	propertyIdx := def.PropertyIdx()
	for _, p := range td.Properties {
		b.PutPropertyNameToID(p.Name, p.ID)
		if p.ID > propertyIdx {
			propertyIdx = p.ID
		}
	}
	b.SetPropertyIdx(propertyIdx).AddTypeDef(td)
	return nil
}

func checkKind(def *graphdef.GraphDef, id graphdef.LabelID, kind graphdef.TypeKind) error {
	td, err := def.TypeDefByID(id)
	if err != nil {
		return err
	}
	if td.Kind != kind {
		return fmt.Errorf("label id %d is of kind %s, expected %s", id, td.Kind, kind)
	}
	return nil
}

func raiseTableIdx(b *graphdef.Builder, def *graphdef.GraphDef, tableIdx int64) {
	if tableIdx > def.TableIdx() {
		b.SetTableIdx(tableIdx)
	}
}
