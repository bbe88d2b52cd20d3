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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/weaviate/graphmeta/cluster/proto/api"
	cwal "github.com/weaviate/graphmeta/cluster/wal"
	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
	"github.com/weaviate/graphmeta/usecases/schema"
)

type applyCommand struct {
	Args struct {
		File string `positional-arg-name:"batch-file" required:"yes"`
	} `positional-args:"yes"`
}

func (c *applyCommand) Execute([]string) error {
	batch, err := schema.LoadBatchFile(c.Args.File)
	if err != nil {
		return err
	}
	return run(func(ctx context.Context, a *app) error {
		m, _, err := a.manager(ctx)
		if err != nil {
			return err
		}
		defer m.Close()

		res, err := m.SubmitBatch(ctx, batch)
		if err != nil {
			return err
		}
		fmt.Printf("schema version %d, snapshot %d, %d operations\n",
			res.SchemaVersion, res.SnapshotID, res.Operations)
		return nil
	})
}

type catalogCommand struct {
	Version  int64 `long:"version" description:"print a stored catalog version instead of the latest"`
	Versions bool  `long:"versions" description:"list the stored catalog versions"`
}

func (c *catalogCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		if c.Versions {
			versions, err := a.store.Versions()
			if err != nil {
				return err
			}
			for _, v := range versions {
				fmt.Println(v)
			}
			return nil
		}

		var def *graphdef.GraphDef
		var err error
		if c.Version > 0 {
			def, err = a.store.GraphDef(c.Version)
		} else {
			def, err = latestCatalog(ctx, a.log, a.store, a.logger)
		}
		if err != nil {
			return err
		}
		out, err := renderCatalog(def)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	})
}

type checkpointLoader interface {
	Load(ctx context.Context) (schema.Checkpoint, bool, error)
}

// latestCatalog reads the last checkpoint and replays every partition on
// top of it without writing anything. The most advanced partition wins.
func latestCatalog(ctx context.Context, log cwal.Log, store checkpointLoader,
	logger logrus.FieldLogger,
) (*graphdef.GraphDef, error) {
	cp, ok, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	def, offsets := graphdef.Empty(), make([]uint64, log.Partitions())
	if ok {
		if len(cp.Offsets) != len(offsets) {
			return nil, enterrors.NewConsistency("checkpoint %d covers %d partitions, log has %d",
				cp.SnapshotID, len(cp.Offsets), len(offsets))
		}
		def = cp.Catalog
		copy(offsets, cp.Offsets)
	}
	initialized, err := log.Initialized(ctx)
	if err != nil || !initialized {
		return def, err
	}

	r := schema.NewReplayer(log, logger)
	latest := def
	for p, from := range offsets {
		out, err := r.Replay(ctx, int32(p), from, def)
		if err != nil {
			return nil, err
		}
		if out.GraphDef.Version() > latest.Version() {
			latest = out.GraphDef
		}
	}
	return latest, nil
}

type serveCommand struct{}

func (c *serveCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		m, coord, err := a.manager(ctx)
		if err != nil {
			return err
		}
		defer m.Close()

		a.logger.WithFields(logrus.Fields{
			"action":      "serve",
			"snapshot_id": coord.QuerySnapshotID(),
			"version":     m.GraphDef().Version(),
			"partitions":  a.log.Partitions(),
		}).Info("schema owner ready")
		<-ctx.Done()
		a.logger.WithField("action", "serve").Info("shutting down")
		return nil
	})
}

type walInitCommand struct{}

func (c *walInitCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		return a.log.Init(ctx)
	})
}

type walDestroyCommand struct {
	Yes bool `long:"yes" description:"confirm deleting the topic and all of its entries"`
}

func (c *walDestroyCommand) Execute([]string) error {
	if !c.Yes {
		return fmt.Errorf("refusing to delete the topic without --yes")
	}
	return run(func(ctx context.Context, a *app) error {
		return a.log.Destroy(ctx)
	})
}

type walDumpCommand struct {
	Partition int32  `long:"partition" description:"partition to read"`
	From      uint64 `long:"from" description:"first offset to print"`
}

func (c *walDumpCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		end, err := a.log.EndOffset(c.Partition)
		if err != nil {
			return err
		}
		if c.From >= end {
			return nil
		}
		r, err := a.log.CreateReader(c.Partition, c.From)
		if err != nil {
			return err
		}
		defer r.Close()

		for off := c.From; off < end; off++ {
			e, err := r.Next(ctx)
			if err != nil {
				return err
			}
			op, err := api.UnmarshalOperation(c.Partition, e.Data)
			if err != nil {
				fmt.Printf("%d\t<%v>\n", e.Offset, err)
				continue
			}
			payload, err := op.DecodePayload()
			if err != nil {
				fmt.Printf("%d\t%d\t%s\t<%v>\n", e.Offset, op.SchemaVersion, op.Type, err)
				continue
			}
			fmt.Printf("%d\t%d\t%s\t%+v\n", e.Offset, op.SchemaVersion, op.Type, payload)
		}
		return nil
	})
}

type walTrimCommand struct {
	Partition int32  `long:"partition" description:"partition to trim"`
	Offset    uint64 `long:"offset" required:"yes" description:"entries before this offset are deleted"`
}

func (c *walTrimCommand) Execute([]string) error {
	return run(func(ctx context.Context, a *app) error {
		if err := checkTrim(ctx, a.cfg.WAL, a.store, c.Partition, c.Offset); err != nil {
			return err
		}
		return a.log.DeleteBeforeOffset(ctx, c.Partition, c.Offset)
	})
}

// checkTrim allows trimming only entries the last checkpoint covers.
func checkTrim(ctx context.Context, cfg cwal.Config, store checkpointLoader, partition int32, offset uint64) error {
	if err := cfg.CheckPartition(partition); err != nil {
		return enterrors.NewValidation("partition: %v", err)
	}
	cp, ok, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if !ok || int(partition) >= len(cp.Offsets) || offset > cp.Offsets[partition] {
		return enterrors.NewValidation("offset %d of partition %d is not covered by a checkpoint",
			offset, partition)
	}
	return nil
}
