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
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	enterrors "github.com/weaviate/graphmeta/entities/errors"
	"github.com/weaviate/graphmeta/entities/graphdef"
	ucs "github.com/weaviate/graphmeta/usecases/schema"
)

const (
	dbFileName = "catalog.db"
	_Version   = 1
)

var (
	rootBucket    = []byte("catalog")
	historyBucket = []byte("history")
	// static keys of the root bucket
	keyConfig     = []byte{eTypeConfig, 0}
	keyCheckpoint = []byte{eTypeCheckpoint, 0}
)

// constant to encode the type of entry in the DB
const (
	eTypeConfig     byte = 1
	eTypeCheckpoint byte = 2
)

// config describes the layout of the stored data
type config struct {
	Version int `msgpack:"version"`
}

type checkpointRecord struct {
	SnapshotID    int64     `msgpack:"snapshot_id"`
	SchemaVersion int64     `msgpack:"schema_version"`
	Offsets       []uint64  `msgpack:"offsets"`
	GraphDef      []byte    `msgpack:"graph_def"`
	SavedAt       time.Time `msgpack:"saved_at"`
}

/*
Store persists checkpoints of the schema owner in a bolt file.

Layout:
  - catalog bucket: config and the latest checkpoint
  - history bucket: wire form of every catalog version saved, keyed by
    big endian version
*/
type Store struct {
	version int    // layout version
	homeDir string // directory of the bolt file
	log     logrus.FieldLogger
	db      *bolt.DB
}

// NewStore returns a checkpoint store. Call Open before use and Close to
// free the resources.
func NewStore(homeDir string, logger logrus.FieldLogger) *Store {
	return &Store{
		version: _Version,
		homeDir: homeDir,
		log:     logger,
	}
}

func (s *Store) Open() (err error) {
	if err := os.MkdirAll(s.homeDir, 0o755); err != nil {
		return fmt.Errorf("create root directory %q: %w", s.homeDir, err)
	}
	path := filepath.Join(s.homeDir, dbFileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	var cfg config
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(historyBucket); err != nil {
			return err
		}
		b, err := tx.CreateBucket(rootBucket)
		if err == nil {
			cfg = config{Version: s.version}
			return saveConfig(b, cfg)
		}
		b = tx.Bucket(rootBucket)
		if b == nil {
			return fmt.Errorf("retrieve existing bucket %q", rootBucket)
		}
		if data := b.Get(keyConfig); len(data) > 0 {
			if err := msgpack.Unmarshal(data, &cfg); err != nil {
				return fmt.Errorf("cannot read config: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("init bolt_db: %w", err)
	}
	if cfg.Version > s.version {
		return fmt.Errorf("catalog store version %d higher than %d", cfg.Version, s.version)
	}

	s.db = db
	s.log.WithField("path", path).Debug("catalog store opened")
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func saveConfig(root *bolt.Bucket, cfg config) error {
	data, err := msgpack.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return root.Put(keyConfig, data)
}

func versionKey(v int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(v))
	return key
}

// Save stores cp as the latest checkpoint and adds its catalog to the
// history in one transaction.
func (s *Store) Save(ctx context.Context, cp ucs.Checkpoint) error {
	if cp.Catalog == nil {
		return fmt.Errorf("checkpoint %d: missing catalog", cp.SnapshotID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	graph := cp.Catalog.Marshal()
	data, err := msgpack.Marshal(checkpointRecord{
		SnapshotID:    cp.SnapshotID,
		SchemaVersion: cp.Catalog.Version(),
		Offsets:       cp.Offsets,
		GraphDef:      graph,
		SavedAt:       time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal checkpoint")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(rootBucket).Put(keyCheckpoint, data); err != nil {
			return errors.Wrap(err, "put checkpoint")
		}
		return errors.Wrap(tx.Bucket(historyBucket).Put(versionKey(cp.Catalog.Version()), graph),
			"put catalog version")
	})
}

// Load returns the latest checkpoint. ok is false if none was saved yet.
func (s *Store) Load(ctx context.Context) (cp ucs.Checkpoint, ok bool, err error) {
	var rec checkpointRecord
	err = s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(rootBucket).Get(keyCheckpoint)
		if data == nil {
			return nil
		}
		ok = true
		return msgpack.Unmarshal(data, &rec)
	})
	if err != nil {
		return ucs.Checkpoint{}, false, errors.Wrap(err, "load checkpoint")
	}
	if !ok {
		return ucs.Checkpoint{}, false, nil
	}

	def, err := graphdef.Unmarshal(rec.GraphDef)
	if err != nil {
		return ucs.Checkpoint{}, false, errors.Wrapf(err, "checkpoint %d", rec.SnapshotID)
	}
	if def.Version() != rec.SchemaVersion {
		return ucs.Checkpoint{}, false, enterrors.NewConsistency("checkpoint %d: catalog version %d, recorded %d",
			rec.SnapshotID, def.Version(), rec.SchemaVersion)
	}
	return ucs.Checkpoint{SnapshotID: rec.SnapshotID, Offsets: rec.Offsets, Catalog: def}, true, nil
}

// GraphDef returns the catalog saved at version.
func (s *Store) GraphDef(version int64) (*graphdef.GraphDef, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(historyBucket).Get(versionKey(version)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, enterrors.NewNotFound("catalog version %d", version)
	}
	return graphdef.Unmarshal(data)
}

// Versions lists the saved catalog versions in ascending order.
func (s *Store) Versions() ([]int64, error) {
	var out []int64
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(historyBucket).ForEach(func(k, _ []byte) error {
			out = append(out, int64(binary.BigEndian.Uint64(k)))
			return nil
		})
	})
	return out, err
}
