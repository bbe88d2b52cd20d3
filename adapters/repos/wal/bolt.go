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

package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	raftbolt "github.com/hashicorp/raft-boltdb/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v2"
)

const (
	topicMetaFile = "topic.yaml"

	// producer settings understood by the bolt backend
	producerNoSync      = "no_sync"
	producerBoltTimeout = "bolt_timeout"

	defaultBoltTimeout = 5 * time.Second
)

// boltBackend stores a topic in <dataPath>/<topic>/, one bolt file per
// partition.
type boltBackend struct {
	dir     string
	noSync  bool
	timeout time.Duration
}

func newBoltBackend(dataPath, topic string, producer map[string]string, logger logrus.FieldLogger) (*boltBackend, error) {
	b := &boltBackend{
		dir:     filepath.Join(dataPath, topic),
		timeout: defaultBoltTimeout,
	}
	for k, v := range producer {
		switch k {
		case producerNoSync:
			noSync, err := strconv.ParseBool(v)
			if err != nil {
				return nil, errors.Wrapf(err, "producer setting %s", k)
			}
			b.noSync = noSync
		case producerBoltTimeout:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, errors.Wrapf(err, "producer setting %s", k)
			}
			b.timeout = d
		default:
			logger.WithField("action", "wal_open").WithField("setting", k).
				Warn("ignoring unknown producer setting")
		}
	}
	return b, nil
}

func (b *boltBackend) metaPath() string {
	return filepath.Join(b.dir, topicMetaFile)
}

func (b *boltBackend) partitionPath(id int32) string {
	return filepath.Join(b.dir, fmt.Sprintf("partition-%d.db", id))
}

func (b *boltBackend) meta() (topicMeta, bool, error) {
	data, err := os.ReadFile(b.metaPath())
	if os.IsNotExist(err) {
		return topicMeta{}, false, nil
	}
	if err != nil {
		return topicMeta{}, false, errors.Wrap(err, "read topic metadata")
	}
	var m topicMeta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return topicMeta{}, false, errors.Wrapf(err, "parse %s", b.metaPath())
	}
	return m, true, nil
}

// create writes the partition files first and the metadata last, so a
// crashed create leaves a topic which is not initialized.
func (b *boltBackend) create(m topicMeta) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", b.dir)
	}
	for i := 0; i < m.Partitions; i++ {
		s, err := b.openPartition(int32(i))
		if err != nil {
			return err
		}
		if err := s.Close(); err != nil {
			return errors.Wrapf(err, "close partition %d", i)
		}
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal topic metadata")
	}
	tmp := b.metaPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write topic metadata")
	}
	return errors.Wrap(os.Rename(tmp, b.metaPath()), "write topic metadata")
}

func (b *boltBackend) remove() error {
	return errors.Wrapf(os.RemoveAll(b.dir), "remove %s", b.dir)
}

func (b *boltBackend) openPartition(id int32) (partitionStore, error) {
	s, err := raftbolt.New(raftbolt.Options{
		Path:        b.partitionPath(id),
		BoltOptions: &bolt.Options{Timeout: b.timeout},
		NoSync:      b.noSync,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open partition %d", id)
	}
	return s, nil
}
