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
	"time"
)

// topicMeta is written by Init and checked whenever the topic is opened.
type topicMeta struct {
	ID                string    `yaml:"id"`
	Name              string    `yaml:"name"`
	Partitions        int       `yaml:"partitions"`
	ReplicationFactor int       `yaml:"replication_factor"`
	CreatedAt         time.Time `yaml:"created_at"`
}

// backend owns the physical resources of a topic.
type backend interface {
	// meta returns the stored topic metadata and false if the topic does
	// not exist.
	meta() (topicMeta, bool, error)
	create(m topicMeta) error
	remove() error
	openPartition(id int32) (partitionStore, error)
}
