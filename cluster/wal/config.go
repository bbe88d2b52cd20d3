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
	"sort"
	"strings"

	enterrors "github.com/weaviate/graphmeta/entities/errors"
)

const (
	BackendBolt   = "bolt"
	BackendMemory = "memory"

	DefaultTopic          = "graph_ops"
	DefaultMaxMessageSize = 4 << 20
)

// Config holds the log admin options.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	// DataPath is the directory of the bolt backend.
	DataPath string `json:"data_path" yaml:"data_path"`
	// Servers are the addresses of a remote log service. Local backends
	// ignore them.
	Servers           []string `json:"servers" yaml:"servers"`
	Topic             string   `json:"topic" yaml:"topic"`
	QueueCount        int      `json:"queue_count" yaml:"queue_count"`
	ReplicationFactor int      `json:"replication_factor" yaml:"replication_factor"`
	// ProducerConfig carries backend specific writer settings.
	ProducerConfig map[string]string `json:"producer_config" yaml:"producer_config"`
	MaxMessageSize int               `json:"max_message_size" yaml:"max_message_size"`
}

func DefaultConfig() Config {
	return Config{
		Backend:           BackendBolt,
		Topic:             DefaultTopic,
		QueueCount:        1,
		ReplicationFactor: 1,
		ProducerConfig:    map[string]string{},
		MaxMessageSize:    DefaultMaxMessageSize,
	}
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendBolt:
		if c.DataPath == "" {
			return enterrors.NewValidation("wal: data path is required for the %s backend", c.Backend)
		}
	case BackendMemory:
	default:
		return enterrors.NewValidation("wal: unknown backend %q", c.Backend)
	}
	if strings.TrimSpace(c.Topic) == "" {
		return enterrors.NewValidation("wal: topic must not be empty")
	}
	if c.QueueCount < 1 {
		return enterrors.NewValidation("wal: queue count must be at least 1, got %d", c.QueueCount)
	}
	if c.ReplicationFactor < 1 {
		return enterrors.NewValidation("wal: replication factor must be at least 1, got %d", c.ReplicationFactor)
	}
	if c.MaxMessageSize <= 0 {
		return enterrors.NewValidation("wal: max message size must be positive, got %d", c.MaxMessageSize)
	}
	return nil
}

// CheckPartition fails with ErrInvalidPartition unless p is in
// [0, QueueCount).
func (c Config) CheckPartition(p int32) error {
	if p < 0 || int(p) >= c.QueueCount {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidPartition, p, c.QueueCount)
	}
	return nil
}

// ParseProducerConfig parses "k=v,k=v".
func ParseProducerConfig(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, kv := range strings.Split(s, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("producer config %q: expected key=value", kv)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

// FormatProducerConfig is the inverse of ParseProducerConfig with keys in
// sorted order.
func FormatProducerConfig(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, ",")
}
