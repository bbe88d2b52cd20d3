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

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/weaviate/graphmeta/cluster/wal"
)

// FromEnv takes a *Config as it will respect initial config that has been
// provided by other means (e.g. a config file) and will only extend those
// that are set
func FromEnv(config *Config) error {
	if v := os.Getenv("GRAPHMETA_DATA_PATH"); v != "" {
		config.DataPath = v
	}

	if v := os.Getenv("WAL_BACKEND"); v != "" {
		config.WAL.Backend = v
	}

	if v := os.Getenv("WAL_SERVERS"); v != "" {
		config.WAL.Servers = splitList(v)
	}

	if v := os.Getenv("WAL_TOPIC"); v != "" {
		config.WAL.Topic = v
	}

	if err := parsePositiveInt("WAL_QUEUE_COUNT", func(n int) { config.WAL.QueueCount = n }); err != nil {
		return err
	}

	if err := parsePositiveInt("WAL_REPLICATION_FACTOR", func(n int) { config.WAL.ReplicationFactor = n }); err != nil {
		return err
	}

	if err := parsePositiveInt("WAL_MAX_MESSAGE_SIZE", func(n int) { config.WAL.MaxMessageSize = n }); err != nil {
		return err
	}

	if v := os.Getenv("WAL_PRODUCER_CONFIG"); v != "" {
		pc, err := wal.ParseProducerConfig(v)
		if err != nil {
			return errors.Wrap(err, "parse WAL_PRODUCER_CONFIG")
		}
		config.WAL.ProducerConfig = pc
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}

	if enabled(os.Getenv("PROMETHEUS_MONITORING_ENABLED")) {
		config.Monitoring.Enabled = true
	}

	if err := parsePositiveInt("PROMETHEUS_MONITORING_PORT", func(n int) { config.Monitoring.Port = n }); err != nil {
		return err
	}

	if v := os.Getenv("APPEND_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse APPEND_MAX_RETRIES as int")
		}
		if n < 0 {
			return errors.Errorf("APPEND_MAX_RETRIES must not be negative, got %d", n)
		}
		config.Append.MaxRetries = n
	}

	if v := os.Getenv("APPEND_RETRY_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "parse APPEND_RETRY_INTERVAL as duration")
		}
		config.Append.Interval = d
	}

	return nil
}

func parsePositiveInt(envName string, cb func(val int)) error {
	v := os.Getenv(envName)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(err, "parse %s as int", envName)
	}
	if n <= 0 {
		return errors.Errorf("%s must be a positive value larger than 0, got %d", envName, n)
	}
	cb(n)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func enabled(value string) bool {
	switch strings.ToLower(value) {
	case "on", "enabled", "1", "true":
		return true
	default:
		return false
	}
}
