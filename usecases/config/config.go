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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/weaviate/graphmeta/cluster/wal"
)

const (
	DefaultMonitoringPort      = 2112
	DefaultAppendMaxRetries    = 3
	DefaultAppendRetryInterval = 50 * time.Millisecond

	walDir     = "wal"
	catalogDir = "catalog"
)

// Flags are input options
type Flags struct {
	ConfigFile string `long:"config-file" description:"path to a .yaml or .json config file"`
	DataPath   string `long:"data-path" description:"directory holding the log and the catalog store"`
	WALBackend string `long:"wal-backend" description:"log backend, bolt or memory"`
	WALTopic   string `long:"wal-topic" description:"name of the log topic"`
	QueueCount int    `long:"queue-count" description:"number of log partitions"`
	LogLevel   string `long:"log-level" description:"panic, fatal, error, warn, info, debug or trace"`
	LogFormat  string `long:"log-format" description:"text or json"`
}

// Config of a schema owner process
type Config struct {
	DataPath   string      `json:"data_path" yaml:"data_path"`
	WAL        wal.Config  `json:"wal" yaml:"wal"`
	Logging    Logging     `json:"logging" yaml:"logging"`
	Monitoring Monitoring  `json:"monitoring" yaml:"monitoring"`
	Append     AppendRetry `json:"append" yaml:"append"`
}

type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type Monitoring struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// AppendRetry bounds the retries of log appends failing with a durability
// error.
type AppendRetry struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	Interval   time.Duration `json:"interval" yaml:"interval"`
}

func Default() Config {
	return Config{
		WAL:        wal.DefaultConfig(),
		Logging:    Logging{Level: "info", Format: "text"},
		Monitoring: Monitoring{Port: DefaultMonitoringPort},
		Append:     AppendRetry{MaxRetries: DefaultAppendMaxRetries, Interval: DefaultAppendRetryInterval},
	}
}

// CatalogPath is the directory of the catalog checkpoint store.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataPath, catalogDir)
}

func (c *Config) Validate() error {
	if c.DataPath == "" {
		return configErr(fmt.Errorf("data path is required"))
	}
	if err := c.WAL.Validate(); err != nil {
		return configErr(err)
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return configErr(err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return configErr(fmt.Errorf("log format must be text or json, got %q", c.Logging.Format))
	}
	if c.Monitoring.Enabled && (c.Monitoring.Port <= 0 || c.Monitoring.Port > 65535) {
		return configErr(fmt.Errorf("monitoring port %d out of range", c.Monitoring.Port))
	}
	if c.Append.MaxRetries < 0 {
		return configErr(fmt.Errorf("append max retries must not be negative"))
	}
	if c.Append.Interval < 0 {
		return configErr(fmt.Errorf("append retry interval must not be negative"))
	}
	return nil
}

// NewLogger builds the process logger.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, configErr(err)
	}
	logger := logrus.New()
	logger.SetLevel(level)
	if c.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}

// LoadConfig from config locations. The load order for configuration values is
// 1. Config file
// 2. Environment variables
// 3. Command line flags
// A value set in a later location overrides an earlier one.
func LoadConfig(flags *Flags, logger logrus.FieldLogger) (Config, error) {
	config := Default()

	if flags.ConfigFile != "" {
		file, err := os.ReadFile(flags.ConfigFile)
		if err != nil {
			return config, configErr(errors.Wrap(err, "read config file"))
		}
		logger.WithField("action", "config_load").WithField("config_file_path", flags.ConfigFile).
			Info("loading config file")
		if err := parseConfigFile(file, flags.ConfigFile, &config); err != nil {
			return config, configErr(err)
		}
	}

	if err := FromEnv(&config); err != nil {
		return config, configErr(err)
	}

	fromFlags(&config, flags)

	if config.WAL.DataPath == "" && config.DataPath != "" {
		config.WAL.DataPath = filepath.Join(config.DataPath, walDir)
	}
	return config, config.Validate()
}

func parseConfigFile(file []byte, name string, config *Config) error {
	m := regexp.MustCompile(`.*\.(\w+)$`).FindStringSubmatch(name)
	if len(m) < 2 {
		return fmt.Errorf("config file does not have a file ending, got '%s'", name)
	}

	switch strings.ToLower(m[1]) {
	case "json":
		if err := json.Unmarshal(file, config); err != nil {
			return fmt.Errorf("error unmarshalling the json config file: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(file, config); err != nil {
			return fmt.Errorf("error unmarshalling the yaml config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension '%s', use .yaml or .json", m[1])
	}
	return nil
}

// fromFlags overrides values in config with the flags which are set
func fromFlags(config *Config, flags *Flags) {
	if flags.DataPath != "" {
		config.DataPath = flags.DataPath
	}
	if flags.WALBackend != "" {
		config.WAL.Backend = flags.WALBackend
	}
	if flags.WALTopic != "" {
		config.WAL.Topic = flags.WALTopic
	}
	if flags.QueueCount > 0 {
		config.WAL.QueueCount = flags.QueueCount
	}
	if flags.LogLevel != "" {
		config.Logging.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		config.Logging.Format = flags.LogFormat
	}
}

func configErr(err error) error {
	return fmt.Errorf("invalid config: %w", err)
}
