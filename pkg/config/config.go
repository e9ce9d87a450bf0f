// Package config loads the hprofviz CLI's optional configuration file,
// letting deployments pin defaults (worker count, index compression,
// minimum edge count, object-storage backend, job-history database) without
// repeating flags on every invocation.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds the defaults the CLI falls back to when a flag isn't set
// explicitly on the command line.
type Config struct {
	Threads  ThreadsConfig  `mapstructure:"threads"`
	Index    IndexConfig    `mapstructure:"index"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// ThreadsConfig controls the default worker-pool size for the parallel
// stages (index building, instance-counts reduction, graph analysis).
type ThreadsConfig struct {
	Count int `mapstructure:"count"`
}

// IndexConfig controls the default sorted-index build behavior.
type IndexConfig struct {
	Compress         bool   `mapstructure:"compress"`
	CompressionLevel string `mapstructure:"compression_level"` // fast, default, best
}

// GraphConfig controls the default reference-graph analysis behavior.
type GraphConfig struct {
	MinEdgeCount uint64 `mapstructure:"min_edge_count"`
}

// LogConfig controls the default logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// StorageConfig selects the object-storage backend a --file/--output value
// is staged through when it names a remote key instead of a local path.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // local or cos
	LocalPath string `mapstructure:"local_path"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`
	Scheme    string `mapstructure:"scheme"`
}

// DatabaseConfig selects the optional job-history repository backend. An
// empty Driver disables history recording entirely.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres or mysql; empty disables history
	DSN    string `mapstructure:"dsn"`
}

// Load reads configuration from the given path. An empty path falls back to
// viper's standard search locations (./hprofviz.yaml, ./configs/hprofviz.yaml,
// /etc/hprofviz/hprofviz.yaml); a missing file anywhere in that search is not
// an error, since every field also has a built-in default.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("hprofviz")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/hprofviz")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// no config file anywhere in the search path: defaults stand.
		} else if os.IsNotExist(err) {
			// an explicit --config path that doesn't exist: defaults stand.
		} else {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadFromReader loads configuration from in-memory content, useful for
// tests that don't want to touch the filesystem.
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("threads.count", 0) // 0 means "let parallel.DefaultConfig decide"

	v.SetDefault("index.compress", false)
	v.SetDefault("index.compression_level", "default")

	v.SetDefault("graph.min_edge_count", 1)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", ".")

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
