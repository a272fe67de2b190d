// Copyright 2018 The Nakama Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads process configuration from a YAML file with
// command-line flag overrides, following the yaml-tag-plus-flag-binding
// idiom of _examples/heroiclabs-nakama/server/config.go.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gofrs/uuid/v5"
	"gopkg.in/yaml.v3"
)

// Config is the leaderboardd process configuration.
type Config struct {
	Name      string          `yaml:"name"`
	Standalone bool           `yaml:"standalone"`
	Log       LogConfig       `yaml:"log"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// LogConfig controls logz construction.
type LogConfig struct {
	Format  string `yaml:"format"` // "console" or "json"
	Verbose bool   `yaml:"verbose"`
}

// MongoConfig points at the document store backing every LogStore. Ignored
// when Standalone is true.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// RedisConfig points at the cache store backing every CacheStore. Ignored
// when Standalone is true.
type RedisConfig struct {
	URI             string   `yaml:"uri"`
	Cluster         bool     `yaml:"cluster"`
	ClusterAddrs    []string `yaml:"cluster_addrs"`
	ClusterPassword string   `yaml:"cluster_password"`
	TLS             bool     `yaml:"tls"`
}

// MetricsConfig names the process for metric tagging.
type MetricsConfig struct {
	NodeName string `yaml:"node_name"`
}

// defaultName generates a short, unique node name the way nakama's own
// config defaulting does: a fixed prefix plus one segment of a random UUID,
// so two processes started without -metrics.node_name don't collide in a
// shared metrics backend.
func defaultName() string {
	id, err := uuid.NewV4()
	if err != nil {
		return "leaderboardd"
	}
	return "leaderboardd-" + strings.Split(id.String(), "-")[3]
}

// Default returns a Config with -standalone-friendly defaults.
func Default() *Config {
	name := defaultName()
	return &Config{
		Name:       name,
		Standalone: true,
		Log:        LogConfig{Format: "console", Verbose: false},
		Mongo:      MongoConfig{URI: "mongodb://localhost:27017", Database: "mars"},
		Redis:      RedisConfig{URI: "redis://localhost:6379/0"},
		Metrics:    MetricsConfig{NodeName: name},
	}
}

// Parse reads defaults, overlays the YAML file named by -config (if one is
// given; a file that cannot be read or parsed is an error), then overlays
// the explicitly set command-line flags.
func Parse(args []string) (*Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("leaderboardd", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	standalone := fs.Bool("standalone", cfg.Standalone, "use in-memory stores instead of Mongo/Redis")
	logFormat := fs.String("log.format", cfg.Log.Format, "log encoder: console or json")
	verbose := fs.Bool("log.verbose", cfg.Log.Verbose, "enable debug-level logging")
	mongoURI := fs.String("mongo.uri", cfg.Mongo.URI, "MongoDB connection URI")
	mongoDB := fs.String("mongo.database", cfg.Mongo.Database, "MongoDB database name")
	redisURI := fs.String("redis.uri", cfg.Redis.URI, "Redis connection URI")
	nodeName := fs.String("metrics.node_name", cfg.Metrics.NodeName, "node name tag for metrics")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parse flags: %w", err)
	}

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", *configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", *configPath, err)
		}
	}

	// Flags win over the YAML file only when explicitly set, so a flag's
	// zero-value default never silently clobbers a YAML-provided value.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "standalone":
			cfg.Standalone = *standalone
		case "log.format":
			cfg.Log.Format = *logFormat
		case "log.verbose":
			cfg.Log.Verbose = *verbose
		case "mongo.uri":
			cfg.Mongo.URI = *mongoURI
		case "mongo.database":
			cfg.Mongo.Database = *mongoDB
		case "redis.uri":
			cfg.Redis.URI = *redisURI
		case "metrics.node_name":
			cfg.Metrics.NodeName = *nodeName
		}
	})

	return cfg, nil
}
