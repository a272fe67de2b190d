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

// Package redisstore implements leaderboard.CacheStore on top of Redis
// sorted sets, grounded on the go-redis client construction idiom of
// _examples/heroiclabs-nakama/server/session_cache_redis.go (URL parsing,
// optional TLS, optional cluster mode) and the ZADD/ZSCORE/ZREVRANK/
// ZREVRANGE usage of
// _examples/other_examples/4c35d0b4_tedmax100-system_design_interview_lab__ch8_leader_board-src-internal-repository-valkey.go.go.
package redisstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/chatasma/mars-leaderboard/internal/leaderboard"
)

// Store is a leaderboard.CacheStore backed by a single Redis instance or a
// Redis Cluster.
type Store struct {
	single  *redis.Client
	cluster *redis.ClusterClient
}

// Config controls how Store connects to Redis.
type Config struct {
	// URI is a redis://[:password@]host:port/db or rediss://... URL. Used
	// when Cluster is false.
	URI string
	// ClusterAddrs lists seed nodes. Used when Cluster is true.
	ClusterAddrs []string
	// ClusterPassword authenticates to a cluster deployment.
	ClusterPassword string
	// Cluster selects cluster mode over a single-node client.
	Cluster bool
	// TLS enables a minimum-TLS1.2 connection. In single-node mode a
	// "rediss" URI scheme also turns it on, even when TLS is false.
	TLS bool
}

// New constructs a Store per cfg.
func New(cfg Config) (*Store, error) {
	if cfg.Cluster {
		opts := &redis.ClusterOptions{
			Addrs:    cfg.ClusterAddrs,
			Password: cfg.ClusterPassword,
		}
		if cfg.TLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		return &Store{cluster: redis.NewClusterClient(opts)}, nil
	}

	parsed, err := url.Parse(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse uri: %w", err)
	}
	password, _ := parsed.User.Password()
	db := 0
	if p := strings.TrimPrefix(parsed.Path, "/"); p != "" {
		db, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("redisstore: parse db from uri path %q: %w", parsed.Path, err)
		}
	}
	opts := &redis.Options{
		Addr:     parsed.Host,
		Password: password,
		DB:       db,
	}
	if cfg.TLS || parsed.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &Store{single: redis.NewClient(opts)}, nil
}

var _ leaderboard.CacheStore = (*Store)(nil)

func (s *Store) client() redis.Cmdable {
	if s.cluster != nil {
		return s.cluster
	}
	return s.single
}

// Close releases the underlying Redis connection(s).
func (s *Store) Close() error {
	if s.cluster != nil {
		return s.cluster.Close()
	}
	return s.single.Close()
}

func (s *Store) ZAdd(ctx context.Context, key string, score uint32, member string) error {
	return s.client().ZAdd(ctx, key, redis.Z{Score: float64(score), Member: member}).Err()
}

func (s *Store) ZScore(ctx context.Context, key, member string) (uint32, bool, error) {
	score, err := s.client().ZScore(ctx, key, member).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return uint32(score), true, nil
}

func (s *Store) ZRevRank(ctx context.Context, key, member string) (int64, bool, error) {
	rank, err := s.client().ZRevRank(ctx, key, member).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

func (s *Store) ZRevRangeWithScores(ctx context.Context, key string, limit int) ([]leaderboard.ScoredMember, error) {
	if limit <= 0 {
		return nil, nil
	}
	results, err := s.client().ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]leaderboard.ScoredMember, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, leaderboard.ScoredMember{Member: member, Score: uint32(z.Score)})
	}
	return out, nil
}

func (s *Store) DelKey(ctx context.Context, key string) (bool, error) {
	n, err := s.client().Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) HasKey(ctx context.Context, key string) (bool, error) {
	n, err := s.client().Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
