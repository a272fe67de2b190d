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

// Command leaderboardd wires the leaderboard engine to its stores and drives
// it with a small demo event feed, following the boot-sequence shape of
// _examples/heroiclabs-nakama/main.go (parse config, build logger, construct
// stores, start background goroutines).
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/chatasma/mars-leaderboard/internal/config"
	"github.com/chatasma/mars-leaderboard/internal/leaderboard"
	"github.com/chatasma/mars-leaderboard/internal/logz"
	"github.com/chatasma/mars-leaderboard/internal/memstore"
	"github.com/chatasma/mars-leaderboard/internal/metrics"
	"github.com/chatasma/mars-leaderboard/internal/mongostore"
	"github.com/chatasma/mars-leaderboard/internal/redisstore"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logz.New(cfg.Log.Format, cfg.Log.Verbose)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("leaderboardd exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log, cache, names, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build stores: %w", err)
	}

	registry, err := leaderboard.NewRegistry(log, cache, names, logger)
	if err != nil {
		return fmt.Errorf("construct registry: %w", err)
	}

	met := metrics.New(logger, cfg.Metrics.NodeName)
	for _, st := range leaderboard.AllScoreTypes() {
		registry.Engine(st).SetMetrics(met)
	}

	metricsDone := make(chan struct{})
	go met.Run(metricsDone)
	defer close(metricsDone)

	events := make(chan leaderboard.Event)
	go registry.Run(ctx, events)

	logger.Info("leaderboardd started",
		zap.String("name", cfg.Name),
		zap.Bool("standalone", cfg.Standalone))

	feedDemoEvents(ctx, events, logger)

	reportStandings(ctx, registry, logger)

	<-ctx.Done()
	close(events)
	logger.Info("leaderboardd shutting down")
	return nil
}

// buildStores constructs the LogStore/CacheStore/PlayerNameResolver triple,
// choosing the in-memory memstore in standalone mode or dialing Mongo/Redis
// otherwise.
func buildStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (leaderboard.LogStore, leaderboard.CacheStore, leaderboard.PlayerNameResolver, error) {
	if cfg.Standalone {
		logger.Info("standalone mode: using in-memory stores")
		names := memstore.NewNameDirectory(map[string]string{
			"player-1": "Hesperus",
			"player-2": "Phosphorus",
			"player-3": "Ibex",
		})
		return memstore.NewLogStore(), memstore.New(), names, nil
	}

	mongo, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	redis, err := redisstore.New(redisstore.Config{
		URI:             cfg.Redis.URI,
		Cluster:         cfg.Redis.Cluster,
		ClusterAddrs:    cfg.Redis.ClusterAddrs,
		ClusterPassword: cfg.Redis.ClusterPassword,
		TLS:             cfg.Redis.TLS,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("construct redis client: %w", err)
	}

	names := memstore.NewNameDirectory(nil)
	return mongo, redis, names, nil
}

// feedDemoEvents dispatches a handful of synthetic score updates across a
// few players and score types, exercising Registry.Run end to end the way a
// real socket event pipeline would (spec.md §1's external collaborator).
func feedDemoEvents(ctx context.Context, events chan<- leaderboard.Event, logger *zap.Logger) {
	players := []string{"player-1", "player-2", "player-3"}
	scoreTypes := leaderboard.AllScoreTypes()
	rng := rand.New(rand.NewSource(1))

	const demoEventCount = 30
	for i := 0; i < demoEventCount; i++ {
		ev := leaderboard.Event{
			PlayerID:  players[rng.Intn(len(players))],
			ScoreType: scoreTypes[rng.Intn(len(scoreTypes))],
			Delta:     uint32(rng.Intn(100) + 1),
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
	logger.Info("demo event feed drained", zap.Int("count", demoEventCount))
}

// reportStandings logs the top of one score type's all-time leaderboard,
// giving an operator running -standalone something to look at immediately.
func reportStandings(ctx context.Context, registry *leaderboard.Registry, logger *zap.Logger) {
	time.Sleep(100 * time.Millisecond) // let Run drain the demo feed first

	st := leaderboard.AllScoreTypes()[0]
	lines, err := registry.Engine(st).FetchTop(ctx, leaderboard.AllTime, 10)
	if err != nil {
		logger.Warn("fetch top failed", zap.Error(err))
		return
	}
	for rank, line := range lines {
		logger.Info("standing",
			zap.String("score_type", st.String()),
			zap.Int("rank", rank),
			zap.String("player_id", line.ID),
			zap.String("player_name", line.Name),
			zap.Uint32("score", line.Score))
	}
}
