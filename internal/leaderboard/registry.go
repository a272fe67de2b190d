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

package leaderboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Event is the single tagged-variant replacement for the source's 20+
// per-stat listener hooks (on_kill, on_flag_place, ...), per spec.md §9
// design note "Polymorphic listeners". A producer external to this package
// (the socket event pipeline) constructs one Event per game action and
// either calls Dispatch directly or pushes it onto a channel drained by Run.
type Event struct {
	PlayerID  string
	ScoreType ScoreType
	Delta     uint32
}

// Registry holds one Engine per score type, constructed once at startup
// with shared handles to the log, cache, and name resolver. It does not own
// listener logic itself; Dispatch/Run are its routing surface (spec.md §4.G).
type Registry struct {
	engines map[ScoreType]*Engine
	logger  *zap.Logger
}

// NewRegistry constructs one Engine per score type in AllScoreTypes,
// sharing the given log, cache, and name resolver across all of them.
func NewRegistry(log LogStore, cache CacheStore, names PlayerNameResolver, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	engines := make(map[ScoreType]*Engine, scoreTypeCount)
	for _, st := range AllScoreTypes() {
		e, err := NewEngine(st, log, cache, names, logger)
		if err != nil {
			return nil, fmt.Errorf("leaderboard: construct engine for %s: %w", st, err)
		}
		engines[st] = e
	}
	return &Registry{engines: engines, logger: logger}, nil
}

// Engine returns the engine owning scoreType. Panics if scoreType is not a
// valid member of AllScoreTypes, since that is a programming error, not a
// runtime condition.
func (r *Registry) Engine(scoreType ScoreType) *Engine {
	e, ok := r.engines[scoreType]
	if !ok {
		panic(fmt.Sprintf("leaderboard: no engine registered for score type %v", scoreType))
	}
	return e
}

// Dispatch routes a single event to its score type's engine. This is the
// routing half of the socket pipeline's producer role; the transport itself
// remains an external collaborator (spec.md §1).
func (r *Registry) Dispatch(ctx context.Context, ev Event) error {
	return r.Engine(ev.ScoreType).ProcessUpdate(ctx, ev.PlayerID, ev.Delta)
}

// Run drains events from the given channel onto Dispatch until the channel
// closes or ctx is cancelled, logging (not failing on) individual dispatch
// errors so one bad event never stalls the feed.
func (r *Registry) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := r.Dispatch(ctx, ev); err != nil {
				r.logger.Warn("dispatch failed",
					zap.String("player_id", ev.PlayerID),
					zap.String("score_type", ev.ScoreType.String()),
					zap.Error(err))
			}
		}
	}
}
