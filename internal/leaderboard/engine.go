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
	"sync"
	"time"

	"go.uber.org/zap"
)

// PlayerNameResolver resolves a player's current display name for the
// member-id composite stored in cache views. Player identity and profile
// data are an external collaborator (spec.md §1); the engine only consumes
// this narrow interface.
type PlayerNameResolver interface {
	PlayerName(ctx context.Context, playerID string) (string, error)
}

// MetricsSink receives engine activity counters. Optional: an Engine with
// no sink attached simply skips these calls.
type MetricsSink interface {
	RecordUpdate(scoreType string, err error)
	RecordReconstruction(scoreType, period string, d time.Duration)
}

// Engine owns every time-windowed view for a single score type: the
// authoritative log of updates plus, per period, a materialised cache view
// that is reconstructed on demand and updated in place by each write.
//
// Grounded on original_source/src/socket/leaderboard/leaderboard_new.rs's
// LeaderboardV2 (process_update / query_standing_cached / fetch_top) and on
// the two-level RWMutex discipline of
// _examples/heroiclabs-nakama/server/leaderboard_rank_cache.go.
type Engine struct {
	scoreType ScoreType
	agg       Aggregation

	log   LogStore
	cache CacheStore
	names PlayerNameResolver

	views *viewMetadataMap

	// logMu serialises ProcessUpdate's read-supersede-insert of a player's
	// row for today, so concurrent updates are not lost.
	logMu sync.Mutex

	logger  *zap.Logger
	metrics MetricsSink
}

// SetMetrics attaches a metrics sink. Not safe to call concurrently with
// engine operations; intended to be set once during startup wiring.
func (e *Engine) SetMetrics(sink MetricsSink) {
	e.metrics = sink
}

// NewEngine constructs an Engine for scoreType backed by log, cache, and a
// player name resolver. Returns ErrSequentialConsistencyRequired if
// scoreType's aggregation can't be computed under the engine's
// no-ordering-guarantee concurrency model.
func NewEngine(scoreType ScoreType, log LogStore, cache CacheStore, names PlayerNameResolver, logger *zap.Logger) (*Engine, error) {
	agg := aggregationOf(scoreType)
	if requiresSequentialConsistency(agg) {
		return nil, ErrSequentialConsistencyRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		scoreType: scoreType,
		agg:       agg,
		log:       log,
		cache:     cache,
		names:     names,
		views:     newViewMetadataMap(),
		logger:    logger.With(zap.String("score_type", scoreType.String())),
	}, nil
}

// ScoreType returns the score type this engine tracks.
func (e *Engine) ScoreType() ScoreType { return e.scoreType }

// ProcessUpdate appends delta to the log and fans it out to every period's
// cache view, superseding the caller's same-day entry rather than
// duplicating it (spec.md §4.F steps 1-7). This is one of the engine's three
// public operations (spec.md §6.3).
//
// The log write is authoritative and always happens first; a failed log
// delete or insert is logged at fatal level, which exits the process. A cache
// fan-out failure is logged but does not fail the call; the next read of that
// view will lazily reconstruct from the log and self-heal.
func (e *Engine) ProcessUpdate(ctx context.Context, playerID string, delta uint32) (err error) {
	if isDeltaUseless(e.agg, delta) {
		return nil
	}

	if e.metrics != nil {
		defer func() { e.metrics.RecordUpdate(e.scoreType.String(), err) }()
	}

	ts := now()
	value := delta
	dayStart, _, dayEnd := fullRange(Daily, ts)
	todayRange := EntryRange{PlayerID: playerID, ScoreType: e.scoreType, Start: dayStart, HasStart: true, End: dayEnd}

	// Same-day supersede: collapse this player's entries for today's bucket
	// into one before inserting, so the log carries at most one row per
	// (player, score type, day) rather than growing unbounded per update.
	// Delete-then-insert is not transactional, but a concurrent reconstruct
	// merges by PlayerID regardless of how many raw rows briefly coexist, so
	// the window is harmless (spec.md §4.F). Updates on this engine run the
	// read-delete-insert sequence one at a time under logMu.
	e.logMu.Lock()
	existingEntries, errc := e.log.FindRange(ctx, todayRange)
	var priorTotal uint32
	for prior := range existingEntries {
		priorTotal = merge(e.agg, priorTotal, prior.Value)
	}
	if err := <-errc; err != nil {
		e.logMu.Unlock()
		return fmt.Errorf("%w: %v", ErrDocumentStream, err)
	}

	merged := merge(e.agg, priorTotal, delta)
	if merged == priorTotal {
		// For Max, a delta that can't raise today's standing above what is
		// already on record is a no-op: isDeltaUseless can't decide this
		// without a read, so the decision happens here instead (spec.md
		// §4.F steps 3-6). Skip the write and the cache fan-out entirely.
		e.logMu.Unlock()
		return nil
	}
	if priorTotal != 0 {
		value = merged
		if err := e.log.DeleteRange(ctx, todayRange); err != nil {
			e.logger.Fatal("supersede delete failed", zap.String("player_id", playerID), zap.Error(err))
		}
	}

	entry := Entry{PlayerID: playerID, ScoreType: e.scoreType, Timestamp: ts, Value: value}
	if err := e.log.Insert(ctx, entry); err != nil {
		e.logger.Fatal("insert entry failed", zap.String("player_id", playerID), zap.Error(err))
	}
	e.logMu.Unlock()

	playerName, err := e.names.PlayerName(ctx, playerID)
	if err != nil {
		e.logger.Warn("player name resolution failed, cache fan-out skipped",
			zap.String("player_id", playerID), zap.Error(err))
		return nil
	}

	member := MemberID(playerID, playerName)
	for _, period := range AllPeriods() {
		if err := e.applyDeltaToView(ctx, period, member, delta); err != nil {
			e.logger.Warn("fan-out update failed, view will self-heal on next read",
				zap.String("period", period.String()),
				zap.String("player_id", playerID),
				zap.Error(err))
		}
	}
	return nil
}

// applyDeltaToView updates a single period's cache view in place, taking the
// view's lock in reader mode (spec.md §5: updates never block each other on
// the same view, only reconstruction excludes them).
func (e *Engine) applyDeltaToView(ctx context.Context, period Period, member string, delta uint32) error {
	meta := e.views.ensure(period)
	meta.mu.RLock()
	defer meta.mu.RUnlock()

	viewID := ViewID(e.scoreType, period)
	current, ok, err := e.cache.ZScore(ctx, viewID, member)
	if err != nil {
		return err
	}
	if !ok {
		// A missing key means the view doesn't exist yet; it will be built
		// lazily by a subsequent read, so there is nothing to update. A
		// member not yet in an existing view starts from zero.
		hasKey, err := e.cache.HasKey(ctx, viewID)
		if err != nil || !hasKey {
			return err
		}
	}
	merged := merge(e.agg, current, delta)
	if merged == current {
		return nil
	}
	return e.cache.ZAdd(ctx, viewID, merged, member)
}

// QueryStanding returns playerID's current score for period, reconstructing
// the view first if it is missing or stale. One of the engine's three
// public operations (spec.md §6.3); returns ok == false (not an error) on a
// cache read failure or an unranked player, per spec.md §7 item 2.
func (e *Engine) QueryStanding(ctx context.Context, playerID string, period Period) (uint32, bool, error) {
	viewID := ViewID(e.scoreType, period)
	if err := e.ensureFresh(ctx, period, viewID); err != nil {
		return 0, false, err
	}
	member, err := e.memberOf(ctx, playerID)
	if err != nil {
		return 0, false, nil
	}
	score, ok, err := e.cache.ZScore(ctx, viewID, member)
	if err != nil {
		e.logger.Warn("cache read failed", zap.Error(err))
		return 0, false, nil
	}
	return score, ok, nil
}

// QueryRank returns playerID's 0-indexed rank (descending by score) for
// period, reconstructing the view first if needed. Supplemental operation
// grounded on the legacy Leaderboard::get_position in
// original_source/src/socket/leaderboard/mod.rs, which used ZREVRANK against
// the same kind of sorted-set view the new reconstruction-based views use.
func (e *Engine) QueryRank(ctx context.Context, playerID string, period Period) (int64, bool, error) {
	viewID := ViewID(e.scoreType, period)
	if err := e.ensureFresh(ctx, period, viewID); err != nil {
		return 0, false, err
	}
	member, err := e.memberOf(ctx, playerID)
	if err != nil {
		return 0, false, nil
	}
	rank, ok, err := e.cache.ZRevRank(ctx, viewID, member)
	if err != nil {
		e.logger.Warn("cache read failed", zap.Error(err))
		return 0, false, nil
	}
	return rank, ok, nil
}

// memberOf resolves playerID's cache member-id composite.
func (e *Engine) memberOf(ctx context.Context, playerID string) (string, error) {
	name, err := e.names.PlayerName(ctx, playerID)
	if err != nil {
		return "", err
	}
	return MemberID(playerID, name), nil
}

// FetchTop returns up to limit top-ranked lines for period, reconstructing
// the view first if needed.
//
// Returns ErrUpdateInProgress (without blocking) if a reconstruction of this
// view holds its lock when FetchTop starts, or takes it between the freshness
// check and the range read, per spec.md §5 cancellation contract.
func (e *Engine) FetchTop(ctx context.Context, period Period, limit int) ([]LeaderboardLine, error) {
	viewID := ViewID(e.scoreType, period)
	meta := e.views.ensure(period)
	if !meta.mu.TryRLock() {
		return nil, ErrUpdateInProgress
	}
	meta.mu.RUnlock()

	if err := e.ensureFresh(ctx, period, viewID); err != nil {
		return nil, err
	}

	if !meta.mu.TryRLock() {
		return nil, ErrUpdateInProgress
	}
	defer meta.mu.RUnlock()

	scored, err := e.cache.ZRevRangeWithScores(ctx, viewID, limit)
	if err != nil {
		// A range-read failure returns an empty top list rather than an
		// error (spec.md §7 item 2); reconstruction already guaranteed
		// freshness, so an empty result here reflects a transient read
		// problem, not stale data.
		e.logger.Warn("cache range read failed", zap.Error(err))
		return []LeaderboardLine{}, nil
	}

	lines := make([]LeaderboardLine, 0, len(scored))
	for _, sm := range scored {
		id, name, ok := splitMemberID(sm.Member)
		if !ok {
			continue
		}
		lines = append(lines, LeaderboardLine{ID: id, Name: name, Score: sm.Score})
	}
	return lines, nil
}

// ensureFresh reconstructs viewID from the log if its metadata says it is
// stale for the current moment, or if the cache key itself has gone missing
// (e.g. evicted externally — spec.md §8 boundary scenario 6: "Cache
// eviction"). Cheap checks under a reader lock first; only takes the
// writer lock (excluding every reader and fan-out update on this view) when
// reconstruction is actually required.
func (e *Engine) ensureFresh(ctx context.Context, period Period, viewID string) error {
	meta := e.views.ensure(period)
	stale := meta.isStale(period, now())
	if !stale {
		hasKey, err := e.cache.HasKey(ctx, viewID)
		if err == nil && hasKey {
			return nil
		}
	}

	meta.mu.Lock()
	defer meta.mu.Unlock()

	// Re-check under the writer lock: another goroutine may have already
	// reconstructed this view while we waited.
	at := now()
	if meta.lastUpdated != nil && sameBucket(period, *meta.lastUpdated, at) {
		if hasKey, err := e.cache.HasKey(ctx, viewID); err == nil && hasKey {
			return nil
		}
	}

	reconstructStart := time.Now()
	err := e.reconstruct(ctx, period, viewID, at)
	if e.metrics != nil {
		e.metrics.RecordReconstruction(e.scoreType.String(), period.String(), time.Since(reconstructStart))
	}
	if err != nil {
		return err
	}
	meta.lastUpdated = &at
	return nil
}

// reconstruct rebuilds viewID from scratch by streaming every log entry in
// period's current bucket and folding it per the aggregation rule. Caller
// holds meta's writer lock.
func (e *Engine) reconstruct(ctx context.Context, period Period, viewID string, at time.Time) error {
	start, hasStart, end := fullRange(period, at)

	r := EntryRange{ScoreType: e.scoreType, Start: start, HasStart: hasStart, End: end}
	entries, errc := e.log.FindRange(ctx, r)

	standings := make(map[string]uint32)
	names := make(map[string]string)
	for entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		// The log doesn't carry the player's display name, so reconstruction
		// merges scores by PlayerID only; member strings are rebuilt below.
		standings[entry.PlayerID] = merge(e.agg, standings[entry.PlayerID], entry.Value)
	}
	if err := <-errc; err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentStream, err)
	}

	// Preserve existing member display names where available before
	// replacing the view; resolve the rest through the name resolver.
	if existing, err := e.cache.ZRevRangeWithScores(ctx, viewID, len(standings)+1); err == nil {
		for _, sm := range existing {
			id, name, ok := splitMemberID(sm.Member)
			if ok {
				if _, known := names[id]; !known {
					names[id] = name
				}
			}
		}
	}
	for id := range standings {
		if _, known := names[id]; known {
			continue
		}
		name, err := e.names.PlayerName(ctx, id)
		if err != nil {
			e.logger.Warn("player name resolution failed during reconstruction",
				zap.String("player_id", id), zap.Error(err))
			continue
		}
		names[id] = name
	}

	if _, err := e.cache.DelKey(ctx, viewID); err != nil {
		return fmt.Errorf("leaderboard: reconstruct: delete stale view: %w", err)
	}
	for id, score := range standings {
		member := MemberID(id, names[id])
		if err := e.cache.ZAdd(ctx, viewID, score, member); err != nil {
			return fmt.Errorf("leaderboard: reconstruct: populate view: %w", err)
		}
	}

	return nil
}
