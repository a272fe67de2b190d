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

package leaderboard_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatasma/mars-leaderboard/internal/leaderboard"
	"github.com/chatasma/mars-leaderboard/internal/memstore"
)

func farFuture() time.Time { return time.Now().AddDate(1, 0, 0) }

func newTestEngine(t *testing.T, st leaderboard.ScoreType) (*leaderboard.Engine, *memstore.LogStore, *memstore.Store) {
	t.Helper()
	log := memstore.NewLogStore()
	cache := memstore.New()
	names := memstore.NewNameDirectory(map[string]string{
		"p1": "Alice", "p2": "Bob", "p3": "Carol",
	})
	e, err := leaderboard.NewEngine(st, log, cache, names, nil)
	require.NoError(t, err)
	return e, log, cache
}

func TestProcessUpdate_RoundTrip(t *testing.T) {
	e, _, _ := newTestEngine(t, leaderboard.Xp)
	ctx := context.Background()

	require.NoError(t, e.ProcessUpdate(ctx, "p1", 10))

	score, ok, err := e.QueryStanding(ctx, "p1", leaderboard.Daily)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(10), score)
}

func TestProcessUpdate_UselessDeltaIsNoop(t *testing.T) {
	e, log, cache := newTestEngine(t, leaderboard.Xp)
	ctx := context.Background()

	require.NoError(t, e.ProcessUpdate(ctx, "p1", 0))

	entries, errc := log.FindRange(ctx, leaderboard.EntryRange{ScoreType: leaderboard.Xp, End: farFuture()})
	var count int
	for range entries {
		count++
	}
	require.NoError(t, <-errc)
	assert.Zero(t, count)

	_, ok, err := e.QueryStanding(ctx, "p1", leaderboard.Daily)
	require.NoError(t, err)
	assert.False(t, ok)
	_ = cache
}

func TestProcessUpdate_SumAccumulatesAcrossPeriods(t *testing.T) {
	e, _, _ := newTestEngine(t, leaderboard.Xp)
	ctx := context.Background()

	require.NoError(t, e.ProcessUpdate(ctx, "p1", 3))
	require.NoError(t, e.ProcessUpdate(ctx, "p1", 4))

	score, ok, err := e.QueryStanding(ctx, "p1", leaderboard.Daily)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(7), score)

	weekly, ok, err := e.QueryStanding(ctx, "p1", leaderboard.Weekly)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(7), weekly)
}

func TestProcessUpdate_MaxKeepsHighest(t *testing.T) {
	e, log, _ := newTestEngine(t, leaderboard.HighestKillstreak)
	ctx := context.Background()

	require.NoError(t, e.ProcessUpdate(ctx, "p2", 7))
	require.NoError(t, e.ProcessUpdate(ctx, "p2", 5))
	require.NoError(t, e.ProcessUpdate(ctx, "p2", 9))

	score, ok, err := e.QueryStanding(ctx, "p2", leaderboard.Daily)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(9), score)

	entries, errc := log.FindRange(ctx, leaderboard.EntryRange{PlayerID: "p2", ScoreType: leaderboard.HighestKillstreak, End: farFuture()})
	var values []uint32
	for e := range entries {
		values = append(values, e.Value)
	}
	require.NoError(t, <-errc)
	require.Len(t, values, 1)
	assert.Equal(t, uint32(9), values[0])
}

func TestProcessUpdate_MaxNoopWhenDeltaCannotRaiseStanding(t *testing.T) {
	e, log, _ := newTestEngine(t, leaderboard.HighestKillstreak)
	ctx := context.Background()

	require.NoError(t, e.ProcessUpdate(ctx, "p2", 9))
	require.NoError(t, e.ProcessUpdate(ctx, "p2", 3)) // can't raise today's standing above 9

	score, ok, err := e.QueryStanding(ctx, "p2", leaderboard.Daily)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(9), score)

	entries, errc := log.FindRange(ctx, leaderboard.EntryRange{PlayerID: "p2", ScoreType: leaderboard.HighestKillstreak, End: farFuture()})
	var count int
	for range entries {
		count++
	}
	require.NoError(t, <-errc)
	assert.Equal(t, 1, count, "a delta that can't raise the standing must not even rewrite the existing entry")
}

func TestFetchTop_OrdersByScoreDescending(t *testing.T) {
	e, _, _ := newTestEngine(t, leaderboard.Kills)
	ctx := context.Background()

	require.NoError(t, e.ProcessUpdate(ctx, "p1", 10))
	require.NoError(t, e.ProcessUpdate(ctx, "p2", 30))
	require.NoError(t, e.ProcessUpdate(ctx, "p3", 20))

	lines, err := e.FetchTop(ctx, leaderboard.Daily, 3)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "p2", lines[0].ID)
	assert.Equal(t, uint32(30), lines[0].Score)
	assert.Equal(t, "p3", lines[1].ID)
	assert.Equal(t, "p1", lines[2].ID)
}

func TestQueryRank(t *testing.T) {
	e, _, _ := newTestEngine(t, leaderboard.Kills)
	ctx := context.Background()

	require.NoError(t, e.ProcessUpdate(ctx, "p1", 10))
	require.NoError(t, e.ProcessUpdate(ctx, "p2", 30))
	require.NoError(t, e.ProcessUpdate(ctx, "p3", 20))

	rank, ok, err := e.QueryRank(ctx, "p2", leaderboard.Daily)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 0, rank)

	rank, ok, err = e.QueryRank(ctx, "p1", leaderboard.Daily)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, rank)
}

func TestReconstruction_FixedPoint(t *testing.T) {
	e, _, cache := newTestEngine(t, leaderboard.Kills)
	ctx := context.Background()

	require.NoError(t, e.ProcessUpdate(ctx, "p1", 10))
	require.NoError(t, e.ProcessUpdate(ctx, "p2", 30))

	first, err := e.FetchTop(ctx, leaderboard.AllTime, 10)
	require.NoError(t, err)

	existed, err := cache.DelKey(ctx, leaderboard.ViewID(leaderboard.Kills, leaderboard.AllTime))
	require.NoError(t, err)
	require.True(t, existed)

	second, err := e.FetchTop(ctx, leaderboard.AllTime, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFetchTop_ReconstructsAfterExternalCacheEviction(t *testing.T) {
	e, _, cache := newTestEngine(t, leaderboard.Kills)
	ctx := context.Background()

	require.NoError(t, e.ProcessUpdate(ctx, "p1", 10))
	_, err := e.FetchTop(ctx, leaderboard.Daily, 10)
	require.NoError(t, err)

	existed, err := cache.DelKey(ctx, leaderboard.ViewID(leaderboard.Kills, leaderboard.Daily))
	require.NoError(t, err)
	require.True(t, existed)

	lines, err := e.FetchTop(ctx, leaderboard.Daily, 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ID)
}

func TestConcurrentUpdates_SameView_DoNotBlockEachOther(t *testing.T) {
	e, _, _ := newTestEngine(t, leaderboard.Xp)
	ctx := context.Background()
	require.NoError(t, e.ProcessUpdate(ctx, "p1", 1))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.ProcessUpdate(ctx, "p1", 1)
		}()
	}
	wg.Wait()

	score, ok, err := e.QueryStanding(ctx, "p1", leaderboard.AllTime)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(21), score)
}
