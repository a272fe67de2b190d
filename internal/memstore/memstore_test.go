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

package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatasma/mars-leaderboard/internal/leaderboard"
	"github.com/chatasma/mars-leaderboard/internal/memstore"
)

func TestStore_ZAddAndZScore(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	require.NoError(t, s.ZAdd(ctx, "k", 10, "m1"))
	score, ok, err := s.ZScore(ctx, "k", "m1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(10), score)

	_, ok, err = s.ZScore(ctx, "k", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ZRevRangeOrdersDescending(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	require.NoError(t, s.ZAdd(ctx, "k", 10, "p1"))
	require.NoError(t, s.ZAdd(ctx, "k", 30, "p2"))
	require.NoError(t, s.ZAdd(ctx, "k", 20, "p3"))

	top, err := s.ZRevRangeWithScores(ctx, "k", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "p2", top[0].Member)
	assert.Equal(t, "p3", top[1].Member)
}

func TestStore_ZRevRank(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	require.NoError(t, s.ZAdd(ctx, "k", 10, "p1"))
	require.NoError(t, s.ZAdd(ctx, "k", 30, "p2"))

	rank, ok, err := s.ZRevRank(ctx, "k", "p2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 0, rank)

	rank, ok, err = s.ZRevRank(ctx, "k", "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, rank)
}

func TestStore_ZAddReplacesExistingScore(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	require.NoError(t, s.ZAdd(ctx, "k", 10, "p1"))
	require.NoError(t, s.ZAdd(ctx, "k", 50, "p1"))

	score, ok, err := s.ZScore(ctx, "k", "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(50), score)

	top, err := s.ZRevRangeWithScores(ctx, "k", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
}

func TestStore_DelKeyAndHasKey(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	has, err := s.HasKey(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.ZAdd(ctx, "k", 1, "m"))
	has, err = s.HasKey(ctx, "k")
	require.NoError(t, err)
	assert.True(t, has)

	existed, err := s.DelKey(ctx, "k")
	require.NoError(t, err)
	assert.True(t, existed)

	has, err = s.HasKey(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestLogStore_InsertAndFindRange(t *testing.T) {
	l := memstore.NewLogStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l.Insert(ctx, leaderboard.Entry{PlayerID: "p1", ScoreType: leaderboard.Kills, Timestamp: now, Value: 5}))
	require.NoError(t, l.Insert(ctx, leaderboard.Entry{PlayerID: "p2", ScoreType: leaderboard.Kills, Timestamp: now, Value: 7}))
	require.NoError(t, l.Insert(ctx, leaderboard.Entry{PlayerID: "p1", ScoreType: leaderboard.Deaths, Timestamp: now, Value: 1}))

	entries, errc := l.FindRange(ctx, leaderboard.EntryRange{ScoreType: leaderboard.Kills, End: now.Add(time.Hour)})
	var got []leaderboard.Entry
	for e := range entries {
		got = append(got, e)
	}
	require.NoError(t, <-errc)
	assert.Len(t, got, 2)
}

func TestLogStore_DeleteRange(t *testing.T) {
	l := memstore.NewLogStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, l.Insert(ctx, leaderboard.Entry{PlayerID: "p1", ScoreType: leaderboard.Kills, Timestamp: now, Value: 5}))
	require.NoError(t, l.DeleteRange(ctx, leaderboard.EntryRange{PlayerID: "p1", ScoreType: leaderboard.Kills, End: now.Add(time.Hour)}))

	entries, errc := l.FindRange(ctx, leaderboard.EntryRange{ScoreType: leaderboard.Kills, End: now.Add(time.Hour)})
	var count int
	for range entries {
		count++
	}
	require.NoError(t, <-errc)
	assert.Zero(t, count)
}

func TestNameDirectory_FallsBackToPlayerID(t *testing.T) {
	d := memstore.NewNameDirectory(map[string]string{"p1": "Alice"})
	ctx := context.Background()

	name, err := d.PlayerName(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	name, err = d.PlayerName(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, "unknown", name)
}
