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
	"time"
)

// Entry is one record in the backing log: at most one exists for a given
// (PlayerID, ScoreType, day-bucket) at any moment (spec.md §3).
type Entry struct {
	PlayerID  string
	ScoreType ScoreType
	Timestamp time.Time
	Value     uint32
}

// EntryRange scopes a LogStore query or delete to a player (optional), a
// score type, and a half-open timestamp interval [Start, End). HasStart
// false means the interval is unbounded below (AllTime).
type EntryRange struct {
	PlayerID  string // empty means "all players"
	ScoreType ScoreType
	Start     time.Time
	HasStart  bool
	End       time.Time
}

// LogStoreBatchSize is the fixed streaming batch hint for LogStore.FindRange
// (spec.md §6.4) — not configurable at runtime.
const LogStoreBatchSize = 50_000

// LogStore is the append-only, queryable document store backing every
// leaderboard view. The engine treats transient I/O errors as recoverable
// during reconstruction and as fatal during the write path (spec.md §4.C).
type LogStore interface {
	// Insert appends a new entry.
	Insert(ctx context.Context, entry Entry) error

	// DeleteRange removes every entry matching r. Used for the same-day
	// supersede (spec.md §4.F step 7).
	DeleteRange(ctx context.Context, r EntryRange) error

	// FindRange streams every entry matching r to the returned channel, in
	// batches of LogStoreBatchSize. The channel is closed when the stream
	// is exhausted or ctx is cancelled; a read error is delivered once on
	// errc before both channels close.
	FindRange(ctx context.Context, r EntryRange) (entries <-chan Entry, errc <-chan error)
}

// CacheStore is the sorted-set key-value store backing every materialised
// leaderboard view. A key's absence is indistinguishable from an empty
// ranking and must be treated by callers as "needs reconstruction"
// (spec.md §4.D).
type CacheStore interface {
	// ZAdd adds or replaces member's score in the sorted set at key.
	ZAdd(ctx context.Context, key string, score uint32, member string) error

	// ZScore returns member's score in key, or ok == false if the key or
	// member does not exist.
	ZScore(ctx context.Context, key, member string) (score uint32, ok bool, err error)

	// ZRevRank returns member's 0-indexed rank in key ordered by score
	// descending, or ok == false if the key or member does not exist.
	ZRevRank(ctx context.Context, key, member string) (rank int64, ok bool, err error)

	// ZRevRangeWithScores returns up to limit members of key ordered by
	// score descending, starting at rank 0.
	ZRevRangeWithScores(ctx context.Context, key string, limit int) ([]ScoredMember, error)

	// DelKey deletes key and reports whether it existed.
	DelKey(ctx context.Context, key string) (existed bool, err error)

	// HasKey reports whether key currently exists.
	HasKey(ctx context.Context, key string) (bool, error)
}

// ScoredMember is one (member, score) pair as returned from a ranked range
// query.
type ScoredMember struct {
	Member string
	Score  uint32
}
