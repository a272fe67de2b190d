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

// Package memstore provides an in-process CacheStore and LogStore for
// standalone/demo operation and tests, avoiding a Redis or MongoDB
// dependency. The sorted-set behaviour is built on the same skiplist used
// by _examples/heroiclabs-nakama/server/leaderboard_rank_cache.go for its
// RankCache, adapted here to back a full CacheStore rather than a read-only
// rank-lookup side cache.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/chatasma/mars-leaderboard/internal/leaderboard"
	"github.com/chatasma/mars-leaderboard/internal/skiplist"
)

// scoredEntry is the skiplist element payload, ordered descending by score
// and then lexicographically by member so ties have a deterministic order
// (spec.md §8: "ties broken by the cache's internal member ordering").
type scoredEntry struct {
	member string
	score  uint32
}

func (s scoredEntry) Less(other interface{}) bool {
	o := other.(scoredEntry)
	if s.score != o.score {
		return s.score > o.score
	}
	return s.member < o.member
}

// sortedSet is one cache key's worth of state: a skiplist for ranked
// iteration plus a map for O(1) member lookup, mirroring RankCache's
// cache+owners pairing.
type sortedSet struct {
	list    *skiplist.SkipList
	members map[string]uint32
}

func newSortedSet() *sortedSet {
	return &sortedSet{list: skiplist.New(), members: make(map[string]uint32)}
}

func (s *sortedSet) set(member string, score uint32) {
	if old, ok := s.members[member]; ok {
		s.list.Delete(scoredEntry{member: member, score: old})
	}
	s.members[member] = score
	s.list.Insert(scoredEntry{member: member, score: score})
}

// Store is an in-memory CacheStore, safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	sets map[string]*sortedSet
}

// New returns an empty Store.
func New() *Store {
	return &Store{sets: make(map[string]*sortedSet)}
}

var _ leaderboard.CacheStore = (*Store)(nil)

func (s *Store) ZAdd(_ context.Context, key string, score uint32, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = newSortedSet()
		s.sets[key] = set
	}
	set.set(member, score)
	return nil
}

func (s *Store) ZScore(_ context.Context, key, member string) (uint32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[key]
	if !ok {
		return 0, false, nil
	}
	score, ok := set.members[member]
	return score, ok, nil
}

func (s *Store) ZRevRank(_ context.Context, key, member string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[key]
	if !ok {
		return 0, false, nil
	}
	score, ok := set.members[member]
	if !ok {
		return 0, false, nil
	}
	rank := set.list.GetRank(scoredEntry{member: member, score: score})
	if rank == 0 {
		return 0, false, nil
	}
	return int64(rank - 1), true, nil
}

func (s *Store) ZRevRangeWithScores(_ context.Context, key string, limit int) ([]leaderboard.ScoredMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[key]
	if !ok {
		return nil, nil
	}
	out := make([]leaderboard.ScoredMember, 0, limit)
	for e := set.list.Front(); e != nil && len(out) < limit; e = e.Next() {
		v := e.Value.(scoredEntry)
		out = append(out, leaderboard.ScoredMember{Member: v.member, Score: v.score})
	}
	return out, nil
}

func (s *Store) DelKey(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.sets[key]
	delete(s.sets, key)
	return existed, nil
}

func (s *Store) HasKey(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[key]
	return ok, nil
}

// LogStore is an in-memory, append-only LogStore for standalone/demo
// operation and tests. Entries are kept sorted by timestamp per
// (scoreType, playerId) bucket on read rather than on write, which is
// adequate at the data volumes a single demo process generates.
type LogStore struct {
	mu      sync.RWMutex
	entries []leaderboard.Entry
}

// NewLogStore returns an empty LogStore.
func NewLogStore() *LogStore {
	return &LogStore{}
}

var _ leaderboard.LogStore = (*LogStore)(nil)

func (l *LogStore) Insert(_ context.Context, entry leaderboard.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *LogStore) DeleteRange(_ context.Context, r leaderboard.EntryRange) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if matches(e, r) {
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return nil
}

func (l *LogStore) FindRange(_ context.Context, r leaderboard.EntryRange) (<-chan leaderboard.Entry, <-chan error) {
	out := make(chan leaderboard.Entry, leaderboard.LogStoreBatchSize)
	errc := make(chan error, 1)

	l.mu.RLock()
	matched := make([]leaderboard.Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if matches(e, r) {
			matched = append(matched, e)
		}
	}
	l.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })

	go func() {
		defer close(out)
		defer close(errc)
		for _, e := range matched {
			out <- e
		}
	}()
	return out, errc
}

// NameDirectory is a minimal in-memory PlayerNameResolver backed by a fixed
// map, useful for standalone mode and tests where no real player-profile
// service is wired in.
type NameDirectory struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewNameDirectory returns a NameDirectory seeded with names.
func NewNameDirectory(names map[string]string) *NameDirectory {
	d := &NameDirectory{names: make(map[string]string, len(names))}
	for k, v := range names {
		d.names[k] = v
	}
	return d
}

var _ leaderboard.PlayerNameResolver = (*NameDirectory)(nil)

// PlayerName returns the name registered for playerID, or playerID itself
// if none was registered.
func (d *NameDirectory) PlayerName(_ context.Context, playerID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.names[playerID]; ok {
		return name, nil
	}
	return playerID, nil
}

// Set registers or updates playerID's display name.
func (d *NameDirectory) Set(playerID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names[playerID] = name
}

func matches(e leaderboard.Entry, r leaderboard.EntryRange) bool {
	if e.ScoreType != r.ScoreType {
		return false
	}
	if r.PlayerID != "" && e.PlayerID != r.PlayerID {
		return false
	}
	if r.HasStart && e.Timestamp.Before(r.Start) {
		return false
	}
	if !e.Timestamp.Before(r.End) {
		return false
	}
	return true
}
