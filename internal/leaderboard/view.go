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
	"sync"
	"time"
)

// viewMetadata is the per-(scoreType, period) coordination anchor: when the
// view was last reconstructed, and the lock that serialises reconstruction
// against reads and fan-out updates. A nil lastUpdated means "never
// reconstructed".
//
// Lock discipline (spec.md §5): updates (Engine.ProcessUpdate fan-out) take
// the lock in reader mode; reconstruction takes it in writer mode. This
// gives concurrent updates to the same view free rein while a
// reconstruction excludes every reader and writer on that view.
type viewMetadata struct {
	mu          sync.RWMutex
	lastUpdated *time.Time
}

func (v *viewMetadata) isStale(period Period, at time.Time) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastUpdated == nil || !sameBucket(period, *v.lastUpdated, at)
}

// viewMetadataMap owns the lazily-created per-period metadata for one
// engine. Its own RWMutex guards only the map structure (inserting a new
// period's entry is one-shot); it is always acquired before a view's own
// lock, never after (spec.md §5 lock ordering).
type viewMetadataMap struct {
	mu    sync.RWMutex
	byKey map[Period]*viewMetadata
}

func newViewMetadataMap() *viewMetadataMap {
	return &viewMetadataMap{byKey: make(map[Period]*viewMetadata, periodCount)}
}

// ensure returns the metadata for period, creating it under the writer lock
// if absent.
func (m *viewMetadataMap) ensure(period Period) *viewMetadata {
	m.mu.RLock()
	v, ok := m.byKey[period]
	m.mu.RUnlock()
	if ok {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok = m.byKey[period]; ok {
		return v
	}
	v = &viewMetadata{}
	m.byKey[period] = v
	return v
}
