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

// Package metrics tracks engine activity with tally, following the
// scope/snapshot-gauge pattern of
// _examples/heroiclabs-nakama/server/metrics.go, scaled down to the
// counters and gauges this engine actually emits.
package metrics

import (
	"time"

	"github.com/uber-go/tally/v4"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/chatasma/mars-leaderboard/internal/leaderboard"
)

// Metrics aggregates per-interval snapshots of engine activity into a tally
// scope. The snapshot goroutine mirrors nakama's Metrics: accumulate into
// atomics on the hot path, flush to gauges periodically so counters aren't
// read mid-update.
type Metrics struct {
	logger *zap.Logger

	scope tally.Scope

	updatesProcessed *atomic.Int64
	reconstructions  *atomic.Int64
	updateErrors     *atomic.Int64

	UpdateRateSec         *atomic.Float64
	ReconstructionRateSec *atomic.Float64
}

var _ leaderboard.MetricsSink = (*Metrics)(nil)

// New constructs a Metrics instance rooted at a tally test scope tagged
// with node name. It starts no goroutine; the caller runs Run for the
// periodic snapshot flush.
func New(logger *zap.Logger, nodeName string) *Metrics {
	scope := tally.NewTestScope("leaderboard", map[string]string{"node_name": nodeName})

	m := &Metrics{
		logger: logger,
		scope:  scope,

		updatesProcessed: atomic.NewInt64(0),
		reconstructions:  atomic.NewInt64(0),
		updateErrors:     atomic.NewInt64(0),

		UpdateRateSec:         atomic.NewFloat64(0),
		ReconstructionRateSec: atomic.NewFloat64(0),
	}
	return m
}

// Run drives the periodic snapshot flush until done is closed. Intended
// to be started once in its own goroutine at process boot.
func (m *Metrics) Run(done <-chan struct{}) {
	const intervalSec = 5
	ticker := time.NewTicker(intervalSec * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			updates := float64(m.updatesProcessed.Swap(0))
			reconstructs := float64(m.reconstructions.Swap(0))
			m.UpdateRateSec.Store(updates / intervalSec)
			m.ReconstructionRateSec.Store(reconstructs / intervalSec)
			m.scope.Gauge("update_rate_sec").Update(m.UpdateRateSec.Load())
			m.scope.Gauge("reconstruction_rate_sec").Update(m.ReconstructionRateSec.Load())
		}
	}
}

// RecordUpdate tags one processed Engine.ProcessUpdate call for scoreType.
func (m *Metrics) RecordUpdate(scoreType string, err error) {
	m.updatesProcessed.Inc()
	m.scope.Tagged(map[string]string{"score_type": scoreType}).Counter("updates_processed").Inc(1)
	if err != nil {
		m.updateErrors.Inc()
		m.scope.Tagged(map[string]string{"score_type": scoreType}).Counter("update_errors").Inc(1)
	}
}

// RecordReconstruction tags one view reconstruction for (scoreType, period).
func (m *Metrics) RecordReconstruction(scoreType, period string, d time.Duration) {
	m.reconstructions.Inc()
	tags := map[string]string{"score_type": scoreType, "period": period}
	m.scope.Tagged(tags).Counter("reconstructions").Inc(1)
	m.scope.Tagged(tags).Timer("reconstruction_latency").Record(d)
}

// Snapshot returns the tally test scope's current counter/gauge snapshot,
// useful for a -standalone smoke test to assert metrics actually flowed.
func (m *Metrics) Snapshot() tally.Snapshot {
	if ts, ok := m.scope.(tally.TestScope); ok {
		return ts.Snapshot()
	}
	return nil
}
