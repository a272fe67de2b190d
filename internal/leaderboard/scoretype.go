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

import "math"

// aggregationOf classifies a score type as Sum or Max. HighestKillstreak is
// the sole Max type; every other score type accumulates.
func aggregationOf(s ScoreType) Aggregation {
	if s == HighestKillstreak {
		return Max
	}
	return Sum
}

// requiresSequentialConsistency reports whether an aggregation kind needs
// ordered delivery of updates to compute correctly. None of today's
// aggregations do; this is a guard so a future addition can't silently
// violate the engine's no-ordering-guarantee concurrency model (spec.md §5).
func requiresSequentialConsistency(agg Aggregation) bool {
	switch agg {
	case Sum, Max:
		return false
	default:
		return false
	}
}

// isDeltaUseless reports whether applying delta can have no observable
// effect without reading current standing. A zero delta is useless for both
// aggregations; for Max a non-zero delta may still turn out to be useless
// (it can't raise today's standing), but that can only be decided once the
// current standing is known, so Engine.ProcessUpdate performs that second
// check itself after reading today's prior total.
func isDeltaUseless(agg Aggregation, delta uint32) bool {
	return delta == 0
}

// merge folds new into old per the aggregation rule. Sum saturates at
// math.MaxUint32 rather than wrapping (spec.md §9 open question, resolved in
// favour of saturation to avoid silent wraparound).
func merge(agg Aggregation, old, new uint32) uint32 {
	switch agg {
	case Max:
		if new > old {
			return new
		}
		return old
	case Sum:
		fallthrough
	default:
		sum := uint64(old) + uint64(new)
		if sum > math.MaxUint32 {
			return math.MaxUint32
		}
		return uint32(sum)
	}
}
