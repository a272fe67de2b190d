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

import "time"

// leaderboardZone is fixed at UTC-4 with no DST tracking. This is
// intentional (spec.md §4.A): the offset never changes at runtime.
var leaderboardZone = time.FixedZone("LBT", -4*60*60)

// now returns the current instant in the leaderboard's fixed zone.
func now() time.Time {
	return time.Now().In(leaderboardZone)
}

// sameBucket reports whether a and b fall in the same calendar bucket for
// the given period.
func sameBucket(period Period, a, b time.Time) bool {
	a, b = a.In(leaderboardZone), b.In(leaderboardZone)
	switch period {
	case Daily:
		ay, am, ad := a.Date()
		by, bm, bd := b.Date()
		return ay == by && am == bm && ad == bd
	case Weekly:
		return weekStart(a).Equal(weekStart(b))
	case Monthly:
		ay, am, _ := a.Date()
		by, bm, _ := b.Date()
		return ay == by && am == bm
	case Seasonally:
		return seasonStart(a).Equal(seasonStart(b))
	case Yearly:
		return a.Year() == b.Year()
	case AllTime:
		return true
	default:
		return false
	}
}

// weekStart returns midnight of the Sunday starting t's week.
func weekStart(t time.Time) time.Time {
	midnight := truncateToDay(t)
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}

// truncateToDay returns midnight of t's calendar date, in t's own location.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// monthDayBefore reports whether (m1, d1) falls before (m2, d2) within a
// single calendar year, ignoring year.
func monthDayBefore(m1 time.Month, d1 int, m2 time.Month, d2 int) bool {
	if m1 != m2 {
		return m1 < m2
	}
	return d1 < d2
}

// seasonOf maps an instant to its northern-hemisphere season by exact
// (month, day), mirroring original_source's Season::get_season
// (mod.rs:65-83), not merely the calendar month: Mar 1-19, Jun 1-19,
// Sep 1-21, and Dec 1-20 belong to the *preceding* season, not the one
// whose name shares the month.
func seasonOf(t time.Time) Season {
	m, d := t.Month(), t.Day()
	switch {
	case monthDayBefore(m, d, time.March, 20) || !monthDayBefore(m, d, time.December, 21):
		return Winter
	case monthDayBefore(m, d, time.June, 20):
		return Spring
	case monthDayBefore(m, d, time.September, 22):
		return Summer
	default:
		return Autumn
	}
}

// seasonStart returns the instant (in the leaderboard zone) at which the
// season containing t began, selecting the most recent season boundary at
// or before t. If that boundary falls after t in t's own year, the season
// started in the previous year (e.g. t in January belongs to the Winter
// season that began the preceding December).
func seasonStart(t time.Time) time.Time {
	month, day := seasonOf(t).StartMonthDay()
	year := t.Year()
	boundary := time.Date(year, time.Month(month), day, 0, 0, 0, 0, leaderboardZone)
	if boundary.After(t) {
		year--
		boundary = time.Date(year, time.Month(month), day, 0, 0, 0, 0, leaderboardZone)
	}
	return boundary
}

// fullRange returns the half-open bucket [start, end) containing t for the
// given period. start is None (zero time, ok=false) only for AllTime.
func fullRange(period Period, t time.Time) (start time.Time, hasStart bool, end time.Time) {
	t = t.In(leaderboardZone)
	switch period {
	case Daily:
		start = truncateToDay(t)
		return start, true, start.AddDate(0, 0, 1)
	case Weekly:
		start = weekStart(t)
		return start, true, start.AddDate(0, 0, 7)
	case Monthly:
		y, m, _ := t.Date()
		// with_day0(0) in the Rust source yields the first of the month
		// (zero-indexed day-of-month 0 == day 1) — preserved verbatim per
		// design note §9.
		start = time.Date(y, m, 1, 0, 0, 0, 0, leaderboardZone)
		return start, true, start.AddDate(0, 1, 0)
	case Seasonally:
		start = seasonStart(t)
		nextSznStart := seasonOf(t).Next()
		nMonth, nDay := nextSznStart.StartMonthDay()
		nYear := start.Year()
		if time.Month(nMonth) < start.Month() || (time.Month(nMonth) == start.Month() && nDay <= start.Day()) {
			nYear++
		}
		end = time.Date(nYear, time.Month(nMonth), nDay, 0, 0, 0, 0, leaderboardZone)
		return start, true, end
	case Yearly:
		start = time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, leaderboardZone)
		return start, true, start.AddDate(1, 0, 0)
	case AllTime:
		fallthrough
	default:
		return time.Time{}, false, t
	}
}
