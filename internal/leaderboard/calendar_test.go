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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, leaderboardZone)
}

func TestSameBucket_Weekly(t *testing.T) {
	// 2025-01-05 is a Sunday; 2025-01-06 a Monday in the same Sunday-start week.
	sunday := at(2025, time.January, 5, 23, 0)
	monday := at(2025, time.January, 6, 0, 1)
	assert.True(t, sameBucket(Weekly, sunday, monday))

	prevSaturday := at(2025, time.January, 4, 23, 59)
	assert.False(t, sameBucket(Weekly, sunday, prevSaturday))
}

func TestSameBucket_Daily(t *testing.T) {
	a := at(2025, time.January, 5, 23, 0)
	b := at(2025, time.January, 5, 23, 59)
	c := at(2025, time.January, 6, 0, 1)
	assert.True(t, sameBucket(Daily, a, b))
	assert.False(t, sameBucket(Daily, a, c))
}

func TestSameBucket_SeasonBoundary(t *testing.T) {
	beforeSpring := at(2025, time.March, 19, 23, 59)
	afterSpring := at(2025, time.March, 20, 0, 1)
	assert.False(t, sameBucket(Seasonally, beforeSpring, afterSpring))
	assert.Equal(t, Winter, seasonOf(beforeSpring))
	assert.Equal(t, Spring, seasonOf(afterSpring))
}

// TestSeasonOf_PartialFirstMonthBelongsToPrecedingSeason covers spec.md §8
// boundary scenario 4: dates in the partial first month of a season (before
// its exact day-of-month boundary) must classify as the *preceding* season,
// not the season sharing the calendar month.
func TestSeasonOf_PartialFirstMonthBelongsToPrecedingSeason(t *testing.T) {
	assert.Equal(t, Winter, seasonOf(at(2025, time.March, 10, 12, 0)))
	assert.Equal(t, Spring, seasonOf(at(2025, time.June, 10, 12, 0)))
	assert.Equal(t, Summer, seasonOf(at(2025, time.September, 10, 12, 0)))
	assert.Equal(t, Autumn, seasonOf(at(2025, time.December, 10, 12, 0)))
}

func TestSameBucket_Seasonally_CrossYearWintersDiffer(t *testing.T) {
	// Both instants are Winter by season name, but belong to different
	// Winter buckets a year apart.
	earlyWinter := at(2023, time.December, 25, 0, 0)
	lateWinter := at(2025, time.January, 10, 0, 0)
	assert.Equal(t, Winter, seasonOf(earlyWinter))
	assert.Equal(t, Winter, seasonOf(lateWinter))
	assert.False(t, sameBucket(Seasonally, earlyWinter, lateWinter))
}

func TestFullRange_Weekly(t *testing.T) {
	start, hasStart, end := fullRange(Weekly, at(2025, time.January, 6, 12, 0))
	assert.True(t, hasStart)
	assert.Equal(t, at(2025, time.January, 5, 0, 0), start)
	assert.Equal(t, at(2025, time.January, 12, 0, 0), end)
}

func TestFullRange_Monthly_FirstOfMonth(t *testing.T) {
	start, _, end := fullRange(Monthly, at(2025, time.April, 15, 12, 0))
	assert.Equal(t, at(2025, time.April, 1, 0, 0), start)
	assert.Equal(t, at(2025, time.May, 1, 0, 0), end)
}

func TestFullRange_Seasonally_JanuaryIsWinterFromPriorYear(t *testing.T) {
	start, _, end := fullRange(Seasonally, at(2025, time.January, 10, 0, 0))
	assert.Equal(t, at(2024, time.December, 21, 0, 0), start)
	assert.Equal(t, at(2025, time.March, 20, 0, 0), end)
}

func TestFullRange_Seasonally_PartialFirstMonthOfSeason(t *testing.T) {
	// 2025-03-10 falls in the partial first 19 days of March, which still
	// belongs to the preceding Winter season (2024-12-21 to 2025-03-20), not
	// a "Spring" bucket starting 2025-03-01.
	start, hasStart, end := fullRange(Seasonally, at(2025, time.March, 10, 12, 0))
	assert.True(t, hasStart)
	assert.Equal(t, at(2024, time.December, 21, 0, 0), start)
	assert.Equal(t, at(2025, time.March, 20, 0, 0), end)
}

func TestFullRange_AllTime_HasNoStart(t *testing.T) {
	_, hasStart, _ := fullRange(AllTime, at(2025, time.January, 10, 0, 0))
	assert.False(t, hasStart)
}
