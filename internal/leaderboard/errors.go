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

import "errors"

var (
	// ErrUpdateInProgress is returned by FetchTop when a reconstruction of
	// the requested view is in flight. Transient: the caller may retry or
	// show a loading state.
	ErrUpdateInProgress = errors.New("leaderboard: view reconstruction in progress")

	// ErrDocumentStream is returned by FetchTop when reconstruction's scan
	// of the log store fails.
	ErrDocumentStream = errors.New("leaderboard: log stream read failed")

	// ErrSequentialConsistencyRequired is returned by NewEngine when asked
	// to construct an engine for a score type whose aggregation requires
	// sequential consistency. Fatal at startup; no such score type exists
	// today, this guards against a future addition.
	ErrSequentialConsistencyRequired = errors.New("leaderboard: aggregation requires sequential consistency, unsupported")
)
