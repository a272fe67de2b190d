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

// Package logz builds the process zap.Logger, following the console/JSON
// encoder split of _examples/heroiclabs-nakama/server/log.go.
package logz

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type levelEnabler struct {
	verbose bool
}

func (l *levelEnabler) Enabled(level zapcore.Level) bool {
	return l.verbose || level > zapcore.DebugLevel
}

// NewConsole returns a human-readable logger writing to stdout, for local
// and -standalone runs.
func NewConsole(verbose bool) *zap.Logger {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})
	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), &levelEnabler{verbose: verbose})
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel))
}

// NewJSON returns a structured JSON logger, for production deployment
// where logs are shipped to an aggregator.
func NewJSON(verbose bool) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})
	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), &levelEnabler{verbose: verbose})
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel))
}

// New dispatches to NewJSON or NewConsole per format ("json" or "console").
// Unrecognised formats fall back to console, matching stdout-first local
// ergonomics.
func New(format string, verbose bool) *zap.Logger {
	if format == "json" {
		return NewJSON(verbose)
	}
	return NewConsole(verbose)
}
