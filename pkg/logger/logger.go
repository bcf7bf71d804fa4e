/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const (
	outputStdout  = "stdout"
	outputStderr  = "stderr"
	outputConsole = "console"
)

type Config struct {
	Level      string `json:"level" yaml:"level"`
	Debug      bool   `json:"debug" yaml:"debug"`
	Output     string `json:"output" yaml:"output"`
	TimeFormat string `json:"time_format" yaml:"time_format"`
	// Service is stamped on every entry when set.
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
}

// ComponentLogger implements Logger over a single zerolog instance.
type ComponentLogger struct {
	logger zerolog.Logger
}

// New builds a Logger from config. A nil config falls back to DefaultConfig.
func New(config *Config) (*ComponentLogger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := config.level()
	if err != nil {
		return nil, err
	}

	ctx := zerolog.New(config.writer()).Level(level).With().Timestamp()
	if config.Service != "" {
		ctx = ctx.Str("service", config.Service)
	}

	return &ComponentLogger{logger: ctx.Logger()}, nil
}

// Wrap adapts an existing zerolog logger, e.g. one returned by WithComponent.
func Wrap(zlog zerolog.Logger) *ComponentLogger {
	return &ComponentLogger{logger: zlog}
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() Logger {
	return Wrap(zerolog.New(io.Discard).Level(zerolog.Disabled))
}

func (l *ComponentLogger) Trace() *zerolog.Event { return l.logger.Trace() }
func (l *ComponentLogger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *ComponentLogger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *ComponentLogger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *ComponentLogger) Error() *zerolog.Event { return l.logger.Error() }
func (l *ComponentLogger) Fatal() *zerolog.Event { return l.logger.Fatal() }
func (l *ComponentLogger) With() zerolog.Context { return l.logger.With() }

func (l *ComponentLogger) WithComponent(component string) zerolog.Logger {
	return l.logger.With().Str("component", component).Logger()
}

func (c *Config) level() (zerolog.Level, error) {
	if c.Debug {
		return zerolog.DebugLevel, nil
	}

	if c.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(c.Level)
}

func (c *Config) writer() io.Writer {
	switch c.Output {
	case outputStderr:
		return os.Stderr
	case outputConsole:
		format := c.TimeFormat
		if format == "" {
			format = "15:04:05"
		}

		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: format}
	default:
		return os.Stdout
	}
}
