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

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		want   zerolog.Level
	}{
		{name: "explicit level", config: &Config{Level: "warn", Output: outputStderr}, want: zerolog.WarnLevel},
		{name: "debug flag wins", config: &Config{Level: "error", Debug: true}, want: zerolog.DebugLevel},
		{name: "empty level", config: &Config{}, want: zerolog.InfoLevel},
		{name: "console output", config: &Config{Level: "trace", Output: outputConsole}, want: zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			require.NoError(t, err)

			assert.Equal(t, tt.want, l.WithComponent("engine").GetLevel())
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestComponentTagsEntries(t *testing.T) {
	var buf bytes.Buffer

	base := Wrap(zerolog.New(&buf).With().Str("service", "svc").Logger())

	Component(base, "refresh").Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "refresh", entry["component"])
	assert.Equal(t, "svc", entry["service"])
	assert.Equal(t, "hello", entry["message"])

	assert.NotNil(t, Component(nil, "x"))
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_OUTPUT", "")
	t.Setenv("LOG_SERVICE", "")
	t.Setenv("DEBUG", "true")

	config := DefaultConfig()

	assert.Equal(t, "info", config.Level)
	assert.Equal(t, outputStdout, config.Output)
	assert.Equal(t, "energyradar-reconciler", config.Service)
	assert.True(t, config.Debug)
}

func TestTestLoggerIsSilent(t *testing.T) {
	l := NewTestLogger()
	assert.False(t, l.Info().Enabled())
}
