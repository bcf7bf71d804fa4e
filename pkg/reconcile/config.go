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

package reconcile

import (
	"time"

	"github.com/carverauto/energyradar/pkg/models"
)

// DefaultDedupeWindow is how long a completed pass answers repeated requests.
const DefaultDedupeWindow = 5 * time.Minute

// Config tunes the engine.
type Config struct {
	// DedupeWindow of zero means DefaultDedupeWindow; a negative window keeps completed
	// passes for the life of the process.
	DedupeWindow models.Duration `json:"dedupe_window,omitempty"`
	// LocalTelemetryTypes are device types whose value comes from the inventory service.
	LocalTelemetryTypes []string `json:"local_telemetry_types,omitempty"`
	EnableHierarchy     bool     `json:"enable_hierarchy,omitempty"`
	// Location is used for realtime period bounds; empty means UTC.
	Location string `json:"location,omitempty"`
}

func (c *Config) dedupeWindow() time.Duration {
	if c.DedupeWindow == 0 {
		return DefaultDedupeWindow
	}

	return c.DedupeWindow.Std()
}

// DefaultLocalTelemetryTypes are level and percentage sensors fed by the inventory service.
func DefaultLocalTelemetryTypes() []string {
	return []string{"CAIXA_DAGUA", "TANK", "NIVEL", "SENSOR_NIVEL"}
}
