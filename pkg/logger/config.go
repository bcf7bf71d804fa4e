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
	"os"
	"strconv"
)

// DefaultConfig reads LOG_LEVEL, LOG_OUTPUT, LOG_TIME_FORMAT, LOG_SERVICE and DEBUG.
func DefaultConfig() *Config {
	debug, _ := strconv.ParseBool(os.Getenv("DEBUG"))

	return &Config{
		Level:      envOr("LOG_LEVEL", "info"),
		Debug:      debug,
		Output:     envOr("LOG_OUTPUT", outputStdout),
		TimeFormat: os.Getenv("LOG_TIME_FORMAT"),
		Service:    envOr("LOG_SERVICE", "energyradar-reconciler"),
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}
