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

package inventory

import (
	"encoding/json"
	"time"

	"github.com/carverauto/energyradar/pkg/models"
)

// Attribute sources.
const (
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

const (
	relationContains   = "Contains"
	defaultPageSize    = 100
	defaultConcurrency = 16
	defaultTimeout     = 30 * time.Second
	maxListPages       = 10000
)

// Config holds the inventory service connection settings.
type Config struct {
	Endpoint        string          `json:"endpoint" validate:"required,url"`
	Token           string          `json:"token"`
	AttributeSource string          `json:"attribute_source,omitempty" validate:"omitempty,oneof=http postgres"`
	PostgresDSN     string          `json:"postgres_dsn,omitempty"`
	Concurrency     int             `json:"concurrency,omitempty" validate:"gte=0"`
	PageSize        int             `json:"page_size,omitempty" validate:"gte=0"`
	LocalValueKey   string          `json:"local_value_key,omitempty"`
	Timeout         models.Duration `json:"timeout,omitempty"`
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.AttributeSource == "" {
		c.AttributeSource = SourceHTTP
	}

	if c.Concurrency == 0 {
		c.Concurrency = defaultConcurrency
	}

	if c.PageSize == 0 {
		c.PageSize = defaultPageSize
	}

	if c.Timeout == 0 {
		c.Timeout = models.Duration(defaultTimeout)
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errMissingEndpoint
	}

	c.ApplyDefaults()

	switch c.AttributeSource {
	case SourceHTTP:
	case SourcePostgres:
		if c.PostgresDSN == "" {
			return errMissingDSN
		}
	default:
		return errUnknownSource
	}

	return nil
}

type entityID struct {
	ID         string `json:"id"`
	EntityType string `json:"entityType,omitempty"`
}

type relation struct {
	From entityID `json:"from"`
	To   entityID `json:"to"`
	Type string   `json:"type"`
}

type asset struct {
	ID    entityID `json:"id"`
	Name  string   `json:"name"`
	Label string   `json:"label"`
}

type attributeKV struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type device struct {
	ID             entityID        `json:"id"`
	Name           string          `json:"name"`
	Label          string          `json:"label"`
	Type           string          `json:"type"`
	AdditionalInfo json.RawMessage `json:"additionalInfo,omitempty"`
}

type devicePage struct {
	Data    []device `json:"data"`
	HasNext bool     `json:"hasNext"`
}

type timeseriesPoint struct {
	TS    int64 `json:"ts"`
	Value any   `json:"value"`
}
