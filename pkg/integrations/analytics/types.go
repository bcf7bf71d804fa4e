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

package analytics

import (
	"time"

	"github.com/carverauto/energyradar/pkg/models"
)

const (
	defaultRenewSkew   = 60 * time.Second
	defaultMaxAttempts = 3
	defaultBaseBackoff = 500 * time.Millisecond
	defaultPageLimit   = 500
	defaultTimeout     = 30 * time.Second
	maxTotalsPages     = 10000
)

// Config holds the analytics service connection settings.
type Config struct {
	Endpoint     string          `json:"endpoint" validate:"required,url"`
	ClientID     string          `json:"client_id" validate:"required"`
	ClientSecret string          `json:"client_secret" validate:"required"`
	RenewSkew    models.Duration `json:"renew_skew,omitempty"`
	MaxAttempts  int             `json:"max_attempts,omitempty" validate:"gte=0,lte=10"`
	BaseBackoff  models.Duration `json:"base_backoff,omitempty"`
	PageLimit    int             `json:"page_limit,omitempty" validate:"gte=0"`
	Timeout      models.Duration `json:"timeout,omitempty"`
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.RenewSkew == 0 {
		c.RenewSkew = models.Duration(defaultRenewSkew)
	}

	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaultMaxAttempts
	}

	if c.BaseBackoff == 0 {
		c.BaseBackoff = models.Duration(defaultBaseBackoff)
	}

	if c.PageLimit == 0 {
		c.PageLimit = defaultPageLimit
	}

	if c.Timeout == 0 {
		c.Timeout = models.Duration(defaultTimeout)
	}
}

// Validate checks the fields the clients cannot work without.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errMissingEndpoint
	}

	if c.ClientID == "" || c.ClientSecret == "" {
		return errMissingCredentials
	}

	c.ApplyDefaults()

	return nil
}

// Credential is a bearer token and its lifetime as issued by the auth endpoint.
type Credential struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// ExpiryInfo describes the cached token's remaining lifetime.
type ExpiryInfo struct {
	ExpiresAt        time.Time `json:"expires_at"`
	SecondsRemaining int64     `json:"seconds_remaining"`
}

// TotalsRequest selects the totals to fetch.
type TotalsRequest struct {
	CustomerID string
	Domain     string
	Start      time.Time
	End        time.Time
}

// TotalsPage is one page of the totals endpoint.
type TotalsPage struct {
	Totals     []models.DeviceTotal
	Page       int
	Pages      int
	TotalCount int
}

type authRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// accessTokenResponse is the auth endpoint reply.
type accessTokenResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   *float64 `json:"expires_in"`
}

// totalsResponse is the totals endpoint reply.
type totalsResponse struct {
	Data []struct {
		ID         string  `json:"id"`
		TotalValue float64 `json:"total_value"`
	} `json:"data"`
	Pagination struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
		Pages int `json:"pages"`
	} `json:"pagination"`
}
