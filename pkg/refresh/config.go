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

package refresh

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/carverauto/energyradar/pkg/hierarchy"
	"github.com/carverauto/energyradar/pkg/integrations/analytics"
	"github.com/carverauto/energyradar/pkg/integrations/inventory"
	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
	"github.com/carverauto/energyradar/pkg/natsutil"
	"github.com/carverauto/energyradar/pkg/reconcile"
	"github.com/carverauto/energyradar/pkg/snapshot"
)

const (
	defaultRefreshInterval = 5 * time.Minute
	defaultParallelScopes  = 4

	// PeriodRealtime refreshes the day so far.
	PeriodRealtime = "realtime"
	// PeriodMonth refreshes the calendar month so far.
	PeriodMonth = "month"
)

var errMissingScopes = errors.New("at least one scope must be defined")

//nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use
var validate = validator.New()

// Config is the reconciler service configuration.
type Config struct {
	Inventory inventory.Config `json:"inventory"`
	Analytics analytics.Config `json:"analytics"`
	Engine    reconcile.Config `json:"engine"`
	Hierarchy hierarchy.Config `json:"hierarchy"`

	// RulesFile is a YAML classification rule set; empty uses the built-in rules.
	RulesFile string `json:"rules_file,omitempty"`

	Scopes          []models.Scope  `json:"scopes" validate:"dive"`
	DefaultPeriod   string          `json:"default_period,omitempty" validate:"omitempty,oneof=realtime month"`
	RefreshInterval models.Duration `json:"refresh_interval,omitempty"`
	ParallelScopes  int             `json:"parallel_scopes,omitempty" validate:"gte=0"`

	NATS    *natsutil.Config `json:"nats,omitempty"`
	Redis   *snapshot.Config `json:"redis,omitempty"`
	Logging *logger.Config   `json:"logging,omitempty"`

	// CertDir is prepended to relative NATS TLS paths.
	CertDir string `json:"cert_dir,omitempty"`
}

func (c *Config) Validate() error {
	if len(c.Scopes) == 0 {
		return errMissingScopes
	}

	if c.DefaultPeriod == "" {
		c.DefaultPeriod = PeriodRealtime
	}

	if c.RefreshInterval <= 0 {
		c.RefreshInterval = models.Duration(defaultRefreshInterval)
	}

	if c.ParallelScopes == 0 {
		c.ParallelScopes = defaultParallelScopes
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := c.Inventory.Validate(); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}

	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("analytics: %w", err)
	}

	if c.NATS != nil && c.NATS.TLS != nil {
		c.normalizeCertPaths(c.NATS.TLS)
	}

	return nil
}

// normalizeCertPaths makes relative TLS file paths absolute under CertDir.
func (c *Config) normalizeCertPaths(files *natsutil.TLSFiles) {
	if c.CertDir == "" {
		return
	}

	for _, path := range []*string{&files.CertFile, &files.KeyFile, &files.CAFile} {
		if *path != "" && !filepath.IsAbs(*path) {
			*path = filepath.Join(c.CertDir, *path)
		}
	}
}
