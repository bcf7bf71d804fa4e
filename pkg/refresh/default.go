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
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/energyradar/pkg/classify"
	"github.com/carverauto/energyradar/pkg/hierarchy"
	"github.com/carverauto/energyradar/pkg/integrations/analytics"
	"github.com/carverauto/energyradar/pkg/integrations/inventory"
	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/natsutil"
	"github.com/carverauto/energyradar/pkg/reconcile"
	"github.com/carverauto/energyradar/pkg/snapshot"
)

// Runtime is a fully wired service plus the connections it owns.
type Runtime struct {
	Service *Service
	Engine  *reconcile.Engine
	Tokens  *analytics.TokenCache

	closers []func()
}

// Close releases connections in reverse order of creation.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// NewDefault wires the production collaborators described by cfg.
func NewDefault(ctx context.Context, cfg *Config, log logger.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := &Runtime{}

	engine, err := rt.buildEngine(ctx, cfg, log)
	if err != nil {
		rt.Close()

		return nil, err
	}

	var (
		notifier Notifier
		nc       *nats.Conn
	)

	if cfg.NATS != nil {
		publisher, conn, err := rt.connectNATS(ctx, cfg.NATS, log)
		if err != nil {
			rt.Close()

			return nil, err
		}

		notifier, nc = publisher, conn
	}

	svc, err := NewService(engine, notifier, cfg, nil, log)
	if err != nil {
		rt.Close()

		return nil, err
	}

	if nc != nil {
		sub, err := natsutil.SubscribePeriodChanged(nc, log, svc.OnPeriodChanged)
		if err != nil {
			rt.Close()

			return nil, fmt.Errorf("failed to subscribe to period changes: %w", err)
		}

		rt.closers = append(rt.closers, func() { _ = sub.Unsubscribe() })
	}

	rt.Service = svc
	rt.Engine = engine

	return rt, nil
}

func (rt *Runtime) buildEngine(ctx context.Context, cfg *Config, log logger.Logger) (*reconcile.Engine, error) {
	rules, err := classify.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	analyticsLog := logger.Component(log, "analytics")
	breaker := analytics.NewCircuitBreaker("analytics", analytics.DefaultCircuitBreakerConfig(), analyticsLog)
	analyticsClient := analytics.NewClient(&cfg.Analytics, nil, breaker, analyticsLog)
	rt.Tokens = analytics.NewTokenCache(analyticsClient, &cfg.Analytics, analyticsLog)

	inventoryLog := logger.Component(log, "inventory")
	inventoryClient := inventory.NewClient(&cfg.Inventory, nil, inventoryLog)

	var attrs reconcile.AttributeSource = inventoryClient

	if cfg.Inventory.AttributeSource == inventory.SourcePostgres {
		pool, err := inventory.NewPostgresPool(ctx, cfg.Inventory.PostgresDSN, int32(cfg.Inventory.Concurrency), inventoryLog)
		if err != nil {
			return nil, err
		}

		rt.closers = append(rt.closers, pool.Close)
		attrs = inventory.NewPostgresFeed(pool, inventoryLog)
	}

	var store reconcile.SnapshotStore = snapshot.NewMemoryStore()

	if cfg.Redis != nil {
		rdb, err := snapshot.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}

		rt.closers = append(rt.closers, func() { _ = rdb.Close() })
		store = snapshot.NewRedisStore(rdb, cfg.Redis, logger.Component(log, "snapshot"))
	}

	return reconcile.NewEngine(reconcile.Deps{
		Devices:    inventoryClient,
		Attributes: attrs,
		Hierarchy:  hierarchy.NewResolver(inventoryClient, inventoryClient, cfg.Hierarchy, logger.Component(log, "hierarchy")),
		Tokens:     rt.Tokens,
		Totals:     analyticsClient,
		Rules:      rules,
		Store:      store,
	}, cfg.Engine, logger.Component(log, "reconcile"))
}

func (rt *Runtime) connectNATS(ctx context.Context, cfg *natsutil.Config, log logger.Logger) (*natsutil.EventPublisher, *nats.Conn, error) {
	log = logger.Component(log, "nats")

	nc, err := natsutil.Connect(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	rt.closers = append(rt.closers, func() { _ = nc.Drain() })

	publisher, err := natsutil.CreateEventPublisher(ctx, nc, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	return publisher, nc, nil
}
