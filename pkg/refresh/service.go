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

// Package refresh drives reconciliation passes on a schedule and on period-change events,
// publishing only results that are still current.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
	"github.com/carverauto/energyradar/pkg/reconcile"
)

const periodChangeBuffer = 16

var errUnknownScope = errors.New("scope is not served by this reconciler")

// Engine runs reconciliation passes.
type Engine interface {
	Reconcile(ctx context.Context, req reconcile.Request) (*models.ReconcileResult, error)
	LastGood(ctx context.Context, scope models.Scope) (*models.ReconcileResult, error)
	Forget(scope models.Scope)
}

// Notifier announces finished results.
type Notifier interface {
	PublishDataReady(ctx context.Context, result *models.ReconcileResult) error
}

// Service keeps every configured scope reconciled.
type Service struct {
	engine   Engine
	notifier Notifier
	clock    Clock
	interval time.Duration
	parallel int
	location *time.Location
	logger   logger.Logger

	changes chan models.PeriodChangedData

	mu      sync.RWMutex
	scopes  map[string]models.Scope
	periods map[string]models.Period
	current map[string]*models.ReconcileResult
	month   map[string]bool
}

// NewService validates cfg and builds a service. notifier may be nil; clock defaults to the
// wall clock.
func NewService(engine Engine, notifier Notifier, cfg *Config, clock Clock, log logger.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc := time.UTC

	if cfg.Engine.Location != "" {
		l, err := time.LoadLocation(cfg.Engine.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid location %q: %w", cfg.Engine.Location, err)
		}

		loc = l
	}

	if clock == nil {
		clock = realClock{}
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &Service{
		engine:   engine,
		notifier: notifier,
		clock:    clock,
		interval: cfg.RefreshInterval.Std(),
		parallel: cfg.ParallelScopes,
		location: loc,
		logger:   log,
		changes:  make(chan models.PeriodChangedData, periodChangeBuffer),
		scopes:   make(map[string]models.Scope, len(cfg.Scopes)),
		periods:  make(map[string]models.Period, len(cfg.Scopes)),
		current:  make(map[string]*models.ReconcileResult, len(cfg.Scopes)),
		month:    make(map[string]bool, len(cfg.Scopes)),
	}

	for _, scope := range cfg.Scopes {
		key := scope.Key()
		s.scopes[key] = scope
		s.month[key] = cfg.DefaultPeriod == PeriodMonth
	}

	return s, nil
}

// Start refreshes every scope immediately and then on each tick or period change until
// ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info().
		Int("scopes", len(s.scopes)).
		Dur("interval", s.interval).
		Msg("Starting reconciliation refresh loop")

	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.RefreshAll(ctx)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Stopping reconciliation refresh loop")

			return ctx.Err()
		case <-ticker.Chan():
			s.RefreshAll(ctx)
		case change := <-s.changes:
			wg.Add(1)

			go func() {
				defer wg.Done()

				if _, err := s.Refresh(ctx, change.Scope); err != nil {
					s.logger.Warn().Err(err).Str("scope", change.Scope.Key()).Msg("Refresh after period change failed")
				}
			}()
		}
	}
}

// OnPeriodChanged switches a scope to a new period and schedules a refresh. It never blocks;
// when the queue is full the change is applied and the next tick picks it up.
func (s *Service) OnPeriodChanged(change models.PeriodChangedData) {
	key := change.Scope.Key()

	s.mu.Lock()
	_, known := s.scopes[key]
	if known {
		s.periods[key] = change.Period
		s.month[key] = false
	}
	s.mu.Unlock()

	if !known {
		s.logger.Debug().Str("scope", key).Msg("Ignoring period change for unknown scope")

		return
	}

	select {
	case s.changes <- change:
	default:
		s.logger.Warn().Str("scope", key).Msg("Period change queue full, deferring to next tick")
	}
}

// RefreshAll runs a fresh pass for every scope, bounded by the configured parallelism.
// Remembered passes are dropped first, so every tick re-reads the active period.
// Failures are logged per scope.
func (s *Service) RefreshAll(ctx context.Context) {
	s.mu.RLock()
	scopes := make([]models.Scope, 0, len(s.scopes))
	for _, scope := range s.scopes {
		scopes = append(scopes, scope)
	}
	s.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)

	for _, scope := range scopes {
		g.Go(func() error {
			s.engine.Forget(scope)

			if _, err := s.Refresh(gctx, scope); err != nil {
				s.logger.Warn().Err(err).Str("scope", scope.Key()).Msg("Scheduled refresh failed")
			}

			return nil
		})
	}

	_ = g.Wait()
}

// Refresh reconciles the scope's active period. The result is kept and published only if
// its period is still the scope's active one when the pass returns; otherwise it is dropped. When the pass fails, the last known good result is kept
// so Current keeps answering.
func (s *Service) Refresh(ctx context.Context, scope models.Scope) (*models.ReconcileResult, error) {
	period, err := s.activePeriod(scope)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Reconcile(ctx, reconcile.Request{Scope: scope, Period: period})
	if err != nil {
		s.fallback(ctx, scope)

		return nil, err
	}

	// The active period may have moved while the pass was in flight.
	active, err := s.activePeriod(scope)
	if err != nil {
		return nil, err
	}

	if result.PeriodKey != active.Key() {
		s.logger.Debug().
			Str("scope", scope.Key()).
			Str("period_key", result.PeriodKey).
			Str("active_period_key", active.Key()).
			Msg("Dropping superseded result")

		return nil, nil
	}

	s.mu.Lock()
	s.current[scope.Key()] = result
	s.mu.Unlock()

	if s.notifier != nil {
		if err := s.notifier.PublishDataReady(ctx, result); err != nil {
			s.logger.Warn().Err(err).Str("scope", scope.Key()).Msg("Failed to publish data ready event")
		}
	}

	return result, nil
}

// Current returns the latest result served for scope, which may be a last known good one.
func (s *Service) Current(scope models.Scope) (*models.ReconcileResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.current[scope.Key()]

	return result, ok
}

func (s *Service) activePeriod(scope models.Scope) (models.Period, error) {
	key := scope.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.scopes[key]; !ok {
		return models.Period{}, fmt.Errorf("%w: %s", errUnknownScope, key)
	}

	if s.month[key] {
		return models.CurrentMonth(s.clock.Now(), s.location), nil
	}

	if period, ok := s.periods[key]; ok {
		return period, nil
	}

	return models.Realtime(), nil
}

func (s *Service) fallback(ctx context.Context, scope models.Scope) {
	s.mu.RLock()
	_, have := s.current[scope.Key()]
	s.mu.RUnlock()

	if have {
		return
	}

	lastGood, err := s.engine.LastGood(ctx, scope)
	if err != nil {
		s.logger.Debug().Err(err).Str("scope", scope.Key()).Msg("No last known good result")

		return
	}

	s.mu.Lock()
	if _, have := s.current[scope.Key()]; !have {
		s.current[scope.Key()] = lastGood
	}
	s.mu.Unlock()

	s.logger.Info().
		Str("scope", scope.Key()).
		Time("completed_at", lastGood.CompletedAt).
		Msg("Serving last known good result")
}
