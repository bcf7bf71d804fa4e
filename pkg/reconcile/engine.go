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

// Package reconcile merges inventory devices with analytics totals into classified,
// percentage-annotated items and per-category totals.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/carverauto/energyradar/pkg/attributes"
	"github.com/carverauto/energyradar/pkg/classify"
	"github.com/carverauto/energyradar/pkg/integrations/analytics"
	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
	"github.com/carverauto/energyradar/pkg/registry"
)

const (
	stageAttributes = "attributes"
	stageLocal      = "local_values"
	stageHierarchy  = "hierarchy"
	stageTotals     = "totals"
)

// Request selects what one pass reconciles.
type Request struct {
	Scope  models.Scope
	Period models.Period
}

// Deps are the collaborators of the engine. Hierarchy and Store are optional.
type Deps struct {
	Devices    DeviceLister
	Attributes AttributeSource
	Hierarchy  HierarchySource
	Tokens     analytics.TokenSource
	Totals     TotalsSource
	Rules      *classify.RuleSet
	Store      SnapshotStore
}

// Engine runs reconciliation passes. Overlapping requests for the same scope and period
// share one pass, and completed passes are reused for the dedupe window.
type Engine struct {
	deps       Deps
	builder    *attributes.Builder
	identity   *registry.IdentityResolver
	window     time.Duration
	localTypes map[string]struct{}
	hierarchy  bool
	location   *time.Location
	now        func() time.Time
	logger     logger.Logger

	flights singleflight.Group

	mu   sync.Mutex
	memo map[string]memoEntry
}

type memoEntry struct {
	result   *models.ReconcileResult
	storedAt time.Time
}

// NewEngine wires an engine. Devices, Attributes, Tokens, Totals and Rules are required.
func NewEngine(deps Deps, cfg Config, log logger.Logger) (*Engine, error) {
	switch {
	case deps.Devices == nil:
		return nil, fmt.Errorf("%w: device lister", errMissingDependency)
	case deps.Attributes == nil:
		return nil, fmt.Errorf("%w: attribute source", errMissingDependency)
	case deps.Tokens == nil:
		return nil, fmt.Errorf("%w: token source", errMissingDependency)
	case deps.Totals == nil:
		return nil, fmt.Errorf("%w: totals source", errMissingDependency)
	case deps.Rules == nil:
		return nil, fmt.Errorf("%w: rule set", errMissingDependency)
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	loc := time.UTC

	if cfg.Location != "" {
		l, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid location %q: %w", cfg.Location, err)
		}

		loc = l
	}

	localTypes := cfg.LocalTelemetryTypes
	if localTypes == nil {
		localTypes = DefaultLocalTelemetryTypes()
	}

	return &Engine{
		deps:     deps,
		builder:  attributes.NewBuilder(log),
		identity: registry.NewIdentityResolver(log),
		window:   cfg.dedupeWindow(),
		localTypes: lo.SliceToMap(localTypes, func(t string) (string, struct{}) {
			return strings.ToUpper(strings.TrimSpace(t)), struct{}{}
		}),
		hierarchy: cfg.EnableHierarchy && deps.Hierarchy != nil,
		location:  loc,
		now:       time.Now,
		logger:    log,
		memo:      make(map[string]memoEntry),
	}, nil
}

// Reconcile runs, joins or reuses the pass for req. Only a missing credential or an
// unavailable device listing fail the call; every other problem degrades individual items
// and is reported in the result diagnostics.
func (e *Engine) Reconcile(ctx context.Context, req Request) (*models.ReconcileResult, error) {
	if err := req.Scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if err := req.Period.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	key := dedupeKey(req.Scope, req.Period)

	if res, ok := e.memoized(key); ok {
		recordDedupe(ctx, dedupeCompleted)

		return res, nil
	}

	passCtx := context.WithoutCancel(ctx)

	ch := e.flights.DoChan(key, func() (interface{}, error) {
		if res, ok := e.memoized(key); ok {
			return res, nil
		}

		res, err := e.run(passCtx, req)
		if err != nil {
			return nil, err
		}

		e.remember(key, res)

		return res, nil
	})

	select {
	case out := <-ch:
		if out.Shared {
			recordDedupe(ctx, dedupeInFlight)
		}

		if out.Err != nil {
			return nil, out.Err
		}

		return out.Val.(*models.ReconcileResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LastGood returns the last successful result stored for scope.
func (e *Engine) LastGood(ctx context.Context, scope models.Scope) (*models.ReconcileResult, error) {
	if e.deps.Store == nil {
		return nil, fmt.Errorf("%w: snapshot store", errMissingDependency)
	}

	return e.deps.Store.Load(ctx, scope)
}

func (e *Engine) run(ctx context.Context, req Request) (*models.ReconcileResult, error) {
	start := e.now()
	diags := &models.DiagnosticLog{}

	log := e.logger.With().
		Str("scope", req.Scope.Key()).
		Str("period_key", req.Period.Key()).
		Logger()

	// A pass never starts without a credential.
	if _, err := e.deps.Tokens.GetToken(ctx); err != nil {
		recordPass(ctx, outcomeAuthFailure, e.now().Sub(start))

		log.Error().Err(err).Msg("Reconciliation aborted, analytics credential unavailable")

		return nil, fmt.Errorf("%w: %w", ErrAuthUnavailable, err)
	}

	items, err := e.loadItems(ctx, req.Scope, diags)
	if err != nil {
		recordPass(ctx, outcomeInventoryFailure, e.now().Sub(start))

		log.Error().Err(err).Msg("Reconciliation aborted, device listing unavailable")

		return nil, err
	}

	totals, err := e.fetchTotals(ctx, req, diags)
	if err != nil {
		recordPass(ctx, outcomeAuthFailure, e.now().Sub(start))

		log.Error().Err(err).Msg("Reconciliation aborted, analytics credential rejected")

		return nil, err
	}

	e.merge(items, totals)
	e.classify(items)

	result := &models.ReconcileResult{
		Scope:       req.Scope,
		Period:      req.Period,
		PeriodKey:   req.Period.Key(),
		Items:       items,
		GroupTotals: aggregate(items),
		Diagnostics: diags.Entries(),
		CompletedAt: e.now().UTC(),
	}

	sortItems(result.Items)

	recordDiagnostics(ctx, result.Diagnostics)
	recordPass(ctx, outcomeSuccess, e.now().Sub(start))

	if e.deps.Store != nil {
		if err := e.deps.Store.Save(ctx, result); err != nil {
			log.Warn().Err(err).Msg("Failed to save last-known-good snapshot")
		}
	}

	log.Info().
		Int("items", len(result.Items)).
		Int("totals", len(totals)).
		Int("diagnostics", len(result.Diagnostics)).
		Dur("duration", e.now().Sub(start)).
		Msg("Reconciliation pass completed")

	return result, nil
}

// loadItems lists the scope's devices, builds a fresh attribute index and resolves identity.
// Attribute, local value and hierarchy failures degrade to diagnostics.
func (e *Engine) loadItems(ctx context.Context, scope models.Scope, diags *models.DiagnosticLog) ([]*models.CanonicalItem, error) {
	base, err := e.deps.Devices.ListDevices(ctx, scope.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInventoryUnavailable, err)
	}

	ids := lo.Uniq(lo.FilterMap(base, func(item models.BaseItem, _ int) (string, bool) {
		id := strings.TrimSpace(item.ID)

		return id, id != ""
	}))

	rows, err := e.deps.Attributes.AttributeRows(ctx, ids)
	if err != nil {
		e.logger.Warn().Err(err).Str("scope", scope.Key()).Msg("Attribute feed incomplete")

		diags.Add(models.Diagnostic{
			Kind:    models.DiagPartialFetchFailure,
			Stage:   stageAttributes,
			Subject: scope.Key(),
			Detail:  err.Error(),
		})
	}

	idx := e.builder.Build(rows)
	for _, d := range idx.Diagnostics() {
		diags.Add(d)
	}

	items, ambiguities := e.identity.Resolve(ctx, base, idx)
	for i := range ambiguities {
		diags.Add(ambiguities[i].Diagnostic())
	}

	e.fillLocalValues(ctx, items, diags)

	if e.hierarchy {
		e.attachHierarchy(ctx, items, diags)
	}

	return items, nil
}

func (e *Engine) isLocal(deviceType string) bool {
	_, ok := e.localTypes[strings.ToUpper(deviceType)]

	return ok
}

func (e *Engine) fillLocalValues(ctx context.Context, items []*models.CanonicalItem, diags *models.DiagnosticLog) {
	missing := lo.FilterMap(items, func(item *models.CanonicalItem, _ int) (string, bool) {
		return item.NativeID, item.LocalValue == nil && e.isLocal(item.DeviceType)
	})
	if len(missing) == 0 {
		return
	}

	values, err := e.deps.Devices.LocalValues(ctx, lo.Uniq(missing))
	if err != nil {
		e.logger.Warn().Err(err).Int("devices", len(missing)).Msg("Some local readings unavailable")

		diags.Add(models.Diagnostic{
			Kind:   models.DiagPartialFetchFailure,
			Stage:  stageLocal,
			Detail: err.Error(),
		})
	}

	for _, item := range items {
		if item.LocalValue != nil {
			continue
		}

		if v, ok := values[item.NativeID]; ok {
			item.LocalValue = &v
		}
	}
}

func (e *Engine) attachHierarchy(ctx context.Context, items []*models.CanonicalItem, diags *models.DiagnosticLog) {
	refs := lo.Map(items, func(item *models.CanonicalItem, _ int) models.EntityRef {
		return models.EntityRef{ID: item.NativeID, Type: models.EntityTypeDevice}
	})

	lineage, err := e.deps.Hierarchy.ResolveBulk(ctx, refs, diags)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Hierarchy resolution abandoned")

		diags.Add(models.Diagnostic{
			Kind:   models.DiagPartialFetchFailure,
			Stage:  stageHierarchy,
			Detail: err.Error(),
		})

		return
	}

	for _, item := range items {
		if l, ok := lineage[item.NativeID]; ok {
			item.Parent = l.Parent
			item.Grandparent = l.Grandparent
		}
	}
}

// fetchTotals returns the period totals. Any failure other than a lost credential degrades
// to no totals, which zero-fills every analytics-backed item.
func (e *Engine) fetchTotals(ctx context.Context, req Request, diags *models.DiagnosticLog) ([]models.DeviceTotal, error) {
	start, end := req.Period.Bounds(e.now().In(e.location))

	totals, err := e.deps.Totals.FetchTotals(ctx, e.deps.Tokens, analytics.TotalsRequest{
		CustomerID: req.Scope.CustomerID,
		Domain:     req.Scope.DomainOrDefault(),
		Start:      start,
		End:        end,
	})
	if err == nil {
		return totals, nil
	}

	if errors.Is(err, analytics.ErrAuthUnavailable) {
		return nil, fmt.Errorf("%w: %w", ErrAuthUnavailable, err)
	}

	kind := models.DiagPartialFetchFailure
	if errors.Is(err, analytics.ErrUnauthorized) {
		kind = models.DiagAuthFailure
	}

	e.logger.Warn().
		Err(err).
		Str("scope", req.Scope.Key()).
		Msg("Totals unavailable, values default to zero")

	diags.Add(models.Diagnostic{
		Kind:    kind,
		Stage:   stageTotals,
		Subject: req.Scope.Key(),
		Detail:  err.Error(),
	})

	return nil, nil
}

func (e *Engine) classify(items []*models.CanonicalItem) {
	for _, item := range items {
		item.Category = e.deps.Rules.Classify(item.DeviceType, item.HumanIdentifier)
	}
}
