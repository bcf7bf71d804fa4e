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
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/energyradar/pkg/classify"
	"github.com/carverauto/energyradar/pkg/integrations/analytics"
	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
)

var errBoom = errors.New("boom")

type fakeTokens struct {
	err   error
	calls atomic.Int32
}

func (f *fakeTokens) GetToken(context.Context) (string, error) {
	f.calls.Add(1)

	if f.err != nil {
		return "", f.err
	}

	return "token", nil
}

func (*fakeTokens) Invalidate() {}

type fixture struct {
	devices   *MockDeviceLister
	attrs     *MockAttributeSource
	hierarchy *MockHierarchySource
	totals    *MockTotalsSource
	store     *MockSnapshotStore
	tokens    *fakeTokens
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	return &fixture{
		devices:   NewMockDeviceLister(ctrl),
		attrs:     NewMockAttributeSource(ctrl),
		hierarchy: NewMockHierarchySource(ctrl),
		totals:    NewMockTotalsSource(ctrl),
		store:     NewMockSnapshotStore(ctrl),
		tokens:    &fakeTokens{},
	}
}

func (f *fixture) engine(t *testing.T, cfg Config, withStore bool) *Engine {
	t.Helper()

	rules, err := classify.LoadRules("")
	require.NoError(t, err)

	deps := Deps{
		Devices:    f.devices,
		Attributes: f.attrs,
		Hierarchy:  f.hierarchy,
		Tokens:     f.tokens,
		Totals:     f.totals,
		Rules:      rules,
	}

	if withStore {
		deps.Store = f.store
	}

	e, err := NewEngine(deps, cfg, logger.NewTestLogger())
	require.NoError(t, err)

	return e
}

func ingestionRows(pairs ...string) []models.AttributeRow {
	rows := make([]models.AttributeRow, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		rows = append(rows, models.AttributeRow{DeviceID: pairs[i], Key: "ingestionId", Value: pairs[i+1]})
	}

	return rows
}

func monthPeriod() models.Period {
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	return models.Period{Start: start, End: start.AddDate(0, 1, 0)}
}

func scope() models.Scope {
	return models.Scope{CustomerID: "cust-1"}
}

func itemByID(t *testing.T, res *models.ReconcileResult, id string) *models.CanonicalItem {
	t.Helper()

	for _, item := range res.Items {
		if item.NativeID == id {
			return item
		}
	}

	t.Fatalf("item %s not in result", id)

	return nil
}

func TestReconcileClassifiesAndAggregates(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{}, false)

	f.devices.EXPECT().ListDevices(gomock.Any(), "cust-1").Return([]models.BaseItem{
		{ID: "D1", Label: "Chiller", DeviceType: "CHILLER"},
		{ID: "D2", Label: "Pump", DeviceType: "BOMBA", Identifier: "CAG-1"},
		{ID: "D3", Label: "Motor", DeviceType: "MOTOR", Identifier: "X"},
	}, nil)
	f.attrs.EXPECT().AttributeRows(gomock.Any(), []string{"D1", "D2", "D3"}).
		Return(ingestionRows("D1", "ing-1", "D2", "ing-2", "D3", "ing-3"), nil)
	f.totals.EXPECT().FetchTotals(gomock.Any(), f.tokens, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ analytics.TokenSource, req analytics.TotalsRequest) ([]models.DeviceTotal, error) {
			assert.Equal(t, "cust-1", req.CustomerID)
			assert.Equal(t, models.DefaultDomain, req.Domain)
			assert.Equal(t, monthPeriod().Start, req.Start)

			return []models.DeviceTotal{
				{ExternalID: "ing-1", TotalValue: 100},
				{ExternalID: "ing-2", TotalValue: 50},
			}, nil
		})

	res, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{classify.CategoryClimate: 150, classify.DefaultCategory: 0}, res.GroupTotals)
	require.Len(t, res.Items, 3)
	assert.Equal(t, []string{"D1", "D2", "D3"}, []string{res.Items[0].NativeID, res.Items[1].NativeID, res.Items[2].NativeID})

	d1 := itemByID(t, res, "D1")
	assert.Equal(t, classify.CategoryClimate, d1.Category)
	assert.InDelta(t, 66.667, d1.Percentage, 0.01)

	d2 := itemByID(t, res, "D2")
	assert.Equal(t, classify.CategoryClimate, d2.Category)
	assert.InDelta(t, 33.333, d2.Percentage, 0.01)

	d3 := itemByID(t, res, "D3")
	assert.Equal(t, classify.DefaultCategory, d3.Category)
	assert.Zero(t, d3.Value)
	assert.Zero(t, d3.Percentage)

	assert.Equal(t, monthPeriod().Key(), res.PeriodKey)
	assert.Empty(t, res.Diagnostics)
}

func TestReconcileZeroFillsMissingTotals(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{}, false)

	f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return([]models.BaseItem{
		{ID: "X", DeviceType: "CHILLER"},
		{ID: "Y", DeviceType: "CHILLER"},
	}, nil)
	f.attrs.EXPECT().AttributeRows(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.totals.EXPECT().FetchTotals(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]models.DeviceTotal{{ExternalID: "X", TotalValue: 10}}, nil)

	res, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
	require.NoError(t, err)

	assert.Equal(t, 10.0, itemByID(t, res, "X").Value)
	assert.Equal(t, 100.0, itemByID(t, res, "X").Percentage)
	assert.Zero(t, itemByID(t, res, "Y").Value)
	assert.Zero(t, itemByID(t, res, "Y").Percentage)
}

func TestReconcileTotalsFailureDegradesToZero(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind models.DiagnosticKind
	}{
		{name: "transport", err: errBoom, wantKind: models.DiagPartialFetchFailure},
		{name: "rejected token", err: fmt.Errorf("page 1: %w", analytics.ErrUnauthorized), wantKind: models.DiagAuthFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := f.engine(t, Config{}, false)

			f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return([]models.BaseItem{
				{ID: "D1", DeviceType: "CHILLER"},
			}, nil)
			f.attrs.EXPECT().AttributeRows(gomock.Any(), gomock.Any()).Return(nil, nil)
			f.totals.EXPECT().FetchTotals(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tt.err)

			res, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
			require.NoError(t, err)

			assert.Equal(t, map[string]float64{classify.CategoryClimate: 0}, res.GroupTotals)
			assert.Zero(t, res.Items[0].Percentage)

			require.Len(t, res.Diagnostics, 1)
			assert.Equal(t, tt.wantKind, res.Diagnostics[0].Kind)
			assert.Equal(t, stageTotals, res.Diagnostics[0].Stage)
		})
	}
}

func TestReconcileAuthFailureIsFatal(t *testing.T) {
	t.Run("no credential", func(t *testing.T) {
		f := newFixture(t)
		f.tokens.err = analytics.ErrAuthUnavailable
		e := f.engine(t, Config{}, false)

		_, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
		require.ErrorIs(t, err, ErrAuthUnavailable)
	})

	t.Run("credential lost during totals", func(t *testing.T) {
		f := newFixture(t)
		e := f.engine(t, Config{}, false)

		f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return([]models.BaseItem{{ID: "D1"}}, nil)
		f.attrs.EXPECT().AttributeRows(gomock.Any(), gomock.Any()).Return(nil, nil)
		f.totals.EXPECT().FetchTotals(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("renew: %w", analytics.ErrAuthUnavailable))

		_, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
		require.ErrorIs(t, err, ErrAuthUnavailable)
	})
}

func TestReconcileInventoryFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{}, false)

	f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return(nil, errBoom)

	_, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
	require.ErrorIs(t, err, ErrInventoryUnavailable)
	require.ErrorIs(t, err, errBoom)
}

func TestReconcilePartialAttributeFeed(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{}, false)

	f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return([]models.BaseItem{
		{ID: "D1", DeviceType: "CHILLER"},
		{ID: "D2", DeviceType: "CHILLER"},
	}, nil)
	f.attrs.EXPECT().AttributeRows(gomock.Any(), gomock.Any()).Return(ingestionRows("D1", "ing-1"), errBoom)
	f.totals.EXPECT().FetchTotals(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]models.DeviceTotal{{ExternalID: "ing-1", TotalValue: 5}, {ExternalID: "D2", TotalValue: 3}}, nil)

	res, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
	require.NoError(t, err)

	assert.Equal(t, 5.0, itemByID(t, res, "D1").Value)
	assert.Equal(t, 3.0, itemByID(t, res, "D2").Value)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, models.DiagPartialFetchFailure, res.Diagnostics[0].Kind)
	assert.Equal(t, stageAttributes, res.Diagnostics[0].Stage)
}

func TestReconcileInvalidRequest(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{}, false)

	_, err := e.Reconcile(context.Background(), Request{Period: monthPeriod()})
	require.ErrorIs(t, err, ErrInvalidRequest)

	now := time.Now()
	_, err = e.Reconcile(context.Background(), Request{Scope: scope(), Period: models.Period{Start: now, End: now}})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestReconcileSharesOverlappingPasses(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{}, false)

	gate := make(chan struct{})

	f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return([]models.BaseItem{{ID: "D1"}}, nil).Times(1)
	f.attrs.EXPECT().AttributeRows(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)
	f.totals.EXPECT().FetchTotals(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, analytics.TokenSource, analytics.TotalsRequest) ([]models.DeviceTotal, error) {
			<-gate

			return []models.DeviceTotal{{ExternalID: "D1", TotalValue: 1}}, nil
		}).Times(1)

	const callers = 5

	results := make([]*models.ReconcileResult, callers)

	var wg sync.WaitGroup

	for i := 0; i < callers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			res, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
			assert.NoError(t, err)

			results[i] = res
		}()
	}

	close(gate)
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestReconcileReusesCompletedPassWithinWindow(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{DedupeWindow: models.Duration(time.Minute)}, false)

	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return([]models.BaseItem{{ID: "D1"}}, nil).Times(3)
	f.attrs.EXPECT().AttributeRows(gomock.Any(), gomock.Any()).Return(nil, nil).Times(3)
	f.totals.EXPECT().FetchTotals(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(3)

	req := Request{Scope: scope(), Period: monthPeriod()}

	first, err := e.Reconcile(context.Background(), req)
	require.NoError(t, err)

	second, err := e.Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.Same(t, first, second)

	now = now.Add(2 * time.Minute)

	third, err := e.Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	e.Forget(req.Scope)

	fourth, err := e.Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.NotSame(t, third, fourth)
}

func TestReconcileDoesNotRememberFailures(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{}, false)

	gomock.InOrder(
		f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return(nil, errBoom),
		f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return([]models.BaseItem{{ID: "D1"}}, nil),
	)
	f.attrs.EXPECT().AttributeRows(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.totals.EXPECT().FetchTotals(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	req := Request{Scope: scope(), Period: monthPeriod()}

	_, err := e.Reconcile(context.Background(), req)
	require.Error(t, err)

	_, err = e.Reconcile(context.Background(), req)
	require.NoError(t, err)
}

func TestLastGood(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{}, true)

	f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return([]models.BaseItem{{ID: "D1"}}, nil)
	f.attrs.EXPECT().AttributeRows(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.totals.EXPECT().FetchTotals(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	var saved *models.ReconcileResult

	f.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, res *models.ReconcileResult) error {
		saved = res

		return errBoom
	})

	res, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
	require.NoError(t, err, "snapshot failures do not fail the pass")
	assert.Same(t, res, saved)

	f.store.EXPECT().Load(gomock.Any(), scope()).Return(saved, nil)

	got, err := e.LastGood(context.Background(), scope())
	require.NoError(t, err)
	assert.Same(t, res, got)
}

func TestLastGoodWithoutStore(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{}, false)

	_, err := e.LastGood(context.Background(), scope())
	require.Error(t, err)
}

func TestReconcileLocalTelemetryTypes(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{}, false)

	seven := 7.0

	f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return([]models.BaseItem{
		{ID: "T1", DeviceType: "tank"},
		{ID: "T2", DeviceType: "CAIXA_DAGUA", LocalValue: &seven},
		{ID: "T3", DeviceType: "NIVEL"},
		{ID: "H1", DeviceType: "HIDROMETRO"},
	}, nil)
	f.attrs.EXPECT().AttributeRows(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.devices.EXPECT().LocalValues(gomock.Any(), []string{"T1", "T3"}).
		Return(map[string]float64{"T1": 42}, nil)
	f.totals.EXPECT().FetchTotals(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]models.DeviceTotal{{ExternalID: "T1", TotalValue: 1000}, {ExternalID: "H1", TotalValue: 3}}, nil)

	res, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
	require.NoError(t, err)

	assert.Equal(t, 42.0, itemByID(t, res, "T1").Value)
	assert.Equal(t, 7.0, itemByID(t, res, "T2").Value)
	assert.Zero(t, itemByID(t, res, "T3").Value)
	assert.Equal(t, 3.0, itemByID(t, res, "H1").Value)
}

func TestReconcileAttachesHierarchy(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{EnableHierarchy: true}, false)

	f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return([]models.BaseItem{{ID: "D1"}, {ID: "D2"}}, nil)
	f.attrs.EXPECT().AttributeRows(gomock.Any(), gomock.Any()).Return(nil, nil)
	f.hierarchy.EXPECT().ResolveBulk(gomock.Any(), []models.EntityRef{
		{ID: "D1", Type: models.EntityTypeDevice},
		{ID: "D2", Type: models.EntityTypeDevice},
	}, gomock.Any()).Return(map[string]models.Lineage{
		"D1": {
			Parent:      &models.AssetRef{ID: "A1", Name: "Floor 1"},
			Grandparent: &models.AssetRef{ID: "B1", Name: "Building"},
		},
	}, nil)
	f.totals.EXPECT().FetchTotals(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	res, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
	require.NoError(t, err)

	d1 := itemByID(t, res, "D1")
	require.NotNil(t, d1.Parent)
	assert.Equal(t, "Floor 1", d1.Parent.Name)
	assert.Equal(t, "Building", d1.Grandparent.Name)
	assert.Nil(t, itemByID(t, res, "D2").Parent)
}

func TestReconcileRecordsIdentityAmbiguity(t *testing.T) {
	f := newFixture(t)
	e := f.engine(t, Config{}, false)

	f.devices.EXPECT().ListDevices(gomock.Any(), gomock.Any()).Return([]models.BaseItem{
		{ID: "ing-9", Identifier: "CAG-2", DeviceType: "CHILLER"},
	}, nil)
	f.attrs.EXPECT().AttributeRows(gomock.Any(), gomock.Any()).Return([]models.AttributeRow{
		{DeviceID: "N1", Key: "ingestionId", Value: "ing-9"},
		{DeviceID: "N2", Key: "identifier", Value: "CAG-2"},
	}, nil)
	f.totals.EXPECT().FetchTotals(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]models.DeviceTotal{{ExternalID: "ing-9", TotalValue: 4}}, nil)

	res, err := e.Reconcile(context.Background(), Request{Scope: scope(), Period: monthPeriod()})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "N1", res.Items[0].NativeID)
	assert.Equal(t, 4.0, res.Items[0].Value)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, models.DiagIdentityAmbiguity, res.Diagnostics[0].Kind)
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	_, err := NewEngine(Deps{}, Config{}, nil)
	require.ErrorIs(t, err, errMissingDependency)

	f := newFixture(t)
	rules, err := classify.LoadRules("")
	require.NoError(t, err)

	_, err = NewEngine(Deps{
		Devices: f.devices, Attributes: f.attrs, Tokens: f.tokens, Totals: f.totals, Rules: rules,
	}, Config{Location: "Nowhere/Invalid"}, nil)
	require.Error(t, err)
}
