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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/energyradar/pkg/integrations/analytics"
	"github.com/carverauto/energyradar/pkg/integrations/inventory"
	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
	"github.com/carverauto/energyradar/pkg/natsutil"
	"github.com/carverauto/energyradar/pkg/reconcile"
)

var errUpstream = errors.New("upstream down")

type fakeEngine struct {
	mu        sync.Mutex
	requests  []reconcile.Request
	forgotten []string
	err       error
	lastGood  *models.ReconcileResult
	during    func(req reconcile.Request)
}

func (f *fakeEngine) Reconcile(_ context.Context, req reconcile.Request) (*models.ReconcileResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	during, err := f.during, f.err
	f.mu.Unlock()

	if during != nil {
		during(req)
	}

	if err != nil {
		return nil, err
	}

	return &models.ReconcileResult{Scope: req.Scope, Period: req.Period, PeriodKey: req.Period.Key()}, nil
}

func (f *fakeEngine) LastGood(context.Context, models.Scope) (*models.ReconcileResult, error) {
	if f.lastGood == nil {
		return nil, errUpstream
	}

	return f.lastGood, nil
}

func (f *fakeEngine) Forget(scope models.Scope) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.forgotten = append(f.forgotten, scope.Key())
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.requests)
}

type fakeNotifier struct {
	mu        sync.Mutex
	published []*models.ReconcileResult
}

func (f *fakeNotifier) PublishDataReady(_ context.Context, result *models.ReconcileResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.published = append(f.published, result)

	return nil
}

type fakeTicker struct {
	ch chan time.Time
}

func (t *fakeTicker) Chan() <-chan time.Time { return t.ch }
func (*fakeTicker) Stop()                    {}

type fakeClock struct {
	now    time.Time
	ticker *fakeTicker
}

func (c *fakeClock) Now() time.Time              { return c.now }
func (c *fakeClock) Ticker(time.Duration) Ticker { return c.ticker }

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:    time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC),
		ticker: &fakeTicker{ch: make(chan time.Time)},
	}
}

func validConfig() *Config {
	return &Config{
		Inventory: inventory.Config{Endpoint: "https://inventory.example.com"},
		Analytics: analytics.Config{
			Endpoint:     "https://analytics.example.com",
			ClientID:     "id",
			ClientSecret: "secret",
		},
		Scopes: []models.Scope{{CustomerID: "c1"}, {CustomerID: "c2", Domain: "water"}},
	}
}

func newTestService(t *testing.T, engine Engine, notifier Notifier, cfg *Config, clock Clock) *Service {
	t.Helper()

	s, err := NewService(engine, notifier, cfg, clock, logger.NewTestLogger())
	require.NoError(t, err)

	return s
}

func TestConfigValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, PeriodRealtime, cfg.DefaultPeriod)
	assert.Equal(t, defaultRefreshInterval, cfg.RefreshInterval.Std())
	assert.Equal(t, defaultParallelScopes, cfg.ParallelScopes)
	assert.Equal(t, inventory.SourceHTTP, cfg.Inventory.AttributeSource)

	empty := validConfig()
	empty.Scopes = nil
	require.ErrorIs(t, empty.Validate(), errMissingScopes)

	badPeriod := validConfig()
	badPeriod.DefaultPeriod = "weekly"
	require.Error(t, badPeriod.Validate())

	badScope := validConfig()
	badScope.Scopes = []models.Scope{{Domain: "energy"}}
	require.Error(t, badScope.Validate())

	noSecret := validConfig()
	noSecret.Analytics.ClientSecret = ""
	require.Error(t, noSecret.Validate())
}

func TestConfigNormalizesCertPaths(t *testing.T) {
	cfg := validConfig()
	cfg.CertDir = "/etc/energyradar/certs"
	cfg.NATS = &natsutil.Config{
		URL: "nats://localhost:4222",
		TLS: &natsutil.TLSFiles{CAFile: "ca.pem", CertFile: "client.pem", KeyFile: "/abs/client-key.pem"},
	}

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/etc/energyradar/certs/ca.pem", cfg.NATS.TLS.CAFile)
	assert.Equal(t, "/etc/energyradar/certs/client.pem", cfg.NATS.TLS.CertFile)
	assert.Equal(t, "/abs/client-key.pem", cfg.NATS.TLS.KeyFile)
}

func TestRefreshPublishesCurrentResult(t *testing.T) {
	engine := &fakeEngine{}
	notifier := &fakeNotifier{}
	s := newTestService(t, engine, notifier, validConfig(), newFakeClock())

	scope := models.Scope{CustomerID: "c1"}

	res, err := s.Refresh(context.Background(), scope)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, models.RealtimePeriodKey, res.PeriodKey)

	require.Len(t, notifier.published, 1)
	assert.Same(t, res, notifier.published[0])

	got, ok := s.Current(scope)
	require.True(t, ok)
	assert.Same(t, res, got)
}

func TestRefreshDropsSupersededResult(t *testing.T) {
	engine := &fakeEngine{}
	notifier := &fakeNotifier{}
	s := newTestService(t, engine, notifier, validConfig(), newFakeClock())

	scope := models.Scope{CustomerID: "c1"}
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	january := models.Period{Start: start, End: start.AddDate(0, 1, 0)}

	var newer *models.ReconcileResult

	// While the realtime pass is in flight the scope moves to January and a pass for it
	// completes first.
	engine.during = func(req reconcile.Request) {
		if !req.Period.Realtime {
			return
		}

		s.OnPeriodChanged(models.PeriodChangedData{Scope: scope, Period: january})

		var err error
		newer, err = s.Refresh(context.Background(), scope)
		require.NoError(t, err)
		require.NotNil(t, newer)
	}

	res, err := s.Refresh(context.Background(), scope)
	require.NoError(t, err)
	assert.Nil(t, res)

	require.Len(t, notifier.published, 1)
	assert.Same(t, newer, notifier.published[0])
	assert.Equal(t, january.Key(), newer.PeriodKey)

	got, ok := s.Current(scope)
	require.True(t, ok)
	assert.Same(t, newer, got)
}

func TestRefreshDropsResultAfterMonthRollover(t *testing.T) {
	engine := &fakeEngine{}
	notifier := &fakeNotifier{}
	cfg := validConfig()
	cfg.DefaultPeriod = PeriodMonth
	clock := newFakeClock()
	clock.now = time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
	s := newTestService(t, engine, notifier, cfg, clock)

	engine.during = func(reconcile.Request) {
		clock.now = time.Date(2025, time.April, 1, 0, 0, 1, 0, time.UTC)
	}

	res, err := s.Refresh(context.Background(), models.Scope{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, notifier.published)

	engine.during = nil

	res, err = s.Refresh(context.Background(), models.Scope{CustomerID: "c1"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, models.CurrentMonth(clock.now, time.UTC).Key(), res.PeriodKey)
	assert.Len(t, notifier.published, 1)
}

func TestRefreshFallsBackToLastGood(t *testing.T) {
	lastGood := &models.ReconcileResult{Scope: models.Scope{CustomerID: "c1"}, CompletedAt: time.Now()}
	engine := &fakeEngine{err: reconcile.ErrAuthUnavailable, lastGood: lastGood}
	notifier := &fakeNotifier{}
	s := newTestService(t, engine, notifier, validConfig(), newFakeClock())

	_, err := s.Refresh(context.Background(), models.Scope{CustomerID: "c1"})
	require.ErrorIs(t, err, reconcile.ErrAuthUnavailable)

	got, ok := s.Current(models.Scope{CustomerID: "c1"})
	require.True(t, ok)
	assert.Same(t, lastGood, got)
	assert.Empty(t, notifier.published)
}

func TestRefreshUnknownScope(t *testing.T) {
	s := newTestService(t, &fakeEngine{}, nil, validConfig(), newFakeClock())

	_, err := s.Refresh(context.Background(), models.Scope{CustomerID: "nobody"})
	require.ErrorIs(t, err, errUnknownScope)
}

func TestMonthPeriod(t *testing.T) {
	engine := &fakeEngine{}
	cfg := validConfig()
	cfg.DefaultPeriod = PeriodMonth
	clock := newFakeClock()
	s := newTestService(t, engine, nil, cfg, clock)

	_, err := s.Refresh(context.Background(), models.Scope{CustomerID: "c1"})
	require.NoError(t, err)

	require.Len(t, engine.requests, 1)
	assert.Equal(t, models.CurrentMonth(clock.now, time.UTC), engine.requests[0].Period)
}

func TestOnPeriodChanged(t *testing.T) {
	engine := &fakeEngine{}
	s := newTestService(t, engine, nil, validConfig(), newFakeClock())

	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	period := models.Period{Start: start, End: start.AddDate(0, 1, 0)}

	s.OnPeriodChanged(models.PeriodChangedData{Scope: models.Scope{CustomerID: "stranger"}, Period: period})
	s.OnPeriodChanged(models.PeriodChangedData{Scope: models.Scope{CustomerID: "c1"}, Period: period})

	require.Len(t, s.changes, 1)

	_, err := s.Refresh(context.Background(), models.Scope{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, period, engine.requests[0].Period)

	_, err = s.Refresh(context.Background(), models.Scope{CustomerID: "c2", Domain: "water"})
	require.NoError(t, err)
	assert.Equal(t, models.Realtime(), engine.requests[1].Period)
}

func TestStartRefreshesOnTicksAndChanges(t *testing.T) {
	engine := &fakeEngine{}
	clock := newFakeClock()
	s := newTestService(t, engine, &fakeNotifier{}, validConfig(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return engine.calls() == 2 }, time.Second, 5*time.Millisecond)

	clock.ticker.ch <- clock.now

	assert.Eventually(t, func() bool { return engine.calls() == 4 }, time.Second, 5*time.Millisecond)

	s.OnPeriodChanged(models.PeriodChangedData{Scope: models.Scope{CustomerID: "c1"}, Period: models.Realtime()})

	assert.Eventually(t, func() bool { return engine.calls() == 5 }, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	engine.mu.Lock()
	defer engine.mu.Unlock()

	assert.Len(t, engine.forgotten, 4, "scheduled refreshes drop remembered passes")
}
