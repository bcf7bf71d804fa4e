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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
)

func newTestClient(t *testing.T, srv *httptest.Server, breaker *CircuitBreaker) *Client {
	t.Helper()

	cfg := &Config{
		Endpoint:     srv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		PageLimit:    2,
	}

	return NewClient(cfg, srv.Client(), breaker, logger.NewTestLogger())
}

type staticTokens struct {
	tokens      []string
	next        int
	invalidated int
	err         error
}

func (s *staticTokens) GetToken(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}

	return s.tokens[s.next], nil
}

func (s *staticTokens) Invalidate() {
	s.invalidated++
	if s.next < len(s.tokens)-1 {
		s.next++
	}
}

func totalsRequest() TotalsRequest {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	return TotalsRequest{CustomerID: "cust-1", Start: start, End: start.AddDate(0, 1, 0)}
}

func TestRequestToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth", r.URL.Path)

		var body authRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "id", body.ClientID)
		assert.Equal(t, "secret", body.ClientSecret)

		_, _ = w.Write([]byte(`{"access_token":"abc","expires_in":3600}`))
	}))
	defer srv.Close()

	cred, err := newTestClient(t, srv, nil).RequestToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", cred.AccessToken)
	assert.Equal(t, time.Hour, cred.ExpiresIn)
}

func TestRequestTokenFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, wantErr: errUnexpectedStatusCode},
		{name: "forbidden", status: http.StatusForbidden, body: `{"client_secret":"secret"}`, wantErr: errUnexpectedStatusCode},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: errMalformedToken},
		{name: "missing token", status: http.StatusOK, body: `{"expires_in":3600}`, wantErr: errMalformedToken},
		{name: "missing expiry", status: http.StatusOK, body: `{"access_token":"abc"}`, wantErr: errMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv, nil).RequestToken(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
			assert.NotContains(t, err.Error(), "secret")
		})
	}
}

func totalsHandler(t *testing.T, pages [][]string, hits *atomic.Int32) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		assert.Equal(t, "/api/v1/telemetry/customers/cust-1/energy/devices/totals", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "2025-02-01T00:00:00Z", r.URL.Query().Get("startTime"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))

		type row struct {
			ID         string  `json:"id"`
			TotalValue float64 `json:"total_value"`
		}

		resp := map[string]any{
			"data":       []row{},
			"pagination": map[string]int{"page": page, "limit": 2, "total": 3, "pages": len(pages)},
		}

		if page >= 1 && page <= len(pages) {
			rows := make([]row, 0, len(pages[page-1]))
			for i, id := range pages[page-1] {
				rows = append(rows, row{ID: id, TotalValue: float64(10 * (i + page))})
			}

			resp["data"] = rows
		}

		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestFetchTotalsPaging(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(totalsHandler(t, [][]string{{"A", "B"}, {"C"}}, &hits))
	defer srv.Close()

	totals, err := newTestClient(t, srv, nil).FetchTotals(context.Background(), &staticTokens{tokens: []string{"t"}}, totalsRequest())
	require.NoError(t, err)

	assert.Equal(t, []models.DeviceTotal{
		{ExternalID: "A", TotalValue: 10},
		{ExternalID: "B", TotalValue: 20},
		{ExternalID: "C", TotalValue: 20},
	}, totals)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchTotalsRetriesOnceAfterUnauthorized(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		_, _ = w.Write([]byte(`{"data":[{"id":"X","total_value":10}],"pagination":{"page":1,"pages":1}}`))
	}))
	defer srv.Close()

	tokens := &staticTokens{tokens: []string{"stale", "fresh"}}

	totals, err := newTestClient(t, srv, nil).FetchTotals(context.Background(), tokens, totalsRequest())
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, 1, tokens.invalidated)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchTotalsUnauthorizedTwice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := &staticTokens{tokens: []string{"a", "b"}}

	_, err := newTestClient(t, srv, nil).FetchTotals(context.Background(), tokens, totalsRequest())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, tokens.invalidated)
}

func TestFetchTotalsRenewalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	ctrl := gomock.NewController(t)
	tokens := NewMockTokenSource(ctrl)

	gomock.InOrder(
		tokens.EXPECT().GetToken(gomock.Any()).Return("t", nil),
		tokens.EXPECT().Invalidate(),
		tokens.EXPECT().GetToken(gomock.Any()).Return("", fmt.Errorf("%w: renewal failed", ErrAuthUnavailable)),
	)

	_, err := newTestClient(t, srv, nil).FetchTotals(context.Background(), tokens, totalsRequest())
	require.ErrorIs(t, err, ErrAuthUnavailable)
}

func TestFetchTotalsRetriesEachUnauthorizedPage(t *testing.T) {
	var (
		mu    sync.Mutex
		seen  = map[string]int{}
		pages = [][]string{{"A", "B"}, {"C"}}
	)

	inner := totalsHandler(t, pages, &atomic.Int32{})

	// Every page is rejected on its first attempt, as when the token expires mid-listing.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")

		mu.Lock()
		seen[page]++
		first := seen[page] == 1
		mu.Unlock()

		if first {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		inner(w, r)
	}))
	defer srv.Close()

	ctrl := gomock.NewController(t)
	tokens := NewMockTokenSource(ctrl)

	gomock.InOrder(
		tokens.EXPECT().GetToken(gomock.Any()).Return("t1", nil),
		tokens.EXPECT().Invalidate(),
		tokens.EXPECT().GetToken(gomock.Any()).Return("t2", nil),
		tokens.EXPECT().Invalidate(),
		tokens.EXPECT().GetToken(gomock.Any()).Return("t3", nil),
	)

	totals, err := newTestClient(t, srv, nil).FetchTotals(context.Background(), tokens, totalsRequest())
	require.NoError(t, err)

	assert.Equal(t, []models.DeviceTotal{
		{ExternalID: "A", TotalValue: 10},
		{ExternalID: "B", TotalValue: 20},
		{ExternalID: "C", TotalValue: 20},
	}, totals)
	assert.Equal(t, map[string]int{"1": 2, "2": 2}, seen)
}

func TestFetchTotalsTransportError(t *testing.T) {
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	tokens := NewMockTokenSource(ctrl)

	tokens.EXPECT().GetToken(gomock.Any()).Return("t", nil)
	httpClient.EXPECT().Do(gomock.Any()).Return(nil, errBoom)

	cfg := &Config{Endpoint: "http://analytics.invalid", ClientID: "id", ClientSecret: "secret"}
	client := NewClient(cfg, httpClient, nil, logger.NewTestLogger())

	_, err := client.FetchTotals(context.Background(), tokens, totalsRequest())
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestFetchTotalsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, nil).FetchTotals(context.Background(), &staticTokens{tokens: []string{"t"}}, totalsRequest())
	require.ErrorIs(t, err, errUnexpectedStatusCode)
	assert.NotErrorIs(t, err, ErrAuthUnavailable)
}

func TestFetchTotalsCircuitBreaker(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	breaker := NewCircuitBreaker("analytics-totals", CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Hour,
	}, logger.NewTestLogger())

	client := newTestClient(t, srv, breaker)
	tokens := &staticTokens{tokens: []string{"t"}}

	for i := 0; i < 2; i++ {
		_, err := client.FetchTotals(context.Background(), tokens, totalsRequest())
		require.ErrorIs(t, err, errUnexpectedStatusCode)
	}

	_, err := client.FetchTotals(context.Background(), tokens, totalsRequest())
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}
