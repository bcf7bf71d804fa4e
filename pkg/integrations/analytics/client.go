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

// Package analytics talks to the ingestion/analytics service that owns period
// consumption totals: credential issue, bearer token caching and paged totals.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
)

const maxErrorBody = 512

// Client is the HTTP client for the analytics service.
type Client struct {
	endpoint     string
	clientID     string
	clientSecret string
	pageLimit    int
	httpClient   HTTPClient
	breaker      *CircuitBreaker
	logger       logger.Logger
}

// NewClient creates a client. A nil httpClient gets an http.Client with the configured timeout.
func NewClient(cfg *Config, httpClient HTTPClient, breaker *CircuitBreaker, log logger.Logger) *Client {
	cfg.ApplyDefaults()

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout.Std()}
	}

	return &Client{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		pageLimit:    cfg.PageLimit,
		httpClient:   httpClient,
		breaker:      breaker,
		logger:       log,
	}
}

// RequestToken exchanges the client credentials for a bearer token.
func (c *Client) RequestToken(ctx context.Context) (*Credential, error) {
	body, err := json.Marshal(authRequest{ClientID: c.clientID, ClientSecret: c.clientSecret})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/v1/auth", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The auth endpoint may echo the submitted credentials, so the body is not included.
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil, fmt.Errorf("%w: %d", errUnexpectedStatusCode, resp.StatusCode)
	}

	var tokenResp accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedToken, err)
	}

	if tokenResp.AccessToken == "" || tokenResp.ExpiresIn == nil || *tokenResp.ExpiresIn <= 0 {
		return nil, errMalformedToken
	}

	return &Credential{
		AccessToken: tokenResp.AccessToken,
		ExpiresIn:   time.Duration(*tokenResp.ExpiresIn * float64(time.Second)),
	}, nil
}

// FetchTotalsPage fetches one page of per-device totals. Pages are 1-based.
func (c *Client) FetchTotalsPage(ctx context.Context, accessToken string, tr TotalsRequest, page int) (*TotalsPage, error) {
	domain := tr.Domain
	if domain == "" {
		domain = models.DefaultDomain
	}

	q := url.Values{}
	q.Set("startTime", tr.Start.Format(time.RFC3339))
	q.Set("endTime", tr.End.Format(time.RFC3339))
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(c.pageLimit))

	reqURL := fmt.Sprintf("%s/api/v1/telemetry/customers/%s/%s/devices/totals?%s",
		c.endpoint, url.PathEscape(tr.CustomerID), url.PathEscape(domain), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d, response: %s", errUnexpectedStatusCode,
			resp.StatusCode, truncate(bodyBytes))
	}

	var totalsResp totalsResponse
	if err := json.Unmarshal(bodyBytes, &totalsResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := &TotalsPage{
		Totals:     make([]models.DeviceTotal, 0, len(totalsResp.Data)),
		Page:       totalsResp.Pagination.Page,
		Pages:      totalsResp.Pagination.Pages,
		TotalCount: totalsResp.Pagination.Total,
	}

	for _, row := range totalsResp.Data {
		if row.ID == "" {
			continue
		}

		out.Totals = append(out.Totals, models.DeviceTotal{ExternalID: row.ID, TotalValue: row.TotalValue})
	}

	return out, nil
}

// FetchTotals walks every page of totals for the request. Every unauthorized page request is
// retried exactly once after the token is invalidated; a renewal failure at that point is reported
// as ErrAuthUnavailable.
func (c *Client) FetchTotals(ctx context.Context, tokens TokenSource, tr TotalsRequest) ([]models.DeviceTotal, error) {
	start := time.Now()

	token, err := tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	var all []models.DeviceTotal

	for page := 1; ; page++ {
		if page > maxTotalsPages {
			return nil, errTooManyPages
		}

		result, err := c.fetchGuarded(ctx, token, tr, page)
		// Each page request gets its own single retry with a fresh token.
		if errors.Is(err, ErrUnauthorized) {
			c.logger.Warn().
				Str("customer_id", tr.CustomerID).
				Int("page", page).
				Msg("Totals request unauthorized, renewing token")

			tokens.Invalidate()

			if token, err = tokens.GetToken(ctx); err != nil {
				recordTotalsFetch(ctx, outcomeFailure, time.Since(start))

				return nil, err
			}

			result, err = c.fetchGuarded(ctx, token, tr, page)
		}

		if err != nil {
			recordTotalsFetch(ctx, outcomeFailure, time.Since(start))

			return nil, fmt.Errorf("totals page %d: %w", page, err)
		}

		all = append(all, result.Totals...)

		if len(result.Totals) == 0 || result.Pages <= page {
			break
		}
	}

	recordTotalsFetch(ctx, outcomeSuccess, time.Since(start))

	c.logger.Debug().
		Str("customer_id", tr.CustomerID).
		Int("totals", len(all)).
		Msg("Fetched device totals")

	return all, nil
}

// fetchGuarded runs one page fetch through the circuit breaker. Authorization failures
// are a credential problem, not a service failure, and do not trip the breaker.
func (c *Client) fetchGuarded(ctx context.Context, token string, tr TotalsRequest, page int) (*TotalsPage, error) {
	if c.breaker == nil {
		return c.FetchTotalsPage(ctx, token, tr, page)
	}

	var (
		result   *TotalsPage
		fetchErr error
	)

	execErr := c.breaker.Execute(ctx, func() error {
		result, fetchErr = c.FetchTotalsPage(ctx, token, tr, page)
		if errors.Is(fetchErr, ErrUnauthorized) {
			return nil
		}

		return fetchErr
	})

	if execErr != nil && fetchErr == nil {
		return nil, execErr
	}

	return result, fetchErr
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}

	return string(body)
}
