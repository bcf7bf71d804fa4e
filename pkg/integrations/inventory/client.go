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

// Package inventory implements the inventory service collaborators: parent relation lookup,
// batch asset details, the server-scope attribute feed and the customer device listing.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the HTTP client for the inventory service.
type Client struct {
	endpoint      string
	token         string
	concurrency   int
	pageSize      int
	localValueKey string
	httpClient    HTTPClient
	logger        logger.Logger
}

// NewClient creates a client. A nil httpClient gets an http.Client with the configured timeout.
func NewClient(cfg *Config, httpClient HTTPClient, log logger.Logger) *Client {
	cfg.ApplyDefaults()

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout.Std()}
	}

	return &Client{
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		token:         cfg.Token,
		concurrency:   cfg.Concurrency,
		pageSize:      cfg.PageSize,
		localValueKey: cfg.LocalValueKey,
		httpClient:    httpClient,
		logger:        log,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	reqURL := c.endpoint + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("X-Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("%w: %d, path: %s, response: %s", errUnexpectedStatusCode,
			resp.StatusCode, path, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response for %s: %w", path, err)
	}

	return nil
}

// ParentOf returns the container of an entity, or nil when it has none. When several
// containment relations exist the first one returned by the service is used.
func (c *Client) ParentOf(ctx context.Context, child models.EntityRef) (*models.EntityRef, error) {
	q := url.Values{}
	q.Set("toId", child.ID)
	q.Set("toType", child.Type)
	q.Set("relationType", relationContains)

	var relations []relation
	if err := c.get(ctx, "/api/relations", q, &relations); err != nil {
		return nil, err
	}

	for _, rel := range relations {
		if rel.Type != relationContains || rel.From.EntityType != models.EntityTypeAsset || rel.From.ID == "" {
			continue
		}

		return &models.EntityRef{ID: rel.From.ID, Type: rel.From.EntityType}, nil
	}

	return nil, nil
}

// AssetDetails fetches name and label for a bounded batch of asset ids.
func (c *Client) AssetDetails(ctx context.Context, ids []string) ([]models.AssetDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("assetIds", strings.Join(ids, ","))

	var assets []asset
	if err := c.get(ctx, "/api/assets", q, &assets); err != nil {
		return nil, err
	}

	out := make([]models.AssetDetail, 0, len(assets))
	for _, a := range assets {
		out = append(out, models.AssetDetail{ID: a.ID.ID, Name: a.Name, Label: a.Label})
	}

	return out, nil
}

// AttributeRows fetches the server-scope attributes of every device in parallel. Rows come
// back in device order. Devices whose fetch failed are skipped and reported through the
// joined error, so a non-nil error still comes with usable rows.
func (c *Client) AttributeRows(ctx context.Context, deviceIDs []string) ([]models.AttributeRow, error) {
	perDevice := make([][]models.AttributeRow, len(deviceIDs))

	var (
		mu       sync.Mutex
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, id := range deviceIDs {
		g.Go(func() error {
			var kvs []attributeKV

			path := "/api/plugins/telemetry/DEVICE/" + url.PathEscape(id) + "/values/attributes/SERVER_SCOPE"
			if err := c.get(gctx, path, nil, &kvs); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("device %s: %w", id, err))
				mu.Unlock()

				return nil
			}

			rows := make([]models.AttributeRow, 0, len(kvs))
			for _, kv := range kvs {
				rows = append(rows, models.AttributeRow{DeviceID: id, Key: kv.Key, Value: kv.Value})
			}

			perDevice[i] = rows

			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []models.AttributeRow
	for _, rows := range perDevice {
		out = append(out, rows...)
	}

	if len(failures) > 0 {
		c.logger.Warn().
			Int("failed_devices", len(failures)).
			Int("devices", len(deviceIDs)).
			Msg("Some attribute fetches failed")
	}

	return out, errors.Join(failures...)
}

// ListDevices lists every device of a customer.
func (c *Client) ListDevices(ctx context.Context, customerID string) ([]models.BaseItem, error) {
	var items []models.BaseItem

	for page := 0; ; page++ {
		if page >= maxListPages {
			return nil, errPagingRunaway
		}

		q := url.Values{}
		q.Set("pageSize", strconv.Itoa(c.pageSize))
		q.Set("page", strconv.Itoa(page))

		var resp devicePage
		if err := c.get(ctx, "/api/customer/"+url.PathEscape(customerID)+"/devices", q, &resp); err != nil {
			return nil, err
		}

		for i := range resp.Data {
			items = append(items, baseItem(&resp.Data[i]))
		}

		if !resp.HasNext || len(resp.Data) == 0 {
			break
		}
	}

	c.logger.Debug().
		Str("customer_id", customerID).
		Int("devices", len(items)).
		Msg("Listed customer devices")

	return items, nil
}

func baseItem(d *device) models.BaseItem {
	item := models.BaseItem{
		ID:         d.ID.ID,
		Label:      d.Label,
		DeviceType: strings.ToUpper(d.Type),
	}

	if item.Label == "" {
		item.Label = d.Name
	}

	if len(d.AdditionalInfo) > 0 {
		var info struct {
			Identifier  string `json:"identifier"`
			IngestionID string `json:"ingestionId"`
		}

		if err := json.Unmarshal(d.AdditionalInfo, &info); err == nil {
			item.Identifier = info.Identifier
			item.IngestionID = info.IngestionID
		}
	}

	return item
}

// LocalValues fetches the latest locally observed value for devices whose telemetry never
// reaches the analytics service. Devices without a reading are absent from the result.
func (c *Client) LocalValues(ctx context.Context, deviceIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(deviceIDs))
	if c.localValueKey == "" || len(deviceIDs) == 0 {
		return out, nil
	}

	var (
		mu       sync.Mutex
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, id := range deviceIDs {
		g.Go(func() error {
			q := url.Values{}
			q.Set("keys", c.localValueKey)

			var series map[string][]timeseriesPoint

			path := "/api/plugins/telemetry/DEVICE/" + url.PathEscape(id) + "/values/timeseries"
			err := c.get(gctx, path, q, &series)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				failures = append(failures, fmt.Errorf("device %s: %w", id, err))

				return nil
			}

			points := series[c.localValueKey]
			if len(points) == 0 {
				return nil
			}

			latest := lo.MaxBy(points, func(a, b timeseriesPoint) bool { return a.TS > b.TS })
			if v, ok := numeric(latest.Value); ok {
				out[id] = v
			}

			return nil
		})
	}

	_ = g.Wait()

	return out, errors.Join(failures...)
}

func numeric(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)

		return f, err == nil
	default:
		return 0, false
	}
}
