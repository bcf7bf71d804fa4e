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

package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
)

const selectServerAttributesSQL = `
SELECT entity_id::text, attribute_key, str_v, long_v, dbl_v, bool_v, json_v::text
FROM attribute_kv
WHERE entity_id::text = ANY($1)
  AND attribute_type = 'SERVER_SCOPE'
ORDER BY entity_id, attribute_key`

// Querier is the subset of pgxpool.Pool used by the feed.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresFeed reads the attribute feed straight from the inventory database, for
// deployments that run next to it and want to skip one HTTP call per device.
type PostgresFeed struct {
	db     Querier
	logger logger.Logger
}

// NewPostgresPool opens a pool for the feed.
func NewPostgresPool(ctx context.Context, dsn string, maxConns int32, log logger.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("inventory: failed to parse connection string: %w", err)
	}

	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("inventory: failed to initialize pool: %w", err)
	}

	log.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Connected to inventory database")

	return pool, nil
}

func NewPostgresFeed(db Querier, log logger.Logger) *PostgresFeed {
	return &PostgresFeed{db: db, logger: log}
}

// AttributeRows returns the server-scope attributes of the given devices.
func (f *PostgresFeed) AttributeRows(ctx context.Context, deviceIDs []string) ([]models.AttributeRow, error) {
	if len(deviceIDs) == 0 {
		return nil, nil
	}

	rows, err := f.db.Query(ctx, selectServerAttributesSQL, deviceIDs)
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()

	var out []models.AttributeRow

	for rows.Next() {
		var (
			deviceID, key string
			strV, jsonV   *string
			longV         *int64
			dblV          *float64
			boolV         *bool
		)

		if err := rows.Scan(&deviceID, &key, &strV, &longV, &dblV, &boolV, &jsonV); err != nil {
			return nil, fmt.Errorf("scan attribute row: %w", err)
		}

		out = append(out, models.AttributeRow{
			DeviceID: deviceID,
			Key:      key,
			Value:    columnValue(strV, longV, dblV, boolV, jsonV),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attribute rows: %w", err)
	}

	f.logger.Debug().
		Int("devices", len(deviceIDs)).
		Int("rows", len(out)).
		Msg("Loaded attributes from database")

	return out, nil
}

// columnValue picks the populated typed column of an attribute_kv row.
func columnValue(strV *string, longV *int64, dblV *float64, boolV *bool, jsonV *string) any {
	switch {
	case jsonV != nil:
		return json.RawMessage(*jsonV)
	case strV != nil:
		return *strV
	case longV != nil:
		return *longV
	case dblV != nil:
		return *dblV
	case boolV != nil:
		return *boolV
	default:
		return nil
	}
}
