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

package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
)

const (
	defaultKeyPrefix = "energyradar:snapshot:"
	defaultTTL       = 24 * time.Hour
)

var errMissingAddr = errors.New("snapshot: redis address is required")

// Config selects the Redis instance backing the store.
type Config struct {
	Addr      string          `json:"addr" validate:"required"`
	Password  string          `json:"password,omitempty"`
	DB        int             `json:"db,omitempty" validate:"gte=0"`
	KeyPrefix string          `json:"key_prefix,omitempty"`
	TTL       models.Duration `json:"ttl,omitempty"`
}

// Cmdable is the subset of the Redis client the store uses.
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps snapshots as JSON documents so every replica shares them.
type RedisStore struct {
	client Cmdable
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg *Config) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errMissingAddr
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()

		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return rdb, nil
}

func NewRedisStore(client Cmdable, cfg *Config, log logger.Logger) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	ttl := cfg.TTL.Std()
	if ttl == 0 {
		ttl = defaultTTL
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &RedisStore{client: client, prefix: prefix, ttl: ttl, logger: log}
}

func (s *RedisStore) key(scope models.Scope) string {
	return s.prefix + scope.Key()
}

func (s *RedisStore) Save(ctx context.Context, result *models.ReconcileResult) error {
	if result == nil {
		return errNilResult
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.key(result.Scope), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	s.logger.Debug().
		Str("scope", result.Scope.Key()).
		Str("period_key", result.PeriodKey).
		Int("bytes", len(data)).
		Msg("Stored snapshot")

	return nil
}

func (s *RedisStore) Load(ctx context.Context, scope models.Scope) (*models.ReconcileResult, error) {
	raw, err := s.client.Get(ctx, s.key(scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var result models.ReconcileResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return &result, nil
}
