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
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"github.com/carverauto/energyradar/pkg/logger"
)

const renewKey = "credential"

// TokenCache caches the analytics bearer token and renews it shortly before expiry.
// Concurrent callers that find the token stale share a single renewal.
type TokenCache struct {
	source      CredentialSource
	logger      logger.Logger
	skew        time.Duration
	maxAttempts int
	baseBackoff time.Duration
	now         func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	renewAt   time.Time

	renewals singleflight.Group
}

// NewTokenCache creates a cache that renews through source using the retry settings in cfg.
func NewTokenCache(source CredentialSource, cfg *Config, log logger.Logger) *TokenCache {
	cfg.ApplyDefaults()

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &TokenCache{
		source:      source,
		logger:      log,
		skew:        cfg.RenewSkew.Std(),
		maxAttempts: attempts,
		baseBackoff: cfg.BaseBackoff.Std(),
		now:         time.Now,
	}
}

// GetToken returns the cached token, renewing it when absent or inside the skew window.
// Renewal runs detached from the first caller's context so one caller giving up does not
// fail everybody else waiting on the same renewal.
func (c *TokenCache) GetToken(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	renewCtx := context.WithoutCancel(ctx)

	ch := c.renewals.DoChan(renewKey, func() (interface{}, error) {
		// A renewal that finished between the check above and this flight starting
		// already produced a usable token.
		if token, ok := c.cached(); ok {
			return token, nil
		}

		return c.renew(renewCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}

		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached token so the next GetToken renews.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.expiresAt = time.Time{}
	c.renewAt = time.Time{}
}

// ExpiryInfo reports when the cached token expires. The zero value means no token is cached.
func (c *TokenCache) ExpiryInfo() ExpiryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		return ExpiryInfo{}
	}

	remaining := c.expiresAt.Sub(c.now())
	if remaining < 0 {
		remaining = 0
	}

	return ExpiryInfo{
		ExpiresAt:        c.expiresAt,
		SecondsRemaining: int64(remaining / time.Second),
	}
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" || !c.now().Before(c.renewAt) {
		return "", false
	}

	return c.token, true
}

func (c *TokenCache) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.baseBackoff << c.maxAttempts
	b.MaxElapsedTime = 0

	return backoff.WithMaxRetries(b, uint64(c.maxAttempts-1))
}

func (c *TokenCache) renew(ctx context.Context) (string, error) {
	attempt := 0

	cred, err := backoff.RetryNotifyWithData(
		func() (*Credential, error) {
			attempt++

			return c.source.RequestToken(ctx)
		},
		backoff.WithContext(c.newBackOff(), ctx),
		func(err error, wait time.Duration) {
			recordTokenRenewal(ctx, outcomeRetry)

			c.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("backoff", wait).
				Msg("Credential renewal failed, retrying")
		},
	)
	if err != nil {
		recordTokenRenewal(ctx, outcomeFailure)

		c.logger.Error().
			Err(err).
			Int("attempts", attempt).
			Msg("Credential renewal exhausted")

		return "", fmt.Errorf("%w after %d attempts: %w", ErrAuthUnavailable, attempt, err)
	}

	// Short-lived tokens would otherwise be stale on arrival, so the skew never
	// exceeds half the lifetime.
	skew := c.skew
	if half := cred.ExpiresIn / 2; skew > half {
		skew = half
	}

	expiresAt := c.now().Add(cred.ExpiresIn)

	c.mu.Lock()
	c.token = cred.AccessToken
	c.expiresAt = expiresAt
	c.renewAt = expiresAt.Add(-skew)
	c.mu.Unlock()

	recordTokenRenewal(ctx, outcomeSuccess)

	c.logger.Info().
		Time("expires_at", expiresAt).
		Int("attempts", attempt).
		Msg("Renewed analytics credential")

	return cred.AccessToken, nil
}
