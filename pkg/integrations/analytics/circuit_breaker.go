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

	"github.com/carverauto/energyradar/pkg/logger"
)

// CircuitBreakerState is the position of a breaker.
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes when a breaker trips and how it recovers.
type CircuitBreakerConfig struct {
	// FailureThreshold consecutive failures open a closed breaker.
	FailureThreshold int
	// SuccessThreshold consecutive probes must succeed before a half-open breaker closes.
	SuccessThreshold int
	// Timeout is the cool-down an open breaker waits before letting a trial request through.
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig returns the configuration used for the totals endpoint.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// CircuitBreaker stops hammering the analytics service while it is failing. Callers see
// ErrCircuitOpen and fall back to zero-filled totals until the cool-down elapses.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	logger logger.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    CircuitBreakerState
	streak   int // consecutive failures while closed, consecutive successes while half-open
	openedAt time.Time
}

func NewCircuitBreaker(name string, config CircuitBreakerConfig, log logger.Logger) *CircuitBreaker {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		logger: log,
		now:    time.Now,
	}
}

// Execute runs fn unless the breaker is open. fn's error decides the next state.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !cb.admit(ctx) {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, cb.name)
	}

	err := fn()

	cb.settle(ctx, err == nil)

	return err
}

// State reports the breaker position.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

func (cb *CircuitBreaker) admit(ctx context.Context) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return true
	}

	if cb.now().Sub(cb.openedAt) < cb.config.Timeout {
		return false
	}

	cb.moveTo(ctx, StateHalfOpen)

	return true
}

func (cb *CircuitBreaker) settle(ctx context.Context, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case cb.state == StateClosed && ok:
		cb.streak = 0
	case cb.state == StateClosed:
		cb.streak++
		if cb.streak >= cb.config.FailureThreshold {
			cb.moveTo(ctx, StateOpen)
		}
	case cb.state == StateHalfOpen && ok:
		cb.streak++
		if cb.streak >= cb.config.SuccessThreshold {
			cb.moveTo(ctx, StateClosed)
		}
	case cb.state == StateHalfOpen:
		cb.moveTo(ctx, StateOpen)
	}
}

// moveTo must be called with mu held.
func (cb *CircuitBreaker) moveTo(ctx context.Context, next CircuitBreakerState) {
	prev := cb.state
	cb.state = next
	cb.streak = 0

	if next == StateOpen {
		cb.openedAt = cb.now()
	}

	event := cb.logger.Info()
	if next == StateOpen {
		event = cb.logger.Warn()
	}

	event.
		Str("circuit_breaker", cb.name).
		Str("from", prev.String()).
		Str("to", next.String()).
		Msg("Circuit breaker changed state")

	recordBreakerTransition(ctx, cb.name, next.String())
}
