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

// Package snapshot keeps the last successful reconciliation result per scope so consumers
// can keep serving data while the upstream services are unavailable.
package snapshot

import (
	"context"
	"errors"
	"sync"

	"github.com/carverauto/energyradar/pkg/models"
)

var (
	// ErrNotFound is returned when no snapshot exists for a scope.
	ErrNotFound = errors.New("snapshot: not found")

	errNilResult = errors.New("snapshot: nil result")
)

// MemoryStore is a process-local store.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]*models.ReconcileResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]*models.ReconcileResult)}
}

// Save replaces the scope's snapshot unless a newer one is already stored.
func (s *MemoryStore) Save(_ context.Context, result *models.ReconcileResult) error {
	if result == nil {
		return errNilResult
	}

	key := result.Scope.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.results[key]; ok && current.CompletedAt.After(result.CompletedAt) {
		return nil
	}

	s.results[key] = result

	return nil
}

func (s *MemoryStore) Load(_ context.Context, scope models.Scope) (*models.ReconcileResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[scope.Key()]
	if !ok {
		return nil, ErrNotFound
	}

	return result, nil
}
