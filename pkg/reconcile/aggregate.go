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
	"sort"
	"strings"

	"github.com/carverauto/energyradar/pkg/models"
)

func dedupeKey(scope models.Scope, period models.Period) string {
	return scope.Key() + "|" + period.Key()
}

// merge sets each item's value. Local telemetry types keep their inventory reading; every
// other item takes the analytics total for its ingestion id, or zero when none was returned.
func (e *Engine) merge(items []*models.CanonicalItem, totals []models.DeviceTotal) {
	byExternal := make(map[string]float64, len(totals))
	for _, t := range totals {
		if t.ExternalID == "" {
			continue
		}

		byExternal[t.ExternalID] += t.TotalValue
	}

	for _, item := range items {
		if e.isLocal(item.DeviceType) {
			item.Value = 0
			if item.LocalValue != nil {
				item.Value = *item.LocalValue
			}

			continue
		}

		item.Value = byExternal[item.ExternalIngestionID]
	}
}

// aggregate sums values per category and sets each item's share of its category.
// Only categories with at least one item appear in the totals.
func aggregate(items []*models.CanonicalItem) map[string]float64 {
	totals := make(map[string]float64)

	for _, item := range items {
		totals[item.Category] += item.Value
	}

	for _, item := range items {
		item.Percentage = 0

		if total := totals[item.Category]; total != 0 {
			item.Percentage = item.Value / total * 100
		}
	}

	return totals
}

func sortItems(items []*models.CanonicalItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]

		if a.Value != b.Value {
			return a.Value > b.Value
		}

		if a.Label != b.Label {
			return a.Label < b.Label
		}

		return a.NativeID < b.NativeID
	})
}

func (e *Engine) memoized(key string) (*models.ReconcileResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.memo[key]
	if !ok {
		return nil, false
	}

	if e.window > 0 && e.now().Sub(entry.storedAt) >= e.window {
		delete(e.memo, key)

		return nil, false
	}

	return entry.result, true
}

func (e *Engine) remember(key string, result *models.ReconcileResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.memo[key] = memoEntry{result: result, storedAt: e.now()}
	e.evictExpired()
}

// evictExpired drops stale entries; callers hold e.mu.
func (e *Engine) evictExpired() {
	if e.window <= 0 {
		return
	}

	cutoff := e.now().Add(-e.window)

	for key, entry := range e.memo {
		if entry.storedAt.Before(cutoff) {
			delete(e.memo, key)
		}
	}
}

// Forget drops completed passes for scope so the next request runs a fresh pass.
func (e *Engine) Forget(scope models.Scope) {
	prefix := scope.Key() + "|"

	e.mu.Lock()
	defer e.mu.Unlock()

	for key := range e.memo {
		if strings.HasPrefix(key, prefix) {
			delete(e.memo, key)
		}
	}
}

