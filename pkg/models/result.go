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

package models

import "time"

// ReconcileResult is the finished output of one reconciliation pass. Items are sorted by
// value descending, then label, then native id. Results may be shared between callers and
// must be treated as read-only.
type ReconcileResult struct {
	Scope       Scope              `json:"scope"`
	Period      Period             `json:"period"`
	PeriodKey   string             `json:"period_key"`
	Items       []*CanonicalItem   `json:"items"`
	GroupTotals map[string]float64 `json:"group_totals"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`
	CompletedAt time.Time          `json:"completed_at"`
}
