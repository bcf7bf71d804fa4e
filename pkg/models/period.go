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

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RealtimePeriodKey marks the rolling "now" window.
const RealtimePeriodKey = "realtime"

var (
	ErrInvalidPeriod = errors.New("period end must be after start")
	ErrInvalidScope  = errors.New("scope requires a customer id")
)

// Period is the time range a reconciliation pass covers.
type Period struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Realtime bool      `json:"realtime,omitempty"`
}

// Key is the opaque dedupe token for the period.
func (p Period) Key() string {
	if p.Realtime {
		return RealtimePeriodKey
	}

	return fmt.Sprintf("%d_%d", p.Start.UnixMilli(), p.End.UnixMilli())
}

func (p Period) Validate() error {
	if p.Realtime {
		return nil
	}

	if !p.End.After(p.Start) {
		return ErrInvalidPeriod
	}

	return nil
}

// Bounds returns the concrete range to query; realtime periods cover the day so far.
func (p Period) Bounds(now time.Time) (time.Time, time.Time) {
	if !p.Realtime {
		return p.Start, p.End
	}

	y, m, d := now.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), now
}

// CurrentMonth is the calendar month containing now, in loc.
func CurrentMonth(now time.Time, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}

	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)

	return Period{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Millisecond)}
}

// Realtime returns the rolling realtime period.
func Realtime() Period {
	return Period{Realtime: true}
}

// Scope is the logical slice of the dashboard a pass serves.
type Scope struct {
	CustomerID string `json:"customer_id" yaml:"customer_id" validate:"required"`
	Domain     string `json:"domain" yaml:"domain"`
}

// DefaultDomain is the analytics domain used when a scope does not name one.
const DefaultDomain = "energy"

func (s Scope) Key() string {
	domain := s.Domain
	if domain == "" {
		domain = DefaultDomain
	}

	return strings.TrimSpace(s.CustomerID) + ":" + domain
}

func (s Scope) DomainOrDefault() string {
	if s.Domain == "" {
		return DefaultDomain
	}

	return s.Domain
}

func (s Scope) Validate() error {
	if strings.TrimSpace(s.CustomerID) == "" {
		return ErrInvalidScope
	}

	return nil
}
