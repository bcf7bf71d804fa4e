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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/carverauto/energyradar/pkg/integrations/analytics"

	metricTokenRenewals = "analytics_token_renewals_total"
	metricTotalsFetch   = "analytics_totals_fetch_seconds"
	metricBreakerState  = "analytics_breaker_transitions_total"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeRetry   = "retry"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	renewalCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	totalsHistogram metric.Float64Histogram
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	breakerCounter metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	counter, err := meter.Int64Counter(
		metricTokenRenewals,
		metric.WithDescription("Analytics credential renewal attempts by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}
	renewalCounter = counter

	hist, err := meter.Float64Histogram(
		metricTotalsFetch,
		metric.WithDescription("Latency of a full paged totals fetch"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	totalsHistogram = hist

	transitions, err := meter.Int64Counter(
		metricBreakerState,
		metric.WithDescription("Circuit breaker state changes by target state"),
	)
	if err != nil {
		otel.Handle(err)
	}
	breakerCounter = transitions
}

func recordTokenRenewal(ctx context.Context, outcome string) {
	meterOnce.Do(initMeter)
	if renewalCounter == nil {
		return
	}

	renewalCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func recordTotalsFetch(ctx context.Context, outcome string, d time.Duration) {
	meterOnce.Do(initMeter)
	if totalsHistogram == nil {
		return
	}

	totalsHistogram.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func recordBreakerTransition(ctx context.Context, name, state string) {
	meterOnce.Do(initMeter)
	if breakerCounter == nil {
		return
	}

	breakerCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("state", state),
	))
}
