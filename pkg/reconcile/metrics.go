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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/energyradar/pkg/models"
)

const (
	meterName = "github.com/carverauto/energyradar/pkg/reconcile"

	metricPasses      = "reconcile_passes_total"
	metricPassLatency = "reconcile_pass_duration_seconds"
	metricDedupeHits  = "reconcile_dedupe_hits_total"
	metricDiagnostics = "reconcile_diagnostics_total"

	outcomeSuccess          = "success"
	outcomeAuthFailure      = "auth_failure"
	outcomeInventoryFailure = "inventory_failure"

	dedupeCompleted = "completed"
	dedupeInFlight  = "in_flight"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	passCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	passHistogram metric.Float64Histogram
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	dedupeCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	diagnosticCounter metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	var err error

	passCounter, err = meter.Int64Counter(
		metricPasses,
		metric.WithDescription("Reconciliation passes by outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}

	passHistogram, err = meter.Float64Histogram(
		metricPassLatency,
		metric.WithDescription("Duration of a reconciliation pass"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}

	dedupeCounter, err = meter.Int64Counter(
		metricDedupeHits,
		metric.WithDescription("Requests answered by an existing pass"),
	)
	if err != nil {
		otel.Handle(err)
	}

	diagnosticCounter, err = meter.Int64Counter(
		metricDiagnostics,
		metric.WithDescription("Diagnostics attached to completed passes by kind"),
	)
	if err != nil {
		otel.Handle(err)
	}
}

func recordPass(ctx context.Context, outcome string, d time.Duration) {
	meterOnce.Do(initMeter)

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))

	if passCounter != nil {
		passCounter.Add(ctx, 1, attrs)
	}

	if passHistogram != nil {
		passHistogram.Record(ctx, d.Seconds(), attrs)
	}
}

func recordDedupe(ctx context.Context, source string) {
	meterOnce.Do(initMeter)
	if dedupeCounter == nil {
		return
	}

	dedupeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func recordDiagnostics(ctx context.Context, diags []models.Diagnostic) {
	if len(diags) == 0 {
		return
	}

	meterOnce.Do(initMeter)
	if diagnosticCounter == nil {
		return
	}

	counts := make(map[models.DiagnosticKind]int64)
	for i := range diags {
		counts[diags[i].Kind]++
	}

	for kind, n := range counts {
		diagnosticCounter.Add(ctx, n, metric.WithAttributes(attribute.String("kind", string(kind))))
	}
}
