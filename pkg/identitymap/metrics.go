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

package identitymap

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/carverauto/energyradar/pkg/identitymap"

	metricResolutions    = "identity_resolutions_total"
	metricAmbiguities    = "identity_ambiguities_total"
	metricResolveLatency = "identity_resolve_latency_seconds"
)

var (
	// instrumentation handles are cached globally to avoid re-registering OTEL instruments on every call.
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	resolutionCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	ambiguityCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	latencyHistogram metric.Float64Histogram
)

func initMeter() {
	meter := otel.Meter(meterName)

	counter, err := meter.Int64Counter(
		metricResolutions,
		metric.WithDescription("Identity resolutions by the key space that matched"),
	)
	if err != nil {
		otel.Handle(err)
	}
	resolutionCounter = counter

	ambiguity, err := meter.Int64Counter(
		metricAmbiguities,
		metric.WithDescription("Items whose ingestion id and identifier point at different devices"),
	)
	if err != nil {
		otel.Handle(err)
	}
	ambiguityCounter = ambiguity

	hist, err := meter.Float64Histogram(
		metricResolveLatency,
		metric.WithDescription("Latency of resolving one device listing"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}
	latencyHistogram = hist
}

// RecordResolutions adds count resolutions through the given key space.
func RecordResolutions(ctx context.Context, count int, via Kind) {
	if count == 0 {
		return
	}

	meterOnce.Do(initMeter)
	if resolutionCounter == nil {
		return
	}

	resolutionCounter.Add(ctx, int64(count), metric.WithAttributes(attribute.String("resolved_via", via.String())))
}

// RecordAmbiguities increments the ambiguity counter.
func RecordAmbiguities(ctx context.Context, count int) {
	if count == 0 {
		return
	}

	meterOnce.Do(initMeter)
	if ambiguityCounter == nil {
		return
	}

	ambiguityCounter.Add(ctx, int64(count))
}

// RecordResolveLatency captures the duration of one resolution pass.
func RecordResolveLatency(ctx context.Context, duration time.Duration, items int) {
	meterOnce.Do(initMeter)
	if latencyHistogram == nil {
		return
	}

	latencyHistogram.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.Int("items", items)))
}
