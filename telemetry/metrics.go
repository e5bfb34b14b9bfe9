/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/cache"
	"dirpx.dev/dpx/proxy"
	"dirpx.dev/dpx/synth"
)

const meterName = "dirpx.dev/dpx"

var (
	metricsOnce        sync.Once
	metricsInitErr     error
	cacheHitCounter    metric.Int64Counter
	cacheMissCounter   metric.Int64Counter
	cacheEvictCounter  metric.Int64Counter
	synthFailCounter   metric.Int64Counter
	synthLatency       metric.Float64Histogram
	invocationCounter  metric.Int64Counter
	invocationFailures metric.Int64Counter
	invocationLatency  metric.Float64Histogram
)

// Recorder records cache and invocation metrics. The zero value is ready
// to use.
type Recorder struct{}

var (
	_ cache.Observer = Recorder{}
	_ proxy.Observer = Recorder{}
)

// CacheHit implements cache.Observer.
func (Recorder) CacheHit(string) {
	if ensureMetrics() != nil {
		return
	}
	cacheHitCounter.Add(context.Background(), 1)
}

// CacheMiss implements cache.Observer.
func (Recorder) CacheMiss(string) {
	if ensureMetrics() != nil {
		return
	}
	cacheMissCounter.Add(context.Background(), 1)
}

// CacheEvicted implements cache.Observer.
func (Recorder) CacheEvicted(string) {
	if ensureMetrics() != nil {
		return
	}
	cacheEvictCounter.Add(context.Background(), 1)
}

// CacheBuilt implements cache.Observer.
func (Recorder) CacheBuilt(_ string, took time.Duration, err error) {
	if ensureMetrics() != nil {
		return
	}
	ctx := context.Background()
	outcome := attribute.String("outcome", outcomeOf(err))
	synthLatency.Record(ctx, millis(took), metric.WithAttributes(outcome))
	if err != nil {
		synthFailCounter.Add(ctx, 1)
	}
}

// Invoked implements proxy.Observer.
func (Recorder) Invoked(ctx context.Context, t *synth.Type, member string, policy apis.Policy, took time.Duration, err error) {
	if ensureMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("proxy.kind", t.Kind().String()),
		attribute.String("proxy.target", t.Target().String()),
		attribute.String("member", member),
		attribute.String("policy", policy.String()),
		attribute.String("outcome", outcomeOf(err)),
	)
	invocationCounter.Add(ctx, 1, attrs)
	invocationLatency.Record(ctx, millis(took), attrs)
	if err != nil {
		invocationFailures.Add(ctx, 1, attrs)
	}
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(meterName)

		cacheHitCounter, metricsInitErr = meter.Int64Counter(
			"dpx.cache.hits_total",
			metric.WithDescription("Proxy type requests served from the type cache"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		cacheMissCounter, metricsInitErr = meter.Int64Counter(
			"dpx.cache.misses_total",
			metric.WithDescription("Proxy type requests that required synthesis"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		cacheEvictCounter, metricsInitErr = meter.Int64Counter(
			"dpx.cache.evictions_total",
			metric.WithDescription("Generated types removed by the retention policy"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		synthFailCounter, metricsInitErr = meter.Int64Counter(
			"dpx.synthesis.failures_total",
			metric.WithDescription("Type synthesis attempts that failed"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		synthLatency, metricsInitErr = meter.Float64Histogram(
			"dpx.synthesis.duration_ms",
			metric.WithDescription("Observed type synthesis latency"),
			metric.WithUnit("ms"),
		)
		if metricsInitErr != nil {
			return
		}

		invocationCounter, metricsInitErr = meter.Int64Counter(
			"dpx.invocations_total",
			metric.WithDescription("Proxy member calls partitioned by member and outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		invocationFailures, metricsInitErr = meter.Int64Counter(
			"dpx.invocation.failures_total",
			metric.WithDescription("Proxy member calls that returned an error"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		invocationLatency, metricsInitErr = meter.Float64Histogram(
			"dpx.invocation.duration_ms",
			metric.WithDescription("Observed proxy member call latency"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}
