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
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/cache"
	"dirpx.dev/dpx/composer"
	"dirpx.dev/dpx/request"
)

func setupReader(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
		ResetMetricsForTest()
	})
	ResetMetricsForTest()
	return reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sum(t *testing.T, metrics map[string]metricdata.Metrics, name string) int64 {
	t.Helper()
	m, ok := metrics[name]
	require.True(t, ok, "missing %s", name)
	data, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "unexpected data type for %s", name)
	var total int64
	for _, dp := range data.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecorder_CacheMetrics(t *testing.T) {
	reader := setupReader(t)
	ctx := context.Background()

	comp := composer.New()
	c, err := cache.New(comp.Compose, cache.WithObserver(Recorder{}), cache.WithRetention(apis.LRU), cache.WithCapacity(1))
	require.NoError(t, err)

	reqA := request.MustNew(apis.InterfaceWithoutTarget, reflect.TypeFor[io.Reader]())
	reqB := request.MustNew(apis.InterfaceWithoutTarget, reflect.TypeFor[io.Writer]())
	_, err = c.GetOrCreate(ctx, reqA)
	require.NoError(t, err)
	_, err = c.GetOrCreate(ctx, reqA)
	require.NoError(t, err)
	_, err = c.GetOrCreate(ctx, reqB) // evicts reqA
	require.NoError(t, err)

	metrics := collect(t, reader)
	assert.EqualValues(t, 1, sum(t, metrics, "dpx.cache.hits_total"))
	assert.EqualValues(t, 2, sum(t, metrics, "dpx.cache.misses_total"))
	assert.EqualValues(t, 1, sum(t, metrics, "dpx.cache.evictions_total"))

	hist, ok := metrics["dpx.synthesis.duration_ms"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.EqualValues(t, 2, hist.DataPoints[0].Count)
}

func TestRecorder_Invoked(t *testing.T) {
	reader := setupReader(t)
	ctx := context.Background()

	typ, err := composer.New().Compose(ctx, request.MustNew(apis.InterfaceWithoutTarget, reflect.TypeFor[io.Reader]()))
	require.NoError(t, err)

	var r Recorder
	r.Invoked(ctx, typ, "Read", apis.Intercept, 3*time.Millisecond, nil)
	r.Invoked(ctx, typ, "Read", apis.Intercept, time.Millisecond, errors.New("boom"))

	metrics := collect(t, reader)
	assert.EqualValues(t, 2, sum(t, metrics, "dpx.invocations_total"))
	assert.EqualValues(t, 1, sum(t, metrics, "dpx.invocation.failures_total"))

	data := metrics["dpx.invocation.failures_total"].Data.(metricdata.Sum[int64])
	require.Len(t, data.DataPoints, 1)
	member, ok := data.DataPoints[0].Attributes.Value(attribute.Key("member"))
	require.True(t, ok)
	assert.Equal(t, "Read", member.AsString())
	outcome, _ := data.DataPoints[0].Attributes.Value(attribute.Key("outcome"))
	assert.Equal(t, "error", outcome.AsString())
}

type fixedStats cache.Stats

func (s fixedStats) Stats() cache.Stats { return cache.Stats(s) }

func TestCacheCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	col := NewCacheCollector(fixedStats{Hits: 7, Misses: 3, Builds: 3, Failures: 1, Evictions: 2, Size: 4}, prometheus.Labels{"generator": "default"})
	require.NoError(t, reg.Register(col))

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		require.Len(t, m.GetLabel(), 1)
		assert.Equal(t, "default", m.GetLabel()[0].GetValue())
		if m.GetCounter() != nil {
			got[mf.GetName()] = m.GetCounter().GetValue()
		} else {
			got[mf.GetName()] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"dpx_type_cache_hits_total":      7,
		"dpx_type_cache_misses_total":    3,
		"dpx_type_cache_builds_total":    3,
		"dpx_type_cache_failures_total":  1,
		"dpx_type_cache_evictions_total": 2,
		"dpx_type_cache_entries":         4,
	}, got)
}
