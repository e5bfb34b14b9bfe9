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
	"github.com/prometheus/client_golang/prometheus"

	"dirpx.dev/dpx/cache"
)

// StatsSource is implemented by *cache.Cache.
type StatsSource interface {
	Stats() cache.Stats
}

// CacheCollector exposes type cache counters as Prometheus metrics.
type CacheCollector struct {
	src StatsSource

	hits      *prometheus.Desc
	misses    *prometheus.Desc
	builds    *prometheus.Desc
	failures  *prometheus.Desc
	evictions *prometheus.Desc
	size      *prometheus.Desc
}

var _ prometheus.Collector = (*CacheCollector)(nil)

// NewCacheCollector returns a collector over src. Labels are attached to
// every metric.
func NewCacheCollector(src StatsSource, labels prometheus.Labels) *CacheCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("dpx", "type_cache", name), help, nil, labels)
	}
	return &CacheCollector{
		src:       src,
		hits:      desc("hits_total", "Proxy type requests served from the cache"),
		misses:    desc("misses_total", "Proxy type requests that required synthesis"),
		builds:    desc("builds_total", "Type synthesis attempts"),
		failures:  desc("failures_total", "Type synthesis attempts that failed"),
		evictions: desc("evictions_total", "Generated types removed by the retention policy"),
		size:      desc("entries", "Generated types currently published"),
	}
}

// Describe implements prometheus.Collector.
func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.builds
	ch <- c.failures
	ch <- c.evictions
	ch <- c.size
}

// Collect implements prometheus.Collector.
func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses))
	ch <- prometheus.MustNewConstMetric(c.builds, prometheus.CounterValue, float64(st.Builds))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(st.Failures))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(st.Evictions))
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(st.Size))
}
