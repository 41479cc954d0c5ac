// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry   *prometheus.Registry
	localize   *prometheus.CounterVec
	duration   prometheus.Histogram
	runsCached prometheus.Gauge
	srclists   prometheus.Counter
}

func newMetrics() *metrics {
	m:=&metrics{
		registry: prometheus.NewRegistry(),
		localize: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "burstlight_localize_requests_total",
			Help: "Localization requests by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "burstlight_localize_duration_seconds",
			Help:    "Time to load and localize a cube.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		runsCached: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "burstlight_runs_cached",
			Help: "Localization runs held in memory.",
		}),
		srclists: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "burstlight_srclists_total",
			Help: "Sky models emitted.",
		}),
	}
	m.registry.MustRegister(m.localize, m.duration, m.runsCached, m.srclists,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *metrics) observeLocalize(d time.Duration, err error) {
	result:="ok"
	if err!=nil { result="error" }
	m.localize.WithLabelValues(result).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
