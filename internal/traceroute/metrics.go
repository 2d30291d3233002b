// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/telekom/canopy/internal/probe"
)

// metrics defines the metric collectors of the route discovery
type metrics struct {
	routes       *prometheus.CounterVec
	probes       prometheus.Counter
	rtt          prometheus.Histogram
	duration     prometheus.Histogram
	verification *prometheus.CounterVec
}

// newMetrics initializes metric collectors of the route discovery
func newMetrics() metrics {
	return metrics{
		routes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_routes_total",
				Help: "Total number of subnets the route discovery finished for, by status.",
			},
			[]string{"status"},
		),
		probes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "canopy_probes_sent_total",
				Help: "Total number of probes sent during route discovery.",
			},
		),
		rtt: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "canopy_probe_rtt_seconds",
				Help:    "Round trip time of answered probes in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "canopy_route_discovery_duration_seconds",
				Help: "Time the route discovery of one subnet took in seconds.",
			},
		),
		verification: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canopy_member_verifications_total",
				Help: "Total number of subnet member verifications, by result.",
			},
			[]string{"result"},
		),
	}
}

// GetCollectors returns all metric collectors
func (m *metrics) GetCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.routes,
		m.probes,
		m.rtt,
		m.duration,
		m.verification,
	}
}

// observe records one probe
func (m *metrics) observe(rec probe.Record) {
	m.probes.Add(float64(rec.Cost))
	if rtt := rec.RTT(); rtt > 0 {
		m.rtt.Observe(rtt.Seconds())
	}
}

// finish records the outcome of one task
func (m *metrics) finish(res Result) {
	m.routes.WithLabelValues(res.Status.String()).Inc()
	m.duration.Observe(res.Duration.Seconds())
}
