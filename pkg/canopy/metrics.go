// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package canopy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/telekom/canopy/pkg/subnet"
	"github.com/telekom/canopy/pkg/tree"
)

// stats describes the outcome of the last discovery run
type stats struct {
	subnets   *prometheus.GaugeVec
	nodes     *prometheus.GaugeVec
	routers   prometheus.Gauge
	hints     prometheus.Gauge
	timestamp prometheus.Gauge
}

func newStats() stats {
	return stats{
		subnets: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "canopy_subnets",
				Help: "Number of subnets of the dataset, by status.",
			},
			[]string{"status"},
		),
		nodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "canopy_tree_nodes",
				Help: "Number of internal nodes of the network tree, by kind.",
			},
			[]string{"kind"},
		),
		routers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "canopy_routers_inferred",
				Help: "Number of routers inferred on the nodes of the network tree.",
			},
		),
		hints: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "canopy_hint_entries",
				Help: "Number of interfaces in the IP dictionary.",
			},
		),
		timestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "canopy_discovery_timestamp_seconds",
				Help: "Unix time the last discovery finished at.",
			},
		),
	}
}

// GetCollectors returns all metric collectors
func (m *stats) GetCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.subnets,
		m.nodes,
		m.routers,
		m.hints,
		m.timestamp,
	}
}

// update sets the gauges from a finished discovery
func (m *stats) update(r *Report, sites []*subnet.Site, hints int) {
	m.subnets.Reset()
	for _, s := range sites {
		m.subnets.WithLabelValues(s.Status().String()).Inc()
	}

	m.nodes.Reset()
	r.tree.Walk(func(id tree.NodeID, _ int) {
		m.nodes.WithLabelValues(r.tree.Node(id).Kind().String()).Inc()
	})

	m.routers.Set(float64(r.Summary.Routers))
	m.hints.Set(float64(hints))
	m.timestamp.Set(float64(r.Timestamp.Unix()))
}
