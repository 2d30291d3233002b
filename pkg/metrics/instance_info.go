// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	instanceInfoMetricName = "canopy_instance_info"
	instanceInfoHelp       = "Identity of the canopy instance running the discovery. Emitted once per instance."
)

// RegisterInstanceInfo registers the canopy_instance_info info-style metric on the given registry.
// The gauge is set to 1 and labeled with the instance name, the build version and the
// vantage point the probes are sent from.
func RegisterInstanceInfo(registry *prometheus.Registry, instanceName, version, vantagePoint string) error {
	info := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: instanceInfoMetricName,
			Help: instanceInfoHelp,
		},
		[]string{"instance_name", "version", "vantage_point"},
	)
	info.WithLabelValues(instanceName, version, vantagePoint).Set(1)
	return registry.Register(info)
}
