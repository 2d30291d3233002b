// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/netip"

	"github.com/telekom/canopy/internal/probe"
	"github.com/telekom/canopy/internal/traceroute"
	"github.com/telekom/canopy/pkg/api"
	"github.com/telekom/canopy/pkg/dataset"
	"github.com/telekom/canopy/pkg/hints"
	"github.com/telekom/canopy/pkg/metrics"
)

type Config struct {
	// Name is the DNS name of the canopy instance
	Name string `yaml:"name" mapstructure:"name"`
	// Dataset is the configuration for the dataset loader
	Dataset dataset.Config `yaml:"dataset" mapstructure:"dataset"`
	// Probing is the configuration for the route discovery
	Probing ProbingConfig `yaml:"probing" mapstructure:"probing"`
	// Hints is the configuration for the alias hint collection
	Hints hints.Config `yaml:"hints" mapstructure:"hints"`
	// VerifyMembers re-probes the members of subnets with a contra-pivot after route discovery
	VerifyMembers bool `yaml:"verifyMembers" mapstructure:"verifyMembers"`
	// Output is the configuration for the report output
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	// Api is the configuration for the api server
	Api api.Config `yaml:"api" mapstructure:"api"`
	// Telemetry is the configuration for the telemetry
	Telemetry metrics.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ProbingConfig is the configuration for the route discovery
type ProbingConfig struct {
	// Source is the IPv4 address probes are sent from
	Source string `yaml:"source" mapstructure:"source"`
	// Prober holds timeouts and identifier ranges of the probes
	Prober probe.Config `yaml:",inline" mapstructure:",squash"`
	// FixedFlow keeps the ICMP checksum constant so that load balancers keep the flow on one path
	FixedFlow bool `yaml:"fixedFlow" mapstructure:"fixedFlow"`
	// DoubleProbe sends a second probe when the first one gets no reply
	DoubleProbe bool `yaml:"doubleProbe" mapstructure:"doubleProbe"`
	// MaxHops is the largest TTL used
	MaxHops uint8 `yaml:"maxHops" mapstructure:"maxHops"`
	// MaxPivotCandidates is the amount of pivots tried before a subnet is unresolvable
	MaxPivotCandidates int `yaml:"maxPivotCandidates" mapstructure:"maxPivotCandidates"`
	// MaxWorkers is the amount of subnets probed in parallel
	MaxWorkers int `yaml:"maxWorkers" mapstructure:"maxWorkers"`
}

// OutputConfig is the configuration for the report output
type OutputConfig struct {
	// Text is the path of the text report. Empty writes to stdout.
	Text string `yaml:"text" mapstructure:"text"`
	// JSON is the path of the json report. Empty disables it.
	JSON string `yaml:"json" mapstructure:"json"`
	// Quiet disables printing routes while they are discovered
	Quiet bool `yaml:"quiet" mapstructure:"quiet"`
}

// Options returns the route discovery options described by the config.
func (c *ProbingConfig) Options() (*traceroute.Options, error) {
	src, err := netip.ParseAddr(c.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	return &traceroute.Options{
		Source:             src,
		Probe:              c.Prober,
		FixedFlow:          c.FixedFlow,
		DoubleProbe:        c.DoubleProbe,
		MaxHops:            c.MaxHops,
		MaxPivotCandidates: c.MaxPivotCandidates,
		MaxWorkers:         c.MaxWorkers,
	}, nil
}

// HasAPI returns true if the config has the api server enabled
func (c *Config) HasAPI() bool {
	return c.Api.Enabled
}

// HasTelemetry returns true if the config has telemetry enabled
func (c *Config) HasTelemetry() bool {
	return c.Telemetry.Enabled
}
