// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/telekom/canopy/internal/probe"
)

// Default bounds of a route discovery.
const (
	DefaultMaxHops            uint8 = 30
	DefaultMaxPivotCandidates       = 3
	DefaultMaxWorkers               = 16
)

// Status is the outcome of the route discovery of one subnet.
type Status int

const (
	// StatusResolved means a route was discovered and stored on the subnet.
	StatusResolved Status = iota
	// StatusSkipped means the subnet cannot be probed, e.g. it has no pivot.
	StatusSkipped
	// StatusUnresolvable means probing started but no route could be discovered.
	StatusUnresolvable
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusSkipped:
		return "skipped"
	case StatusUnresolvable:
		return "unresolvable"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options contains the configuration of the route discovery.
type Options struct {
	// Source is the local address the probes are sent from.
	Source netip.Addr `json:"source" yaml:"source"`
	// Probe configures the probers created for each task.
	Probe probe.Config `json:"probe" yaml:"probe"`
	// FixedFlow keeps the flow identifier of the probes constant.
	FixedFlow bool `json:"fixedFlow" yaml:"fixedFlow"`
	// DoubleProbe sends a second probe when the first one got no reply.
	DoubleProbe bool `json:"doubleProbe" yaml:"doubleProbe"`
	// MaxHops bounds the TTL of the walk.
	MaxHops uint8 `json:"maxHops" yaml:"maxHops"`
	// MaxPivotCandidates is the amount of pivots tried before giving up on a subnet.
	MaxPivotCandidates int `json:"maxPivotCandidates" yaml:"maxPivotCandidates"`
	// MaxWorkers bounds the amount of tasks or probe units running at the same time.
	MaxWorkers int `json:"maxWorkers" yaml:"maxWorkers"`
}

// Validate checks the options and the embedded probe config.
func (o *Options) Validate() error {
	var err error
	if !o.Source.IsValid() || !o.Source.Is4() {
		err = errors.Join(err, fmt.Errorf("source must be an IPv4 address, got %q", o.Source))
	}
	if o.MaxHops == 0 {
		err = errors.Join(err, errors.New("max hops must be at least 1"))
	}
	if o.MaxPivotCandidates < 1 {
		err = errors.Join(err, fmt.Errorf("max pivot candidates must be at least 1, got %d", o.MaxPivotCandidates))
	}
	if o.MaxWorkers < 1 {
		err = errors.Join(err, fmt.Errorf("max workers must be at least 1, got %d", o.MaxWorkers))
	}
	return errors.Join(err, o.Probe.Validate())
}

// Result is the outcome of the route discovery of one subnet.
type Result struct {
	// Prefix is the subnet the route leads to.
	Prefix netip.Prefix `json:"prefix" yaml:"prefix"`
	// Target is the pivot the route was discovered with.
	Target netip.Addr `json:"target" yaml:"target"`
	// Status tells whether the route was discovered.
	Status Status `json:"status" yaml:"status"`
	// Route holds one hop per TTL, missing hops being [probe.Unset].
	Route []netip.Addr `json:"route,omitempty" yaml:"route,omitempty"`
	// Probes is the amount of probes sent for the subnet.
	Probes int `json:"probes" yaml:"probes"`
	// Duration is the time the discovery took.
	Duration time.Duration `json:"-" yaml:"-"`
	// Reason explains why a route could not be discovered.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(&struct {
		Duration string `json:"duration"`
		alias
	}{
		Duration: r.Duration.String(),
		alias:    alias(r),
	})
}

// Results are the outcomes of a discovery run, in subnet order.
type Results []Result

// Count returns the amount of results with the given status.
func (r Results) Count(s Status) int {
	n := 0
	for _, res := range r {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Probes returns the amount of probes sent over all results.
func (r Results) Probes() int {
	n := 0
	for _, res := range r {
		n += res.Probes
	}
	return n
}
