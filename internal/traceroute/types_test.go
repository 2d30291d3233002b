// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"encoding/json"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Options) {}},
		{name: "missing source", mutate: func(o *Options) { o.Source = netip.Addr{} }, wantErr: true},
		{name: "ipv6 source", mutate: func(o *Options) { o.Source = addr("2001:db8::1") }, wantErr: true},
		{name: "zero max hops", mutate: func(o *Options) { o.MaxHops = 0 }, wantErr: true},
		{name: "no pivot candidates", mutate: func(o *Options) { o.MaxPivotCandidates = 0 }, wantErr: true},
		{name: "no workers", mutate: func(o *Options) { o.MaxWorkers = 0 }, wantErr: true},
		{name: "invalid probe config", mutate: func(o *Options) { o.Probe.Timeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOptions()
			tt.mutate(o)
			if err := o.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	res := Result{
		Prefix:   prefix("10.1.0.0/29"),
		Target:   addr("10.1.0.2"),
		Status:   StatusResolved,
		Route:    []netip.Addr{addr("10.9.0.1"), unset},
		Probes:   6,
		Duration: 1500 * time.Millisecond,
	}

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"prefix": "10.1.0.0/29",
		"target": "10.1.0.2",
		"status": "resolved",
		"route": ["10.9.0.1", "0.0.0.0"],
		"probes": 6,
		"duration": "1.5s"
	}`, string(b))
}

func TestResults_Count(t *testing.T) {
	results := Results{
		{Status: StatusResolved, Probes: 4},
		{Status: StatusSkipped},
		{Status: StatusUnresolvable, Probes: 2},
		{Status: StatusResolved, Probes: 5},
	}

	assert.Equal(t, 2, results.Count(StatusResolved))
	assert.Equal(t, 1, results.Count(StatusSkipped))
	assert.Equal(t, 1, results.Count(StatusUnresolvable))
	assert.Equal(t, 11, results.Probes())
	assert.Equal(t, "unknown", Status(42).String())
}
