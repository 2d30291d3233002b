// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/telekom/canopy/internal/probe"
	"github.com/telekom/canopy/pkg/api"
	"github.com/telekom/canopy/pkg/dataset"
	"github.com/telekom/canopy/pkg/hints"
	"github.com/telekom/canopy/pkg/metrics"
)

func validConfig() *Config {
	return &Config{
		Name: "canopy.example.com",
		Dataset: dataset.Config{
			Type: dataset.TypeFile,
			File: dataset.FileConfig{Path: "scan.yaml"},
		},
		Probing: ProbingConfig{
			Source: "192.0.2.10",
			Prober: probe.Config{
				Timeout:  time.Second,
				LowerID:  1,
				UpperID:  1000,
				LowerSeq: 1,
				UpperSeq: 1000,
			},
			MaxHops:            30,
			MaxPivotCandidates: 3,
			MaxWorkers:         16,
		},
		Hints: hints.Config{
			Enabled: true,
			Arity:   hints.DefaultArity,
			Workers: 8,
		},
		Api: api.Config{Enabled: true, ListeningAddress: ":8080"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
	}{
		{name: "valid", modify: func(*Config) {}},
		{
			name:    "invalid name",
			modify:  func(c *Config) { c.Name = "Not a DNS name" },
			wantErr: ErrInvalidName,
		},
		{
			name:    "invalid dataset",
			modify:  func(c *Config) { c.Dataset.Type = "ftp" },
			wantErr: dataset.ErrInvalidLoaderType,
		},
		{
			name:    "missing source",
			modify:  func(c *Config) { c.Probing.Source = "" },
			wantErr: ErrInvalidSource,
		},
		{
			name:    "ipv6 source",
			modify:  func(c *Config) { c.Probing.Source = "2001:db8::1" },
			wantErr: ErrInvalidProbing,
		},
		{
			name:    "no workers",
			modify:  func(c *Config) { c.Probing.MaxWorkers = 0 },
			wantErr: ErrInvalidProbing,
		},
		{
			name:    "hint arity too small",
			modify:  func(c *Config) { c.Hints.Arity = 1 },
			wantErr: ErrInvalidHints,
		},
		{
			name:   "disabled hints are not validated",
			modify: func(c *Config) { c.Hints = hints.Config{Arity: 1} },
		},
		{
			name: "telemetry without url",
			modify: func(c *Config) {
				c.Telemetry = metrics.Config{Enabled: true, Exporter: metrics.GRPC}
			},
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(c)
			err := c.Validate(t.Context())
			switch tt.wantErr {
			case nil:
				assert.NoError(t, err)
			case assert.AnError:
				assert.Error(t, err)
			default:
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestProbingConfig_Options(t *testing.T) {
	c := validConfig()
	c.Probing.FixedFlow = true

	opts, err := c.Probing.Options()
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.0.2.10"), opts.Source)
	assert.Equal(t, time.Second, opts.Probe.Timeout)
	assert.True(t, opts.FixedFlow)
	assert.False(t, opts.DoubleProbe)
	assert.Equal(t, uint8(30), opts.MaxHops)
	assert.Equal(t, 16, opts.MaxWorkers)
}

func TestConfig_UnmarshalYAML(t *testing.T) {
	raw := `
name: canopy.example.com
dataset:
  type: file
  file:
    path: scan.yaml
probing:
  source: 192.0.2.10
  timeout: 2s
  lowerID: 100
  upperID: 200
  fixedFlow: true
  maxHops: 20
verifyMembers: true
output:
  json: report.json
`
	var c Config
	require.NoError(t, yaml.Unmarshal([]byte(raw), &c))

	assert.Equal(t, "scan.yaml", c.Dataset.File.Path)
	assert.Equal(t, 2*time.Second, c.Probing.Prober.Timeout)
	assert.Equal(t, uint16(100), c.Probing.Prober.LowerID)
	assert.Equal(t, uint16(200), c.Probing.Prober.UpperID)
	assert.True(t, c.Probing.FixedFlow)
	assert.Equal(t, uint8(20), c.Probing.MaxHops)
	assert.True(t, c.VerifyMembers)
	assert.Equal(t, "report.json", c.Output.JSON)
}

func TestIsDNSName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "fqdn", in: "canopy.example.com", want: true},
		{name: "hyphen", in: "canopy-1.example.com", want: true},
		{name: "no tld", in: "canopy", want: false},
		{name: "upper case", in: "Canopy.example.com", want: false},
		{name: "empty", in: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDNSName(tt.in))
		})
	}
}
