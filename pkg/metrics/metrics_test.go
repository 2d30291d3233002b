// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestManager_Register(t *testing.T) {
	m := New(Config{})
	require.NotNil(t, m.GetRegistry())

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "canopy_test_gauge"})
	gauge.Set(3)
	m.Register(t.Context(), gauge, gauge)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "canopy_test_gauge 3")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestConfig_sampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 0, want: "AlwaysOnSampler"},
		{ratio: 1, want: "AlwaysOnSampler"},
		{ratio: 0.25, want: "ParentBased{root:TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		c := Config{SampleRatio: tt.ratio}
		assert.Contains(t, c.sampler().Description(), tt.want)
	}
}

func TestMetrics_InitTracing(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "stdout exporter",
			config: Config{Exporter: STDOUT},
		},
		{
			name:   "http exporter",
			config: Config{Exporter: HTTP, Url: "http://localhost:4318"},
		},
		{
			name:   "grpc exporter with token",
			config: Config{Exporter: GRPC, Url: "http://localhost:4317", Token: "my-super-secret-token"},
		},
		{
			name:   "grpc exporter with system tls",
			config: Config{Exporter: GRPC, Url: "https://localhost:4317", TLS: TLSConfig{Enabled: true}},
		},
		{
			name:   "http exporter sampling",
			config: Config{Exporter: HTTP, Url: "http://localhost:4318", SampleRatio: 0.5},
		},
		{
			name:   "no exporter",
			config: Config{Exporter: NOOP},
		},
		{
			name:    "unsupported exporter",
			config:  Config{Exporter: "unsupported"},
			wantErr: true,
		},
		{
			name:    "missing certificate",
			config:  Config{Exporter: HTTP, Url: "https://localhost:4318", TLS: TLSConfig{Enabled: true, CertPath: "testdata/missing.pem"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.config)
			err := m.InitTracing(t.Context())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
				assert.True(t, ok, "tracer provider type = %T", otel.GetTracerProvider())
			}

			assert.NoError(t, m.Shutdown(t.Context()))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "default", config: Config{}},
		{name: "stdout", config: Config{Enabled: true, Exporter: STDOUT}},
		{name: "grpc", config: Config{Enabled: true, Exporter: GRPC, Url: "collector:4317"}},
		{name: "grpc without url", config: Config{Enabled: true, Exporter: GRPC}, wantErr: true},
		{name: "unknown exporter", config: Config{Enabled: true, Exporter: "kafka"}, wantErr: true},
		{name: "sample ratio", config: Config{Enabled: true, Exporter: STDOUT, SampleRatio: 0.1}},
		{name: "sample ratio above one", config: Config{Enabled: true, Exporter: STDOUT, SampleRatio: 1.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate(t.Context())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestExporter_IsExporting(t *testing.T) {
	assert.True(t, HTTP.IsExporting())
	assert.True(t, GRPC.IsExporting())
	assert.False(t, STDOUT.IsExporting())
	assert.False(t, NOOP.IsExporting())
}
