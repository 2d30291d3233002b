// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"errors"
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/telekom/canopy/internal/logger"
)

var ErrInvalidSampleRatio = errors.New("sample ratio must be between 0 and 1")

// Config configures the export of discovery traces.
type Config struct {
	Enabled  bool     `yaml:"enabled" mapstructure:"enabled"`
	Exporter Exporter `yaml:"exporter" mapstructure:"exporter"`
	// Url of the otlp collector, required by the grpc and http exporters
	Url   string `yaml:"url" mapstructure:"url"`
	Token string `yaml:"token" mapstructure:"token"`
	// SampleRatio is the share of discoveries traced. Zero traces every discovery.
	SampleRatio float64   `yaml:"sampleRatio" mapstructure:"sampleRatio"`
	TLS         TLSConfig `yaml:"tls" mapstructure:"tls"`
}

type TLSConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// CertPath is the path to the CA certificate of the collector.
	// Leave empty to use the system pool.
	CertPath string `yaml:"certPath" mapstructure:"certPath"`
}

func (c *Config) Validate(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if err := c.Exporter.Validate(); err != nil {
		log.ErrorContext(ctx, "Invalid exporter", "error", err)
		return err
	}

	if c.Exporter.IsExporting() && c.Url == "" {
		log.ErrorContext(ctx, "Url is required for otlp exporter", "exporter", c.Exporter)
		return fmt.Errorf("url is required for otlp exporter %q", c.Exporter)
	}

	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		log.ErrorContext(ctx, "Invalid sample ratio", "sampleRatio", c.SampleRatio)
		return fmt.Errorf("%w, got %v", ErrInvalidSampleRatio, c.SampleRatio)
	}
	return nil
}

// sampler keeps the decision of the parent span so a discovery is traced as a whole.
func (c *Config) sampler() sdktrace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}
