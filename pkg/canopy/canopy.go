// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package canopy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/internal/probe"
	"github.com/telekom/canopy/pkg"
	"github.com/telekom/canopy/pkg/api"
	"github.com/telekom/canopy/pkg/config"
	"github.com/telekom/canopy/pkg/dataset"
	"github.com/telekom/canopy/pkg/metrics"
)

const shutdownTimeout = time.Second * 30

// Canopy runs a discovery and publishes its report
type Canopy struct {
	// config is the startup configuration
	config *config.Config
	// loader provides the subnets and the IP dictionary
	loader dataset.Loader
	// newProber creates the probers used for route discovery and hint collection
	newProber probe.Factory
	// api serves the report
	api api.API
	// metrics is used to collect metrics
	metrics metrics.Provider
	// stats describes the last discovery
	stats stats
	// out receives the discovered routes and the text report
	out io.Writer

	mu     sync.RWMutex
	report *Report
}

// New creates canopy from a given config
func New(cfg *config.Config) *Canopy {
	return &Canopy{
		config:    cfg,
		loader:    dataset.NewLoader(&cfg.Dataset),
		newProber: probe.NewICMPProber,
		api:       api.New(cfg.Api),
		metrics:   metrics.New(cfg.Telemetry),
		stats:     newStats(),
		out:       os.Stdout,
	}
}

// Run performs the discovery and publishes the report. With the api enabled the report is
// served until the context is canceled.
func (c *Canopy) Run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	if err := c.metrics.InitTracing(ctx); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	c.metrics.Register(ctx, c.stats.GetCollectors()...)
	if err := metrics.RegisterInstanceInfo(c.metrics.GetRegistry(), c.config.Name, version(), c.config.Probing.Source); err != nil {
		log.WarnContext(ctx, "Failed to register instance info", "error", err)
	}

	cErr := make(chan error, 1)
	if c.config.HasAPI() {
		if err := c.api.RegisterRoutes(ctx, c.routes()...); err != nil {
			log.ErrorContext(ctx, "Failed to register routes", "error", err)
			return errors.Join(err, c.shutdown(ctx))
		}
		go func() {
			cErr <- c.api.Run(ctx)
		}()
	}

	report, err := c.Discover(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Discovery failed", "error", err)
		return errors.Join(err, c.shutdown(ctx))
	}
	if err := c.publish(ctx, report); err != nil {
		return errors.Join(err, c.shutdown(ctx))
	}

	if !c.config.HasAPI() {
		return c.shutdown(ctx)
	}

	log.InfoContext(ctx, "Serving report until canopy is stopped")
	select {
	case <-ctx.Done():
	case err := <-cErr:
		if ctx.Err() == nil {
			log.ErrorContext(ctx, "Non-recoverable error in api", "error", err)
			return errors.Join(err, c.shutdown(ctx))
		}
	}
	return c.shutdown(ctx)
}

// Report returns the report of the last discovery.
func (c *Canopy) Report() (*Report, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.report == nil {
		return nil, ErrNoReport
	}
	return c.report, nil
}

// publish stores the report and writes the configured outputs
func (c *Canopy) publish(ctx context.Context, report *Report) error {
	log := logger.FromContext(ctx)

	c.mu.Lock()
	c.report = report
	c.mu.Unlock()

	if err := c.writeText(report); err != nil {
		log.ErrorContext(ctx, "Failed to write text report", "path", c.config.Output.Text, "error", err)
		return err
	}
	if path := c.config.Output.JSON; path != "" {
		if err := report.WriteJSONFile(path); err != nil {
			log.ErrorContext(ctx, "Failed to write json report", "path", path, "error", err)
			return err
		}
		log.InfoContext(ctx, "Report written", "path", path)
	}
	return nil
}

func (c *Canopy) writeText(report *Report) (err error) {
	path := c.config.Output.Text
	if path == "" {
		return report.WriteText(c.out)
	}

	f, err := os.Create(path) //#nosec G304
	if err != nil {
		return fmt.Errorf("failed to create text report: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return report.WriteText(f)
}

// shutdown shuts down all managed components gracefully.
func (c *Canopy) shutdown(ctx context.Context) error {
	errC := ctx.Err()
	log := logger.FromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	log.InfoContext(ctx, "Shutting down canopy")
	var sErrs ErrShutdown
	if c.config.HasAPI() {
		sErrs.errAPI = c.api.Shutdown(ctx)
	}
	sErrs.errMetrics = c.metrics.Shutdown(ctx)

	if sErrs.HasError() {
		log.ErrorContext(ctx, "Failed to shutdown gracefully", "contextError", errC, "errors", sErrs)
		return sErrs
	}
	return nil
}

func version() string {
	if pkg.Version == "" {
		return "dev"
	}
	return pkg.Version
}
