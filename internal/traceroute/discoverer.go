// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"fmt"
	"io"
	"net/netip"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/internal/probe"
	"github.com/telekom/canopy/pkg/hints"
	"github.com/telekom/canopy/pkg/subnet"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Discoverer runs the route discovery of many subnets on a bounded amount of goroutines.
type Discoverer struct {
	opts      Options
	newProber probe.Factory
	table     *hints.Table
	printer   *printer
	tracer    trace.Tracer
	metrics   metrics
}

// NewDiscoverer creates a discoverer. Discovered routes are printed to out, the table
// provides preferred timeouts and may be nil.
func NewDiscoverer(opts *Options, newProber probe.Factory, table *hints.Table, out io.Writer) *Discoverer {
	return &Discoverer{
		opts:      *opts,
		newProber: newProber,
		table:     table,
		printer:   newPrinter(out),
		tracer:    otel.Tracer("traceroute"),
		metrics:   newMetrics(),
	}
}

// GetMetricCollectors returns the prometheus collectors of the discovery
func (d *Discoverer) GetMetricCollectors() []prometheus.Collector {
	return d.metrics.GetCollectors()
}

// Discover runs one [ParisTask] per site, at most MaxWorkers at the same time, and returns
// the results in the order of the sites. Routes are stored on the sites.
// An error is only returned if a prober cannot be created.
func (d *Discoverer) Discover(ctx context.Context, sites []*subnet.Site) (Results, error) {
	log := logger.FromContext(ctx)
	ctx, span := d.tracer.Start(ctx, "traceroute.discover", trace.WithAttributes(
		attribute.Int("traceroute.subnets", len(sites)),
		attribute.Int("traceroute.workers", d.opts.MaxWorkers),
	))
	defer span.End()

	workers := max(d.opts.MaxWorkers, 1)
	ranges := make(chan [2]uint16, workers)
	for _, r := range d.opts.Probe.SplitIDRange(workers) {
		ranges <- r
	}

	results := make(Results, len(sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, site := range sites {
		g.Go(func() error {
			r := <-ranges
			defer func() { ranges <- r }()

			res, err := d.run(gctx, site, d.opts.Probe.WithIDRange(r[0], r[1]))
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, wrapError(ctx, err, "route discovery failed")
	}
	d.recordHopCounts(results)

	log.InfoContext(ctx, "Route discovery finished",
		"resolved", results.Count(StatusResolved),
		"skipped", results.Count(StatusSkipped),
		"unresolvable", results.Count(StatusUnresolvable),
		"probes", results.Probes(),
	)
	return results, nil
}

// recordHopCounts stores the TTL at which every route interface and target answered in the table.
func (d *Discoverer) recordHopCounts(results Results) {
	if d.table == nil {
		return
	}
	for _, res := range results {
		if res.Status != StatusResolved {
			continue
		}
		for i, hop := range res.Route {
			if probe.IsUnset(hop) {
				continue
			}
			e, _ := d.table.Create(hop)
			e.RecordHopCount(uint8(i + 1)) // #nosec G115 // routes are bounded by max hops
		}
		e, _ := d.table.Create(res.Target)
		e.RecordHopCount(uint8(len(res.Route) + 1)) // #nosec G115
	}
}

func (d *Discoverer) run(ctx context.Context, site *subnet.Site, cfg probe.Config) (Result, error) {
	ctx, span := d.tracer.Start(ctx, "traceroute.paris", trace.WithAttributes(
		attribute.Stringer("traceroute.subnet", site.Prefix()),
		attribute.Stringer("traceroute.pivot", site.Pivot()),
		attribute.Int("traceroute.ttl", int(site.ShortestTTL())),
	))
	defer span.End()

	p, err := d.newProber(cfg)
	if err != nil {
		return Result{}, wrapError(ctx, err, "failed to create prober", "subnet", site.String())
	}

	task := NewParisTask(p, site, &d.opts)
	task.table = d.table
	task.printer = d.printer
	task.observe = d.metrics.observe
	defer func() {
		if cErr := task.Close(); cErr != nil {
			logger.FromContext(ctx).WarnContext(ctx, "Failed to close prober", "error", cErr)
		}
	}()

	res := task.Run(ctx)
	d.metrics.finish(res)

	span.SetAttributes(
		attribute.Stringer("traceroute.status", res.Status),
		attribute.Int("traceroute.probes", res.Probes),
	)
	if res.Status == StatusUnresolvable {
		span.SetStatus(codes.Error, res.Reason)
	}
	return res, nil
}

// Verification is the outcome of probing the members of one subnet.
type Verification struct {
	Prefix     netip.Prefix   `json:"prefix" yaml:"prefix"`
	Result     DispatchResult `json:"result" yaml:"result"`
	Responsive []netip.Addr   `json:"responsive,omitempty" yaml:"responsive,omitempty"`
}

// Verify probes, for every resolved subnet with contra-pivots, the members one hop beyond
// the contra-pivots. A member answering at the contra-pivots' TTL is reported as responsive,
// a member answering only one hop beyond the pivot's TTL as alternative.
func (d *Discoverer) Verify(ctx context.Context, sites []*subnet.Site) ([]Verification, error) {
	log := logger.FromContext(ctx)
	ctx, span := d.tracer.Start(ctx, "traceroute.verify")
	defer span.End()

	dispatcher := NewDispatcher(d.newProber, &d.opts)
	var res []Verification
	for _, site := range sites {
		if !site.HasRoute() || !site.Status().HasContraPivot() {
			continue
		}
		ips := verificationTargets(site)
		if len(ips) == 0 {
			continue
		}

		shortest := site.ShortestTTL()
		result, responsive, err := dispatcher.Dispatch(ctx, ips, shortest, shortest+2)
		if err != nil {
			return nil, wrapError(ctx, err, "member verification failed", "subnet", site.String())
		}
		d.metrics.verification.WithLabelValues(result.String()).Inc()
		log.DebugContext(ctx, "Members verified", "subnet", site.String(), "result", result.String(), "responsive", len(responsive))
		res = append(res, Verification{Prefix: site.Prefix(), Result: result, Responsive: responsive})
	}
	span.SetAttributes(attribute.Int("traceroute.verified", len(res)))
	return res, nil
}

// verificationTargets lists the members of a site located one hop beyond its contra-pivots,
// the route target excluded.
func verificationTargets(site *subnet.Site) []netip.Addr {
	var ips []netip.Addr
	for _, m := range site.Members() {
		if m.TTL == site.ShortestTTL()+1 && m.Addr != site.RouteTarget() {
			ips = append(ips, m.Addr)
		}
	}
	return ips
}

func (v Verification) String() string {
	return fmt.Sprintf("%s: %s (%d responsive)", v.Prefix, v.Result, len(v.Responsive))
}
