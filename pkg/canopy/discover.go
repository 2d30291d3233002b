// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package canopy

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/internal/traceroute"
	"github.com/telekom/canopy/pkg/alias"
	"github.com/telekom/canopy/pkg/hints"
	"github.com/telekom/canopy/pkg/subnet"
	"github.com/telekom/canopy/pkg/tree"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Discover runs the whole pipeline once: the dataset is loaded, the route of every subnet
// is discovered, the network tree is grown from the routes, alias hints are collected for
// its interfaces and routers are inferred on every internal node.
func (c *Canopy) Discover(ctx context.Context) (report *Report, err error) {
	log := logger.FromContext(ctx)
	ctx, span := otel.Tracer("canopy").Start(ctx, "canopy.discover")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()
	start := time.Now()

	opts, err := c.config.Probing.Options()
	if err != nil {
		return nil, err
	}

	ds, err := c.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	table := ds.Table(c.arity())
	sites := ds.Sites()
	span.SetAttributes(attribute.Int("canopy.subnets", len(sites)))

	var out io.Writer
	if !c.config.Output.Quiet {
		out = c.out
	}
	discoverer := traceroute.NewDiscoverer(opts, c.newProber, table, out)
	c.metrics.Register(ctx, discoverer.GetMetricCollectors()...)

	results, err := discoverer.Discover(ctx, sites)
	if err != nil {
		return nil, fmt.Errorf("route discovery failed: %w", err)
	}

	var verifications []traceroute.Verification
	if c.config.VerifyMembers {
		verifications, err = discoverer.Verify(ctx, sites)
		if err != nil {
			return nil, err
		}
	}

	leaves := treeLeaves(sites, results)
	if excluded := len(sites) - len(leaves); excluded > 0 {
		log.DebugContext(ctx, "Subnets left out of the network tree", "count", excluded)
	}
	t := tree.New()
	if err := t.Grow(ctx, leaves); err != nil {
		return nil, fmt.Errorf("failed to grow network tree: %w", err)
	}

	if c.config.Hints.Enabled {
		if err := c.collectHints(ctx, t, table, opts); err != nil {
			return nil, fmt.Errorf("hint collection failed: %w", err)
		}
	}
	routers := t.InferRouters(ctx, alias.NewResolver(table), table)

	report = newReport(c.config.Name, t, sites, results, verifications, routers, time.Since(start))
	c.stats.update(report, sites, table.Len())
	log.InfoContext(ctx, "Discovery finished",
		"subnets", report.Summary.Subnets,
		"resolved", report.Summary.Resolved,
		"nodes", report.Summary.Nodes,
		"routers", report.Summary.Routers,
		"duration", report.Summary.Duration,
	)
	return report, nil
}

// treeLeaves returns the sites with a discovered route whose status allows a tree leaf.
// Results are in site order.
func treeLeaves(sites []*subnet.Site, results traceroute.Results) []*subnet.Site {
	leaves := make([]*subnet.Site, 0, len(sites))
	for i, s := range sites {
		if results[i].Status == traceroute.StatusResolved && s.Status().IsTreeLeaf() {
			leaves = append(leaves, s)
		}
	}
	return leaves
}

// collectHints probes every interface of the tree for IP-ID samples and resolves their names
func (c *Canopy) collectHints(ctx context.Context, t *tree.Tree, table *hints.Table, opts *traceroute.Options) error {
	log := logger.FromContext(ctx)

	var resolver hints.Resolver
	if c.config.Hints.DNS.Enabled {
		r, err := hints.NewDNSResolver(c.config.Hints.DNS)
		if err != nil {
			log.WarnContext(ctx, "Reverse lookups disabled", "error", err)
		} else {
			resolver = r
		}
	}

	collector := hints.NewCollector(table, c.newProber, opts.Probe, opts.Source, c.config.Hints.Workers, resolver)
	return collector.Collect(ctx, t.AllInterfaces())
}

func (c *Canopy) arity() int {
	if c.config.Hints.Arity < hints.MinArity {
		return hints.DefaultArity
	}
	return c.config.Hints.Arity
}
