// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/internal/probe"
	"github.com/telekom/canopy/pkg/hints"
	"github.com/telekom/canopy/pkg/subnet"
)

// maxTransientRetries is the amount of additional attempts for a hop after a send or receive failure.
const maxTransientRetries = 1

// anonymousBackoff holds the factors applied to the timeout when a hop stays anonymous.
var anonymousBackoff = []time.Duration{2, 4}

// ParisTask discovers the route towards a single subnet. It probes the pivot of the subnet
// with decreasing TTLs, keeping the flow identifier constant if configured so that load
// balancers keep forwarding the probes along the same path.
type ParisTask struct {
	prober      probe.Prober
	site        *subnet.Site
	source      netip.Addr
	fixedFlow   bool
	doubleProbe bool
	maxHops     uint8
	maxPivots   int

	// table provides the preferred timeouts of known interfaces, may be nil
	table *hints.Table
	// printer receives the route once discovered, may be nil
	printer *printer
	// observe is called with every record the task obtains, may be nil
	observe func(probe.Record)

	probes int
}

// NewParisTask creates a task probing the given subnet. The task owns the prober and
// closes it with [ParisTask.Close].
func NewParisTask(prober probe.Prober, site *subnet.Site, opts *Options) *ParisTask {
	return &ParisTask{
		prober:      prober,
		site:        site,
		source:      opts.Source,
		fixedFlow:   opts.FixedFlow,
		doubleProbe: opts.DoubleProbe,
		maxHops:     opts.MaxHops,
		maxPivots:   max(opts.MaxPivotCandidates, 1),
	}
}

// Run discovers the route and stores it on the subnet.
// The returned result tells whether the subnet was skipped or could not be resolved.
func (t *ParisTask) Run(ctx context.Context) Result {
	start := time.Now()
	log := logger.FromContext(ctx).With("subnet", t.site.String())
	ctx = logger.IntoContext(ctx, log)

	res := Result{Prefix: t.site.Prefix(), Target: t.site.Pivot()}
	pivotTTL := t.site.ShortestTTL()
	if probe.IsUnset(res.Target) || pivotTTL == 0 {
		log.DebugContext(ctx, "Skipping subnet without pivot")
		return t.finish(res, StatusSkipped, "no pivot", start)
	}
	if pivotTTL > t.maxHops {
		err := wrapError(ctx, ErrTooFar, "subnet cannot be probed", "ttl", pivotTTL, "maxHops", t.maxHops)
		return t.finish(res, StatusUnresolvable, err.Error(), start)
	}

	target, err := t.responsivePivot(ctx)
	if err != nil {
		err = wrapError(ctx, err, "responsiveness check failed")
		return t.finish(res, StatusUnresolvable, err.Error(), start)
	}
	res.Target = target

	restore := t.adjustTimeout(ctx, target)
	defer restore()

	route, err := t.walk(ctx, target, pivotTTL)
	if err != nil {
		err = wrapError(ctx, err, "route discovery aborted", "target", target.String())
		return t.finish(res, StatusUnresolvable, err.Error(), start)
	}

	t.site.SetRoute(target, route)
	if t.printer != nil {
		t.printer.route(t.site)
	}
	logRoute(ctx, route)

	res.Route = route
	return t.finish(res, StatusResolved, "", start)
}

// Close releases the prober of the task.
func (t *ParisTask) Close() error {
	return t.prober.Close()
}

func (t *ParisTask) finish(res Result, status Status, reason string, start time.Time) Result {
	res.Status = status
	res.Reason = reason
	res.Probes = t.probes
	res.Duration = time.Since(start)
	return res
}

// responsivePivot probes the pivot candidates at max hops and returns the first one
// answering with an echo reply. A probe that cannot be sent or received ends the check.
func (t *ParisTask) responsivePivot(ctx context.Context) (netip.Addr, error) {
	log := logger.FromContext(ctx)
	for _, candidate := range t.site.Pivots(t.maxPivots) {
		rec, err := t.probe(ctx, candidate, t.maxHops)
		if err != nil {
			log.DebugContext(ctx, "Pivot candidate could not be probed", "candidate", candidate.String(), "error", err)
			return probe.Unset, err
		}
		if rec.EchoReply() {
			return candidate, nil
		}
		log.DebugContext(ctx, "Pivot candidate is not responsive", "candidate", candidate.String(), "record", rec.String())
	}
	return probe.Unset, ErrUnresponsive
}

// adjustTimeout raises the prober's timeout to the preferred timeout of the target, if known
// and larger. The returned function restores the previous timeout.
func (t *ParisTask) adjustTimeout(ctx context.Context, target netip.Addr) (restore func()) {
	if t.table == nil {
		return func() {}
	}
	e, ok := t.table.LookUp(target)
	base := t.prober.Timeout()
	if !ok || e.PreferredTimeout <= base {
		return func() {}
	}

	logger.FromContext(ctx).DebugContext(ctx, "Raising timeout for target", "timeout", e.PreferredTimeout.String())
	t.prober.SetTimeout(e.PreferredTimeout)
	return func() { t.prober.SetTimeout(base) }
}

// walk probes target with every TTL from pivotTTL down to 1. Hops that stay unknown
// keep the [probe.Unset] sentinel.
func (t *ParisTask) walk(ctx context.Context, target netip.Addr, pivotTTL uint8) ([]netip.Addr, error) {
	route := make([]netip.Addr, pivotTTL)
	for i := range route {
		route[i] = probe.Unset
	}

	for ttl := pivotTTL; ttl > 0; ttl-- {
		hop, err := t.hop(ctx, target, ttl)
		if err != nil {
			return nil, err
		}
		route[ttl-1] = hop
	}
	return route, nil
}

// hop discovers the interface at the given TTL. A transient failure is attempted once more,
// after which the hop is left unknown.
func (t *ParisTask) hop(ctx context.Context, target netip.Addr, ttl uint8) (netip.Addr, error) {
	log := logger.FromContext(ctx)
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return probe.Unset, err
		}

		rec, err := t.attempt(ctx, target, ttl)
		switch classify(err) {
		case outcomeOK:
			return rec.Reply, nil
		case outcomeTransient:
			if attempt < maxTransientRetries {
				log.DebugContext(ctx, "Probing hop failed, retrying", "ttl", ttl, "error", err)
				continue
			}
			log.WarnContext(ctx, "Probing hop failed, leaving it unknown", "ttl", ttl, "error", err)
			return probe.Unset, nil
		default:
			return probe.Unset, fmt.Errorf("ttl %d: %w", ttl, err)
		}
	}
}

// attempt probes the hop once, then again with larger timeouts as long as the reply stays anonymous.
func (t *ParisTask) attempt(ctx context.Context, target netip.Addr, ttl uint8) (probe.Record, error) {
	rec, err := t.probe(ctx, target, ttl)
	if err != nil || !rec.Anonymous() {
		return rec, err
	}

	base := t.prober.Timeout()
	defer t.prober.SetTimeout(base)
	for _, factor := range anonymousBackoff {
		t.prober.SetTimeout(base * factor)
		rec, err = t.probe(ctx, target, ttl)
		if err != nil || !rec.Anonymous() {
			return rec, err
		}
	}
	return rec, nil
}

func (t *ParisTask) probe(ctx context.Context, dst netip.Addr, ttl uint8) (probe.Record, error) {
	var (
		rec probe.Record
		err error
	)
	if t.doubleProbe {
		rec, err = t.prober.DoubleProbe(ctx, t.source, dst, ttl, t.fixedFlow)
	} else {
		rec, err = t.prober.SingleProbe(ctx, t.source, dst, ttl, t.fixedFlow)
	}
	if err != nil {
		return rec, err
	}

	t.probes += rec.Cost
	if t.observe != nil {
		t.observe(rec)
	}
	return rec, nil
}
