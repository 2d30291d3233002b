// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"
	"net/netip"
	"slices"
	"sync"

	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/internal/probe"
	"golang.org/x/sync/errgroup"
)

const (
	// minimalBlockSize is the smallest amount of addresses given to a probe unit.
	minimalBlockSize = 2
	// minimumIPsPerWorker is the amount of addresses up to which a single unit probes the whole list.
	minimumIPsPerWorker = 2
)

// DispatchResult summarizes what the probe units of a dispatch found.
type DispatchResult int

const (
	// FoundNothing means no address answered at the required or alternative TTL.
	FoundNothing DispatchResult = iota
	// FoundResponsiveIPs means some addresses answered at the required TTL.
	FoundResponsiveIPs
	// FoundAlternative means an address answers at the alternative TTL but not before it.
	FoundAlternative
	// FoundProofToDiscardAlternative means an address answering at the alternative TTL also
	// answers one hop earlier, so the alternative TTL is not meaningful.
	FoundProofToDiscardAlternative
)

func (r DispatchResult) String() string {
	switch r {
	case FoundNothing:
		return "nothing"
	case FoundResponsiveIPs:
		return "responsive"
	case FoundAlternative:
		return "alternative"
	case FoundProofToDiscardAlternative:
		return "discard-alternative"
	default:
		return "unknown"
	}
}

func (r DispatchResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// coordination is the state shared by the probe units of one dispatch.
// The mutex is only held for in-memory updates, never while probing.
type coordination struct {
	mu                sync.Mutex
	responsive        []netip.Addr
	foundAlternative  bool
	ignoreAlternative bool
}

func (c *coordination) hasFoundAlternative() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.foundAlternative
}

func (c *coordination) ignoringAlternative() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ignoreAlternative
}

// addResponsive appends ip to the responsive list and stops the search for an alternative.
func (c *coordination) addResponsive(ip netip.Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responsive = append(c.responsive, ip)
	c.ignoreAlternative = true
}

func (c *coordination) discardAlternative() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ignoreAlternative = true
}

// addAlternative pushes ip in front of the responsive list and stops every unit.
func (c *coordination) addAlternative(ip netip.Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responsive = slices.Insert(c.responsive, 0, ip)
	c.foundAlternative = true
}

func (c *coordination) result() (DispatchResult, []netip.Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := FoundNothing
	switch {
	case c.foundAlternative:
		res = FoundAlternative
	case len(c.responsive) > 0:
		res = FoundResponsiveIPs
	case c.ignoreAlternative:
		res = FoundProofToDiscardAlternative
	}
	return res, slices.Clone(c.responsive)
}

// ProbeUnit probes a block of addresses at a required TTL and, while no unit found a
// reason to stop, at an alternative TTL.
type ProbeUnit struct {
	prober      probe.Prober
	coord       *coordination
	ips         []netip.Addr
	source      netip.Addr
	requiredTTL uint8
	altTTL      uint8
	fixedFlow   bool
}

// Run probes the addresses of the unit in order. It returns early once any unit found an
// alternative. Only fatal probing errors are returned.
func (u *ProbeUnit) Run(ctx context.Context) error {
	for _, ip := range u.ips {
		if u.coord.hasFoundAlternative() {
			return nil
		}
		tryAlternative := u.altTTL > 0 && !u.coord.ignoringAlternative()

		echo, err := u.echo(ctx, ip, u.requiredTTL)
		if err != nil {
			return err
		}
		if echo {
			u.coord.addResponsive(ip)
			continue
		}
		if !tryAlternative {
			continue
		}

		if echo, err = u.echo(ctx, ip, u.altTTL); err != nil || !echo {
			if err != nil {
				return err
			}
			continue
		}

		// the address answers at the alternative TTL, it must not answer one hop earlier
		earlier, err := u.echo(ctx, ip, u.altTTL-1)
		if err != nil {
			return err
		}
		if earlier {
			u.coord.discardAlternative()
			continue
		}
		u.coord.addAlternative(ip)
		return nil
	}
	return nil
}

// echo double probes ip and reports whether it answered with an echo reply.
// Transient failures count as no reply.
func (u *ProbeUnit) echo(ctx context.Context, ip netip.Addr, ttl uint8) (bool, error) {
	rec, err := u.prober.DoubleProbe(ctx, u.source, ip, ttl, u.fixedFlow)
	switch classify(err) {
	case outcomeOK:
		return rec.EchoReply(), nil
	case outcomeTransient:
		logger.FromContext(ctx).DebugContext(ctx, "Probe failed", "addr", ip.String(), "ttl", ttl, "error", err)
		return false, nil
	default:
		return false, err
	}
}

// Dispatcher splits a list of addresses over concurrently running probe units.
type Dispatcher struct {
	newProber probe.Factory
	opts      Options
}

// NewDispatcher creates a dispatcher running at most opts.MaxWorkers units at once.
func NewDispatcher(newProber probe.Factory, opts *Options) *Dispatcher {
	return &Dispatcher{newProber: newProber, opts: *opts}
}

// Dispatch probes ips at requiredTTL and, if altTTL is not 0, looks for an address located
// at altTTL. It returns what was found and the responsive addresses, an address found at
// the alternative TTL coming first.
func (d *Dispatcher) Dispatch(ctx context.Context, ips []netip.Addr, requiredTTL, altTTL uint8) (DispatchResult, []netip.Addr, error) {
	blocks := partition(ips, d.opts.MaxWorkers)
	if len(blocks) == 0 {
		return FoundNothing, nil, nil
	}

	units := make([]*ProbeUnit, 0, len(blocks))
	closeAll := func() error {
		var err error
		for _, u := range units {
			err = errors.Join(err, u.prober.Close())
		}
		return err
	}

	coord := &coordination{}
	ranges := d.opts.Probe.SplitIDRange(len(blocks))
	for i, block := range blocks {
		r := ranges[i%len(ranges)]
		p, err := d.newProber(d.opts.Probe.WithIDRange(r[0], r[1]))
		if err != nil {
			return FoundNothing, nil, errors.Join(err, closeAll())
		}
		units = append(units, &ProbeUnit{
			prober:      p,
			coord:       coord,
			ips:         block,
			source:      d.opts.Source,
			requiredTTL: requiredTTL,
			altTTL:      altTTL,
			fixedFlow:   d.opts.FixedFlow,
		})
	}
	defer func() {
		if err := closeAll(); err != nil {
			logger.FromContext(ctx).WarnContext(ctx, "Failed to close probers", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range units {
		g.Go(func() error { return u.Run(gctx) })
	}
	if err := g.Wait(); err != nil {
		return FoundNothing, nil, err
	}

	res, responsive := coord.result()
	return res, responsive, nil
}

// partition splits ips into consecutive blocks. The block size starts at minimalBlockSize
// and grows until the amount of blocks does not exceed maxWorkers.
func partition(ips []netip.Addr, maxWorkers int) [][]netip.Addr {
	n := len(ips)
	if n == 0 {
		return nil
	}
	if n <= minimumIPsPerWorker {
		return [][]netip.Addr{ips}
	}

	maxWorkers = max(maxWorkers, 1)
	size := minimalBlockSize
	for factor := 2; (n+size-1)/size > maxWorkers; factor++ {
		size = minimalBlockSize * factor
	}
	return slices.Collect(slices.Chunk(ips, size))
}
