// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package hints

import (
	"context"
	"math"
	"net/netip"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/internal/probe"
)

const (
	// echoTTL is large enough for the probe to reach any interface.
	echoTTL uint8 = math.MaxUint8
	// maxAttempts is the amount of times the samples of an interface are collected before giving up.
	maxAttempts = 2
)

// Resolver resolves the host name of an address.
//
//go:generate go tool moq -out resolver_moq.go . Resolver
type Resolver interface {
	// LookupAddr returns the host name of the address or an empty string if it has none.
	LookupAddr(ctx context.Context, addr netip.Addr) (string, error)
}

// Collector fills the IP dictionary with alias hints: IP-ID samples and host names.
type Collector struct {
	table     *Table
	newProber probe.Factory
	probeCfg  probe.Config
	source    netip.Addr
	workers   int
	resolver  Resolver

	// tokens orders every sample taken by the collector, across all workers.
	tokens atomic.Uint64
}

// NewCollector creates a collector writing into table. resolver may be nil to skip reverse lookups.
func NewCollector(table *Table, newProber probe.Factory, probeCfg probe.Config, source netip.Addr, workers int, resolver Resolver) *Collector {
	return &Collector{
		table:     table,
		newProber: newProber,
		probeCfg:  probeCfg,
		source:    source,
		workers:   max(workers, 1),
		resolver:  resolver,
	}
}

// Collect gathers hints for the given interfaces. Samples are taken in rounds: every
// interface gets its i-th probe before any gets its (i+1)-th, so the tokens of one round
// differ by less than the amount of interfaces. Interfaces whose samples stayed incomplete
// are sampled again with twice the timeout. Only fatal errors abort the collection.
func (c *Collector) Collect(ctx context.Context, addrs []netip.Addr) error {
	log := logger.FromContext(ctx)

	addrs = slices.Clone(addrs)
	slices.SortFunc(addrs, netip.Addr.Compare)
	addrs = slices.Compact(addrs)
	addrs = slices.DeleteFunc(addrs, probe.IsUnset)
	if len(addrs) == 0 {
		return nil
	}

	probers := make([]probe.Prober, 0, min(c.workers, len(addrs)))
	defer func() {
		for _, p := range probers {
			if err := p.Close(); err != nil {
				log.ErrorContext(ctx, "Failed to close prober", "error", err)
			}
		}
	}()
	for _, r := range c.probeCfg.SplitIDRange(min(c.workers, len(addrs))) {
		p, err := c.newProber(c.probeCfg.WithIDRange(r[0], r[1]))
		if err != nil {
			return err
		}
		probers = append(probers, p)
	}

	entries := make([]*Entry, len(addrs))
	for i, a := range addrs {
		entries[i], _ = c.table.Create(a)
	}

	pending := slices.Clone(entries)
	for attempt := range maxAttempts {
		if len(pending) == 0 {
			break
		}
		if err := c.sample(ctx, probers, pending, attempt); err != nil {
			log.ErrorContext(ctx, "Hint collection aborted", "error", err)
			return err
		}
		pending = slices.DeleteFunc(pending, (*Entry).HasIPIDData)
	}
	for _, e := range entries {
		e.Classify()
	}

	if err := c.resolve(ctx, entries); err != nil {
		return err
	}
	log.InfoContext(ctx, "Hint collection finished", "interfaces", len(entries), "incomplete", len(pending))
	return nil
}

// sample runs Arity rounds over the entries. Worker w probes every len(probers)-th entry
// starting at w. An entry whose probe gets no echo reply from it is skipped for the
// remaining rounds.
func (c *Collector) sample(ctx context.Context, probers []probe.Prober, entries []*Entry, attempt int) error {
	failed := make([]bool, len(entries))
	previous := make([]probe.Record, len(entries))
	for _, e := range entries {
		e.clearSamples()
	}

	for round := range entries[0].Arity() {
		g, gctx := errgroup.WithContext(ctx)
		for w, p := range probers {
			g.Go(func() error {
				initial := p.Timeout()
				defer p.SetTimeout(initial)

				for i := w; i < len(entries); i += len(probers) {
					if failed[i] {
						continue
					}
					e := entries[i]
					token := c.tokens.Add(1)
					p.SetTimeout(max(initial, e.PreferredTimeout) << attempt)

					rec, err := p.SingleProbe(gctx, c.source, e.Addr, echoTTL, false)
					if err != nil && !probe.IsTransient(err) {
						return err
					}
					if err != nil || !rec.EchoReply() || rec.Reply != e.Addr {
						failed[i] = true
						continue
					}

					e.SetSample(round, token, rec.ReplyIPID, rec.SrcIPID == rec.ReplyIPID)
					if round > 0 {
						e.SetDelay(round-1, rec.ReplyTime.Sub(previous[i].ReplyTime))
					}
					previous[i] = rec
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// resolve looks up the host names of entries that have none yet.
func (c *Collector) resolve(ctx context.Context, entries []*Entry) error {
	if c.resolver == nil {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, e := range entries {
		if e.HasDNS() {
			continue
		}
		g.Go(func() error {
			name, err := c.resolver.LookupAddr(ctx, e.Addr)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.FromContext(ctx).DebugContext(ctx, "Reverse lookup failed", "interface", e.Addr, "error", err)
				return nil
			}
			e.Hostname = name
			return nil
		})
	}
	return g.Wait()
}
