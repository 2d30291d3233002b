// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"net/netip"
	"slices"

	"github.com/telekom/canopy/internal/probe"
	"github.com/telekom/canopy/pkg/alias"
	"github.com/telekom/canopy/pkg/hints"
)

// Aggregate groups the last hops of an internal node with the interfaces of the subnets
// reached through them. Alias inference runs on each aggregate separately.
type Aggregate struct {
	lastHops   []netip.Addr
	candidates []netip.Addr
	routers    []alias.Router
}

// LastHops returns the sorted last hops of the aggregate.
func (a *Aggregate) LastHops() []netip.Addr { return slices.Clone(a.lastHops) }

// Candidates returns the sorted interfaces found behind the last hops.
func (a *Aggregate) Candidates() []netip.Addr { return slices.Clone(a.candidates) }

// Routers returns the routers inferred for the aggregate.
func (a *Aggregate) Routers() []alias.Router { return slices.Clone(a.routers) }

// Interfaces returns the known last hops and the candidates, sorted and without duplicates.
func (a *Aggregate) Interfaces() []netip.Addr {
	res := append(slices.Clone(a.lastHops), a.candidates...)
	res = slices.DeleteFunc(res, probe.IsUnset)
	slices.SortFunc(res, netip.Addr.Compare)
	return slices.Compact(res)
}

func (a *Aggregate) hasLastHop(h netip.Addr) bool {
	return slices.Contains(a.lastHops, h)
}

// Aggregates builds the aggregates of an internal node. A hedera seeds one aggregate per
// label, a label with pre-aliases in table seeding one aggregate with them instead.
// A neighborhood seeds a single aggregate. Aggregates without candidates are dropped.
func (t *Tree) Aggregates(id NodeID, table *hints.Table) []*Aggregate {
	n := t.nodes[id]
	if !n.kind.IsInternal() || n.kind == KindRoot {
		return nil
	}

	var seeds []*Aggregate
	if n.kind == KindNeighborhood {
		seeds = append(seeds, &Aggregate{lastHops: []netip.Addr{n.firstLabel()}})
	} else {
		known := map[netip.Addr]bool{}
		for _, l := range n.labels {
			if known[l] {
				continue
			}
			known[l] = true
			agg := &Aggregate{lastHops: []netip.Addr{l}}
			if !probe.IsUnset(l) && table != nil {
				if e, ok := table.LookUp(l); ok {
					for _, pa := range e.PreAliases {
						if n.hasLabel(pa) && !known[pa] {
							known[pa] = true
							agg.lastHops = append(agg.lastHops, pa)
						}
					}
				}
			}
			slices.SortFunc(agg.lastHops, netip.Addr.Compare)
			seeds = append(seeds, agg)
		}
	}

	var res []*Aggregate
	for _, agg := range seeds {
		for _, c := range n.children {
			child := t.nodes[c]
			if child.kind != KindSubnet || !child.site.Status().HasContraPivot() {
				continue
			}
			if agg.hasLastHop(child.site.LastHop()) {
				agg.candidates = append(agg.candidates, child.site.ContraPivots()...)
			}
		}
		slices.SortFunc(agg.candidates, netip.Addr.Compare)
		agg.candidates = slices.Compact(agg.candidates)
		if len(agg.candidates) > 0 {
			res = append(res, agg)
		}
	}
	return res
}
