// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"context"
	"net/netip"
	"slices"

	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/pkg/alias"
	"github.com/telekom/canopy/pkg/hints"
	"github.com/telekom/canopy/pkg/subnet"
)

// InferRouters runs alias inference on the interfaces of every internal node and on each of
// its aggregates, and attaches the routers to them. It returns the amount of routers
// attached to nodes.
func (t *Tree) InferRouters(ctx context.Context, resolver *alias.Resolver, table *hints.Table) int {
	log := logger.FromContext(ctx)

	total := 0
	t.Walk(func(id NodeID, _ int) {
		n := t.nodes[id]
		odd := t.oddMembers(id)

		if ifaces := t.Interfaces(id); len(ifaces) > 0 {
			n.routers = resolver.Infer(ctx, ifaces, n.labels, odd)
			slices.SortFunc(n.routers, alias.Compare)
			total += len(n.routers)
		}

		n.aggregates = t.Aggregates(id, table)
		for _, agg := range n.aggregates {
			agg.routers = resolver.Infer(ctx, agg.Interfaces(), n.labels, odd)
			slices.SortFunc(agg.routers, alias.Compare)
		}
	})

	log.InfoContext(ctx, "Router inference finished", "routers", total)
	return total
}

// oddMembers lists the live interfaces of the ODD subnet children of a node.
func (t *Tree) oddMembers(id NodeID) []netip.Addr {
	var res []netip.Addr
	for _, c := range t.nodes[id].children {
		child := t.nodes[c]
		if child.kind != KindSubnet || child.site.Status() != subnet.StatusOdd {
			continue
		}
		for _, m := range child.site.Members() {
			res = append(res, m.Addr)
		}
	}
	return res
}
