// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"context"
	"net/netip"
	"slices"

	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/pkg/subnet"
)

// Grow inserts the subnets, those with a complete route first. Subnets whose route misses
// hops are inserted last so that their unknown hops do not shape the tree.
func (t *Tree) Grow(ctx context.Context, sites []*subnet.Site) error {
	log := logger.FromContext(ctx)

	ordered := slices.Clone(sites)
	slices.SortStableFunc(ordered, func(a, b *subnet.Site) int {
		switch {
		case a.HasCompleteRoute() == b.HasCompleteRoute():
			return 0
		case a.HasCompleteRoute():
			return -1
		default:
			return 1
		}
	})

	for _, s := range ordered {
		if err := t.Insert(s); err != nil {
			log.ErrorContext(ctx, "Failed to insert subnet", "subnet", s.String(), "error", err)
			return err
		}
	}
	log.DebugContext(ctx, "Tree grown", "subnets", len(ordered), "nodes", t.Len())
	return nil
}

// Insert places the subnet below the deepest internal node found on its route, creating
// the missing part of the branch. Labels met on the way up that the tree does not know yet
// are added to the nodes of the route, and a node sharing such a label at the same depth is
// merged into the route's node.
func (t *Tree) Insert(s *subnet.Site) error {
	route := s.Route()

	insertion, insertionDepth := t.root, 0
	for d := len(route); d > 0 && insertion == t.root; d-- {
		for _, id := range t.at(d - 1) {
			if t.HasLabel(id, route[d-1]) {
				insertion, insertionDepth = id, d
				break
			}
		}
	}

	branch, err := t.branch(s, route, insertionDepth+1)
	if err != nil {
		return err
	}
	if insertion != t.root {
		t.AddPreviousLabel(branch, route[insertionDepth-1])
	}
	t.AddChild(insertion, branch)

	// index the new internal nodes, a branch is a chain of single child nodes
	for next, depth := branch, insertionDepth; next != NoNode; depth++ {
		n := t.nodes[next]
		if n.kind == KindSubnet {
			break
		}
		t.index(depth, next)
		next = NoNode
		if len(n.children) == 1 {
			next = n.children[0]
		}
	}

	child, cur := insertion, t.nodes[insertion].parent
	for d := insertionDepth; d > 1; d-- {
		hop := route[d-2]
		t.AddPreviousLabel(child, hop)

		if !t.HasLabel(cur, hop) {
			t.AddLabel(cur, hop)
			if other, ok := t.sameLabelAt(d-2, hop, cur); ok {
				t.absorb(cur, other)
				t.prune(other, d-2)
			}
		}

		child, cur = cur, t.nodes[cur].parent
	}
	return nil
}

// branch creates the nodes for route[depth-1:] and the leaf below them.
func (t *Tree) branch(s *subnet.Site, route []netip.Addr, depth int) (NodeID, error) {
	leaf, err := t.NewLeaf(s)
	if err != nil {
		return NoNode, err
	}
	if depth-1 == len(route) {
		return leaf, nil
	}

	top := t.NewNeighborhood(route[depth-1])
	cur := top
	for i := depth + 1; i <= len(route); i++ {
		next := t.NewNeighborhood(route[i-1])
		t.AddPreviousLabel(next, route[i-2])
		t.AddChild(cur, next)
		cur = next
	}
	t.AddChild(cur, leaf)
	return top, nil
}

// absorb merges the children and the labels of other into id.
func (t *Tree) absorb(id, other NodeID) {
	t.Merge(id, other)
	for _, l := range t.nodes[other].labels {
		t.AddLabel(id, l)
	}
}

// prune detaches a childless node and every ancestor left without children.
// depth is the index of the node in the depth index.
func (t *Tree) prune(id NodeID, depth int) {
	for id != t.root {
		n := t.nodes[id]
		if len(n.children) > 0 {
			return
		}
		parent := n.parent
		t.unindex(depth, id)
		t.nodes[parent].children = slices.DeleteFunc(t.nodes[parent].children, func(c NodeID) bool { return c == id })
		t.nodes[id] = nil
		id, depth = parent, depth-1
	}
}

func (t *Tree) sameLabelAt(depth int, label netip.Addr, except NodeID) (NodeID, bool) {
	for _, id := range t.at(depth) {
		if id != except && t.HasLabel(id, label) {
			return id, true
		}
	}
	return NoNode, false
}

func (t *Tree) at(depth int) []NodeID {
	if depth < 0 || depth >= len(t.depths) {
		return nil
	}
	return t.depths[depth]
}

func (t *Tree) index(depth int, id NodeID) {
	for len(t.depths) <= depth {
		t.depths = append(t.depths, nil)
	}
	t.depths[depth] = append(t.depths[depth], id)
}

func (t *Tree) unindex(depth int, id NodeID) {
	if depth < 0 || depth >= len(t.depths) {
		return
	}
	t.depths[depth] = slices.DeleteFunc(t.depths[depth], func(c NodeID) bool { return c == id })
}

// Len returns the amount of nodes attached to the tree.
func (t *Tree) Len() int {
	count := 0
	for _, n := range t.nodes {
		if n != nil && t.attached(n.id) {
			count++
		}
	}
	return count
}
