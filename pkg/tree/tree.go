// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"fmt"
	"net/netip"
	"slices"

	"github.com/telekom/canopy/internal/probe"
	"github.com/telekom/canopy/pkg/subnet"
)

// Tree is the network tree. Nodes live in an arena and refer to each other by [NodeID].
// A Tree is not safe for concurrent use.
type Tree struct {
	nodes []*Node
	root  NodeID
	// depths indexes the internal nodes by depth, depths[0] holding the children of the root.
	depths [][]NodeID
}

// New creates a tree holding only its root.
func New() *Tree {
	t := &Tree{}
	t.root = t.alloc(KindRoot, probe.Unset, nil)
	return t
}

// Root returns the handle of the root.
func (t *Tree) Root() NodeID { return t.root }

// Node returns the node behind the handle, nil if it was pruned or never existed.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Subnet returns the site of a subnet node.
func (t *Tree) Subnet(id NodeID) (*subnet.Site, bool) {
	n := t.Node(id)
	if n == nil || n.kind != KindSubnet {
		return nil, false
	}
	return n.site, true
}

// NewNeighborhood creates a detached internal node with a single label.
func (t *Tree) NewNeighborhood(label netip.Addr) NodeID {
	return t.alloc(KindNeighborhood, label, nil)
}

// NewLeaf creates a detached subnet node. Only ACCURATE, ODD and SHADOW subnets can be leaves.
func (t *Tree) NewLeaf(s *subnet.Site) (NodeID, error) {
	if !s.Status().IsTreeLeaf() {
		return NoNode, fmt.Errorf("%w: %s is %s", ErrInvalidSubnet, s, s.Status())
	}
	return t.alloc(KindSubnet, leafLabel(s), s), nil
}

func (t *Tree) alloc(kind Kind, label netip.Addr, s *subnet.Site) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &Node{
		id:     id,
		kind:   kind,
		labels: []netip.Addr{label},
		parent: NoNode,
		site:   s,
	})
	return id
}

// HasLabel reports whether the node carries the label.
func (t *Tree) HasLabel(id NodeID, label netip.Addr) bool {
	return t.nodes[id].hasLabel(label)
}

// HasPreviousLabel reports whether the label was seen right before the node.
func (t *Tree) HasPreviousLabel(id NodeID, label netip.Addr) bool {
	return slices.Contains(t.nodes[id].previousLabels, label)
}

// AddLabel adds a label to the node. A neighborhood becomes a hedera on its second label.
// The children of the parent are sorted again since the first label may have changed.
func (t *Tree) AddLabel(id NodeID, label netip.Addr) {
	n := t.nodes[id]
	i, found := slices.BinarySearchFunc(n.labels, label, netip.Addr.Compare)
	if found {
		return
	}
	n.labels = slices.Insert(n.labels, i, label)
	if n.kind == KindNeighborhood && len(n.labels) > 1 {
		n.kind = KindHedera
	}
	if n.parent != NoNode {
		t.sortChildren(n.parent)
	}
}

// AddPreviousLabel records a hop seen right before the node, once.
func (t *Tree) AddPreviousLabel(id NodeID, label netip.Addr) {
	n := t.nodes[id]
	i, found := slices.BinarySearchFunc(n.previousLabels, label, netip.Addr.Compare)
	if !found {
		n.previousLabels = slices.Insert(n.previousLabels, i, label)
	}
}

// AddChild attaches child below parent.
func (t *Tree) AddChild(parent, child NodeID) {
	t.nodes[child].parent = parent
	t.nodes[parent].children = append(t.nodes[parent].children, child)
	t.sortChildren(parent)
}

// Merge moves the children of from below into. from is left without children.
func (t *Tree) Merge(into, from NodeID) {
	for _, c := range t.nodes[from].children {
		t.nodes[c].parent = into
	}
	t.nodes[into].children = append(t.nodes[into].children, t.nodes[from].children...)
	t.nodes[from].children = nil
	t.sortChildren(into)
}

// Child returns the child carrying the label.
func (t *Tree) Child(id NodeID, label netip.Addr) (NodeID, bool) {
	for _, c := range t.nodes[id].children {
		if t.nodes[c].hasLabel(label) {
			return c, true
		}
	}
	return NoNode, false
}

// HasOnlyLeavesAsChildren reports whether every child is a subnet node.
func (t *Tree) HasOnlyLeavesAsChildren(id NodeID) bool {
	for _, c := range t.nodes[id].children {
		if t.nodes[c].kind != KindSubnet {
			return false
		}
	}
	return true
}

// Linkage scores how well the internal children of a node are attached to its subnets:
// 0 when every internal child is reached through one of the sibling subnets, 1 when one is
// not, 2 when several are not. A node without subnet children scores 2 with more than two
// internal children and 1 otherwise.
func (t *Tree) Linkage(id NodeID) int {
	n := t.nodes[id]
	if n.kind == KindSubnet || t.HasOnlyLeavesAsChildren(id) {
		return 0
	}

	var leaves []*subnet.Site
	var internals []*Node
	for _, c := range n.children {
		child := t.nodes[c]
		if child.kind == KindSubnet {
			leaves = append(leaves, child.site)
		} else {
			internals = append(internals, child)
		}
	}

	if len(leaves) == 0 {
		if len(internals) > 2 {
			return 2
		}
		return 1
	}

	missing := 0
	for _, in := range internals {
		onTheWay := slices.ContainsFunc(in.labels, func(l netip.Addr) bool {
			return slices.ContainsFunc(leaves, func(s *subnet.Site) bool { return s.Contains(l) })
		})
		if !onTheWay {
			missing++
		}
	}
	return min(missing, 2)
}

// Interfaces lists the candidate interfaces of a node: its labels other than 0.0.0.0 and the
// members at the shortest TTL of its ACCURATE and ODD subnet children. Sorted, without duplicates.
func (t *Tree) Interfaces(id NodeID) []netip.Addr {
	n := t.nodes[id]
	var res []netip.Addr
	for _, l := range n.labels {
		if !probe.IsUnset(l) {
			res = append(res, l)
		}
	}
	for _, c := range n.children {
		child := t.nodes[c]
		if child.kind != KindSubnet || !child.site.Status().HasContraPivot() {
			continue
		}
		res = append(res, child.site.ContraPivots()...)
	}
	slices.SortFunc(res, netip.Addr.Compare)
	return slices.Compact(res)
}

// AllInterfaces lists the interfaces of every internal node, sorted and without duplicates.
func (t *Tree) AllInterfaces() []netip.Addr {
	var res []netip.Addr
	t.Walk(func(id NodeID, _ int) {
		res = append(res, t.Interfaces(id)...)
	})
	slices.SortFunc(res, netip.Addr.Compare)
	return slices.Compact(res)
}

// Walk visits the internal nodes depth first, parents before children, in child order.
func (t *Tree) Walk(fn func(id NodeID, depth int)) {
	t.walk(t.root, 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(id NodeID, depth int)) {
	n := t.nodes[id]
	if n.kind == KindSubnet {
		return
	}
	fn(id, depth)
	for _, c := range n.children {
		t.walk(c, depth+1, fn)
	}
}

// Subnets returns the subnets of every leaf, sorted by prefix.
func (t *Tree) Subnets() []*subnet.Site {
	var res []*subnet.Site
	for _, n := range t.nodes {
		if n != nil && n.kind == KindSubnet && t.attached(n.id) {
			res = append(res, n.site)
		}
	}
	slices.SortFunc(res, subnet.Compare)
	return res
}

// SubnetContaining returns the subnet of the tree whose prefix contains the address.
func (t *Tree) SubnetContaining(a netip.Addr) (*subnet.Site, bool) {
	for _, s := range t.Subnets() {
		if s.Contains(a) {
			return s, true
		}
	}
	return nil, false
}

// Depth returns the amount of edges between the node and the root.
func (t *Tree) Depth(id NodeID) int {
	d := 0
	for n := t.nodes[id]; n.parent != NoNode; n = t.nodes[n.parent] {
		d++
	}
	return d
}

// attached reports whether the node hangs below the root.
func (t *Tree) attached(id NodeID) bool {
	for id != NoNode {
		if id == t.root {
			return true
		}
		n := t.nodes[id]
		if n == nil {
			return false
		}
		id = n.parent
	}
	return false
}

func (t *Tree) sortChildren(id NodeID) {
	slices.SortStableFunc(t.nodes[id].children, func(a, b NodeID) int {
		return t.nodes[a].firstLabel().Compare(t.nodes[b].firstLabel())
	})
}
