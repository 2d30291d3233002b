// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"net/netip"
	"slices"

	"github.com/telekom/canopy/pkg/alias"
	"github.com/telekom/canopy/pkg/subnet"
)

// NodeID addresses a node inside the arena of its tree.
type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = -1

// Kind is the variant of a node.
type Kind int

const (
	// KindRoot is the synthetic root, labeled 0.0.0.0.
	KindRoot Kind = iota
	// KindNeighborhood is an internal node with a single label.
	KindNeighborhood
	// KindHedera is an internal node with several labels, a load balanced hop.
	KindHedera
	// KindSubnet is a leaf owning a subnet.
	KindSubnet
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "ROOT"
	case KindNeighborhood:
		return "NEIGHBORHOOD"
	case KindHedera:
		return "HEDERA"
	case KindSubnet:
		return "SUBNET"
	default:
		return "UNKNOWN"
	}
}

// IsInternal reports whether nodes of this kind have children.
func (k Kind) IsInternal() bool {
	return k != KindSubnet
}

// Node is a vertex of the network tree. Only subnet nodes carry a site.
type Node struct {
	id             NodeID
	kind           Kind
	labels         []netip.Addr
	previousLabels []netip.Addr
	parent         NodeID
	children       []NodeID
	site           *subnet.Site

	routers    []alias.Router
	aggregates []*Aggregate
}

// ID returns the handle of the node.
func (n *Node) ID() NodeID { return n.id }

// Kind returns the variant of the node.
func (n *Node) Kind() Kind { return n.kind }

// Parent returns the handle of the parent, [NoNode] for the root.
func (n *Node) Parent() NodeID { return n.parent }

// Labels returns the sorted labels of the node.
func (n *Node) Labels() []netip.Addr { return slices.Clone(n.labels) }

// PreviousLabels returns the sorted hops seen right before this node in the routes crossing it.
func (n *Node) PreviousLabels() []netip.Addr { return slices.Clone(n.previousLabels) }

// Children returns the handles of the children, ordered by their first label.
func (n *Node) Children() []NodeID { return slices.Clone(n.children) }

// Routers returns the routers inferred for the node, smallest first.
func (n *Node) Routers() []alias.Router { return slices.Clone(n.routers) }

// Aggregates returns the aggregates built for the node.
func (n *Node) Aggregates() []*Aggregate { return slices.Clone(n.aggregates) }

// RouterHaving returns the inferred router owning the interface.
func (n *Node) RouterHaving(a netip.Addr) (alias.Router, bool) {
	for _, r := range n.routers {
		if r.HasInterface(a) {
			return r, true
		}
	}
	return alias.Router{}, false
}

// IsLoadBalancer reports whether the node carries more than one label.
func (n *Node) IsLoadBalancer() bool { return len(n.labels) > 1 }

func (n *Node) firstLabel() netip.Addr {
	if len(n.labels) == 0 {
		return netip.Addr{}
	}
	return n.labels[0]
}

func (n *Node) hasLabel(a netip.Addr) bool {
	_, found := slices.BinarySearchFunc(n.labels, a, netip.Addr.Compare)
	return found
}

// leafLabel is the label of a subnet node: its pivot for SHADOW subnets, its contra-pivot otherwise.
func leafLabel(s *subnet.Site) netip.Addr {
	if s.Status() == subnet.StatusShadow {
		return s.Pivot()
	}
	return s.ContraPivot()
}
