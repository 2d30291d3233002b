// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"strings"
)

// Print writes one line per node, prefixed by its depth:
//
//	0 - Root node
//	1 - Internal: 192.0.2.1
//	2 - Internal (load balancer): 198.51.100.1, 198.51.100.2 (Previous: 192.0.2.1)
//	3 - Subnet: 203.0.113.0/28
func (t *Tree) Print(w io.Writer) error {
	bw := bufio.NewWriter(w)
	t.print(bw, t.root, 0)
	return bw.Flush()
}

func (t *Tree) print(w *bufio.Writer, id NodeID, depth int) {
	n := t.nodes[id]
	fmt.Fprintf(w, "%d - ", depth)

	switch n.kind {
	case KindRoot:
		fmt.Fprintln(w, "Root node")
	case KindSubnet:
		fmt.Fprintf(w, "Subnet: %s\n", n.site)
		return
	case KindHedera:
		fmt.Fprintf(w, "Internal (load balancer): %s%s\n", join(n.labels), previous(n))
	default:
		fmt.Fprintf(w, "Internal: %s%s\n", n.firstLabel(), previous(n))
	}

	for _, c := range n.children {
		t.print(w, c, depth+1)
	}
}

func previous(n *Node) string {
	if len(n.previousLabels) == 0 {
		return ""
	}
	return " (Previous: " + join(n.previousLabels) + ")"
}

func join(addrs []netip.Addr) string {
	s := make([]string, len(addrs))
	for i, a := range addrs {
		s[i] = a.String()
	}
	return strings.Join(s, ", ")
}

// String renders the tree like [Tree.Print].
func (t *Tree) String() string {
	var b strings.Builder
	_ = t.Print(&b)
	return b.String()
}
