// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package canopy

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/telekom/canopy/internal/traceroute"
	"github.com/telekom/canopy/pkg/alias"
	"github.com/telekom/canopy/pkg/subnet"
	"github.com/telekom/canopy/pkg/tree"
)

// Report is the outcome of a discovery run.
type Report struct {
	// Name is the name of the canopy instance that produced the report
	Name string `json:"name"`
	// Timestamp is the UTC time the discovery finished
	Timestamp time.Time      `json:"timestamp"`
	Summary   Summary        `json:"summary"`
	Subnets   []SubnetReport `json:"subnets"`
	// Nodes lists the internal nodes of the network tree in depth-first order
	Nodes         []NodeReport              `json:"nodes"`
	Verifications []traceroute.Verification `json:"verifications,omitempty"`

	tree *tree.Tree
}

type Summary struct {
	Subnets      int    `json:"subnets"`
	Resolved     int    `json:"resolved"`
	Skipped      int    `json:"skipped"`
	Unresolvable int    `json:"unresolvable"`
	Probes       int    `json:"probes"`
	Nodes        int    `json:"nodes"`
	Routers      int    `json:"routers"`
	Duration     string `json:"duration"`
}

// SubnetReport is the route discovery outcome of one subnet.
type SubnetReport struct {
	Prefix    netip.Prefix      `json:"prefix"`
	Status    subnet.Status     `json:"status"`
	Discovery traceroute.Status `json:"discovery"`
	Target    netip.Addr        `json:"target"`
	Route     []netip.Addr      `json:"route,omitempty"`
	Probes    int               `json:"probes"`
	Reason    string            `json:"reason,omitempty"`
}

// NodeReport describes an internal node of the network tree and the routers inferred on it.
type NodeReport struct {
	ID         int               `json:"id"`
	Parent     int               `json:"parent"`
	Depth      int               `json:"depth"`
	Kind       string            `json:"kind"`
	Labels     []netip.Addr      `json:"labels"`
	Previous   []netip.Addr      `json:"previous,omitempty"`
	Subnets    []netip.Prefix    `json:"subnets,omitempty"`
	Routers    []alias.Router    `json:"routers,omitempty"`
	Aggregates []AggregateReport `json:"aggregates,omitempty"`
	// Linkage is 0 when every internal child is reached through a sibling subnet,
	// 1 when one is not and 2 when several are not
	Linkage int `json:"linkage"`
	// ForeignLabels are the labels outside of every subnet of the tree
	ForeignLabels []netip.Addr `json:"foreignLabels,omitempty"`
}

// AggregateReport groups the candidates of a node sharing the same last hops.
type AggregateReport struct {
	LastHops   []netip.Addr   `json:"lastHops"`
	Candidates []netip.Addr   `json:"candidates"`
	Routers    []alias.Router `json:"routers,omitempty"`
}

// InterfaceReport locates a single interface in the report.
type InterfaceReport struct {
	Addr   netip.Addr    `json:"addr"`
	Subnet *netip.Prefix `json:"subnet,omitempty"`
	// Node is the id of the node holding a router with the interface
	Node   *int          `json:"node,omitempty"`
	Router *alias.Router `json:"router,omitempty"`
}

func newReport(name string, t *tree.Tree, sites []*subnet.Site, results traceroute.Results, verifications []traceroute.Verification, routers int, took time.Duration) *Report {
	r := &Report{
		Name:      name,
		Timestamp: time.Now().UTC(),
		Summary: Summary{
			Subnets:      len(sites),
			Resolved:     results.Count(traceroute.StatusResolved),
			Skipped:      results.Count(traceroute.StatusSkipped),
			Unresolvable: results.Count(traceroute.StatusUnresolvable),
			Probes:       results.Probes(),
			Nodes:        t.Len(),
			Routers:      routers,
			Duration:     took.Round(time.Millisecond).String(),
		},
		Subnets:       make([]SubnetReport, len(results)),
		Verifications: verifications,
		tree:          t,
	}

	for i, res := range results {
		r.Subnets[i] = SubnetReport{
			Prefix:    res.Prefix,
			Status:    sites[i].Status(),
			Discovery: res.Status,
			Target:    res.Target,
			Route:     res.Route,
			Probes:    res.Probes,
			Reason:    res.Reason,
		}
	}

	t.Walk(func(id tree.NodeID, depth int) {
		n := t.Node(id)
		nr := NodeReport{
			ID:       int(id),
			Parent:   int(n.Parent()),
			Depth:    depth,
			Kind:     n.Kind().String(),
			Labels:   n.Labels(),
			Previous: n.PreviousLabels(),
			Routers:  n.Routers(),
			Linkage:  t.Linkage(id),
		}
		for _, l := range nr.Labels {
			if _, ok := t.SubnetContaining(l); !ok {
				nr.ForeignLabels = append(nr.ForeignLabels, l)
			}
		}
		for _, c := range n.Children() {
			if s, ok := t.Subnet(c); ok {
				nr.Subnets = append(nr.Subnets, s.Prefix())
			}
		}
		for _, agg := range n.Aggregates() {
			nr.Aggregates = append(nr.Aggregates, AggregateReport{
				LastHops:   agg.LastHops(),
				Candidates: agg.Candidates(),
				Routers:    agg.Routers(),
			})
		}
		r.Nodes = append(r.Nodes, nr)
	})
	return r
}

// Routers returns the nodes with at least one inferred router.
func (r *Report) Routers() []NodeReport {
	var res []NodeReport
	for _, n := range r.Nodes {
		if len(n.Routers) > 0 {
			res = append(res, n)
		}
	}
	return res
}

// Interface looks up the subnet containing the address and the router it belongs to.
func (r *Report) Interface(a netip.Addr) InterfaceReport {
	res := InterfaceReport{Addr: a}
	if s, ok := r.tree.SubnetContaining(a); ok {
		p := s.Prefix()
		res.Subnet = &p
	}
	r.tree.Walk(func(id tree.NodeID, _ int) {
		if res.Router != nil {
			return
		}
		if router, ok := r.tree.Node(id).RouterHaving(a); ok {
			node := int(id)
			res.Node, res.Router = &node, &router
		}
	})
	return res
}

// WriteTree renders the network tree.
func (r *Report) WriteTree(w io.Writer) error {
	return r.tree.Print(w)
}

// WriteText renders the report for humans: a summary, the network tree, the linkage of
// every neighborhood and the routers of every node.
func (r *Report) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	s := r.Summary
	fmt.Fprintf(bw, "Discovery of %d subnets: %d resolved, %d skipped, %d unresolvable (%d probes in %s)\n\n",
		s.Subnets, s.Resolved, s.Skipped, s.Unresolvable, s.Probes, s.Duration)

	fmt.Fprintln(bw, "Network tree:")
	if err := r.tree.Print(bw); err != nil {
		return err
	}

	if len(r.Verifications) > 0 {
		fmt.Fprintln(bw, "\nMember verification:")
		for _, v := range r.Verifications {
			fmt.Fprintln(bw, v)
		}
	}

	fmt.Fprintln(bw, "\nNeighborhoods:")
	for _, n := range r.Nodes {
		if n.Depth == 0 {
			continue
		}
		fmt.Fprintf(bw, "%d - %s %s: %s linkage with its children", n.Depth, strings.ToLower(n.Kind), joinAddrs(n.Labels), linkage(n.Linkage))
		if len(n.ForeignLabels) > 0 {
			fmt.Fprintf(bw, ", labels outside of the tree's subnets: %s", joinAddrs(n.ForeignLabels))
		}
		fmt.Fprintln(bw)
	}

	fmt.Fprintf(bw, "\nRouters (%d):\n", s.Routers)
	for _, n := range r.Nodes {
		if len(n.Routers) == 0 && len(n.Aggregates) == 0 {
			continue
		}
		fmt.Fprintf(bw, "%d - %s %s\n", n.Depth, strings.ToLower(n.Kind), joinAddrs(n.Labels))
		for _, router := range n.Routers {
			fmt.Fprintf(bw, "  Router: %s\n", router.Verbose())
		}
		for _, agg := range n.Aggregates {
			fmt.Fprintf(bw, "  Aggregate after %s:\n", joinAddrs(agg.LastHops))
			for _, router := range agg.Routers {
				fmt.Fprintf(bw, "    Router: %s\n", router.Verbose())
			}
		}
	}
	return bw.Flush()
}

// WriteJSONFile stores the report as indented json.
func (r *Report) WriteJSONFile(path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func linkage(score int) string {
	switch score {
	case 0:
		return "complete"
	case 1:
		return "partial"
	default:
		return "poor"
	}
}

func joinAddrs(addrs []netip.Addr) string {
	s := make([]string, len(addrs))
	for i, a := range addrs {
		s[i] = a.String()
	}
	return strings.Join(s, ", ")
}
