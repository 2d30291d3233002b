// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package subnet

import (
	"cmp"
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/telekom/canopy/internal/probe"
)

// Member is a live interface of a subnet together with the TTL required to reach it.
type Member struct {
	Addr netip.Addr `json:"addr" yaml:"addr"`
	TTL  uint8      `json:"ttl" yaml:"ttl"`
}

// Site is a subnet inferred by a previous scan: its prefix, refinement status and the
// interfaces seen alive in it. The route towards the subnet is discovered later on.
type Site struct {
	prefix  netip.Prefix
	status  Status
	members []Member

	shortestTTL uint8
	greatestTTL uint8

	routeTarget netip.Addr
	route       []netip.Addr
}

// New creates a site. The shortest and greatest TTL are derived from the members.
func New(prefix netip.Prefix, status Status, members []Member) *Site {
	s := &Site{
		prefix:  prefix.Masked(),
		status:  status,
		members: slices.Clone(members),
	}
	for i, m := range s.members {
		if i == 0 || m.TTL < s.shortestTTL {
			s.shortestTTL = m.TTL
		}
		if m.TTL > s.greatestTTL {
			s.greatestTTL = m.TTL
		}
	}
	return s
}

// Prefix returns the network prefix of the subnet.
func (s *Site) Prefix() netip.Prefix { return s.prefix }

// Status returns the refinement status of the subnet.
func (s *Site) Status() Status { return s.status }

// ShortestTTL is the TTL of the closest members, usually the contra-pivots.
func (s *Site) ShortestTTL() uint8 { return s.shortestTTL }

// GreatestTTL is the TTL of the farthest members.
func (s *Site) GreatestTTL() uint8 { return s.greatestTTL }

// Members returns a copy of the live interfaces of the subnet.
func (s *Site) Members() []Member { return slices.Clone(s.members) }

// MembersAt returns the members reached with the given TTL, in listing order.
func (s *Site) MembersAt(ttl uint8) []netip.Addr {
	var res []netip.Addr
	for _, m := range s.members {
		if m.TTL == ttl {
			res = append(res, m.Addr)
		}
	}
	return res
}

// Pivot returns the address used to represent the subnet while probing.
// Shadow subnets use their first member, other subnets the first member one hop
// behind the contra-pivots. Returns [probe.Unset] for a subnet without members.
func (s *Site) Pivot() netip.Addr {
	if len(s.members) == 0 {
		return probe.Unset
	}
	if s.status == StatusShadow {
		return s.members[0].Addr
	}
	if p := s.MembersAt(s.shortestTTL + 1); len(p) > 0 {
		return p[0]
	}
	return s.members[0].Addr
}

// Pivots returns up to limit pivot candidates, in listing order.
func (s *Site) Pivots(limit int) []netip.Addr {
	var candidates []netip.Addr
	if s.status == StatusShadow {
		for _, m := range s.members {
			candidates = append(candidates, m.Addr)
		}
	} else {
		candidates = s.MembersAt(s.shortestTTL + 1)
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// ContraPivot returns the first member at the shortest TTL, or [probe.Unset] if there is none.
func (s *Site) ContraPivot() netip.Addr {
	if c := s.ContraPivots(); len(c) > 0 {
		return c[0]
	}
	return probe.Unset
}

// ContraPivots returns all members at the shortest TTL.
func (s *Site) ContraPivots() []netip.Addr {
	if len(s.members) == 0 {
		return nil
	}
	return s.MembersAt(s.shortestTTL)
}

// Contains reports whether the address is inside the subnet's prefix.
func (s *Site) Contains(a netip.Addr) bool {
	return s.prefix.IsValid() && s.prefix.Contains(a)
}

// HasLiveInterface reports whether the address is one of the subnet's members.
func (s *Site) HasLiveInterface(a netip.Addr) bool {
	return slices.ContainsFunc(s.members, func(m Member) bool { return m.Addr == a })
}

// SetRoute stores the route discovered towards target. The site keeps its own copy.
func (s *Site) SetRoute(target netip.Addr, route []netip.Addr) {
	s.routeTarget = target
	s.route = slices.Clone(route)
}

// Route returns a copy of the discovered route, hop i being reached with TTL i+1.
func (s *Site) Route() []netip.Addr { return slices.Clone(s.route) }

// RouteTarget returns the address that was probed to discover the route.
func (s *Site) RouteTarget() netip.Addr { return s.routeTarget }

// RouteSize returns the amount of hops of the discovered route.
func (s *Site) RouteSize() int { return len(s.route) }

// HasRoute reports whether a route was discovered.
func (s *Site) HasRoute() bool { return len(s.route) > 0 }

// HasCompleteRoute reports whether a route was discovered and none of its hops is missing.
func (s *Site) HasCompleteRoute() bool {
	return s.HasRoute() && !slices.ContainsFunc(s.route, probe.IsUnset)
}

// Hop returns the route hop at the given index, or [probe.Unset] if out of bounds.
func (s *Site) Hop(i int) netip.Addr {
	if i < 0 || i >= len(s.route) {
		return probe.Unset
	}
	return s.route[i]
}

// LastHop returns the final hop of the route, or [probe.Unset] without route.
func (s *Site) LastHop() netip.Addr {
	return s.Hop(len(s.route) - 1)
}

func (s *Site) String() string {
	return s.prefix.String()
}

// RouteString renders the route one hop per line, missing hops as "Missing".
func (s *Site) RouteString() string {
	var b strings.Builder
	for _, h := range s.route {
		if probe.IsUnset(h) {
			b.WriteString("Missing\n")
			continue
		}
		fmt.Fprintln(&b, h)
	}
	return b.String()
}

// Compare orders sites by network address, then by prefix length.
func Compare(a, b *Site) int {
	if c := a.prefix.Addr().Compare(b.prefix.Addr()); c != 0 {
		return c
	}
	return cmp.Compare(a.prefix.Bits(), b.prefix.Bits())
}
