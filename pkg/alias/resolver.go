// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package alias

import (
	"context"
	"net/netip"
	"slices"
	"strings"

	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/pkg/hints"
)

const (
	// MaxIPIDDifference is the largest IP-ID distance for which two interfaces are associated
	// when the set shows no larger gap.
	MaxIPIDDifference = 50
	// NoAssociationThreshold is the smallest IP-ID gap above which IP-IDs carry no signal.
	NoAssociationThreshold = 250

	initialGap = 65335
)

// Gap returns the distance between two IP identifiers, going around the 16 bit boundary
// when that is shorter. Every pair may wrap, not only those further apart than 65535 minus
// the largest accepted difference.
func Gap(a, b uint16) int {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return min(d, 65535-d)
}

// Resolver groups interfaces into routers with the hints of an IP dictionary.
type Resolver struct {
	table *hints.Table
}

// NewResolver creates a resolver reading hints from table. A nil table means no hints.
func NewResolver(table *hints.Table) *Resolver {
	return &Resolver{table: table}
}

// candidate is an interface together with the hints usable for alias inference.
type candidate struct {
	addr     netip.Addr
	hostname string
	token    uint64
	ipid     uint16
	hasIPID  bool
}

func (r *Resolver) candidate(addr netip.Addr) candidate {
	c := candidate{addr: addr}
	if r.table == nil {
		return c
	}
	e, ok := r.table.LookUp(addr)
	if !ok {
		return c
	}
	c.hostname = e.Hostname
	c.token, c.ipid, c.hasIPID = e.UsableIPID()
	return c
}

// Infer partitions the interfaces into routers. labels are the labels of the node the
// interfaces belong to and oddMembers the live interfaces of its ODD subnets: a router
// made of a single such interface that is not a label is dropped. Interfaces without any
// hint are left out unless no hint is usable at all, in which case every interface becomes
// its own router.
func (r *Resolver) Infer(ctx context.Context, ips, labels, oddMembers []netip.Addr) []Router {
	log := logger.FromContext(ctx)

	ips = slices.Clone(ips)
	slices.SortFunc(ips, netip.Addr.Compare)
	ips = slices.Compact(ips)
	if len(ips) == 0 {
		return nil
	}

	cands := make([]candidate, len(ips))
	for i, a := range ips {
		cands[i] = r.candidate(a)
	}

	smallestGap, noHostNames := initialGap, true
	for i := range cands {
		for j := i + 1; j < len(cands); j++ {
			if cands[i].hostname != "" && cands[j].hostname != "" {
				noHostNames = false
			}
			if cands[i].hasIPID && cands[j].hasIPID {
				smallestGap = min(smallestGap, Gap(cands[i].ipid, cands[j].ipid))
			}
		}
	}

	var routers []Router
	if noHostNames && smallestGap > NoAssociationThreshold {
		log.DebugContext(ctx, "No usable alias signal, one router per interface", "interfaces", len(ips), "gap", smallestGap)
		for _, c := range cands {
			routers = append(routers, NewRouter(Interface{Addr: c.addr, Method: NotAliased}))
		}
		return prune(routers, labels, oddMembers)
	}

	delta := MaxIPIDDifference
	if smallestGap > delta {
		delta = smallestGap + 5*(smallestGap/MaxIPIDDifference)
	}
	tokenDelta := uint64(len(cands))

	// interfaces with a host name seed routers first
	pending := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if c.hostname != "" {
			pending = append(pending, c)
		}
	}
	for _, c := range cands {
		if c.hostname == "" {
			pending = append(pending, c)
		}
	}

	for len(pending) > 0 {
		seed := pending[0]
		pending = pending[1:]
		if !seed.hasIPID && seed.hostname == "" {
			continue
		}

		router := NewRouter(Interface{Addr: seed.addr, Method: FirstIP})
		pending = slices.DeleteFunc(pending, func(c candidate) bool {
			m, ok := associate(seed, c, delta, tokenDelta)
			if ok {
				router.Add(c.addr, m)
			}
			return ok
		})
		routers = append(routers, router)
	}

	log.DebugContext(ctx, "Inferred routers", "interfaces", len(ips), "routers", len(routers), "gap", smallestGap, "delta", delta)
	return prune(routers, labels, oddMembers)
}

// associate tells whether c belongs to the router seeded by seed and with which method.
// Host names are compared when both are known, IP-IDs otherwise.
func associate(seed, c candidate, delta int, tokenDelta uint64) (Method, bool) {
	if seed.hostname != "" && c.hostname != "" {
		return ReverseDNS, sameDomain(seed.hostname, c.hostname)
	}
	if !seed.hasIPID || !c.hasIPID {
		return NotAliased, false
	}

	tokens := seed.token - c.token
	if c.token > seed.token {
		tokens = c.token - seed.token
	}
	return IPIDVelocity, tokens <= tokenDelta && Gap(seed.ipid, c.ipid) <= delta
}

// sameDomain compares host names from the top level domain down. Names with the same
// amount of labels match when at most their first label differs.
func sameDomain(a, b string) bool {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	if len(as) != len(bs) {
		return false
	}
	slices.Reverse(as)
	slices.Reverse(bs)

	similar := 0
	for i := range as {
		if as[i] != bs[i] {
			break
		}
		similar++
	}
	return similar >= len(as)-1
}

// prune drops single interface routers whose interface is a live member of an ODD subnet,
// unless that interface is a label.
func prune(routers []Router, labels, oddMembers []netip.Addr) []Router {
	return slices.DeleteFunc(routers, func(r Router) bool {
		if r.Len() != 1 {
			return false
		}
		a := r.interfaces[0].Addr
		return slices.Contains(oddMembers, a) && !slices.Contains(labels, a)
	})
}
