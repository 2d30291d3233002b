// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package alias

import (
	"encoding/json"
	"net/netip"
	"slices"
	"strings"
)

// Method is the alias resolution technique that placed an interface in its router.
type Method int

const (
	NotAliased Method = iota
	FirstIP
	UDPPortUnreachable
	Ally
	IPIDVelocity
	ReverseDNS
	GroupEcho
	GroupEchoDNS
	GroupRandom
	GroupRandomDNS
)

var methodNames = [...]string{
	NotAliased:         "Not aliased",
	FirstIP:            "First IP",
	UDPPortUnreachable: "UDP unreachable port",
	Ally:               "Ally",
	IPIDVelocity:       "IP-ID Velocity",
	ReverseDNS:         "Reverse DNS",
	GroupEcho:          "Echo group",
	GroupEchoDNS:       "Echo group & DNS",
	GroupRandom:        "Random group",
	GroupRandomDNS:     "Random group & DNS",
}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return methodNames[NotAliased]
	}
	return methodNames[m]
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Interface is an address of a router and the method that associated it.
type Interface struct {
	Addr   netip.Addr `json:"addr" yaml:"addr"`
	Method Method     `json:"method" yaml:"method"`
}

// Router is a set of interfaces believed to belong to the same device.
// Interfaces are kept ordered by address and never repeat.
type Router struct {
	interfaces []Interface
}

// NewRouter creates a router from the given interfaces.
func NewRouter(ifaces ...Interface) Router {
	var r Router
	for _, i := range ifaces {
		r.Add(i.Addr, i.Method)
	}
	return r
}

// Add inserts the interface. An address already present keeps its method.
func (r *Router) Add(addr netip.Addr, method Method) {
	i, found := slices.BinarySearchFunc(r.interfaces, addr, func(e Interface, a netip.Addr) int {
		return e.Addr.Compare(a)
	})
	if found {
		return
	}
	r.interfaces = slices.Insert(r.interfaces, i, Interface{Addr: addr, Method: method})
}

// Interfaces returns a copy of the router's interfaces.
func (r Router) Interfaces() []Interface {
	return slices.Clone(r.interfaces)
}

// Addrs returns the ordered addresses of the router.
func (r Router) Addrs() []netip.Addr {
	res := make([]netip.Addr, len(r.interfaces))
	for i, e := range r.interfaces {
		res[i] = e.Addr
	}
	return res
}

// Len returns the amount of interfaces.
func (r Router) Len() int {
	return len(r.interfaces)
}

// HasInterface reports whether the address belongs to the router.
func (r Router) HasInterface(addr netip.Addr) bool {
	_, found := slices.BinarySearchFunc(r.interfaces, addr, func(e Interface, a netip.Addr) int {
		return e.Addr.Compare(a)
	})
	return found
}

// Equal reports whether both routers hold the same addresses, whatever the methods.
func (r Router) Equal(o Router) bool {
	return slices.EqualFunc(r.interfaces, o.interfaces, func(a, b Interface) bool {
		return a.Addr == b.Addr
	})
}

// Compare orders routers by amount of interfaces, then by their addresses.
func Compare(a, b Router) int {
	if c := len(a.interfaces) - len(b.interfaces); c != 0 {
		return c
	}
	return slices.CompareFunc(a.interfaces, b.interfaces, func(x, y Interface) int {
		return x.Addr.Compare(y.Addr)
	})
}

// String lists the addresses separated by spaces.
func (r Router) String() string {
	s := make([]string, len(r.interfaces))
	for i, e := range r.interfaces {
		s[i] = e.Addr.String()
	}
	return strings.Join(s, " ")
}

// Verbose lists the addresses together with their methods.
func (r Router) Verbose() string {
	s := make([]string, len(r.interfaces))
	for i, e := range r.interfaces {
		s[i] = e.Addr.String() + " (" + e.Method.String() + ")"
	}
	return strings.Join(s, ", ")
}

func (r Router) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Interfaces []Interface `json:"interfaces"`
	}{Interfaces: r.interfaces})
}
