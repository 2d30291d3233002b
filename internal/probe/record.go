// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"
)

// ICMP types relevant for route discovery and alias hints.
const (
	ICMPTypeEchoReply      uint8 = 0
	ICMPTypeDstUnreachable uint8 = 3
	ICMPTypeTimeExceeded   uint8 = 11
	// ICMPNone marks the type and code of a record without reply.
	ICMPNone uint8 = 255
)

const (
	defaultCost             = 1
	maxRecordedRouteEntries = 9
)

// Unset is the zero-address sentinel used for anonymous replies and missing route hops.
var Unset = netip.IPv4Unspecified()

// IsUnset reports whether the address is the sentinel or not initialized at all.
func IsUnset(a netip.Addr) bool {
	return !a.IsValid() || a.IsUnspecified()
}

// Record describes the outcome of a single probe.
// A Record is not modified after the prober returns it.
type Record struct {
	// Dst is the probed destination.
	Dst netip.Addr `json:"dst" yaml:"dst"`
	// Reply is the address that answered, [Unset] if nothing did.
	Reply netip.Addr `json:"reply" yaml:"reply"`
	// RequestTime is the time the probe was sent.
	RequestTime time.Time `json:"requestTime" yaml:"requestTime"`
	// ReplyTime is the time the reply was received.
	ReplyTime time.Time `json:"replyTime" yaml:"replyTime"`
	// RequestTTL is the TTL set on the probe.
	RequestTTL uint8 `json:"requestTTL" yaml:"requestTTL"`
	// ReplyTTL is the TTL of the reply's IP header.
	ReplyTTL uint8 `json:"replyTTL" yaml:"replyTTL"`
	// ICMPType is the type of the reply, [ICMPNone] without reply.
	ICMPType uint8 `json:"icmpType" yaml:"icmpType"`
	// ICMPCode is the code of the reply, [ICMPNone] without reply.
	ICMPCode uint8 `json:"icmpCode" yaml:"icmpCode"`
	// SrcIPID is the IP identifier set on the probe.
	SrcIPID uint16 `json:"srcIPID" yaml:"srcIPID"`
	// ReplyIPID is the IP identifier of the reply.
	ReplyIPID uint16 `json:"replyIPID" yaml:"replyIPID"`
	// PayloadTTL is the TTL of the probe as quoted inside an ICMP error.
	PayloadTTL uint8 `json:"payloadTTL" yaml:"payloadTTL"`
	// PayloadLength is the length of the quoted payload.
	PayloadLength uint16 `json:"payloadLength" yaml:"payloadLength"`
	// Cost is the amount of probes sent to obtain this record.
	Cost int `json:"cost" yaml:"cost"`
	// FixedFlow is true if the probe kept the flow identifier constant.
	FixedFlow bool `json:"fixedFlow" yaml:"fixedFlow"`
	// RecordedRoute holds the addresses of the record route option, if any.
	RecordedRoute []netip.Addr `json:"recordedRoute,omitempty" yaml:"recordedRoute,omitempty"`
}

// NewRecord returns a record for a probe sent towards dst that has no reply yet.
func NewRecord(dst netip.Addr, ttl uint8, fixedFlow bool) Record {
	return Record{
		Dst:        dst,
		Reply:      Unset,
		RequestTTL: ttl,
		ICMPType:   ICMPNone,
		ICMPCode:   ICMPNone,
		Cost:       defaultCost,
		FixedFlow:  fixedFlow,
	}
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	c.RecordedRoute = slices.Clone(r.RecordedRoute)
	return c
}

// WithRecordedRoute returns a copy of the record owning the given route.
// Routes longer than the IP option allows are truncated.
func (r Record) WithRecordedRoute(route []netip.Addr) Record {
	c := r.Clone()
	if len(route) > maxRecordedRouteEntries {
		route = route[:maxRecordedRouteEntries]
	}
	c.RecordedRoute = slices.Clone(route)
	return c
}

// Anonymous reports whether nobody answered the probe.
func (r Record) Anonymous() bool {
	return IsUnset(r.Reply)
}

// EchoReply reports whether the reply is an ICMP echo reply.
func (r Record) EchoReply() bool {
	return !r.Anonymous() && r.ICMPType == ICMPTypeEchoReply
}

// TimeExceeded reports whether the reply is an ICMP time exceeded message.
func (r Record) TimeExceeded() bool {
	return !r.Anonymous() && r.ICMPType == ICMPTypeTimeExceeded
}

// RTT returns the round trip time of the probe, zero for anonymous records.
func (r Record) RTT() time.Duration {
	if r.Anonymous() || r.ReplyTime.Before(r.RequestTime) {
		return 0
	}
	return r.ReplyTime.Sub(r.RequestTime)
}

func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (TTL %d) ", r.Dst, r.RequestTTL)
	if r.Anonymous() {
		b.WriteString("-> *")
		return b.String()
	}
	fmt.Fprintf(&b, "-> %s type %d code %d replyTTL %d ipid %d rtt %s",
		r.Reply, r.ICMPType, r.ICMPCode, r.ReplyTTL, r.ReplyIPID, r.RTT())
	if len(r.RecordedRoute) > 0 {
		rr := make([]string, 0, len(r.RecordedRoute))
		for _, a := range r.RecordedRoute {
			rr = append(rr, a.String())
		}
		fmt.Fprintf(&b, " rr [%s]", strings.Join(rr, " "))
	}
	return b.String()
}
