// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

const (
	// mtuSize is the maximum size of a packet read from the socket.
	mtuSize = 1500
	// protocolICMP is the IANA protocol number of ICMP for IPv4.
	protocolICMP = 1
	// flowWordLen is the length of the payload word balancing the checksum of fixed flow probes.
	flowWordLen = 2
	// optionRecordRoute is the IPv4 record route option type.
	optionRecordRoute = 7
	// recordRouteLen is the length of a record route option with room for nine addresses.
	recordRouteLen = 3 + maxRecordedRouteEntries*net.IPv4len
	// recordRouteFirstSlot is the pointer of an empty record route option.
	recordRouteFirstSlot = 4
)

var (
	_ Prober  = (*icmpProber)(nil)
	_ Factory = NewICMPProber
)

// icmpProber sends ICMP echo requests over a raw IPv4 socket with a hand built IP header,
// which gives control over the TTL and the IP identifier of every probe.
type icmpProber struct {
	cfg     Config
	conn    *ipv4.RawConn
	timeout time.Duration
	// id and seq are the identifier and sequence number of the last probe.
	id  uint16
	seq uint16
	// ipid is the IP identifier of the last probe.
	ipid uint16
}

// NewICMPProber opens a raw ICMP socket and returns a prober using it.
// Returns [ErrNotPermitted] if the process lacks the capabilities to do so.
func NewICMPProber(cfg Config) (Prober, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid prober configuration: %w", err)
	}

	c, err := net.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return nil, ErrNotPermitted
		}
		return nil, fmt.Errorf("failed to open raw ICMP socket: %w", err)
	}

	conn, err := ipv4.NewRawConn(c)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to create raw IPv4 connection: %w", err)
	}

	return &icmpProber{
		cfg:     cfg,
		conn:    conn,
		timeout: cfg.Timeout,
		id:      cfg.LowerID,
		seq:     cfg.LowerSeq - 1,
		ipid:    cfg.LowerID,
	}, nil
}

func (p *icmpProber) Timeout() time.Duration {
	return p.timeout
}

func (p *icmpProber) SetTimeout(d time.Duration) {
	p.timeout = d
}

func (p *icmpProber) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *icmpProber) DoubleProbe(ctx context.Context, src, dst netip.Addr, ttl uint8, fixedFlow bool) (Record, error) {
	first, err := p.SingleProbe(ctx, src, dst, ttl, fixedFlow)
	if err != nil || !first.Anonymous() {
		return first, err
	}

	second, err := p.SingleProbe(ctx, src, dst, ttl, fixedFlow)
	second.Cost += first.Cost
	return second, err
}

func (p *icmpProber) SingleProbe(ctx context.Context, src, dst netip.Addr, ttl uint8, fixedFlow bool) (Record, error) {
	rec := NewRecord(dst, ttl, fixedFlow)
	if p.conn == nil {
		return rec, ErrClosed
	}

	id, seq := p.nextFlow(fixedFlow)
	p.ipid++
	rec.SrcIPID = p.ipid

	wb, err := marshalEcho(id, seq, p.cfg.AttentionMessage, fixedFlow)
	if err != nil {
		return rec, sendError(err)
	}

	h := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		ID:       int(p.ipid),
		TTL:      int(ttl),
		Protocol: protocolICMP,
		Dst:      net.IP(dst.AsSlice()),
	}
	if p.cfg.RecordRoute {
		h.Options = recordRouteOption()
		h.Len += len(h.Options)
	}
	h.TotalLen = h.Len + len(wb)
	if !IsUnset(src) {
		h.Src = net.IP(src.AsSlice())
	}

	rec.RequestTime = time.Now()
	if err = p.conn.WriteTo(h, wb, nil); err != nil {
		return rec, sendError(err)
	}

	rec, err = p.awaitReply(ctx, rec, id, seq)
	if err != nil {
		return rec, err
	}

	return rec, p.pause(ctx)
}

// awaitReply reads from the socket until a reply matching the probe arrives or the timeout expires.
// A timeout returns the anonymous record without error.
func (p *icmpProber) awaitReply(ctx context.Context, rec Record, id, seq uint16) (Record, error) {
	deadline := rec.RequestTime.Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.conn.SetReadDeadline(deadline); err != nil {
		return rec, receiveError(err)
	}

	buf := make([]byte, mtuSize)
	for {
		if err := ctx.Err(); err != nil {
			return rec, err
		}

		rh, payload, _, err := p.conn.ReadFrom(buf)
		if err != nil {
			var nErr net.Error
			if errors.As(err, &nErr) && nErr.Timeout() {
				return rec, nil
			}
			return rec, receiveError(err)
		}

		r, err := parseReply(payload)
		if err != nil || r.id != id || r.seq != seq {
			continue
		}

		reply, ok := netip.AddrFromSlice(rh.Src)
		if !ok {
			continue
		}
		rec.Reply = reply.Unmap()
		rec.ReplyTime = time.Now()
		rec.ReplyTTL = uint8(rh.TTL)  // #nosec G115 // TTL is a single byte on the wire
		rec.ReplyIPID = uint16(rh.ID) // #nosec G115 // ID is two bytes on the wire
		rec.ICMPType = r.icmpType
		rec.ICMPCode = r.icmpCode
		rec.PayloadTTL = r.payloadTTL
		rec.PayloadLength = r.payloadLength
		if route := parseRecordRoute(rh.Options); len(route) > 0 {
			rec = rec.WithRecordedRoute(route)
		}
		return rec, nil
	}
}

func (p *icmpProber) pause(ctx context.Context) error {
	if p.cfg.Pause <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.cfg.Pause):
		return nil
	}
}

// nextFlow returns the identifier and sequence number of the next probe.
// Fixed flow probes keep the identifier, varying probes walk through the identifier range.
func (p *icmpProber) nextFlow(fixedFlow bool) (id, seq uint16) {
	p.seq = next(p.seq, p.cfg.LowerSeq, p.cfg.UpperSeq)
	if fixedFlow {
		return p.cfg.LowerID, p.seq
	}
	p.id = next(p.id, p.cfg.LowerID, p.cfg.UpperID)
	return p.id, p.seq
}

func next(cur, lower, upper uint16) uint16 {
	if cur < lower || cur >= upper {
		return lower
	}
	return cur + 1
}

// marshalEcho builds an ICMP echo request. The first payload word balances the sequence number
// for fixed flow probes so that the ICMP checksum, which load balancers hash, stays constant.
func marshalEcho(id, seq uint16, attention string, fixedFlow bool) ([]byte, error) {
	data := make([]byte, flowWordLen+len(attention))
	if fixedFlow {
		binary.BigEndian.PutUint16(data, ^seq)
	}
	copy(data[flowWordLen:], attention)

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: int(id), Seq: int(seq), Data: data},
	}
	return msg.Marshal(nil)
}

// reply holds the fields of an ICMP message relevant to match it to a probe.
type reply struct {
	icmpType      uint8
	icmpCode      uint8
	id            uint16
	seq           uint16
	payloadTTL    uint8
	payloadLength uint16
}

// parseReply parses an ICMP message received in response to an echo request.
// For ICMP errors the identifier and sequence number are taken from the quoted echo request.
func parseReply(b []byte) (reply, error) {
	msg, err := icmp.ParseMessage(protocolICMP, b)
	if err != nil {
		return reply{}, fmt.Errorf("failed to parse ICMP message: %w", err)
	}

	t, ok := msg.Type.(ipv4.ICMPType)
	if !ok {
		return reply{}, fmt.Errorf("unexpected ICMP message type: %v", msg.Type)
	}
	r := reply{icmpType: uint8(t), icmpCode: uint8(msg.Code)} // #nosec G115 // single bytes on the wire

	var quoted []byte
	switch body := msg.Body.(type) {
	case *icmp.Echo:
		if t != ipv4.ICMPTypeEchoReply {
			return reply{}, fmt.Errorf("unexpected echo message type: %v", t)
		}
		r.id, r.seq = uint16(body.ID), uint16(body.Seq) // #nosec G115 // two bytes on the wire
		return r, nil
	case *icmp.TimeExceeded:
		quoted = body.Data
	case *icmp.DstUnreach:
		quoted = body.Data
	case *icmp.ParamProb:
		quoted = body.Data
	default:
		return reply{}, fmt.Errorf("unsupported ICMP message type: %v", t)
	}

	return parseQuote(r, quoted)
}

// parseQuote extracts the original probe from the datagram quoted in an ICMP error.
func parseQuote(r reply, quoted []byte) (reply, error) {
	if len(quoted) < ipv4.HeaderLen {
		return reply{}, fmt.Errorf("quoted datagram too short: %d bytes", len(quoted))
	}
	ihl := int(quoted[0]&0x0f) << 2
	// The quote must contain the echo header: type, code, checksum, identifier and sequence.
	if ihl < ipv4.HeaderLen || len(quoted) < ihl+8 {
		return reply{}, fmt.Errorf("quoted datagram truncated: %d bytes", len(quoted))
	}
	if quoted[9] != protocolICMP {
		return reply{}, fmt.Errorf("quoted datagram is not ICMP: protocol %d", quoted[9])
	}

	r.payloadTTL = quoted[8]
	r.payloadLength = binary.BigEndian.Uint16(quoted[2:4])
	echo := quoted[ihl:]
	r.id = binary.BigEndian.Uint16(echo[4:6])
	r.seq = binary.BigEndian.Uint16(echo[6:8])
	return r, nil
}

// recordRouteOption returns an empty record route option padded to a multiple of four bytes.
func recordRouteOption() []byte {
	opt := make([]byte, recordRouteLen+1)
	opt[0] = optionRecordRoute
	opt[1] = recordRouteLen
	opt[2] = recordRouteFirstSlot
	return opt
}

// parseRecordRoute returns the addresses filled into the record route option, if any.
func parseRecordRoute(opts []byte) []netip.Addr {
	for i := 0; i < len(opts); {
		switch opts[i] {
		case 0: // end of options
			return nil
		case 1: // no operation
			i++
			continue
		}
		if i+1 >= len(opts) {
			return nil
		}
		l := int(opts[i+1])
		if l < 2 || i+l > len(opts) {
			return nil
		}
		if opts[i] == optionRecordRoute && l >= 3 {
			return recordedAddrs(opts[i:i+l], int(opts[i+2]))
		}
		i += l
	}
	return nil
}

// recordedAddrs reads the addresses before the pointer of a record route option.
func recordedAddrs(opt []byte, ptr int) []netip.Addr {
	end := min(ptr-1, len(opt))
	var route []netip.Addr
	for j := recordRouteFirstSlot - 1; j+net.IPv4len <= end; j += net.IPv4len {
		route = append(route, netip.AddrFrom4([4]byte(opt[j:j+net.IPv4len])))
	}
	return route
}
