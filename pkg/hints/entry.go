// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package hints

import (
	"net/netip"
	"slices"
	"time"
)

const (
	// NoKnownTTL is the TTL of an entry whose distance was never measured.
	NoKnownTTL uint8 = 255
	// DefaultTimeout is the preferred timeout of a new entry.
	DefaultTimeout = 2500 * time.Millisecond
	// MinArity is the smallest amount of IP-ID samples collected per interface.
	MinArity = 2
	// DefaultArity is the amount of IP-ID samples collected per interface if not configured.
	DefaultArity = 4
)

// CounterType classifies the behavior of an interface's IP identifier counter.
type CounterType int

const (
	CounterUnknown CounterType = iota
	CounterHealthy
	CounterRandom
	CounterEcho
)

func (c CounterType) String() string {
	switch c {
	case CounterHealthy:
		return "Healthy"
	case CounterRandom:
		return "Random"
	case CounterEcho:
		return "Echo"
	default:
		return "Unknown"
	}
}

// Entry holds what is known about one interface and serves as input for alias inference.
type Entry struct {
	// Addr is the address of the interface.
	Addr netip.Addr
	// TTL is the smallest hop count measured towards the interface.
	TTL uint8
	// PreferredTimeout is the timeout that worked best for this interface.
	PreferredTimeout time.Duration
	// Hostname is the name returned by a reverse DNS lookup.
	Hostname string
	// Counter is the classification of the IP-ID counter.
	Counter CounterType
	// PreAliases are addresses believed to be aliases of this interface before alias inference.
	PreAliases []netip.Addr

	hopCounts []uint8
	tokens    []uint64
	ipids     []uint16
	echoes    []bool
	delays    []time.Duration
}

// NewEntry creates an entry with room for arity IP-ID samples. arity is raised to [MinArity].
func NewEntry(addr netip.Addr, arity int) *Entry {
	arity = max(arity, MinArity)
	return &Entry{
		Addr:             addr,
		TTL:              NoKnownTTL,
		PreferredTimeout: DefaultTimeout,
		tokens:           make([]uint64, arity),
		ipids:            make([]uint16, arity),
		echoes:           make([]bool, arity),
		delays:           make([]time.Duration, arity-1),
	}
}

// Arity returns the amount of token/IP-ID pairs of the entry.
func (e *Entry) Arity() int {
	return len(e.ipids)
}

// RecordHopCount records a measured hop count. A smaller value becomes the entry's TTL and is
// kept first in the history, a larger one is appended.
func (e *Entry) RecordHopCount(hopCount uint8) {
	if hopCount == 0 || hopCount == NoKnownTTL || e.HasHopCount(hopCount) {
		return
	}
	if hopCount < e.TTL {
		e.hopCounts = slices.Insert(e.hopCounts, 0, hopCount)
		e.TTL = hopCount
		return
	}
	e.hopCounts = append(e.hopCounts, hopCount)
}

// HopCounts returns the history of measured hop counts.
func (e *Entry) HopCounts() []uint8 {
	return slices.Clone(e.hopCounts)
}

// HasHopCount reports whether the hop count was ever recorded.
func (e *Entry) HasHopCount(hopCount uint8) bool {
	return slices.Contains(e.hopCounts, hopCount)
}

// SetSample stores the i-th token/IP-ID pair. Out of range indexes are ignored.
func (e *Entry) SetSample(i int, token uint64, ipid uint16, echo bool) {
	if i < 0 || i >= len(e.ipids) {
		return
	}
	e.tokens[i], e.ipids[i], e.echoes[i] = token, ipid, echo
}

// SetDelay stores the delay between the i-th and the (i+1)-th sample.
func (e *Entry) SetDelay(i int, d time.Duration) {
	if i < 0 || i >= len(e.delays) {
		return
	}
	e.delays[i] = d
}

// Sample returns the i-th token/IP-ID pair.
func (e *Entry) Sample(i int) (token uint64, ipid uint16) {
	return e.tokens[i], e.ipids[i]
}

// Delay returns the delay between the i-th and the (i+1)-th sample.
func (e *Entry) Delay(i int) time.Duration {
	return e.delays[i]
}

// Echo reports whether the i-th reply echoed the IP-ID of its probe.
func (e *Entry) Echo(i int) bool {
	return e.echoes[i]
}

// HasIPIDData reports whether every sample and every delay was collected.
func (e *Entry) HasIPIDData() bool {
	for i := range e.ipids {
		if e.tokens[i] == 0 || e.ipids[i] == 0 {
			return false
		}
	}
	return !slices.Contains(e.delays, 0)
}

// HasSafeIPIDData reports whether no two consecutive IP-IDs are equal.
// A counter that did not move cannot be used to estimate a velocity.
func (e *Entry) HasSafeIPIDData() bool {
	for i := 1; i < len(e.ipids); i++ {
		if e.ipids[i] == e.ipids[i-1] {
			return false
		}
	}
	return true
}

// UsableIPID returns the first sample if the entry carries complete and safe IP-ID data.
func (e *Entry) UsableIPID() (token uint64, ipid uint16, ok bool) {
	if !e.HasIPIDData() || !e.HasSafeIPIDData() {
		return 0, 0, false
	}
	return e.tokens[0], e.ipids[0], true
}

// HasDNS reports whether a host name is known.
func (e *Entry) HasDNS() bool {
	return e.Hostname != ""
}

// HasPreAliases reports whether pre-aliases are known.
func (e *Entry) HasPreAliases() bool {
	return len(e.PreAliases) > 0
}

// Classify derives the counter type from the samples: all replies echoing the probe's IP-ID
// make an echo counter, fewer than two decreasing steps a healthy one, anything else a random one.
func (e *Entry) Classify() CounterType {
	if !e.HasIPIDData() {
		e.Counter = CounterUnknown
		return e.Counter
	}

	if !slices.Contains(e.echoes, false) {
		e.Counter = CounterEcho
		return e.Counter
	}

	negative := 0
	for i := 1; i < len(e.ipids); i++ {
		if e.ipids[i-1] > e.ipids[i] {
			negative++
		}
	}
	if negative < 2 {
		e.Counter = CounterHealthy
	} else {
		e.Counter = CounterRandom
	}
	return e.Counter
}

// Reset clears the collected alias hints but keeps the distance information.
func (e *Entry) Reset() {
	e.clearSamples()
	e.Hostname = ""
	e.Counter = CounterUnknown
}

func (e *Entry) clearSamples() {
	clear(e.tokens)
	clear(e.ipids)
	clear(e.echoes)
	clear(e.delays)
}
