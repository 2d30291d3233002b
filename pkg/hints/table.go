// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package hints

import (
	"net/netip"
	"slices"
	"sync"
)

// Table is the IP dictionary: one entry per interface address.
// It is safe for concurrent use; entries themselves are not.
type Table struct {
	mu      sync.RWMutex
	entries map[netip.Addr]*Entry
	arity   int
}

// NewTable creates an empty dictionary whose entries collect arity IP-ID samples.
func NewTable(arity int) *Table {
	return &Table{
		entries: make(map[netip.Addr]*Entry),
		arity:   max(arity, MinArity),
	}
}

// Arity returns the amount of IP-ID samples collected per entry.
func (t *Table) Arity() int {
	return t.arity
}

// LookUp returns the entry of the address, if any.
func (t *Table) LookUp(addr netip.Addr) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[addr]
	return e, ok
}

// Create adds a new entry for the address. If the address is already known the
// existing entry is returned together with false.
func (t *Table) Create(addr netip.Addr) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[addr]; ok {
		return e, false
	}
	e := NewEntry(addr, t.arity)
	t.entries[addr] = e
	return e, true
}

// Len returns the amount of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Entries returns all entries ordered by address.
func (t *Table) Entries() []*Entry {
	t.mu.RLock()
	res := make([]*Entry, 0, len(t.entries))
	for _, e := range t.entries {
		res = append(res, e)
	}
	t.mu.RUnlock()

	slices.SortFunc(res, func(a, b *Entry) int { return a.Addr.Compare(b.Addr) })
	return res
}

// Reset clears the alias hints of every entry, distances are kept.
func (t *Table) Reset() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		e.Reset()
	}
}
