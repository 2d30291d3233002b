// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"time"

	"github.com/telekom/canopy/pkg/hints"
	"github.com/telekom/canopy/pkg/subnet"
)

// Dataset is the input of a run: the subnets inferred by a previous scan and what is
// already known about the interfaces seen during that scan.
type Dataset struct {
	Subnets    []SubnetRecord    `json:"subnets" yaml:"subnets"`
	Dictionary []InterfaceRecord `json:"dictionary,omitempty" yaml:"dictionary,omitempty"`
}

// SubnetRecord describes one subnet of the dataset.
type SubnetRecord struct {
	Prefix  netip.Prefix    `json:"prefix" yaml:"prefix"`
	Status  subnet.Status   `json:"status" yaml:"status"`
	Members []subnet.Member `json:"members" yaml:"members"`
}

// InterfaceRecord describes what is known about one interface.
type InterfaceRecord struct {
	Addr       netip.Addr    `json:"addr" yaml:"addr"`
	TTL        uint8         `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Hostname   string        `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	PreAliases []netip.Addr  `json:"preAliases,omitempty" yaml:"preAliases,omitempty"`
}

// Validate checks every subnet record. All errors are returned joined.
func (d *Dataset) Validate() error {
	if len(d.Subnets) == 0 {
		return ErrEmpty
	}

	var err error
	for i, r := range d.Subnets {
		if vErr := r.Validate(); vErr != nil {
			err = errors.Join(err, fmt.Errorf("subnet %d: %w", i, vErr))
		}
	}
	return err
}

// Validate checks that the prefix is an IPv4 prefix containing every member.
func (r *SubnetRecord) Validate() error {
	if !r.Prefix.IsValid() || !r.Prefix.Addr().Is4() {
		return fmt.Errorf("%w: prefix %q is not an IPv4 prefix", ErrInvalidSubnet, r.Prefix)
	}
	for _, m := range r.Members {
		if !r.Prefix.Contains(m.Addr) {
			return fmt.Errorf("%w: member %s is outside of %s", ErrInvalidSubnet, m.Addr, r.Prefix)
		}
		if m.TTL == 0 {
			return fmt.Errorf("%w: member %s has no TTL", ErrInvalidSubnet, m.Addr)
		}
	}
	return nil
}

// Sites creates the subnets of the dataset, sorted.
func (d *Dataset) Sites() []*subnet.Site {
	sites := make([]*subnet.Site, 0, len(d.Subnets))
	for _, r := range d.Subnets {
		sites = append(sites, subnet.New(r.Prefix, r.Status, r.Members))
	}
	slices.SortFunc(sites, subnet.Compare)
	return sites
}

// Table creates an IP dictionary holding the interface records. Records for the same
// address are merged: the smallest hop count becomes the TTL, other fields are taken from
// the last record setting them.
func (d *Dataset) Table(arity int) *hints.Table {
	table := hints.NewTable(arity)
	for _, r := range d.Dictionary {
		if !r.Addr.IsValid() {
			continue
		}
		e, _ := table.Create(r.Addr)
		e.RecordHopCount(r.TTL)
		if r.Timeout > 0 {
			e.PreferredTimeout = r.Timeout
		}
		if r.Hostname != "" {
			e.Hostname = r.Hostname
		}
		if len(r.PreAliases) > 0 {
			e.PreAliases = slices.Clone(r.PreAliases)
		}
	}
	return table
}
