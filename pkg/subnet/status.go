// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package subnet

import (
	"fmt"
	"strings"
)

// Status is the refinement status of a subnet.
type Status int

const (
	// StatusUndefined is a subnet that was never refined.
	StatusUndefined Status = iota
	// StatusAccurate is a subnet with a contra-pivot at the expected distance.
	StatusAccurate
	// StatusOdd is a subnet whose contra-pivots are spread over several hops.
	StatusOdd
	// StatusShadow is a subnet whose members all share the same TTL, no contra-pivot was found.
	StatusShadow
	// StatusIncomplete is a subnet whose refinement stopped early.
	StatusIncomplete
)

var statusNames = map[Status]string{
	StatusUndefined:  "UNDEFINED",
	StatusAccurate:   "ACCURATE",
	StatusOdd:        "ODD",
	StatusShadow:     "SHADOW",
	StatusIncomplete: "INCOMPLETE",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// IsTreeLeaf reports whether subnets with this status can be inserted in a network tree.
func (s Status) IsTreeLeaf() bool {
	return s == StatusAccurate || s == StatusOdd || s == StatusShadow
}

// HasContraPivot reports whether subnets with this status list their contra-pivots at the shortest TTL.
func (s Status) HasContraPivot() bool {
	return s == StatusAccurate || s == StatusOdd
}

// ParseStatus parses a status name, case insensitive.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return StatusUndefined, fmt.Errorf("unknown subnet status %q", name)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
