// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"
)

// Default identifier and sequence ranges used by probers when none are configured.
const (
	DefaultLowerID  uint16 = 1
	DefaultUpperID  uint16 = 65535
	DefaultLowerSeq uint16 = 1
	DefaultUpperSeq uint16 = 65535
)

// Prober performs single probes and returns their outcome.
// Implementations are not safe for concurrent use; every task owns its prober.
//
//go:generate go tool moq -out prober_moq.go . Prober
type Prober interface {
	// SingleProbe sends one probe towards dst with the given TTL.
	// A timeout is not an error: the returned record is anonymous.
	// Transport failures wrap [ErrSend] or [ErrReceive].
	SingleProbe(ctx context.Context, src, dst netip.Addr, ttl uint8, fixedFlow bool) (Record, error)
	// DoubleProbe works like SingleProbe but sends a second probe if the first one got no reply.
	DoubleProbe(ctx context.Context, src, dst netip.Addr, ttl uint8, fixedFlow bool) (Record, error)
	// Timeout returns the current reply timeout.
	Timeout() time.Duration
	// SetTimeout sets the reply timeout for subsequent probes.
	SetTimeout(d time.Duration)
	// Close releases the prober's socket.
	Close() error
}

// Factory creates a prober for the given configuration.
type Factory func(cfg Config) (Prober, error)

// Config holds the parameters of a prober.
type Config struct {
	// AttentionMessage is written into the payload of every probe.
	AttentionMessage string `json:"attentionMessage" yaml:"attentionMessage" mapstructure:"attentionMessage"`
	// Timeout is the time to wait for a reply.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	// Pause is the delay between two consecutive probes.
	Pause time.Duration `json:"pause" yaml:"pause" mapstructure:"pause"`
	// LowerID and UpperID bound the ICMP identifiers used by the prober.
	LowerID uint16 `json:"lowerID" yaml:"lowerID" mapstructure:"lowerID"`
	UpperID uint16 `json:"upperID" yaml:"upperID" mapstructure:"upperID"`
	// LowerSeq and UpperSeq bound the ICMP sequence numbers used by the prober.
	LowerSeq uint16 `json:"lowerSeq" yaml:"lowerSeq" mapstructure:"lowerSeq"`
	UpperSeq uint16 `json:"upperSeq" yaml:"upperSeq" mapstructure:"upperSeq"`
	// RecordRoute sets the IP record route option on every echo request.
	RecordRoute bool `json:"recordRoute" yaml:"recordRoute" mapstructure:"recordRoute"`
}

// WithIDRange returns a copy of the config restricted to the given identifier range.
func (c Config) WithIDRange(lower, upper uint16) Config {
	c.LowerID, c.UpperID = lower, upper
	return c
}

// Validate checks the ranges and durations of the config.
func (c Config) Validate() error {
	var err error
	if c.Timeout <= 0 {
		err = errors.Join(err, fmt.Errorf("probe timeout must be positive, got %s", c.Timeout))
	}
	if c.Pause < 0 {
		err = errors.Join(err, fmt.Errorf("probe pause cannot be negative, got %s", c.Pause))
	}
	if c.LowerID > c.UpperID {
		err = errors.Join(err, fmt.Errorf("invalid identifier range [%d, %d]", c.LowerID, c.UpperID))
	}
	if c.LowerSeq > c.UpperSeq {
		err = errors.Join(err, fmt.Errorf("invalid sequence range [%d, %d]", c.LowerSeq, c.UpperSeq))
	}
	return err
}

// SplitIDRange divides the configured identifier range into n consecutive, non overlapping ranges.
// Ranges are returned as [lower, upper] pairs. n is clamped to the width of the range.
func (c Config) SplitIDRange(n int) [][2]uint16 {
	width := int(c.UpperID) - int(c.LowerID) + 1
	if width < 1 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	step := width / n
	ranges := make([][2]uint16, 0, n)
	for i := range n {
		lower := int(c.LowerID) + i*step
		upper := lower + step - 1
		if i == n-1 {
			upper = int(c.UpperID)
		}
		ranges = append(ranges, [2]uint16{uint16(lower), uint16(upper)}) // #nosec G115 // bounded by UpperID
	}
	return ranges
}
