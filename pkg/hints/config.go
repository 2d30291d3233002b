// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package hints

import (
	"errors"
	"fmt"
	"time"

	"github.com/telekom/canopy/internal/helper"
)

// Config configures the collection of alias hints.
type Config struct {
	// Enabled activates hint collection. Without hints every interface becomes its own router.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	// Arity is the amount of IP-ID samples collected per interface.
	Arity int `json:"arity" yaml:"arity" mapstructure:"arity"`
	// Workers is the amount of interfaces probed in parallel.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
	// DNS configures the reverse lookups.
	DNS DNSConfig `json:"dns" yaml:"dns" mapstructure:"dns"`
}

// DNSConfig configures the reverse DNS resolver.
type DNSConfig struct {
	// Enabled activates reverse lookups.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	// Server is the resolver address as host:port. Empty uses the system resolver from /etc/resolv.conf.
	Server string `json:"server" yaml:"server" mapstructure:"server"`
	// Timeout bounds a single query.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	// CacheTTL is how long a resolved name is kept.
	CacheTTL time.Duration `json:"cacheTTL" yaml:"cacheTTL" mapstructure:"cacheTTL"`
	// Retry configures retries of failed queries.
	Retry helper.RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`
}

// Validate checks the hint configuration.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var err error
	if c.Arity < MinArity {
		err = errors.Join(err, fmt.Errorf("hint arity must be at least %d, got %d", MinArity, c.Arity))
	}
	if c.Workers < 1 {
		err = errors.Join(err, fmt.Errorf("hint workers must be at least 1, got %d", c.Workers))
	}
	if c.DNS.Enabled && c.DNS.Timeout <= 0 {
		err = errors.Join(err, fmt.Errorf("dns timeout must be positive, got %s", c.DNS.Timeout))
	}
	return err
}
