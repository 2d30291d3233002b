// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"net"
)

// Config is the configuration for the report api
type Config struct {
	// Enabled keeps canopy serving the report after the discovery finished
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ListeningAddress is the address the api listens on, e.g. ":8080"
	ListeningAddress string `yaml:"address" mapstructure:"address"`
}

// Validate checks the listening address of an enabled api.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.ListeningAddress); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return nil
}
