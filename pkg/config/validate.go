// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/telekom/canopy/internal/logger"
)

var dnsName = regexp.MustCompile(`^([a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// Validate validates the startup config
func (c *Config) Validate(ctx context.Context) (err error) {
	log := logger.FromContext(ctx)
	if !isDNSName(c.Name) {
		log.Error("The name of the canopy instance must be DNS compliant")
		err = errors.Join(err, ErrInvalidName)
	}

	if vErr := c.Dataset.Validate(ctx); vErr != nil {
		log.Error("The dataset configuration is invalid")
		err = errors.Join(err, vErr)
	}

	if vErr := c.Probing.Validate(); vErr != nil {
		log.Error("The probing configuration is invalid", "error", vErr)
		err = errors.Join(err, vErr)
	}

	if vErr := c.Hints.Validate(); vErr != nil {
		log.Error("The hints configuration is invalid", "error", vErr)
		err = errors.Join(err, fmt.Errorf("%w: %w", ErrInvalidHints, vErr))
	}

	if c.HasTelemetry() {
		if vErr := c.Telemetry.Validate(ctx); vErr != nil {
			log.Error("The telemetry configuration is invalid")
			err = errors.Join(err, vErr)
		}
	}

	if vErr := c.Api.Validate(); vErr != nil {
		log.Error("The api configuration is invalid")
		err = errors.Join(err, vErr)
	}

	if err != nil {
		return fmt.Errorf("validation of configuration failed: %w", err)
	}
	return nil
}

// Validate validates the probing configuration
func (c *ProbingConfig) Validate() error {
	opts, err := c.Options()
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProbing, err)
	}
	return nil
}

// isDNSName checks if the given string is a valid DNS name
func isDNSName(s string) bool {
	return dnsName.MatchString(s)
}
