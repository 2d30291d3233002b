// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	// ErrInvalidName is returned when the instance name is invalid
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidSource is returned when the probe source address is invalid
	ErrInvalidSource = errors.New("invalid probe source address")
	// ErrInvalidProbing is returned when the probing configuration is invalid
	ErrInvalidProbing = errors.New("invalid probing configuration")
	// ErrInvalidHints is returned when the hints configuration is invalid
	ErrInvalidHints = errors.New("invalid hints configuration")
)
