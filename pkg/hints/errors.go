// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package hints

import "errors"

var (
	// ErrNoAnswer is returned when the DNS server answered without a usable PTR record.
	ErrNoAnswer = errors.New("no PTR record in answer")
	// ErrServerFailure is returned when the DNS server answered with an error code.
	ErrServerFailure = errors.New("dns server failure")
	// ErrNoServer is returned when no DNS server is configured and none could be read from the system.
	ErrNoServer = errors.New("no dns server available")
)
