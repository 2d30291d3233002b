// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"errors"
	"fmt"
)

var (
	// ErrSend is returned when a probe could not be written to the socket.
	ErrSend = errors.New("failed to send probe")
	// ErrReceive is returned when reading from the socket failed for another reason than a timeout.
	ErrReceive = errors.New("failed to receive reply")
	// ErrNotPermitted is returned when the process lacks NET_RAW capabilities to open a raw socket.
	ErrNotPermitted = errors.New("no NET_RAW capabilities, raw ICMP not available")
	// ErrClosed is returned when probing with a closed prober.
	ErrClosed = errors.New("prober is closed")
)

// IsTransient reports whether the error is a transport failure worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrSend) || errors.Is(err, ErrReceive)
}

func sendError(err error) error {
	return fmt.Errorf("%w: %w", ErrSend, err)
}

func receiveError(err error) error {
	return fmt.Errorf("%w: %w", ErrReceive, err)
}
