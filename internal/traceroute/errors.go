// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"

	"github.com/telekom/canopy/internal/probe"
)

var (
	// ErrUnresponsive is returned when no pivot candidate of a subnet answers with an echo reply.
	ErrUnresponsive = errors.New("no responsive pivot")
	// ErrTooFar is returned when a subnet lies beyond the maximum amount of hops.
	ErrTooFar = errors.New("subnet is beyond max hops")
)

// outcome classifies a single probing attempt.
type outcome int

const (
	outcomeOK outcome = iota
	// outcomeTransient is a send or receive failure worth one more attempt.
	outcomeTransient
	// outcomeFatal ends the task: the context is done or the prober is unusable.
	outcomeFatal
)

func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeOK
	case probe.IsTransient(err) && !isCanceled(err):
		return outcomeTransient
	default:
		return outcomeFatal
	}
}

// isCanceled checks if the error is related to the end of the caller's context.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
