// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package canopy

import (
	"errors"
	"fmt"
)

// ErrNoReport is returned by the api before the first discovery finished
var ErrNoReport = errors.New("discovery has not finished yet")

// ErrShutdown holds any errors that may
// have occurred during shutdown of canopy
type ErrShutdown struct {
	errAPI     error
	errMetrics error
}

// HasError returns true if any of the errors are set
func (e ErrShutdown) HasError() bool {
	return e.errAPI != nil || e.errMetrics != nil
}

func (e ErrShutdown) Error() string {
	return fmt.Sprintf("shutdown failed: %v", errors.Join(e.errAPI, e.errMetrics))
}

func (e ErrShutdown) Unwrap() []error {
	return []error{e.errAPI, e.errMetrics}
}
