// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/telekom/canopy/internal/probe"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want outcome
	}{
		{"nil error", nil, outcomeOK},
		{"send failure", fmt.Errorf("%w: boom", probe.ErrSend), outcomeTransient},
		{"receive failure", fmt.Errorf("%w: boom", probe.ErrReceive), outcomeTransient},
		{"receive failure after cancel", fmt.Errorf("%w: %w", probe.ErrReceive, context.Canceled), outcomeFatal},
		{"closed prober", probe.ErrClosed, outcomeFatal},
		{"deadline exceeded", context.DeadlineExceeded, outcomeFatal},
		{"some other error", errors.New("foo"), outcomeFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err), "classify(%v)", tt.err)
		})
	}
}
