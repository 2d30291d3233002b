// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package helper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	errFlaky := errors.New("flaky")

	tests := []struct {
		name      string
		failures  int
		cfg       RetryConfig
		wantErr   bool
		wantCalls int
	}{
		{
			name:      "success on first call",
			failures:  0,
			cfg:       RetryConfig{Count: 2, Delay: time.Millisecond},
			wantCalls: 1,
		},
		{
			name:      "success after one retry",
			failures:  1,
			cfg:       RetryConfig{Count: 2, Delay: time.Millisecond},
			wantCalls: 2,
		},
		{
			name:      "retries exhausted",
			failures:  5,
			cfg:       RetryConfig{Count: 2, Delay: time.Millisecond},
			wantErr:   true,
			wantCalls: 3,
		},
		{
			name:      "no retries configured",
			failures:  1,
			cfg:       RetryConfig{},
			wantErr:   true,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			effector := func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return errFlaky
				}
				return nil
			}

			err := Retry(effector, tt.cfg)(t.Context())
			if tt.wantErr {
				assert.ErrorIs(t, err, errFlaky)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	effector := func(context.Context) error {
		calls++
		cancel()
		return errors.New("failed")
	}

	err := Retry(effector, RetryConfig{Count: 3, Delay: time.Minute})(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetry_Permanent(t *testing.T) {
	errBad := errors.New("bad request")
	calls := 0
	effector := func(context.Context) error {
		calls++
		return Permanent(errBad)
	}

	err := Retry(effector, RetryConfig{Count: 3, Delay: time.Millisecond})(t.Context())
	assert.Equal(t, errBad, err)
	assert.Equal(t, 1, calls)
	assert.NoError(t, Permanent(nil))
}

func TestGetExpBackoff(t *testing.T) {
	tests := []struct {
		iteration int
		want      time.Duration
	}{
		{0, 10 * time.Millisecond},
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{3, 40 * time.Millisecond},
		{4, 80 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, getExpBackoff(10*time.Millisecond, tt.iteration))
	}
}
