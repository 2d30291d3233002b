// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Timeout:  time.Second,
		LowerID:  DefaultLowerID,
		UpperID:  DefaultUpperID,
		LowerSeq: DefaultLowerSeq,
		UpperSeq: DefaultUpperSeq,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: true},
		{name: "negative pause", mutate: func(c *Config) { c.Pause = -time.Second }, wantErr: true},
		{name: "inverted id range", mutate: func(c *Config) { c.LowerID, c.UpperID = 10, 5 }, wantErr: true},
		{name: "inverted sequence range", mutate: func(c *Config) { c.LowerSeq, c.UpperSeq = 10, 5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_SplitIDRange(t *testing.T) {
	tests := []struct {
		name         string
		lower, upper uint16
		n            int
		want         [][2]uint16
	}{
		{name: "single range", lower: 1, upper: 100, n: 1, want: [][2]uint16{{1, 100}}},
		{name: "even split", lower: 1, upper: 100, n: 4, want: [][2]uint16{{1, 25}, {26, 50}, {51, 75}, {76, 100}}},
		{name: "remainder goes to last range", lower: 0, upper: 9, n: 3, want: [][2]uint16{{0, 2}, {3, 5}, {6, 9}}},
		{name: "more workers than identifiers", lower: 5, upper: 6, n: 4, want: [][2]uint16{{5, 5}, {6, 6}}},
		{name: "zero workers", lower: 1, upper: 10, n: 0, want: [][2]uint16{{1, 10}}},
		{name: "empty identifier range", lower: 11, upper: 10, n: 2, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{LowerID: tt.lower, UpperID: tt.upper}
			assert.Equal(t, tt.want, c.SplitIDRange(tt.n))
		})
	}
}

func TestIsTransient(t *testing.T) {
	cause := errors.New("boom")
	assert.True(t, IsTransient(sendError(cause)))
	assert.True(t, IsTransient(receiveError(cause)))
	assert.False(t, IsTransient(cause))
	assert.False(t, IsTransient(ErrClosed))
	assert.ErrorIs(t, sendError(cause), cause)
}
