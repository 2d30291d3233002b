// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress is returned when the listening address cannot be parsed
	ErrInvalidAddress = errors.New("invalid listening address")
	// ErrApiContext is returned when the api is shut down because of its context
	ErrApiContext = errors.New("api context canceled")
)

type ErrCreateOpenapiSchema struct {
	Name string
	Err  error
}

func (e ErrCreateOpenapiSchema) Error() string {
	return fmt.Sprintf("failed to get schema for %s: %v", e.Name, e.Err)
}

func (e ErrCreateOpenapiSchema) Unwrap() error {
	return e.Err
}
