// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package dataset

import "errors"

var (
	// ErrInvalidLoaderType is returned when the loader type is neither file nor http
	ErrInvalidLoaderType = errors.New("invalid dataset loader type")
	// ErrInvalidFilePath is returned when the file loader path is empty
	ErrInvalidFilePath = errors.New("invalid dataset file path")
	// ErrInvalidURL is returned when the http loader url is invalid
	ErrInvalidURL = errors.New("invalid dataset url")
	// ErrInvalidRetryCount is returned when the http loader retry count is invalid
	ErrInvalidRetryCount = errors.New("invalid dataset retry count")
	// ErrInvalidSubnet is returned when a subnet record cannot be turned into a subnet
	ErrInvalidSubnet = errors.New("invalid subnet record")
	// ErrEmpty is returned when the dataset has no subnets
	ErrEmpty = errors.New("dataset has no subnets")
)
