// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

// Package pkg contains metadata about canopy.
package pkg

// Version is the current version of canopy.
// It is set at startup from the version the binary was built with.
var Version string
