// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package tree

import "errors"

// ErrInvalidSubnet is returned when a subnet that is neither ACCURATE, ODD nor SHADOW
// is inserted as a leaf.
var ErrInvalidSubnet = errors.New("subnet cannot be a tree leaf")
