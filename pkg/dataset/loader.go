// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:generate go tool moq -out loader_moq.go . Loader
type Loader interface {
	// Load fetches the dataset and validates it.
	Load(context.Context) (*Dataset, error)
}

// NewLoader returns the loader matching the configured type
func NewLoader(cfg *Config) Loader {
	switch cfg.Type {
	case TypeHTTP:
		return NewHTTPLoader(cfg)
	default:
		return NewFileLoader(cfg)
	}
}

// parse decodes a YAML (or JSON) dataset and validates it.
func parse(b []byte) (*Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	return &d, nil
}
