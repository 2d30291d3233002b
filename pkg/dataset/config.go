// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"net/url"
	"time"

	"github.com/telekom/canopy/internal/helper"
	"github.com/telekom/canopy/internal/logger"
)

// Loader types.
const (
	TypeFile = "file"
	TypeHTTP = "http"
)

// Config is the configuration of the dataset loader
type Config struct {
	Type string     `yaml:"type" mapstructure:"type"`
	HTTP HTTPConfig `yaml:"http" mapstructure:"http"`
	File FileConfig `yaml:"file" mapstructure:"file"`
}

// HTTPConfig is the configuration for the http loader
type HTTPConfig struct {
	URL      string             `yaml:"url" mapstructure:"url"`
	Token    string             `yaml:"token" mapstructure:"token"`
	Timeout  time.Duration      `yaml:"timeout" mapstructure:"timeout"`
	RetryCfg helper.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// FileConfig is the configuration for the file loader
type FileConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Validate validates the loader configuration
func (c *Config) Validate(ctx context.Context) error {
	log := logger.FromContext(ctx)

	switch c.Type {
	case TypeHTTP:
		if _, err := url.ParseRequestURI(c.HTTP.URL); err != nil {
			log.Error("The dataset url is not a valid url", "url", c.HTTP.URL)
			return ErrInvalidURL
		}
		if c.HTTP.RetryCfg.Count < 0 || c.HTTP.RetryCfg.Count >= 5 {
			log.Error("The amount of dataset retries should be between 0 and 4", "retryCount", c.HTTP.RetryCfg.Count)
			return ErrInvalidRetryCount
		}
	case TypeFile:
		if c.File.Path == "" {
			log.Error("The dataset file path cannot be empty")
			return ErrInvalidFilePath
		}
	default:
		log.Error("The dataset loader type is unknown", "type", c.Type)
		return ErrInvalidLoaderType
	}

	return nil
}
