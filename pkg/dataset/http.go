// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/telekom/canopy/internal/helper"
	"github.com/telekom/canopy/internal/logger"
)

var _ Loader = (*HTTPLoader)(nil)

// HTTPLoader fetches the dataset from a remote endpoint, retrying failed requests.
type HTTPLoader struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTPLoader(cfg *Config) *HTTPLoader {
	return &HTTPLoader{
		cfg: cfg.HTTP,
		client: &http.Client{
			Timeout: cfg.HTTP.Timeout,
		},
	}
}

// Load fetches the dataset. Failed requests are retried as configured, client errors
// and an invalid dataset are not.
func (h *HTTPLoader) Load(ctx context.Context) (*Dataset, error) {
	log := logger.FromContext(ctx).With("url", h.cfg.URL)

	var body []byte
	fetch := helper.Retry(func(ctx context.Context) (err error) {
		body, err = h.fetch(ctx)
		return err
	}, h.cfg.RetryCfg)

	if err := fetch(ctx); err != nil {
		log.Error("Failed to fetch dataset", "retries", h.cfg.RetryCfg.Count, "error", err)
		return nil, err
	}

	ds, err := parse(body)
	if err != nil {
		log.Error("Failed to load remote dataset", "error", err)
		return nil, err
	}

	log.Info("Loaded dataset", "subnets", len(ds.Subnets), "interfaces", len(ds.Dictionary))
	return ds, nil
}

func (h *HTTPLoader) fetch(ctx context.Context) ([]byte, error) {
	log := logger.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.URL, http.NoBody)
	if err != nil {
		log.Error("Could not create http GET request", "error", err)
		return nil, err
	}
	if h.cfg.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", h.cfg.Token))
	}

	res, err := h.client.Do(req) //nolint:bodyclose // Closed in defer below
	if err != nil {
		log.Error("Http get request failed", "error", err)
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if cErr := Body.Close(); cErr != nil {
			log.Error("Failed to close response body", "error", cErr)
		}
	}(res.Body)

	if res.StatusCode != http.StatusOK {
		log.Error("Http get request failed", "status", res.Status)
		err = fmt.Errorf("request failed, status is %s", res.Status)
		if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
			return nil, helper.Permanent(err)
		}
		return nil, err
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		log.Error("Could not read response body", "error", err)
		return nil, err
	}
	return b, nil
}
