// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captured returns a logger writing json lines into the returned buffer.
func captured() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var res []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		res = append(res, m)
	}
	return res
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		enabled  slog.Level
		disabled *slog.Level
	}{
		{name: "default level", enabled: slog.LevelInfo, disabled: ptr(slog.LevelDebug)},
		{name: "debug level", logLevel: "debug", enabled: slog.LevelDebug},
		{name: "error level", logLevel: "ERROR", enabled: slog.LevelError, disabled: ptr(slog.LevelWarn)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.logLevel)

			log := NewLogger()
			assert.True(t, log.Enabled(t.Context(), tt.enabled))
			if tt.disabled != nil {
				assert.False(t, log.Enabled(t.Context(), *tt.disabled))
			}
		})
	}

	t.Run("custom handler", func(t *testing.T) {
		h := slog.NewTextHandler(&bytes.Buffer{}, nil)
		assert.Same(t, h, NewLogger(h).Handler())
	})
}

// A discovery run derives its context with NewContextWithLogger; the components it
// calls log with the attributes added along the way.
func TestNewContextWithLogger(t *testing.T) {
	log, buf := captured()
	parent := IntoContext(t.Context(), log.With("name", "canopy.example.com"))

	ctx, cancel := NewContextWithLogger(parent)
	FromContext(ctx).InfoContext(ctx, "Discovery finished", "subnets", 4)

	sub := IntoContext(ctx, FromContext(ctx).With("subnet", "10.1.0.0/29"))
	FromContext(sub).DebugContext(sub, "Skipping subnet without pivot")

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.NoError(t, parent.Err(), "canceling the run must not cancel the caller")

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "canopy.example.com", got[0]["name"])
	assert.InDelta(t, 4, got[0]["subnets"], 0)
	assert.Equal(t, "canopy.example.com", got[1]["name"])
	assert.Equal(t, "10.1.0.0/29", got[1]["subnet"])
}

func TestFromContext(t *testing.T) {
	log, _ := captured()

	assert.Same(t, log, FromContext(IntoContext(t.Context(), log)))
	assert.NotNil(t, FromContext(t.Context()))
	//nolint:staticcheck // nil context falls back to the default logger
	assert.NotNil(t, FromContext(nil))
}

func TestMiddleware(t *testing.T) {
	log, buf := captured()
	ctx := IntoContext(t.Context(), log)

	r := chi.NewRouter()
	r.Use(Middleware(ctx))
	r.Get("/v1/interfaces/{addr}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "Interface requested", "addr", chi.URLParam(r, "addr"))
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/interfaces/10.9.1.1", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodGet, got[0]["method"])
	assert.Equal(t, "/v1/interfaces/10.9.1.1", got[0]["path"])
	assert.Equal(t, "10.9.1.1", got[0]["addr"])
}

func TestNewHandler(t *testing.T) {
	tests := []struct {
		name   string
		format string
		text   bool
	}{
		{name: "json by default"},
		{name: "json", format: "JSON"},
		{name: "text", format: "text", text: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_FORMAT", tt.format)
			t.Setenv("LOG_LEVEL", "WARN")

			h := newHandler()
			if tt.text {
				assert.IsType(t, &slog.TextHandler{}, h)
			} else {
				assert.IsType(t, &slog.JSONHandler{}, h)
			}
			assert.True(t, h.Enabled(t.Context(), slog.LevelWarn))
			assert.False(t, h.Enabled(t.Context(), slog.LevelInfo))
		})
	}
}

func TestGetLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"TRACE":   slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, getLevel(in), "getLevel(%q)", in)
	}
}

func ptr[T any](v T) *T {
	return &v
}
