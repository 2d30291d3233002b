// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"sync"

	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/internal/probe"
	"github.com/telekom/canopy/pkg/subnet"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// printer serializes the route output of concurrent tasks.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer {
	if w == nil {
		w = io.Discard
	}
	return &printer{w: w}
}

// route writes the route of a site as one block so that blocks of concurrent tasks never interleave.
func (p *printer) route(site *subnet.Site) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "Route to %s (via %s):\n%s\n", site, site.RouteTarget(), site.RouteString())
}

// logRoute logs the hops of a route in a structured format.
func logRoute(ctx context.Context, route []netip.Addr) {
	log := logger.FromContext(ctx)
	for i, hop := range route {
		if probe.IsUnset(hop) {
			log.DebugContext(ctx, "Missing hop", "ttl", i+1)
			continue
		}
		log.DebugContext(ctx, "Hop", "ttl", i+1, "addr", hop.String())
	}
}

// wrapError wraps an error with a message and logs it.
// It also records the error in the current OpenTelemetry span.
func wrapError(ctx context.Context, err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	log := logger.FromContext(ctx)
	span := trace.SpanFromContext(ctx)
	caser := cases.Title(language.English)

	log.ErrorContext(ctx, caser.String(msg), append([]any{"error", err}, args...)...)
	span.SetStatus(codes.Error, msg)
	span.RecordError(err)
	return fmt.Errorf("%s: %w", msg, err)
}
