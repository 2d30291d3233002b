// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"bytes"
	"errors"
	"io"
	"net/netip"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telekom/canopy/internal/probe"
	"github.com/telekom/canopy/pkg/hints"
	"github.com/telekom/canopy/pkg/subnet"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestDiscoverer(factory probe.Factory, out io.Writer) *Discoverer {
	d := NewDiscoverer(testOptions(), factory, nil, out)
	d.tracer = noop.NewTracerProvider().Tracer("test")
	return d
}

func TestDiscoverer_Discover(t *testing.T) {
	resolved := accurateSite()
	skipped := subnet.New(prefix("10.5.0.0/29"), subnet.StatusAccurate, nil)
	unresolvable := subnet.New(prefix("10.6.0.0/30"), subnet.StatusShadow, []subnet.Member{
		{Addr: addr("10.6.0.1"), TTL: 2},
	})
	shadow := subnet.New(prefix("10.7.0.0/30"), subnet.StatusShadow, []subnet.Member{
		{Addr: addr("10.7.0.2"), TTL: 2},
	})

	network := &fakeNetwork{paths: map[netip.Addr]*fakePath{
		addr("10.1.0.2"): {hops: threeHops(), reach: 4},
		addr("10.7.0.2"): {hops: map[uint8]netip.Addr{1: addr("10.9.0.1"), 2: addr("10.9.0.7")}, reach: 3},
	}}

	var out bytes.Buffer
	d := newTestDiscoverer(network.newProber, &out)
	results, err := d.Discover(t.Context(), []*subnet.Site{resolved, skipped, unresolvable, shadow})
	require.NoError(t, err)
	require.Len(t, results, 4)

	var statuses []Status
	for _, r := range results {
		statuses = append(statuses, r.Status)
	}
	assert.Equal(t, []Status{StatusResolved, StatusSkipped, StatusUnresolvable, StatusResolved}, statuses)
	assert.Equal(t, prefix("10.5.0.0/29"), results[1].Prefix)

	assert.Equal(t, []netip.Addr{addr("10.9.0.1"), addr("10.9.0.2"), addr("10.9.0.3")}, resolved.Route())
	assert.Equal(t, []netip.Addr{addr("10.9.0.1"), addr("10.9.0.7")}, shadow.Route())
	assert.False(t, unresolvable.HasRoute())

	assert.Contains(t, out.String(), "Route to 10.1.0.0/29 (via 10.1.0.2):\n10.9.0.1\n10.9.0.2\n10.9.0.3\n")
	assert.Contains(t, out.String(), "Route to 10.7.0.0/30 (via 10.7.0.2):\n10.9.0.1\n10.9.0.7\n")
	assert.Equal(t, 2, strings.Count(out.String(), "Route to"))

	assert.Equal(t, 2, results.Count(StatusResolved))
	assert.InDelta(t, 2, testutil.ToFloat64(d.metrics.routes.WithLabelValues("resolved")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(d.metrics.routes.WithLabelValues("skipped")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(d.metrics.routes.WithLabelValues("unresolvable")), 0)
	assert.InDelta(t, float64(results.Probes()), testutil.ToFloat64(d.metrics.probes), 0)
	assert.Len(t, d.GetMetricCollectors(), 5)
}

func TestDiscoverer_DiscoverRecordsHopCounts(t *testing.T) {
	table := hints.NewTable(hints.DefaultArity)
	known, _ := table.Create(addr("10.9.0.2"))
	known.RecordHopCount(5)

	first := accurateSite()
	second := subnet.New(prefix("10.7.0.0/30"), subnet.StatusShadow, []subnet.Member{{Addr: addr("10.7.0.2"), TTL: 2}})
	network := &fakeNetwork{paths: map[netip.Addr]*fakePath{
		addr("10.1.0.2"): {hops: map[uint8]netip.Addr{1: addr("10.9.0.1"), 3: addr("10.9.0.2")}, reach: 4},
		addr("10.7.0.2"): {hops: map[uint8]netip.Addr{1: addr("10.9.0.1"), 2: addr("10.9.0.2")}, reach: 3},
	}}

	d := NewDiscoverer(testOptions(), network.newProber, table, nil)
	d.tracer = noop.NewTracerProvider().Tracer("test")
	_, err := d.Discover(t.Context(), []*subnet.Site{first, second})
	require.NoError(t, err)

	tests := []struct {
		addr     netip.Addr
		wantTTL  uint8
		wantHops []uint8
	}{
		{addr: addr("10.9.0.1"), wantTTL: 1, wantHops: []uint8{1}},
		{addr: addr("10.9.0.2"), wantTTL: 2, wantHops: []uint8{2, 3, 5}},
		{addr: addr("10.1.0.2"), wantTTL: 4, wantHops: []uint8{4}},
		{addr: addr("10.7.0.2"), wantTTL: 3, wantHops: []uint8{3}},
	}
	for _, tt := range tests {
		e, ok := table.LookUp(tt.addr)
		require.True(t, ok, tt.addr.String())
		assert.Equal(t, tt.wantTTL, e.TTL, tt.addr.String())
		assert.Equal(t, tt.wantHops, e.HopCounts(), tt.addr.String())
	}
	_, ok := table.LookUp(unset)
	assert.False(t, ok, "anonymous hops are not recorded")
}

func TestDiscoverer_DiscoverManySites(t *testing.T) {
	network := &fakeNetwork{paths: map[netip.Addr]*fakePath{}}
	var sites []*subnet.Site
	for _, a := range ips(40) {
		network.paths[a] = &fakePath{hops: map[uint8]netip.Addr{1: addr("10.9.0.1")}, reach: 2}
		sites = append(sites, subnet.New(netip.PrefixFrom(a, 32), subnet.StatusShadow, []subnet.Member{{Addr: a, TTL: 1}}))
	}

	d := newTestDiscoverer(network.newProber, io.Discard)
	results, err := d.Discover(t.Context(), sites)
	require.NoError(t, err)

	assert.Equal(t, len(sites), results.Count(StatusResolved))
	for i, r := range results {
		assert.Equal(t, sites[i].Prefix(), r.Prefix, "results keep the order of the sites")
		assert.Equal(t, []netip.Addr{addr("10.9.0.1")}, r.Route)
	}
}

func TestDiscoverer_ProberFailure(t *testing.T) {
	errFactory := errors.New("no raw socket")
	factory := func(probe.Config) (probe.Prober, error) { return nil, errFactory }

	d := newTestDiscoverer(factory, nil)
	_, err := d.Discover(t.Context(), []*subnet.Site{accurateSite()})
	assert.ErrorIs(t, err, errFactory)
}

func TestDiscoverer_Verify(t *testing.T) {
	site := subnet.New(prefix("10.1.0.0/28"), subnet.StatusAccurate, []subnet.Member{
		{Addr: addr("10.1.0.1"), TTL: 3},
		{Addr: addr("10.1.0.2"), TTL: 4},
		{Addr: addr("10.1.0.3"), TTL: 4},
		{Addr: addr("10.1.0.4"), TTL: 4},
	})
	site.SetRoute(addr("10.1.0.2"), []netip.Addr{addr("10.9.0.1"), addr("10.9.0.2"), addr("10.9.0.3")})

	noRoute := accurateSite()
	shadow := subnet.New(prefix("10.7.0.0/30"), subnet.StatusShadow, []subnet.Member{{Addr: addr("10.7.0.2"), TTL: 2}})
	shadow.SetRoute(addr("10.7.0.2"), []netip.Addr{addr("10.9.0.1"), addr("10.9.0.7")})

	network := &fakeNetwork{paths: map[netip.Addr]*fakePath{
		// answers at the contra-pivot's TTL
		addr("10.1.0.3"): {reach: 3},
		addr("10.1.0.4"): {reach: 4},
	}}

	d := newTestDiscoverer(network.newProber, nil)
	res, err := d.Verify(t.Context(), []*subnet.Site{site, noRoute, shadow})
	require.NoError(t, err)
	require.Len(t, res, 1)

	assert.Equal(t, prefix("10.1.0.0/28"), res[0].Prefix)
	assert.Equal(t, FoundResponsiveIPs, res[0].Result)
	assert.Equal(t, []netip.Addr{addr("10.1.0.3")}, res[0].Responsive)
	assert.Equal(t, "10.1.0.0/28: responsive (1 responsive)", res[0].String())
	assert.InDelta(t, 1, testutil.ToFloat64(d.metrics.verification.WithLabelValues("responsive")), 0)
}

func TestVerificationTargets(t *testing.T) {
	site := subnet.New(prefix("10.1.0.0/28"), subnet.StatusAccurate, []subnet.Member{
		{Addr: addr("10.1.0.1"), TTL: 3},
		{Addr: addr("10.1.0.2"), TTL: 4},
		{Addr: addr("10.1.0.3"), TTL: 4},
		{Addr: addr("10.1.0.4"), TTL: 5},
	})
	site.SetRoute(addr("10.1.0.2"), []netip.Addr{unset, unset, unset})

	assert.Equal(t, []netip.Addr{addr("10.1.0.3")}, verificationTargets(site))
}
