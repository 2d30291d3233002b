// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package canopy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/canopy/internal/probe"
	"github.com/telekom/canopy/internal/traceroute"
	"github.com/telekom/canopy/pkg/api"
	"github.com/telekom/canopy/pkg/config"
	"github.com/telekom/canopy/pkg/dataset"
	"github.com/telekom/canopy/pkg/hints"
	"github.com/telekom/canopy/pkg/metrics"
	"github.com/telekom/canopy/pkg/subnet"
)

var (
	addr   = netip.MustParseAddr
	prefix = netip.MustParsePrefix
)

// fakeNetwork answers probes towards subnet members along fixed routes. Any other
// address answers echo requests itself, with an IP-ID counter per address.
type fakeNetwork struct {
	mu     sync.Mutex
	routes map[netip.Prefix][]netip.Addr
	ipids  map[netip.Addr]uint16
	// down lists prefixes towards which no probe can be sent
	down []netip.Prefix
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		routes: map[netip.Prefix][]netip.Addr{
			prefix("10.1.0.0/29"): {addr("10.9.0.1"), addr("10.9.1.1")},
			prefix("10.2.0.0/29"): {addr("10.9.0.1"), addr("10.9.1.2")},
			prefix("10.3.0.0/30"): {addr("10.9.0.1"), addr("10.9.2.1")},
		},
		ipids: map[netip.Addr]uint16{},
	}
}

func (n *fakeNetwork) answer(dst netip.Addr, ttl uint8) (probe.Record, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, p := range n.down {
		if p.Contains(dst) {
			return probe.Record{}, probe.ErrSend
		}
	}

	rec := probe.NewRecord(dst, ttl, false)
	rec.RequestTime = time.Now()
	rec.ReplyTime = rec.RequestTime.Add(time.Millisecond)
	for p, hops := range n.routes {
		if !p.Contains(dst) {
			continue
		}
		if int(ttl) <= len(hops) {
			rec.Reply, rec.ICMPType, rec.ICMPCode = hops[ttl-1], probe.ICMPTypeTimeExceeded, 0
			return rec, nil
		}
		rec.Reply, rec.ICMPType, rec.ICMPCode = dst, probe.ICMPTypeEchoReply, 0
		return rec, nil
	}

	n.ipids[dst] += 7
	rec.Reply, rec.ICMPType, rec.ICMPCode = dst, probe.ICMPTypeEchoReply, 0
	rec.SrcIPID, rec.ReplyIPID = 1, n.ipids[dst]
	return rec, nil
}

func (n *fakeNetwork) newProber(cfg probe.Config) (probe.Prober, error) {
	var mu sync.Mutex
	timeout := cfg.Timeout
	send := func(_ context.Context, _, dst netip.Addr, ttl uint8, _ bool) (probe.Record, error) {
		return n.answer(dst, ttl)
	}
	return &probe.ProberMock{
		SingleProbeFunc: send,
		DoubleProbeFunc: send,
		TimeoutFunc: func() time.Duration {
			mu.Lock()
			defer mu.Unlock()
			return timeout
		},
		SetTimeoutFunc: func(d time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			timeout = d
		},
		CloseFunc: func() error { return nil },
	}, nil
}

func testDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Subnets: []dataset.SubnetRecord{
			{
				Prefix: prefix("10.1.0.0/29"),
				Status: subnet.StatusAccurate,
				Members: []subnet.Member{
					{Addr: addr("10.1.0.1"), TTL: 2},
					{Addr: addr("10.1.0.2"), TTL: 3},
				},
			},
			{
				Prefix: prefix("10.2.0.0/29"),
				Status: subnet.StatusAccurate,
				Members: []subnet.Member{
					{Addr: addr("10.2.0.1"), TTL: 2},
					{Addr: addr("10.2.0.2"), TTL: 3},
				},
			},
			{
				Prefix:  prefix("10.3.0.0/30"),
				Status:  subnet.StatusShadow,
				Members: []subnet.Member{{Addr: addr("10.3.0.1"), TTL: 3}},
			},
			{
				Prefix: prefix("10.4.0.0/30"),
				Status: subnet.StatusIncomplete,
			},
		},
		Dictionary: []dataset.InterfaceRecord{
			{Addr: addr("10.9.1.1"), Hostname: "edge-1.example.net"},
			{Addr: addr("10.9.1.2"), Hostname: "edge-1.example.net"},
		},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Name: "canopy.example.com",
		Probing: config.ProbingConfig{
			Source: "192.0.2.10",
			Prober: probe.Config{
				Timeout:  time.Second,
				LowerID:  1,
				UpperID:  1000,
				LowerSeq: 1,
				UpperSeq: 1000,
			},
			MaxHops:            traceroute.DefaultMaxHops,
			MaxPivotCandidates: traceroute.DefaultMaxPivotCandidates,
			MaxWorkers:         4,
		},
		Hints: hints.Config{
			Enabled: true,
			Arity:   hints.DefaultArity,
			Workers: 2,
		},
		Output: config.OutputConfig{
			JSON: filepath.Join(t.TempDir(), "report.json"),
		},
	}
}

func newTestCanopy(cfg *config.Config, loader dataset.Loader, out *bytes.Buffer) *Canopy {
	return &Canopy{
		config:    cfg,
		loader:    loader,
		newProber: newFakeNetwork().newProber,
		api:       api.New(cfg.Api),
		metrics:   metrics.New(cfg.Telemetry),
		stats:     newStats(),
		out:       out,
	}
}

func staticLoader(ds *dataset.Dataset, err error) *dataset.LoaderMock {
	return &dataset.LoaderMock{
		LoadFunc: func(context.Context) (*dataset.Dataset, error) {
			return ds, err
		},
	}
}

func TestCanopy_Discover(t *testing.T) {
	var out bytes.Buffer
	c := newTestCanopy(testConfig(t), staticLoader(testDataset(), nil), &out)

	report, err := c.Discover(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.Subnets)
	assert.Equal(t, 3, report.Summary.Resolved)
	assert.Equal(t, 1, report.Summary.Skipped)
	assert.Equal(t, 0, report.Summary.Unresolvable)
	assert.Positive(t, report.Summary.Probes)

	require.Len(t, report.Subnets, 4)
	first := report.Subnets[0]
	assert.Equal(t, prefix("10.1.0.0/29"), first.Prefix)
	assert.Equal(t, traceroute.StatusResolved, first.Discovery)
	assert.Equal(t, addr("10.1.0.2"), first.Target)
	assert.Equal(t, []netip.Addr{addr("10.9.0.1"), addr("10.9.1.1")}, first.Route)
	assert.Equal(t, traceroute.StatusSkipped, report.Subnets[3].Discovery)

	routers := 0
	for _, n := range report.Nodes {
		routers += len(n.Routers)
	}
	assert.Equal(t, report.Summary.Routers, routers)
	assert.Equal(t, "ROOT", report.Nodes[0].Kind)

	assert.Contains(t, out.String(), "Route to 10.1.0.0/29")
	assert.InDelta(t, float64(report.Summary.Routers), testutil.ToFloat64(c.stats.routers), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.stats.subnets.WithLabelValues(subnet.StatusAccurate.String())), 0)
}

func TestCanopy_DiscoverLeavesOutUnresolvable(t *testing.T) {
	ds := testDataset()
	ds.Subnets = append(ds.Subnets, dataset.SubnetRecord{
		Prefix: prefix("10.5.0.0/29"),
		Status: subnet.StatusAccurate,
		Members: []subnet.Member{
			{Addr: addr("10.5.0.1"), TTL: 2},
			{Addr: addr("10.5.0.2"), TTL: 3},
		},
	})
	network := newFakeNetwork()
	network.down = []netip.Prefix{prefix("10.5.0.0/29")}
	c := newTestCanopy(testConfig(t), staticLoader(ds, nil), &bytes.Buffer{})
	c.newProber = network.newProber

	report, err := c.Discover(t.Context())
	require.NoError(t, err)

	require.Len(t, report.Subnets, 5)
	assert.Equal(t, traceroute.StatusUnresolvable, report.Subnets[4].Discovery)
	assert.Equal(t, 3, report.Summary.Resolved)
	assert.Equal(t, 1, report.Summary.Unresolvable)

	for _, a := range []netip.Addr{addr("10.5.0.1"), addr("10.5.0.2")} {
		got := report.Interface(a)
		assert.Nil(t, got.Subnet, "%s must not be in the tree", a)
		assert.Nil(t, got.Router, "%s must not be aliased", a)
	}
	for _, n := range report.Nodes {
		assert.NotContains(t, n.Subnets, prefix("10.5.0.0/29"))
	}

	var tree strings.Builder
	require.NoError(t, report.WriteTree(&tree))
	assert.NotContains(t, tree.String(), "10.5.0.0/29")
}

func TestCanopy_DiscoverQuiet(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t)
	cfg.Output.Quiet = true
	cfg.Hints.Enabled = false
	c := newTestCanopy(cfg, staticLoader(testDataset(), nil), &out)

	report, err := c.Discover(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.Resolved)
	assert.Empty(t, out.String())
}

func TestCanopy_DiscoverVerifyMembers(t *testing.T) {
	cfg := testConfig(t)
	cfg.VerifyMembers = true
	ds := testDataset()
	ds.Subnets[0].Members = append(ds.Subnets[0].Members, subnet.Member{Addr: addr("10.1.0.3"), TTL: 3})
	c := newTestCanopy(cfg, staticLoader(ds, nil), &bytes.Buffer{})

	report, err := c.Discover(t.Context())
	require.NoError(t, err)
	require.Len(t, report.Verifications, 1)
	assert.Equal(t, prefix("10.1.0.0/29"), report.Verifications[0].Prefix)
}

func TestCanopy_DiscoverErrors(t *testing.T) {
	errLoad := errors.New("dataset unavailable")
	errProber := errors.New("raw sockets not permitted")

	tests := []struct {
		name      string
		modify    func(c *Canopy)
		wantErr   error
		wantCalls int
	}{
		{
			name:      "loader fails",
			modify:    func(c *Canopy) { c.loader = staticLoader(nil, errLoad) },
			wantErr:   errLoad,
			wantCalls: 1,
		},
		{
			name: "prober cannot be created",
			modify: func(c *Canopy) {
				c.newProber = func(probe.Config) (probe.Prober, error) { return nil, errProber }
			},
			wantErr:   errProber,
			wantCalls: 1,
		},
		{
			name:    "invalid source",
			modify:  func(c *Canopy) { c.config.Probing.Source = "nowhere" },
			wantErr: config.ErrInvalidSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := staticLoader(testDataset(), nil)
			c := newTestCanopy(testConfig(t), loader, &bytes.Buffer{})
			tt.modify(c)

			_, err := c.Discover(t.Context())
			assert.ErrorIs(t, err, tt.wantErr)
			if l, ok := c.loader.(*dataset.LoaderMock); ok {
				assert.Len(t, l.LoadCalls(), tt.wantCalls)
			}
		})
	}
}

func TestCanopy_Run(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t)
	c := newTestCanopy(cfg, staticLoader(testDataset(), nil), &out)

	require.NoError(t, c.Run(t.Context()))

	report, err := c.Report()
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Network tree:")
	assert.Contains(t, out.String(), "Subnet: 10.1.0.0/29")

	b, err := os.ReadFile(cfg.Output.JSON)
	require.NoError(t, err)
	var got struct {
		Name    string  `json:"name"`
		Summary Summary `json:"summary"`
		Subnets []struct {
			Prefix    string `json:"prefix"`
			Status    string `json:"status"`
			Discovery string `json:"discovery"`
		} `json:"subnets"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "canopy.example.com", got.Name)
	assert.Equal(t, report.Summary, got.Summary)
	require.Len(t, got.Subnets, 4)
	assert.Equal(t, "10.3.0.0/30", got.Subnets[2].Prefix)
	assert.Equal(t, "SHADOW", got.Subnets[2].Status)
	assert.Equal(t, "resolved", got.Subnets[2].Discovery)
}

func TestCanopy_RunTextFile(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t)
	cfg.Output.Quiet = true
	cfg.Output.JSON = ""
	cfg.Output.Text = filepath.Join(t.TempDir(), "report.txt")
	c := newTestCanopy(cfg, staticLoader(testDataset(), nil), &out)

	require.NoError(t, c.Run(t.Context()))
	assert.Empty(t, out.String())

	b, err := os.ReadFile(cfg.Output.Text)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Discovery of 4 subnets: 3 resolved, 1 skipped, 0 unresolvable")
}

func TestCanopy_RunLoaderFailure(t *testing.T) {
	errLoad := errors.New("dataset unavailable")
	c := newTestCanopy(testConfig(t), staticLoader(nil, errLoad), &bytes.Buffer{})

	err := c.Run(t.Context())
	assert.ErrorIs(t, err, errLoad)

	_, err = c.Report()
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestCanopy_RunServesUntilCanceled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Api = api.Config{Enabled: true, ListeningAddress: "127.0.0.1:0"}
	c := newTestCanopy(cfg, staticLoader(testDataset(), nil), &bytes.Buffer{})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := c.Report()
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("Run() returned before the context was canceled: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after the context was canceled")
	}
}
