// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

// Package traceroute discovers the routes towards subnets with Paris-traceroute style
// probing: the pivot of a subnet is probed with decreasing TTLs while the flow identifier
// is kept constant, so that load balancers forward every probe along the same path.
//
// It exposes a [Discoverer] running one [ParisTask] per subnet on a bounded amount of
// goroutines, and a [Dispatcher] spreading a list of addresses over [ProbeUnit]s to check
// at which TTL they answer.
//
// Key features:
//   - Explicit per-attempt outcome: a send or receive failure is attempted once more,
//     an anonymous hop is probed again with doubled and quadrupled timeouts
//   - Probe units share their findings through a single mutex-guarded state and stop
//     early once one of them found an alternative TTL
//   - Built-in OpenTelemetry spans per task and Prometheus collectors
//   - Every prober is built by a [probe.Factory] with its own identifier range, so that
//     concurrent tasks never mix up their replies
//
// Typical usage:
//
//	d := traceroute.NewDiscoverer(&opts, probe.NewICMPProber, table, os.Stdout)
//	res, err := d.Discover(ctx, sites)
//	// every resolved site now carries its route
package traceroute
