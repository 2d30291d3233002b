// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/telekom/canopy/internal/logger"
	"github.com/telekom/canopy/internal/traceroute"
	"github.com/telekom/canopy/pkg/canopy"
	"github.com/telekom/canopy/pkg/config"
	"github.com/telekom/canopy/pkg/dataset"
	"github.com/telekom/canopy/pkg/hints"
)

// NewCmdRun creates a new run command
func NewCmdRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the topology discovery",
		Long: "Loads the dataset, discovers the route of every subnet, grows the network tree\n" +
			"and infers routers. Sending raw ICMP probes requires CAP_NET_RAW.",
		RunE: run(),
	}

	f := cmd.Flags()
	f.String("name", "", "DNS name of the canopy instance")

	f.String("dataset.type", dataset.TypeFile, "dataset loader type: file or http")
	f.String("dataset.file.path", "", "path of the dataset file")
	f.String("dataset.http.url", "", "url the dataset is fetched from")
	f.String("dataset.http.token", "", "bearer token used to fetch the dataset")
	f.Duration("dataset.http.timeout", 30*time.Second, "timeout of the dataset request")
	f.Int("dataset.http.retry.count", 3, "amount of retries of the dataset request")
	f.Duration("dataset.http.retry.delay", time.Second, "initial delay between retries of the dataset request")

	f.String("probing.source", "", "IPv4 address the probes are sent from")
	f.Duration("probing.timeout", 2*time.Second, "time to wait for the reply of a probe")
	f.Duration("probing.pause", 0, "delay between two consecutive probes of one prober")
	f.String("probing.attentionMessage", "", "message written into the payload of every probe")
	f.Bool("probing.recordRoute", false, "set the IP record route option on every echo request")
	f.Uint16("probing.lowerID", 1, "lowest ICMP identifier used")
	f.Uint16("probing.upperID", 65535, "highest ICMP identifier used")
	f.Uint16("probing.lowerSeq", 1, "lowest ICMP sequence number used")
	f.Uint16("probing.upperSeq", 65535, "highest ICMP sequence number used")
	f.Bool("probing.fixedFlow", true, "keep the flow identifier constant so load balancers keep probes on one path")
	f.Bool("probing.doubleProbe", false, "send a second probe when the first one gets no reply")
	f.Uint8("probing.maxHops", traceroute.DefaultMaxHops, "largest TTL used")
	f.Int("probing.maxPivotCandidates", traceroute.DefaultMaxPivotCandidates, "amount of pivots tried before a subnet is unresolvable")
	f.Int("probing.maxWorkers", traceroute.DefaultMaxWorkers, "amount of subnets probed in parallel")

	f.Bool("hints.enabled", true, "collect IP-ID samples and host names of the interfaces")
	f.Int("hints.arity", hints.DefaultArity, "amount of IP-ID samples collected per interface")
	f.Int("hints.workers", 8, "amount of interfaces probed in parallel")
	f.Bool("hints.dns.enabled", true, "resolve the host names of the interfaces")
	f.String("hints.dns.server", "", "resolver address as host:port, the system resolver if empty")
	f.Duration("hints.dns.timeout", 2*time.Second, "timeout of a reverse lookup")
	f.Duration("hints.dns.cacheTTL", time.Hour, "how long a resolved host name is kept")
	f.Int("hints.dns.retry.count", 1, "amount of retries of a failed reverse lookup")
	f.Duration("hints.dns.retry.delay", 100*time.Millisecond, "initial delay between retries of a reverse lookup")

	f.Bool("verifyMembers", false, "verify the members of subnets with contra-pivots after route discovery")

	f.String("output.text", "", "path of the text report, stdout if empty")
	f.String("output.json", "", "path of the json report")
	f.Bool("output.quiet", false, "do not print routes while they are discovered")

	f.Bool("api.enabled", false, "serve the report via http after the discovery")
	f.String("api.address", ":8080", "address the api listens on")

	f.Bool("telemetry.enabled", false, "export traces")
	f.String("telemetry.exporter", "noop", "trace exporter: grpc, http, stdout or noop")
	f.String("telemetry.url", "", "url of the trace collector")
	f.String("telemetry.token", "", "token used to authenticate with the trace collector")
	f.Float64("telemetry.sampleRatio", 0, "share of discoveries traced, every discovery if 0")
	f.Bool("telemetry.tls.enabled", false, "use tls to connect to the trace collector")
	f.String("telemetry.tls.certPath", "", "CA certificate of the trace collector")

	f.VisitAll(func(flag *pflag.Flag) {
		cobra.CheckErr(viper.BindPFlag(flag.Name, flag))
	})

	return cmd
}

// run is the entry point to start canopy
func run() func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg := &config.Config{}
		if err := viper.Unmarshal(cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}

		ctx, cancel := logger.NewContextWithLogger(cmd.Context())
		defer cancel()
		log := logger.FromContext(ctx)

		if err := cfg.Validate(ctx); err != nil {
			return fmt.Errorf("error while validating the config: %w", err)
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.InfoContext(ctx, "Running canopy", "name", cfg.Name, "source", cfg.Probing.Source)
		return canopy.New(cfg).Run(ctx)
	}
}
