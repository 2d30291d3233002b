// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package hints

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/patrickmn/go-cache"

	"github.com/telekom/canopy/internal/helper"
	"github.com/telekom/canopy/internal/logger"
)

const (
	resolvConf      = "/etc/resolv.conf"
	defaultCacheTTL = 10 * time.Minute
)

var _ Resolver = (*DNSResolver)(nil)

// exchanger sends a DNS message to a server.
type exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

// DNSResolver resolves host names with PTR queries. Answers, including empty ones, are cached.
type DNSResolver struct {
	client exchanger
	server string
	retry  helper.RetryConfig
	cache  *cache.Cache
}

// NewDNSResolver creates a resolver for the configured server. Without a configured server
// the first nameserver of the system configuration is used.
func NewDNSResolver(cfg DNSConfig) (*DNSResolver, error) {
	server := cfg.Server
	if server == "" {
		sys, err := dns.ClientConfigFromFile(resolvConf)
		if err != nil || len(sys.Servers) == 0 {
			return nil, fmt.Errorf("%w: %w", ErrNoServer, err)
		}
		server = net.JoinHostPort(sys.Servers[0], sys.Port)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &DNSResolver{
		client: &dns.Client{Timeout: cfg.Timeout},
		server: server,
		retry:  cfg.Retry,
		cache:  cache.New(ttl, 2*ttl),
	}, nil
}

// LookupAddr returns the host name of the address without the trailing dot.
// An address without PTR record resolves to an empty name.
func (r *DNSResolver) LookupAddr(ctx context.Context, addr netip.Addr) (string, error) {
	key := addr.String()
	if name, ok := r.cache.Get(key); ok {
		return name.(string), nil
	}

	arpa, err := dns.ReverseAddr(key)
	if err != nil {
		return "", err
	}
	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)

	var name string
	err = helper.Retry(func(ctx context.Context) error {
		in, _, err := r.client.ExchangeContext(ctx, msg, r.server)
		if err != nil {
			return err
		}
		name, err = hostname(in)
		if errors.Is(err, ErrNoAnswer) {
			return helper.Permanent(err)
		}
		return err
	}, r.retry)(ctx)
	if err != nil {
		logger.FromContext(ctx).DebugContext(ctx, "PTR query failed", "address", key, "server", r.server, "error", err)
		return "", err
	}

	r.cache.Set(key, name, cache.DefaultExpiration)
	return name, nil
}

// hostname extracts the first PTR target of the answer. A name error means there is no record.
func hostname(in *dns.Msg) (string, error) {
	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrServerFailure, dns.RcodeToString[in.Rcode])
	}

	for _, rr := range in.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	if len(in.Answer) == 0 {
		return "", nil
	}
	return "", ErrNoAnswer
}
