// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package discover

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// defaultLookupTimeout is the default DNS query timeout.
	defaultLookupTimeout = 5 * time.Second

	// defaultDNSPort is the standard DNS port.
	defaultDNSPort = "53"
)

// ResolverConfig configures the optional gateway address lookup.
//
// This is a convenience for operators whose router registers a DHCP name for
// the gateway: the registered name is resolved against the router's DNS
// server to find the IP to probe. It is never used for the symbolic host the
// client addresses requests to; that name is bound by the address override
// and bypasses DNS entirely.
type ResolverConfig struct {
	// Server is the DNS server to query, as "ip" or "ip:port". Required;
	// gateway names are registered on the local network, so the system
	// resolver is deliberately not consulted by default.
	Server string

	// Timeout for the DNS exchange. Default: 5s.
	Timeout time.Duration
}

// LookupGatewayAddr resolves hostname to an IP address using the configured
// DNS server, querying A records first and falling back to AAAA.
func LookupGatewayAddr(ctx context.Context, cfg *ResolverConfig, hostname string) (netip.Addr, error) {
	if cfg == nil || cfg.Server == "" {
		return netip.Addr{}, fmt.Errorf("%w: DNS server required", ErrInvalidConfig)
	}
	if hostname == "" || strings.ContainsRune(hostname, 0) || len(hostname) > 253 {
		return netip.Addr{}, fmt.Errorf("%w: invalid hostname", ErrInvalidConfig)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}

	server := cfg.Server
	if !strings.Contains(server, ":") {
		server = server + ":" + defaultDNSPort
	}

	client := &dns.Client{
		Net:     "udp",
		Timeout: timeout,
	}

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		addr, err := queryAddr(ctx, client, server, hostname, qtype)
		if err != nil {
			return netip.Addr{}, err
		}
		if addr.IsValid() {
			return addr, nil
		}
	}

	return netip.Addr{}, fmt.Errorf("%w: no address records for %s", ErrLookupFailed, hostname)
}

// queryAddr performs a single address query and returns the first matching
// record, or the zero Addr when the name exists but has no records of the
// requested type.
func queryAddr(ctx context.Context, client *dns.Client, server, hostname string, qtype uint16) (netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(hostname), qtype)
	msg.RecursionDesired = true

	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %s", ErrLookupFailed, err.Error())
	}
	if resp == nil {
		return netip.Addr{}, ErrLookupFailed
	}
	if resp.Rcode != dns.RcodeSuccess {
		return netip.Addr{}, fmt.Errorf("%w: rcode %s", ErrLookupFailed, dns.RcodeToString[resp.Rcode])
	}

	for _, rr := range resp.Answer {
		switch record := rr.(type) {
		case *dns.A:
			if addr, ok := netip.AddrFromSlice(record.A.To4()); ok {
				return addr, nil
			}
		case *dns.AAAA:
			if addr, ok := netip.AddrFromSlice(record.AAAA); ok {
				return addr, nil
			}
		}
	}

	return netip.Addr{}, nil
}
