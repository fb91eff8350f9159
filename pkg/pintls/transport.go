// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pintls

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"time"
)

// These need to match.
const (
	// GatewayHost is the symbolic hostname every request is addressed to.
	// The gateway issues its certificate for this name, so it is what SNI
	// and the Host header must carry regardless of the device's IP.
	GatewayHost = "teg"

	// BaseURL is the base URL for all gateway API requests.
	BaseURL = "https://" + GatewayHost

	// GatewayPort is the gateway's HTTPS port.
	GatewayPort = 443
)

// dialTimeout bounds TCP connection establishment to the gateway.
const dialTimeout = 10 * time.Second

// NewTransport builds an http.Transport that dials the symbolic host
// GatewayHost at addr instead of resolving it. Requests for any other host
// are dialed normally, which for an unrouteable name fails at the transport
// layer rather than being silently redirected. The transport performs no
// network activity until a request is made through it.
func NewTransport(addr netip.AddrPort, tlsCfg *tls.Config) *http.Transport {
	override := net.JoinHostPort(addr.Addr().String(), strconv.Itoa(int(addr.Port())))
	dialer := &net.Dialer{Timeout: dialTimeout}

	return &http.Transport{
		TLSClientConfig:   tlsCfg,
		ForceAttemptHTTP2: false,
		DialContext: func(ctx context.Context, network, dialAddr string) (net.Conn, error) {
			if host, _, err := net.SplitHostPort(dialAddr); err == nil && host == GatewayHost {
				dialAddr = override
			}
			return dialer.DialContext(ctx, network, dialAddr)
		},
	}
}
