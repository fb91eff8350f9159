// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pintls

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveTLS starts an HTTPS server on a loopback port using the given
// certificate and returns its address. The server is shut down with the test.
func serveTLS(t *testing.T, cert tls.Certificate) netip.AddrPort {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	tlsLn := tls.NewListener(ln, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "host=%s", r.Host)
		}),
	}
	go server.Serve(tlsLn) //nolint:errcheck
	t.Cleanup(func() { server.Close() })

	addr, err := netip.ParseAddrPort(ln.Addr().String())
	require.NoError(t, err)
	return addr
}

func TestNewTransport_OverridesSymbolicHost(t *testing.T) {
	der, cert := generateTestCert(t)
	addr := serveTLS(t, cert)

	transport := NewTransport(addr, NewPinnedTLSConfig(CertSet{der}))
	client := &http.Client{Transport: transport}
	defer transport.CloseIdleConnections()

	resp, err := client.Get(BaseURL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	// The Host header must carry the symbolic name, not the dialed address.
	assert.Equal(t, GatewayHost, resp.Request.Host)
}

func TestNewTransport_PinMismatchFailsHandshake(t *testing.T) {
	_, cert := generateTestCert(t)
	addr := serveTLS(t, cert)

	// Pin a different certificate than the one the server presents.
	otherDER, _ := generateTestCert(t)
	transport := NewTransport(addr, NewPinnedTLSConfig(CertSet{otherDER}))
	client := &http.Client{Transport: transport}
	defer transport.CloseIdleConnections()

	_, err := client.Get(BaseURL + "/api/status") //nolint:bodyclose
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCertNotPermitted)
}

func TestNewTransport_EmptyPinSetRejects(t *testing.T) {
	_, cert := generateTestCert(t)
	addr := serveTLS(t, cert)

	transport := NewTransport(addr, NewPinnedTLSConfig(nil))
	client := &http.Client{Transport: transport}
	defer transport.CloseIdleConnections()

	_, err := client.Get(BaseURL + "/api/status") //nolint:bodyclose
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCertNotPermitted)
}

func TestNewTransport_OtherHostsNotRedirected(t *testing.T) {
	der, cert := generateTestCert(t)
	addr := serveTLS(t, cert)

	// Reserve a port and close it so the dial is refused.
	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedAddr := closed.Addr().String()
	require.NoError(t, closed.Close())

	transport := NewTransport(addr, NewPinnedTLSConfig(CertSet{der}))
	client := &http.Client{Transport: transport}
	defer transport.CloseIdleConnections()

	// A request that does not use the symbolic host must be dialed at its own
	// address and fail there, not be routed to the gateway.
	_, err = client.Get("https://" + closedAddr + "/api/status") //nolint:bodyclose
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCertNotPermitted)
}
