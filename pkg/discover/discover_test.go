// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package discover

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"net/http"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-teg/pkg/pintls"
)

// generateTestCert creates a self-signed ECDSA P-256 certificate for the
// symbolic gateway host.
func generateTestCert(t *testing.T) ([]byte, tls.Certificate) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: pintls.GatewayHost},
		DNSNames:     []string{pintls.GatewayHost},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return der, tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}
}

// serveTLS starts an HTTPS server on a loopback port with the given handler.
func serveTLS(t *testing.T, cert tls.Certificate, handler http.Handler) netip.AddrPort {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	tlsLn := tls.NewListener(ln, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})

	server := &http.Server{Handler: handler}
	go server.Serve(tlsLn) //nolint:errcheck
	t.Cleanup(func() { server.Close() })

	addr, err := netip.ParseAddrPort(ln.Addr().String())
	require.NoError(t, err)
	return addr
}

func TestFetchCertificate_CapturesServerCert(t *testing.T) {
	der, cert := generateTestCert(t)
	addr := serveTLS(t, cert, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	captured, err := FetchCertificate(context.Background(), &Config{Addr: addr})
	require.NoError(t, err)
	assert.Equal(t, der, captured)
}

func TestFetchCertificate_IgnoresHTTPFailure(t *testing.T) {
	der, cert := generateTestCert(t)
	// The probe's HTTP outcome must not matter; only the handshake does.
	addr := serveTLS(t, cert, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	captured, err := FetchCertificate(context.Background(), &Config{Addr: addr})
	require.NoError(t, err)
	assert.Equal(t, der, captured)
}

func TestFetchCertificate_ConnectionDroppedAfterHandshake(t *testing.T) {
	der, cert := generateTestCert(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	tlsLn := tls.NewListener(ln, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})

	// Complete the handshake, then slam the connection shut without ever
	// answering the HTTP request.
	go func() {
		for {
			conn, acceptErr := tlsLn.Accept()
			if acceptErr != nil {
				return
			}
			if tc, ok := conn.(*tls.Conn); ok {
				_ = tc.Handshake()
			}
			conn.Close()
		}
	}()

	addr, err := netip.ParseAddrPort(ln.Addr().String())
	require.NoError(t, err)

	captured, err := FetchCertificate(context.Background(), &Config{
		Addr:    addr,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, der, captured)
}

func TestFetchCertificate_UnreachableGateway(t *testing.T) {
	// Reserve a port and close it so the dial is refused before any
	// handshake can present a certificate.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr, err := netip.ParseAddrPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	start := time.Now()
	_, err = FetchCertificate(context.Background(), &Config{
		Addr:    addr,
		Timeout: 500 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCertificate)
	assert.Less(t, time.Since(start), 5*time.Second, "discovery must not hang")
}

func TestFetchCertificate_InvalidConfig(t *testing.T) {
	_, err := FetchCertificate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = FetchCertificate(context.Background(), &Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFetchCertificate_RoundTripToPin(t *testing.T) {
	_, cert := generateTestCert(t)
	addr := serveTLS(t, cert, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	captured, err := FetchCertificate(context.Background(), &Config{Addr: addr})
	require.NoError(t, err)

	// A captured certificate, re-encoded to PEM and parsed back, must pin a
	// subsequent handshake with the same gateway.
	set, err := pintls.ParseCertSet(pintls.EncodePEM(captured))
	require.NoError(t, err)

	transport := pintls.NewTransport(addr, pintls.NewPinnedTLSConfig(set))
	defer transport.CloseIdleConnections()

	resp, err := (&http.Client{Transport: transport}).Get(pintls.BaseURL + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCaptureVerifier_AcceptsEverything(t *testing.T) {
	certs := make(chan []byte, 1)
	v := &captureVerifier{certs: certs}

	assert.NoError(t, v.verify([][]byte{{0xde, 0xad}}, nil))
	assert.NoError(t, v.verify(nil, nil))
}

func TestCaptureVerifier_FirstWriterWins(t *testing.T) {
	certs := make(chan []byte, 1)
	v := &captureVerifier{certs: certs}

	first := []byte{0x01, 0x02}
	second := []byte{0x03, 0x04}

	require.NoError(t, v.verify([][]byte{first}, nil))
	// A second handshake on the same verifier must not overwrite or block.
	require.NoError(t, v.verify([][]byte{second}, nil))

	select {
	case got := <-certs:
		assert.Equal(t, first, got)
	default:
		t.Fatal("no certificate captured")
	}

	select {
	case extra := <-certs:
		t.Fatalf("unexpected second capture: %x", extra)
	default:
	}
}

func TestCaptureVerifier_ClonesCertificate(t *testing.T) {
	certs := make(chan []byte, 1)
	v := &captureVerifier{certs: certs}

	raw := []byte{0x0a, 0x0b, 0x0c}
	require.NoError(t, v.verify([][]byte{raw}, nil))

	// Mutating the handshake's buffer after capture must not corrupt the
	// captured certificate.
	raw[0] = 0xff

	got := <-certs
	assert.Equal(t, []byte{0x0a, 0x0b, 0x0c}, got)
}
