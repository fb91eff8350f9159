// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package discover

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/jeremyhahn/go-teg/pkg/pintls"
)

const (
	// DefaultTimeout bounds a discovery attempt. Without it an unreachable
	// gateway would leave the wait for a certificate hanging forever.
	DefaultTimeout = 15 * time.Second

	// probePath is the endpoint the throwaway request is addressed to. Any
	// path would do; /api/status is unauthenticated on the gateway so the
	// probe does not trip auth failures worth logging.
	probePath = "/api/status"

	// maxProbeBody caps how much of the discarded probe response is drained.
	maxProbeBody = 1 << 20
)

// Config configures a certificate discovery attempt.
type Config struct {
	// Addr is the gateway's IP address and port. Required.
	Addr netip.AddrPort

	// Timeout bounds the whole attempt. Default: DefaultTimeout.
	Timeout time.Duration

	// Logger for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// captureVerifier accepts every certificate a server presents and forwards
// the first observed leaf through a one-shot channel. It exists only inside
// the discovery flow; connections it verifies carry no trusted data and must
// never be reused for real traffic. A verifier instance captures at most one
// certificate: if the transport retries or pipelines, the first writer wins
// and later handshakes are accepted without effect.
type captureVerifier struct {
	once  sync.Once
	certs chan<- []byte
}

// verify implements tls.Config.VerifyPeerCertificate. It never blocks: the
// capture channel is buffered and the send happens at most once, so the
// handshake goroutine cannot deadlock against the orchestrator.
func (v *captureVerifier) verify(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) > 0 {
		v.once.Do(func() {
			v.certs <- bytes.Clone(rawCerts[0])
		})
	}
	return nil
}

// FetchCertificate downloads the gateway's current self-signed certificate
// without prior trust material and returns its DER encoding.
//
// It issues a single throwaway HTTPS request through a verifier that accepts
// and captures whatever leaf certificate the gateway presents. The HTTP
// outcome of that request is irrelevant: the certificate is observed during
// the handshake, which strictly precedes any response, so FetchCertificate
// returns as soon as the capture channel yields and abandons the in-flight
// request. A request that completes without a capture does not end the wait;
// only the certificate or the deadline does.
func FetchCertificate(ctx context.Context, cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if !cfg.Addr.IsValid() {
		return nil, fmt.Errorf("%w: gateway address required", ErrInvalidConfig)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "discover")

	certs := make(chan []byte, 1)
	verifier := &captureVerifier{certs: certs}

	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, //nolint:gosec // Discovery observes the certificate; it cannot verify what it does not yet have
		VerifyPeerCertificate: verifier.verify,
	}

	transport := pintls.NewTransport(cfg.Addr, tlsCfg)
	defer transport.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	probeDone := make(chan error, 1)
	go func() {
		probeDone <- probe(ctx, transport)
	}()

	var lastProbeErr error
	for {
		select {
		case der := <-certs:
			logger.Debug("certificate captured", "bytes", len(der))
			return der, nil

		case err := <-probeDone:
			// The probe's outcome is deliberately ignored; the capture, not
			// the response, is the goal. Keep waiting for the certificate.
			logger.Debug("probe request finished", "error", err)
			lastProbeErr = err
			probeDone = nil

		case <-ctx.Done():
			if lastProbeErr != nil {
				return nil, fmt.Errorf("%w: %w (last probe error: %w)", ErrNoCertificate, ctx.Err(), lastProbeErr)
			}
			return nil, fmt.Errorf("%w: %w", ErrNoCertificate, ctx.Err())
		}
	}
}

// probe issues the single throwaway request that forces a TLS handshake.
func probe(ctx context.Context, transport *http.Transport) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pintls.BaseURL+probePath, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Transport: transport}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeBody))
	return err
}
