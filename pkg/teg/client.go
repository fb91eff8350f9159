// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package teg

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
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
	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 10 * time.Second

	// acceptHeader is sent on every request. Nearly all of the gateway's
	// endpoints return JSON.
	acceptHeader = "application/json; charset=utf-8"

	// maxResponseSize caps response bodies (1 MB).
	maxResponseSize = 1 << 20
)

// Config configures a gateway client.
type Config struct {
	// Addr is the gateway's IP address and port. Required.
	Addr netip.AddrPort

	// Certs is the pinned certificate set. The gateway's certificate must
	// byte-match a member or every handshake fails. Ignored when Verify is
	// set.
	Certs pintls.CertSet

	// Verify optionally replaces the static pin set with a live verifier,
	// for example a pinwatch.Sentinel tracking a rotating pin file. The
	// signature matches tls.Config.VerifyPeerCertificate.
	Verify func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error

	// Timeout is the per-request timeout. Default: DefaultTimeout.
	Timeout time.Duration

	// Logger for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is a pinned-TLS client for the gateway's REST API. It is safe for
// concurrent use. Construction performs no network I/O; the configuration is
// immutable for the client's lifetime.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a gateway client from the given configuration. It validates
// the configuration and wires the address override transport together with
// the pinned certificate verifier; no connection is attempted.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if !cfg.Addr.IsValid() {
		return nil, fmt.Errorf("%w: gateway address required", ErrInvalidConfig)
	}
	if cfg.Verify == nil && len(cfg.Certs) == 0 {
		return nil, fmt.Errorf("%w: pinned certificates required", ErrInvalidConfig)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tlsCfg := pintls.NewPinnedTLSConfig(cfg.Certs)
	if cfg.Verify != nil {
		tlsCfg.VerifyPeerCertificate = cfg.Verify
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: pintls.NewTransport(cfg.Addr, tlsCfg),
		},
		logger: logger.With("component", "teg_client"),
	}, nil
}

// Status fetches /api/status. This endpoint does not require authentication.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.get(ctx, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Login authenticates against /api/login/Basic with the customer credentials
// and retains the returned token for subsequent authenticated requests.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginBasic, error) {
	body := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{
		Username: username,
		Password: password,
	}

	var login LoginBasic
	if err := c.post(ctx, "/api/login/Basic", &body, &login); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = login.Token
	c.mu.Unlock()

	return &login, nil
}

// MetersAggregates fetches /api/meters/aggregates, the live power flows for
// the load, grid, battery, and solar meters. Requires a prior Login.
func (c *Client) MetersAggregates(ctx context.Context) (*MetersAggregates, error) {
	var meters MetersAggregates
	if err := c.get(ctx, "/api/meters/aggregates", &meters); err != nil {
		return nil, err
	}
	return &meters, nil
}

// SystemStatus fetches /api/system_status. Requires a prior Login.
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	var system SystemStatus
	if err := c.get(ctx, "/api/system_status", &system); err != nil {
		return nil, err
	}
	return &system, nil
}

// StateOfEnergy fetches /api/system_status/soe, the aggregate charge of all
// Powerwalls in the system.
func (c *Client) StateOfEnergy(ctx context.Context) (*StateOfEnergy, error) {
	var soe StateOfEnergy
	if err := c.get(ctx, "/api/system_status/soe", &soe); err != nil {
		return nil, err
	}
	return &soe, nil
}

// LegalRadio fetches /api/legal/radio, the regulatory identifiers of the
// gateway's radios.
func (c *Client) LegalRadio(ctx context.Context) ([]Radio, error) {
	var radios []Radio
	if err := c.get(ctx, "/api/legal/radio", &radios); err != nil {
		return nil, err
	}
	return radios, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: encode body: %w", ErrRequestFailed, err)
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, pintls.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", acceptHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("gateway request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize)) //nolint:errcheck
		return fmt.Errorf("%w: %s returned HTTP %d", ErrUnexpectedStatus, path, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrRequestFailed, path, err)
	}
	return nil
}
