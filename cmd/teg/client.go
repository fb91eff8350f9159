// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/jeremyhahn/go-teg/pkg/pintls"
	"github.com/jeremyhahn/go-teg/pkg/pinwatch"
	"github.com/jeremyhahn/go-teg/pkg/teg"
)

var (
	requestTimeout time.Duration
	watchCert      bool
)

func init() {
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", teg.DefaultTimeout,
		"per-request timeout")
	rootCmd.PersistentFlags().BoolVar(&watchCert, "watch-cert", false,
		"reload the pinned certificate file when it changes on disk")
}

// gatewayAddr resolves the --ip and --port flags into the address the
// symbolic gateway hostname is dialed at.
func gatewayAddr() (netip.AddrPort, error) {
	if gatewayIP == "" {
		return netip.AddrPort{}, fmt.Errorf("%w: --ip is required", ErrInvalidInput)
	}
	addr, err := netip.ParseAddr(gatewayIP)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: --ip: %w", ErrInvalidInput, err)
	}
	return netip.AddrPortFrom(addr, gatewayPort), nil
}

// newGatewayClient builds a pinned client from the shared connection flags.
// The returned cleanup releases the client and, with --watch-cert, stops the
// pin file sentinel.
func newGatewayClient(ctx context.Context) (*teg.Client, func(), error) {
	addr, err := gatewayAddr()
	if err != nil {
		return nil, nil, err
	}

	if pinFile == "" {
		return nil, nil, fmt.Errorf("%w: --cert is required; capture one with 'teg discover'", ErrInvalidInput)
	}

	cfg := &teg.Config{
		Addr:    addr,
		Timeout: requestTimeout,
		Logger:  slog.Default(),
	}

	cleanup := func() {}

	if watchCert {
		sentinel, watchErr := pinwatch.New(pinFile, pinwatch.WithLogger(slog.Default()))
		if watchErr != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidInput, watchErr)
		}

		watchCtx, cancel := context.WithCancel(ctx)
		go func() {
			if runErr := sentinel.Start(watchCtx); runErr != nil && watchCtx.Err() == nil {
				slog.Warn("certificate watch stopped", "error", runErr)
			}
		}()
		cleanup = cancel
		cfg.Verify = sentinel.VerifyPeerCertificate
	} else {
		certs, loadErr := pintls.LoadCertSet(pinFile)
		if loadErr != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidInput, loadErr)
		}
		cfg.Certs = certs
	}

	client, err := teg.New(cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	wrapped := cleanup
	cleanup = func() {
		client.Close() //nolint:errcheck
		wrapped()
	}
	return client, cleanup, nil
}
