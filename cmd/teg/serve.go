// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-teg/pkg/simulator"
)

// Sentinel errors for the serve command.
var (
	// ErrPasswordRequired is returned when the --serve-password flag is not provided.
	ErrPasswordRequired = errors.New("serve: --serve-password is required")

	// ErrServerStart is returned when the simulator fails to start.
	ErrServerStart = errors.New("serve: server start failed")
)

// Flag variables for the serve command.
var (
	serveListenAddr string
	servePassword   string
	serveDIN        string
	serveEmail      string
	serveCertOut    string
)

// serveCmd runs a gateway simulator that answers the same REST API a real
// Backup Gateway 2 serves, behind a freshly minted self-signed certificate.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a gateway simulator",
	Long: `Run an HTTPS server that imitates a Tesla Backup Gateway 2: a self-signed
certificate for the hostname "teg", the customer login flow, and the read-only
REST endpoints. Useful for developing against the client without the physical
appliance.

The serving certificate is generated at startup. Write it out with
--cert-file and point the other commands at it with --cert:

  teg serve --serve-password hunter2 --cert-file sim.pem --listen 127.0.0.1:8443
  teg status --ip 127.0.0.1 --port 8443 --cert sim.pem`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", "127.0.0.1:8443",
		"TCP listen address")
	serveCmd.Flags().StringVar(&servePassword, "serve-password", "",
		"customer password the simulator accepts (required)")
	serveCmd.Flags().StringVar(&serveDIN, "din", "",
		"device identification number to report")
	serveCmd.Flags().StringVar(&serveEmail, "email", "",
		"customer email to report on login")
	serveCmd.Flags().StringVar(&serveCertOut, "cert-file", "",
		"write the serving certificate PEM to this path")
}

// runServe starts the simulator and waits for a termination signal.
func runServe(cmd *cobra.Command, args []string) error {
	if servePassword == "" {
		return ErrPasswordRequired
	}

	sim, err := simulator.New(&simulator.Config{
		ListenAddr: serveListenAddr,
		Password:   servePassword,
		DIN:        serveDIN,
		Email:      serveEmail,
		Logger:     slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServerStart, err)
	}

	if serveCertOut != "" {
		if err := os.WriteFile(serveCertOut, sim.CertificatePEM(), 0600); err != nil {
			return fmt.Errorf("%w: %w", ErrFileOperation, err)
		}
		slog.Info("serving certificate written", "path", serveCertOut)
	}

	if err := sim.Listen(); err != nil {
		return fmt.Errorf("%w: %w", ErrServerStart, err)
	}

	addr, err := sim.Addr()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServerStart, err)
	}
	slog.Info("listening", "addr", addr.String())

	// Serve until SIGINT or SIGTERM.
	sigCtx, sigStop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer sigStop()

	if err := sim.Run(sigCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrServerStart, err)
	}

	slog.Info("server stopped")
	return nil
}
