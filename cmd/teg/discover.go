// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-teg/pkg/discover"
	"github.com/jeremyhahn/go-teg/pkg/pintls"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Capture the gateway's self-signed certificate",
	Long: `Connect to the gateway once without verification, capture the self-signed
certificate it presents during the TLS handshake, and print it as PEM. Save
the output and pass it to the other commands with --cert; from then on the
client trusts exactly those certificate bytes.

The gateway is located either directly by IP:

  teg discover --ip 192.168.1.50 -o gateway.pem

or, when the router's DNS knows the gateway by its DHCP-registered name, by
resolving that name first:

  teg discover --resolve teg-862-1234.lan --dns-server 192.168.1.1:53 -o gateway.pem

Run this from the same network as the gateway. Anyone who can intercept this
first connection can substitute their own certificate, so the capture is only
as trustworthy as the network it runs on.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().String("resolve", "", "resolve the gateway IP from this DNS name instead of --ip")
	discoverCmd.Flags().String("dns-server", "", "DNS server for --resolve (e.g., 192.168.1.1:53)")
	discoverCmd.Flags().Duration("discover-timeout", discover.DefaultTimeout, "time to wait for the handshake")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	resolveName, _ := cmd.Flags().GetString("resolve")
	dnsServer, _ := cmd.Flags().GetString("dns-server")
	discoverTimeout, _ := cmd.Flags().GetDuration("discover-timeout")
	if discoverTimeout <= 0 {
		return fmt.Errorf("%w: --discover-timeout must be positive", ErrInvalidInput)
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()

	addr, err := discoverAddr(sigCtx, resolveName, dnsServer)
	if err != nil {
		return err
	}

	slog.Info("capturing gateway certificate", "address", addr.String())

	der, err := discover.FetchCertificate(sigCtx, &discover.Config{
		Addr:    addr,
		Timeout: discoverTimeout,
		Logger:  slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDiscoverFailed, err)
	}

	slog.Info("certificate captured", "bytes", len(der))
	return writeOutput(pintls.EncodePEM(der))
}

// discoverAddr picks the gateway address from --ip, or resolves --resolve
// against the given DNS server. The symbolic hostname the client dials is
// never resolved; DNS here only finds the device's LAN address.
func discoverAddr(ctx context.Context, resolveName, dnsServer string) (netip.AddrPort, error) {
	if resolveName == "" {
		return gatewayAddr()
	}

	if dnsServer == "" {
		return netip.AddrPort{}, fmt.Errorf("%w: --resolve requires --dns-server", ErrInvalidInput)
	}

	slog.Debug("resolving gateway name", "name", resolveName, "dns_server", dnsServer)

	addr, err := discover.LookupGatewayAddr(ctx, &discover.ResolverConfig{
		Server:  dnsServer,
		Timeout: 5 * time.Second,
	}, resolveName)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %w", ErrDiscoverFailed, err)
	}

	slog.Info("gateway resolved", "name", resolveName, "address", addr.String())
	return netip.AddrPortFrom(addr, gatewayPort), nil
}
