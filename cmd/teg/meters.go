// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/spf13/cobra"
)

var metersCmd = &cobra.Command{
	Use:   "meters",
	Short: "Show live power flows",
	Long: `Fetch /api/meters/aggregates, the live readings of the load, grid,
battery, and solar meters. The gateway requires a customer login for this
endpoint, so --password must be provided.`,
	RunE: runMeters,
}

func init() {
	addCredentialFlags(metersCmd)
}

func runMeters(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, cleanup, err := newGatewayClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := login(ctx, cmd, client); err != nil {
		return err
	}

	meters, err := client.MetersAggregates(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	for _, flow := range meters.Sources() {
		slog.Info("supplying power", "meter", flow.Class, "watts", flow.Device.InstantPower)
	}
	for _, flow := range meters.Sinks() {
		slog.Info("consuming power", "meter", flow.Class, "watts", math.Abs(flow.Device.InstantPower))
	}

	return writeJSON(meters)
}
