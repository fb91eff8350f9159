// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Show battery system status",
	Long: `Fetch /api/system_status: pack energy, charge and discharge limits, grid
state, and the per-Powerwall battery blocks. The gateway requires a customer
login for this endpoint, so --password must be provided.`,
	RunE: runSystem,
}

func init() {
	addCredentialFlags(systemCmd)
}

func runSystem(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, cleanup, err := newGatewayClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := login(ctx, cmd, client); err != nil {
		return err
	}

	system, err := client.SystemStatus(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	return writeJSON(system)
}
