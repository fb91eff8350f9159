// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gateway identity and uptime",
	Long: `Fetch /api/status from the gateway: device identification number,
firmware version, and uptime. This endpoint does not require a login.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, cleanup, err := newGatewayClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	status, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	return writeJSON(status)
}
