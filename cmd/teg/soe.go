// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var soeCmd = &cobra.Command{
	Use:   "soe",
	Short: "Show the aggregate state of energy",
	Long:  `Fetch /api/system_status/soe, the aggregate charge percentage of all the Powerwalls in the system.`,
	RunE:  runSoe,
}

func runSoe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, cleanup, err := newGatewayClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	soe, err := client.StateOfEnergy(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	return writeJSON(soe)
}
