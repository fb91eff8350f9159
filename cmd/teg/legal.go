// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var legalCmd = &cobra.Command{
	Use:   "legal",
	Short: "Show regulatory radio identifiers",
	Long:  `Fetch /api/legal/radio, the FCC and IC identifiers of the radios inside the gateway.`,
	RunE:  runLegal,
}

func runLegal(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, cleanup, err := newGatewayClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	radios, err := client.LegalRadio(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	return writeJSON(radios)
}
