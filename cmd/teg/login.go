// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-teg/pkg/teg"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the customer password",
	Long: `Authenticate against /api/login/Basic with the customer password printed
inside the gateway's door and print the session details. Privileged commands
perform this login themselves; this command exists to verify credentials.`,
	RunE: runLogin,
}

func init() {
	addCredentialFlags(loginCmd)
}

// addCredentialFlags registers the customer credential flags shared by the
// commands that read privileged endpoints.
func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().String("username", "customer", "login username")
	cmd.Flags().String("password", "", "customer password (required)")
}

// login authenticates the client with the command's credential flags.
func login(ctx context.Context, cmd *cobra.Command, client *teg.Client) (*teg.LoginBasic, error) {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		return nil, fmt.Errorf("%w: --password is required", ErrInvalidInput)
	}

	session, err := client.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("%w: login: %w", ErrRequestFailed, err)
	}
	return session, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, cleanup, err := newGatewayClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := login(ctx, cmd, client)
	if err != nil {
		return err
	}

	return writeJSON(session)
}
