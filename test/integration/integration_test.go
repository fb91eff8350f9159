// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-teg/pkg/discover"
	"github.com/jeremyhahn/go-teg/pkg/pintls"
	"github.com/jeremyhahn/go-teg/pkg/pinwatch"
	"github.com/jeremyhahn/go-teg/pkg/simulator"
	"github.com/jeremyhahn/go-teg/pkg/teg"
)

const customerPassword = "hunter2"

// startGateway runs a simulator for the duration of the test and returns it.
func startGateway(t *testing.T) *simulator.Simulator {
	t.Helper()

	sim, err := simulator.New(&simulator.Config{Password: customerPassword})
	require.NoError(t, err)
	require.NoError(t, sim.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sim.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil && err != context.Canceled {
			t.Errorf("simulator run: %v", err)
		}
	})
	return sim
}

// TestFirstUseWorkflow exercises the full operator workflow: capture the
// gateway's certificate without prior trust, persist it as a pin file, and
// query the API through a client that trusts exactly those bytes.
func TestFirstUseWorkflow(t *testing.T) {
	sim := startGateway(t)
	addr, err := sim.Addr()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Discover: capture the self-signed certificate from the handshake.
	der, err := discover.FetchCertificate(ctx, &discover.Config{Addr: addr})
	require.NoError(t, err)
	assert.Equal(t, sim.Certificate(), der)

	// Persist the capture and read it back, as the CLI does.
	pinPath := filepath.Join(t.TempDir(), "gateway.pem")
	require.NoError(t, os.WriteFile(pinPath, pintls.EncodePEM(der), 0600))

	certs, err := pintls.LoadCertSet(pinPath)
	require.NoError(t, err)

	// Query through the pinned client.
	client, err := teg.New(&teg.Config{Addr: addr, Certs: certs})
	require.NoError(t, err)
	defer client.Close()

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, status.DIN)

	// Privileged endpoints reject requests until login.
	_, err = client.SystemStatus(ctx)
	require.ErrorIs(t, err, teg.ErrUnexpectedStatus)

	_, err = client.Login(ctx, "customer", customerPassword)
	require.NoError(t, err)

	meters, err := client.MetersAggregates(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, meters.Sources())

	system, err := client.SystemStatus(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, system.BatteryBlocks)

	soe, err := client.StateOfEnergy(ctx)
	require.NoError(t, err)
	assert.Greater(t, soe.Percentage, 0.0)

	radios, err := client.LegalRadio(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, radios)
}

// TestPinnedClientRejectsImpostor verifies that a client pinned to one
// gateway refuses to talk to a different one at the same address.
func TestPinnedClientRejectsImpostor(t *testing.T) {
	victim := startGateway(t)
	impostor := startGateway(t)

	addr, err := impostor.Addr()
	require.NoError(t, err)

	client, err := teg.New(&teg.Config{
		Addr:  addr,
		Certs: pintls.CertSet{victim.Certificate()},
	})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = client.Status(ctx)
	assert.ErrorIs(t, err, pintls.ErrCertNotPermitted)
}

// TestCertificateRotation verifies that a client backed by a pin file
// sentinel follows the operator re-capturing a rotated certificate.
func TestCertificateRotation(t *testing.T) {
	oldGateway := startGateway(t)
	newGateway := startGateway(t)

	pinPath := filepath.Join(t.TempDir(), "gateway.pem")
	require.NoError(t, os.WriteFile(pinPath, oldGateway.CertificatePEM(), 0600))

	sentinel, err := pinwatch.New(pinPath)
	require.NoError(t, err)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	go sentinel.Start(watchCtx) //nolint:errcheck

	addr, err := newGateway.Addr()
	require.NoError(t, err)

	client, err := teg.New(&teg.Config{
		Addr:   addr,
		Verify: sentinel.VerifyPeerCertificate,
	})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// The pin file still holds the old gateway's certificate.
	_, err = client.Status(ctx)
	require.ErrorIs(t, err, pintls.ErrCertNotPermitted)

	// The operator re-captures; the sentinel picks up the new pin.
	require.NoError(t, os.WriteFile(pinPath, newGateway.CertificatePEM(), 0600))

	require.Eventually(t, func() bool {
		_, statusErr := client.Status(ctx)
		return statusErr == nil
	}, 10*time.Second, 100*time.Millisecond)
}
