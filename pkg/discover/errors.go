// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package discover captures the self-signed certificate of a Tesla Backup
// Gateway 2 on first contact, before any trust material exists. A throwaway
// HTTPS request forces a TLS handshake whose verifier accepts whatever
// certificate the gateway presents and hands it off for the operator to pin;
// the request itself is never allowed to matter. This is trust-on-first-use:
// the captured certificate carries no authority until the operator persists
// it and feeds it back as a pin.
package discover

import "errors"

var (
	// ErrNoCertificate is returned when the bounded wait elapsed without any
	// certificate being observed, for example because the gateway was
	// unreachable or the connection was cut before the TLS handshake.
	ErrNoCertificate = errors.New("discover: no certificate observed")

	// ErrInvalidConfig is returned when the discovery configuration is
	// missing required fields.
	ErrInvalidConfig = errors.New("discover: invalid configuration")

	// ErrLookupFailed is returned when the optional DNS lookup of the
	// gateway's address fails.
	ErrLookupFailed = errors.New("discover: gateway address lookup failed")
)
