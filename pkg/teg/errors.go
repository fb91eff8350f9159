// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package teg is a typed client for the Tesla Backup Gateway 2's local REST
// API. Requests are addressed to the fixed symbolic host the gateway issues
// its certificate for and dialed at the operator-supplied IP; the server
// certificate is validated by exact-match pinning (see pkg/pintls) instead
// of CA trust.
package teg

import "errors"

var (
	// ErrInvalidConfig is returned when the client configuration is missing
	// required fields.
	ErrInvalidConfig = errors.New("teg: invalid configuration")

	// ErrRequestFailed is returned when a gateway request could not be
	// completed.
	ErrRequestFailed = errors.New("teg: request failed")

	// ErrUnexpectedStatus is returned when the gateway answered with a
	// non-200 HTTP status, including 401/403 from authenticated endpoints
	// called before Login.
	ErrUnexpectedStatus = errors.New("teg: unexpected response status")
)
