// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package pintls implements the trust layer for the Tesla Backup Gateway 2.
// The gateway serves its REST API over TLS with a self-signed certificate
// that chains to no public authority, so the usual CA validation pipeline is
// replaced with exact-match certificate pinning: a presented leaf certificate
// is trusted if and only if it is byte-identical to one the operator has
// explicitly supplied.
//
// The package also provides the address override transport. Requests are
// always addressed to the fixed symbolic host "teg" so that SNI and the Host
// header match the gateway's own idea of its name, while the TCP connection
// is dialed at the operator-supplied IP address. No DNS lookup is ever
// performed for the symbolic host.
package pintls

import "errors"

var (
	// ErrCertNotPermitted is returned when the server's leaf certificate does
	// not byte-match any pinned certificate. Retrying with the same pin set
	// will fail identically.
	ErrCertNotPermitted = errors.New("pintls: server certificate not permitted")

	// ErrNoCertificates is returned when the server presents no certificates
	// during the TLS handshake.
	ErrNoCertificates = errors.New("pintls: no certificates presented")

	// ErrNoPEMCertificates is returned when PEM input contains no CERTIFICATE
	// blocks.
	ErrNoPEMCertificates = errors.New("pintls: no certificates found in PEM data")
)
