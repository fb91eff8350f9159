// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pintls

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
)

// CertSet is an ordered set of DER-encoded certificates the client trusts.
// Membership is whole-value byte equality. A certificate renewed with the
// same key material but a different encoding is a different certificate and
// is not trusted. The set is read-only once built and safe for concurrent
// use without synchronization.
type CertSet [][]byte

// Contains reports whether der is byte-identical to a member of the set.
func (s CertSet) Contains(der []byte) bool {
	for _, pinned := range s {
		if bytes.Equal(pinned, der) {
			return true
		}
	}
	return false
}

// Verify checks the leaf certificate a server presented during a TLS
// handshake against the pinned set. Intermediates, hostname, expiry, and
// revocation status are deliberately not examined; the pinned set is the
// entire trust model. The signature matches tls.Config.VerifyPeerCertificate.
//
// An empty set rejects every certificate.
func (s CertSet) Verify(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrNoCertificates
	}
	if s.Contains(rawCerts[0]) {
		return nil
	}
	return ErrCertNotPermitted
}

// NewPinnedTLSConfig creates a TLS configuration that trusts exactly the
// certificates in the given set, bypassing the system certificate store.
//
// InsecureSkipVerify disables the standard chain validation so that
// VerifyPeerCertificate sees the gateway's self-signed certificate at all;
// the pin check it installs is strictly stronger than CA validation for a
// fixed, operator-controlled device.
func NewPinnedTLSConfig(certs CertSet) *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, //nolint:gosec // CA verification is replaced by exact-match pinning
		VerifyPeerCertificate: certs.Verify,
	}
}
