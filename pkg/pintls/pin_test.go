// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pintls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTestCert creates a self-signed ECDSA P-256 certificate for the
// symbolic gateway host and returns its DER encoding along with the keypair
// for serving TLS in tests.
func generateTestCert(t *testing.T) ([]byte, tls.Certificate) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: GatewayHost},
		DNSNames:     []string{GatewayHost},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return der, tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}
}

func TestCertSetVerify_Match(t *testing.T) {
	der, _ := generateTestCert(t)
	set := CertSet{der}

	err := set.Verify([][]byte{der}, nil)
	assert.NoError(t, err)
}

func TestCertSetVerify_Mismatch(t *testing.T) {
	pinned, _ := generateTestCert(t)
	presented, _ := generateTestCert(t)
	set := CertSet{pinned}

	err := set.Verify([][]byte{presented}, nil)
	assert.ErrorIs(t, err, ErrCertNotPermitted)
}

func TestCertSetVerify_SingleByteMutation(t *testing.T) {
	der, _ := generateTestCert(t)
	set := CertSet{der}

	// Flipping any single byte of the presented certificate must cause
	// rejection; equality is over the whole encoding.
	mutated := append([]byte(nil), der...)
	mutated[len(mutated)/2] ^= 0x01

	err := set.Verify([][]byte{mutated}, nil)
	assert.ErrorIs(t, err, ErrCertNotPermitted)
}

func TestCertSetVerify_EmptySetRejectsEverything(t *testing.T) {
	der, _ := generateTestCert(t)

	err := CertSet{}.Verify([][]byte{der}, nil)
	assert.ErrorIs(t, err, ErrCertNotPermitted)

	err = CertSet(nil).Verify([][]byte{der}, nil)
	assert.ErrorIs(t, err, ErrCertNotPermitted)
}

func TestCertSetVerify_NoCertificatesPresented(t *testing.T) {
	der, _ := generateTestCert(t)
	set := CertSet{der}

	err := set.Verify(nil, nil)
	assert.ErrorIs(t, err, ErrNoCertificates)
}

func TestCertSetVerify_LeafOnly(t *testing.T) {
	pinned, _ := generateTestCert(t)
	leaf, _ := generateTestCert(t)
	set := CertSet{pinned}

	// Only the leaf (first) certificate is compared; a pinned certificate
	// appearing later in the presented chain must not grant trust.
	err := set.Verify([][]byte{leaf, pinned}, nil)
	assert.ErrorIs(t, err, ErrCertNotPermitted)
}

func TestCertSetVerify_SecondMemberMatches(t *testing.T) {
	first, _ := generateTestCert(t)
	second, _ := generateTestCert(t)
	set := CertSet{first, second}

	err := set.Verify([][]byte{second}, nil)
	assert.NoError(t, err)
}

func TestNewPinnedTLSConfig(t *testing.T) {
	der, _ := generateTestCert(t)
	cfg := NewPinnedTLSConfig(CertSet{der})

	require.NotNil(t, cfg)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.NotNil(t, cfg.VerifyPeerCertificate)

	assert.NoError(t, cfg.VerifyPeerCertificate([][]byte{der}, nil))

	other, _ := generateTestCert(t)
	assert.ErrorIs(t, cfg.VerifyPeerCertificate([][]byte{other}, nil), ErrCertNotPermitted)
}
