// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pintls

import (
	"encoding/pem"
	"fmt"
	"os"
)

// pemCertificateType is the PEM block type for X.509 certificates.
const pemCertificateType = "CERTIFICATE"

// ParseCertSet extracts every CERTIFICATE block from PEM data into a CertSet.
// Non-certificate blocks are skipped. At least one certificate is required.
func ParseCertSet(pemData []byte) (CertSet, error) {
	var certs CertSet
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == pemCertificateType {
			certs = append(certs, block.Bytes)
		}
	}
	if len(certs) == 0 {
		return nil, ErrNoPEMCertificates
	}
	return certs, nil
}

// LoadCertSet reads a PEM pin file from disk and parses it into a CertSet.
func LoadCertSet(path string) (CertSet, error) {
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pintls: read pin file: %w", err)
	}
	certs, err := ParseCertSet(pemData)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return certs, nil
}

// EncodePEM renders a DER-encoded certificate as a PEM CERTIFICATE block,
// suitable for persisting as a pin file.
func EncodePEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemCertificateType,
		Bytes: der,
	})
}
