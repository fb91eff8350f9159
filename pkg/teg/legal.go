// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package teg

// Radio is one element of the payload of /api/legal/radio, the regulatory
// identifiers of a radio inside the gateway.
type Radio struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	FCCID        string `json:"fcc_id"`
	ICID         string `json:"ic_id"`
}
