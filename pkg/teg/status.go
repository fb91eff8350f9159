// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package teg

// Status is the payload of /api/status.
type Status struct {
	// DIN is the device identification number, e.g.
	// "1152100-13-J--AB123456C7D8EF".
	DIN string `json:"din"`

	StartTime GatewayTime `json:"start_time"`
	UpTime    Uptime      `json:"up_time_seconds"`
	IsNew     bool        `json:"is_new"`

	// Version is the firmware version, e.g. "23.12.11 452c76cb".
	Version string  `json:"version"`
	GitHash GitHash `json:"git_hash"`

	CommissionCount  uint16  `json:"commission_count"`
	DeviceType       string  `json:"device_type"`
	TEGType          string  `json:"teg_type"`
	SyncType         string  `json:"sync_type"`
	Leader           string  `json:"leader"`
	Followers        *string `json:"followers"`
	CellularDisabled bool    `json:"cellular_disabled"`
}
