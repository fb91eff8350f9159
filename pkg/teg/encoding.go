// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package teg

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// gatewayTimeFormat is the timestamp layout the gateway uses for fields such
// as start_time, e.g. "2024-03-01 17:46:20 +0800".
const gatewayTimeFormat = "2006-01-02 15:04:05 -0700"

// uptimeRE matches the gateway's duration encoding, e.g. "12h54m37.123432s".
var uptimeRE = regexp.MustCompile(`^(\d+)h(\d+)m([\d.]+)s$`)

// Uptime is a duration the gateway encodes as "{hours}h{minutes}m{seconds}s"
// with fractional seconds.
type Uptime time.Duration

// Duration returns the uptime as a time.Duration.
func (u Uptime) Duration() time.Duration {
	return time.Duration(u)
}

func (u Uptime) String() string {
	total := time.Duration(u).Seconds()
	hours := int64(total) / 3600
	minutes := (int64(total) % 3600) / 60
	seconds := total - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%dh%dm%.9fs", hours, minutes, seconds)
}

// MarshalJSON encodes the uptime in the gateway's duration format.
func (u Uptime) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON decodes the gateway's duration format.
func (u *Uptime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	m := uptimeRE.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("teg: unrecognised format for duration %q", s)
	}

	hours, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return fmt.Errorf("teg: duration hours: %w", err)
	}
	minutes, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return fmt.Errorf("teg: duration minutes: %w", err)
	}
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return fmt.Errorf("teg: duration seconds: %w", err)
	}

	*u = Uptime(time.Duration((hours*3600 + minutes*60 + seconds) * float64(time.Second)))
	return nil
}

// GitHash is the 20-byte firmware commit hash, encoded by the gateway as 40
// lowercase hex characters.
type GitHash [20]byte

func (h GitHash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalJSON encodes the hash as lowercase hex.
func (h GitHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a 40-character hex string.
func (h *GitHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("teg: git hash: %w", err)
	}
	if len(decoded) != len(h) {
		return fmt.Errorf("teg: git hash: expected %d bytes, got %d", len(h), len(decoded))
	}
	copy(h[:], decoded)
	return nil
}

// GatewayTime is a timestamp in the gateway's "2006-01-02 15:04:05 -0700"
// layout. Fields using RFC 3339 are plain time.Time instead.
type GatewayTime struct {
	time.Time
}

// MarshalJSON encodes the timestamp in the gateway's layout.
func (t GatewayTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(gatewayTimeFormat))
}

// UnmarshalJSON decodes the gateway's timestamp layout.
func (t *GatewayTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(gatewayTimeFormat, s)
	if err != nil {
		return fmt.Errorf("teg: timestamp: %w", err)
	}
	t.Time = parsed
	return nil
}
