// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package teg

import "time"

// LoginBasic is the payload of /api/login/Basic. The Token is retained by
// the client and sent as a bearer token on subsequent requests.
type LoginBasic struct {
	Email     string    `json:"email"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Roles     []string  `json:"roles"`
	Token     string    `json:"token"`
	Provider  string    `json:"provider"`
	LoginTime time.Time `json:"loginTime"`
}
