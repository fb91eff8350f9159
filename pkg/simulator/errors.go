// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package simulator

import "errors"

var (
	// ErrInvalidConfig is returned when the simulator configuration is
	// missing or incomplete.
	ErrInvalidConfig = errors.New("simulator: invalid configuration")

	// ErrNotListening is returned when an address or connection is
	// requested before Listen has succeeded.
	ErrNotListening = errors.New("simulator: not listening")
)
