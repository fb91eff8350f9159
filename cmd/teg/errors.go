// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import "errors"

// Exit codes for the CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitRequestFailed indicates a gateway request or discovery failed.
	ExitRequestFailed = 1

	// ExitConfigError indicates a configuration or input validation error.
	ExitConfigError = 2
)

// Sentinel errors for CLI operations.
var (
	// ErrInvalidInput is returned when required input parameters are missing or invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRequestFailed is returned when a gateway request fails.
	ErrRequestFailed = errors.New("request failed")

	// ErrDiscoverFailed is returned when certificate discovery fails.
	ErrDiscoverFailed = errors.New("discover failed")

	// ErrFileOperation is returned when a file read or write operation fails.
	ErrFileOperation = errors.New("file operation failed")
)
