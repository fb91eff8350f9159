// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-teg/pkg/pintls"
)

var (
	quiet      bool
	debug      bool
	outputFile string
	logFormat  string

	gatewayIP   string
	gatewayPort uint16
	pinFile     string
)

// logLevel controls the global slog level at runtime.
var logLevel = new(slog.LevelVar)

// exitFunc is the function called to exit the program.
// This can be overridden in tests to capture exit calls.
var exitFunc = os.Exit

var rootCmd = &cobra.Command{
	Use:   "teg",
	Short: "Tesla Backup Gateway client",
	Long: `teg talks to a Tesla Backup Gateway 2 on the local network over pinned
TLS. The gateway serves a self-signed certificate, so instead of CA chain
validation the client trusts exactly the certificate bytes captured from the
device on first use.

Typical workflow:
  teg discover --ip 192.168.1.50 -o gateway.pem   capture the certificate
  teg status --ip 192.168.1.50 --cert gateway.pem query the device

Commands that read privileged endpoints (meters, system) log in with the
customer password printed inside the gateway's door.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output (errors only)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format (text|json)")

	rootCmd.PersistentFlags().StringVar(&gatewayIP, "ip", "", "gateway IP address on the local network")
	rootCmd.PersistentFlags().Uint16Var(&gatewayPort, "port", pintls.GatewayPort, "gateway HTTPS port")
	rootCmd.PersistentFlags().StringVar(&pinFile, "cert", "", "path to the pinned gateway certificate (PEM)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(metersCmd)
	rootCmd.AddCommand(systemCmd)
	rootCmd.AddCommand(soeCmd)
	rootCmd.AddCommand(legalCmd)
	rootCmd.AddCommand(serveCmd)
}

// initLogging configures the global slog logger based on CLI flags.
//
//	--debug: LevelDebug with source location
//	default: LevelInfo
//	--quiet: LevelError (only errors shown)
//
// --debug takes precedence over --quiet.
// --log-format selects the handler: "text" (default) or "json".
func initLogging() {
	switch {
	case debug:
		logLevel.Set(slog.LevelDebug)
	case quiet:
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: debug,
	}

	handlers := map[string]func(io.Writer, *slog.HandlerOptions) slog.Handler{
		"text": func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewTextHandler(w, o) },
		"json": func(w io.Writer, o *slog.HandlerOptions) slog.Handler { return slog.NewJSONHandler(w, o) },
	}

	factory, ok := handlers[logFormat]
	if !ok {
		factory = handlers["text"]
	}

	handler := factory(os.Stderr, opts)
	slog.SetDefault(slog.New(handler))
}

// writeOutput writes data to the configured output file or stdout.
// It respects the --output flag; when empty, writes to stdout.
func writeOutput(data []byte) error {
	if outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0600); err != nil {
			return fmt.Errorf("%w: %w", ErrFileOperation, err)
		}
		slog.Info("written to file", "path", outputFile, "bytes", len(data))
		return nil
	}
	_, err := os.Stdout.Write(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	return nil
}

// writeJSON renders a gateway response as indented JSON through writeOutput.
func writeJSON(payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	return writeOutput(append(data, '\n'))
}
