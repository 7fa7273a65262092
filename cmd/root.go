// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/systolink/internal/config"
	"github.com/Thermoquad/systolink/internal/logging"
	"github.com/Thermoquad/systolink/pkg/link"
	"github.com/Thermoquad/systolink/pkg/session"
)

// Exit codes
const (
	exitOK         = 0
	exitFailure    = 1 // protocol failure or timeout
	exitConnection = 2 // link could not be opened or device did not answer
)

var (
	configFile string
	verbose    bool

	v      = config.New()
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "systolink",
	Short: "Systolic accelerator serial protocol client",
	Long: `Systolink - A CLI tool for driving a systolic-array image accelerator
over its single-byte serial command protocol.

Commands cover liveness checks, starting a computation, polling until the
device finishes, fetching the 8-byte result record, and repeated benchmark
and stress runs for characterizing the link.

Connection modes:
  Serial:    --port /dev/rfcomm0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]
  Emulated:  --emulate (no hardware required)

Settings may also come from systolink.yaml or SYSTOLINK_* environment
variables (e.g. SYSTOLINK_LINK_PORT). For WebSocket authentication, the
password is read from the SYSTOLINK_PASSWORD environment variable, or
prompted interactively if not set.

Exit codes:
  0 - Success
  1 - Protocol failure or timeout
  2 - Connection error`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&configFile, "config", "", "Config file (default: ./systolink.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging (same as --log-level debug)")

	// Serial connection flags
	pf.StringP("port", "p", "", "Serial port device")
	pf.IntP("baud", "b", link.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	pf.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	pf.String("username", "", "Username for HTTP Basic auth")
	pf.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	pf.Bool("emulate", false, "Use the built-in device emulator instead of hardware")

	// Timing flags
	pf.Duration("read-timeout", link.DefaultReadTimeout, "Timeout for each reply")
	pf.Duration("probe-timeout", session.DefaultProbeTimeout, "Timeout for the connect PING")
	pf.Duration("poll-interval", session.DefaultPollInterval, "Delay between STATUS polls")
	pf.Duration("results-timeout", link.DefaultReadTimeout, "Timeout for the 8-byte result record")
	pf.Duration("settle-delay", 2*time.Second, "Delay after opening the link before probing")
	pf.Duration("max-wait", 30*time.Second, "Maximum time to wait for completion")

	// Logging flags
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")
	pf.String("log-format", "console", "Log format (console, json)")
	pf.String("log-output", "stderr", "Log output (stderr, stdout, or a file path)")

	if err := config.BindFlags(v, pf); err != nil {
		panic(err)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if verbose {
		v.Set("logging.level", "debug")
	}

	loaded, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	cfg = loaded

	l, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	logger = l.With(zap.String("command", cmd.Name()))
	return nil
}

// exitError carries a process exit code
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func failure(format string, a ...any) error {
	return &exitError{code: exitFailure, err: fmt.Errorf(format, a...)}
}

func connectionFailure(err error) error {
	return &exitError{code: exitConnection, err: err}
}

// ExitCode maps an Execute error to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitFailure
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}
