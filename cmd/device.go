// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/systolink/pkg/accel"
	"github.com/Thermoquad/systolink/pkg/session"
)

var waitForIdle bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Poll device status once",
	Long: `Send STATUS ('?') once and print the classified reply.

  IDLE  (0x41) - ready for START
  BUSY  (0x42) - processing
  DONE  (0x44) - results available
  ERROR (0x45) - device fault

A timeout or unrecognized byte prints UNKNOWN.`,
	RunE: runStatus,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start processing",
	Long: `Send START ('S'). ACK means processing started; BUSY means the device
was already processing. Anything else is a rejection (exit code 1).`,
	RunE: runStart,
}

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Poll until processing completes",
	Long: `Poll STATUS every --poll-interval until the device reports DONE, or
until --max-wait elapses.

ERROR, or IDLE while waiting for completion, fails immediately. With --idle
the command instead waits for the device to return to IDLE.`,
	RunE: runWait,
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Fetch the result record",
	Long: `Check STATUS, and if the device reports DONE send RESULTS ('R') and
decode the 8-byte little-endian record:

  bytes 0-3  MAC operations
  bytes 4-7  processing cycles

RESULTS is never sent unless the device reports DONE.`,
	RunE: runResults,
}

func init() {
	rootCmd.AddCommand(statusCmd, startCmd, waitCmd, resultsCmd)
	waitCmd.Flags().BoolVar(&waitForIdle, "idle", false, "Wait for IDLE instead of DONE")
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	status, err := s.PollStatus()
	if err != nil {
		return connectionFailure(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\n", accel.FormatStatus(status))
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	outcome, err := s.StartProcessing()
	if err != nil {
		return connectionFailure(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Start: %s\n", outcome)
	if !outcome.Accepted() {
		return failure("device rejected START")
	}
	return nil
}

func runWait(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	ctx, cancel := signalContext()
	defer cancel()

	target := "completion"
	wait := s.WaitForCompletion
	if waitForIdle {
		target = "idle"
		wait = s.WaitForIdle
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Waiting up to %v for %s...\n", cfg.Session.MaxWait, target)
	if err := wait(ctx, cfg.Session.MaxWait); err != nil {
		return protocolError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reached %s\n", target)
	return nil
}

func runResults(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	rec, err := s.FetchResults()
	if err != nil {
		return protocolError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Results:\n%s", accel.FormatRecord(rec))
	return nil
}

// protocolError assigns an exit code to a session error and adds a hint for
// retryable failures.
func protocolError(err error) error {
	if errors.Is(err, session.ErrTransport) || errors.Is(err, session.ErrClosed) {
		return connectionFailure(err)
	}
	if session.Retryable(err) {
		return failure("%w (retryable)", err)
	}
	return failure("%w", err)
}
