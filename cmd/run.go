// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/systolink/pkg/accel"
)

var runLogFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one complete processing cycle",
	Long: `Run START, wait for DONE, then fetch and print the result record.

With --log FILE the outcome is appended to a CBOR run log that the report
command can summarize later.

Exit codes:
  0 - Record fetched
  1 - Rejected, device error, timeout or bad frame
  2 - Connection error`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runLogFile, "log", "", "Append the run to a CBOR run log")
}

func runRun(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	out := cmd.OutOrStdout()
	printHeader(out, "Run", s)

	runLog, closeLog, err := openRunLog(runLogFile)
	if err != nil {
		return failure("%w", err)
	}
	defer closeLog()

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	rec, err := s.Process(ctx, cfg.Session.MaxWait)
	latency := time.Since(start)

	if runLog != nil {
		var recp *accel.ResultRecord
		if err == nil {
			recp = &rec
		}
		if lerr := runLog.Append(accel.NewRunEntry(s.ID(), recp, latency, err)); lerr != nil {
			logger.Warn("Failed to write run log", zap.Error(lerr))
		}
	}

	if err != nil {
		return protocolError(err)
	}

	fmt.Fprintf(out, "Completed in %v\n", latency.Round(time.Millisecond))
	fmt.Fprint(out, accel.FormatRecord(rec))
	return nil
}

// openRunLog opens path for appending. An empty path yields a nil log and a
// no-op closer.
func openRunLog(path string) (*accel.RunLog, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run log: %w", err)
	}
	logger.Debug("Run log opened", zap.String("path", path))
	return accel.NewRunLog(f), func() { f.Close() }, nil
}
