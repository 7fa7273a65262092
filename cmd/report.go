// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/systolink/pkg/accel"
)

var reportCmd = &cobra.Command{
	Use:   "report FILE",
	Short: "Summarize a CBOR run log",
	Long: `Read a run log written by "run --log" or "benchmark --log" and print
the same statistics a live benchmark reports. No device is contacted.`,
	Args: cobra.ExactArgs(1),
	// No connection or logging configuration is needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return failure("failed to open run log: %w", err)
	}
	defer f.Close()

	entries, err := accel.ReadRunLog(f)
	if err != nil && len(entries) == 0 {
		return failure("%w", err)
	}

	stats := summarizeRunLog(entries)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run log: %s (%d entries)\n", args[0], len(entries))
	if len(entries) > 0 {
		fmt.Fprintf(out, "Span: %s to %s\n\n",
			entries[0].Time.Local().Format("2006-01-02 15:04:05"),
			entries[len(entries)-1].Time.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprint(out, stats.String())

	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
	return nil
}

// summarizeRunLog replays log entries into a statistics tracker. Failure
// kinds are not stored in the log, so failed entries count as "other".
func summarizeRunLog(entries []accel.RunEntry) *accel.Statistics {
	stats := accel.NewStatistics()
	for _, e := range entries {
		if e.Error != "" {
			stats.Update(nil, e.Latency, accel.FailureOther)
			continue
		}
		rec := e.Record()
		stats.Update(&rec, e.Latency, accel.FailureNone)
	}
	if len(entries) > 0 {
		stats.StartTime = entries[0].Time
		stats.LastUpdateTime = entries[len(entries)-1].Time
	}
	return stats
}

