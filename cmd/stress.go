// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/systolink/pkg/accel"
	"github.com/Thermoquad/systolink/pkg/session"
)

var stressCount int

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Issue repeated RESULTS reads against a finished run",
	Long: `Stress-test the result path: once the device reports DONE, send --count
back-to-back RESULTS commands and count complete, partial and empty frames.

The device must already be DONE (use "run" or "start" and "wait" first);
otherwise nothing is sent.`,
	RunE: runStress,
}

func init() {
	rootCmd.AddCommand(stressCmd)
	stressCmd.Flags().IntVar(&stressCount, "count", 100, "Number of RESULTS reads")
}

func runStress(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	out := cmd.OutOrStdout()
	printHeader(out, "Stress", s)

	stats, err := s.Stress(session.StressOptions{
		Count: stressCount,
		OnProgress: func(res session.RunResult) {
			if res.Err != nil {
				fmt.Fprintf(out, "Read %3d: %s\n", res.Run, session.Classify(res.Err))
			}
		},
	})
	if stats == nil {
		return protocolError(err)
	}

	complete := stats.SuccessfulRuns
	partial := stats.Failures[accel.FailurePartialFrame]
	empty := stats.Failures[accel.FailureNoData]

	fmt.Fprintf(out, "\nReads:    %d\n", stats.TotalRuns)
	fmt.Fprintf(out, "Complete: %d\n", complete)
	fmt.Fprintf(out, "Partial:  %d\n", partial)
	fmt.Fprintf(out, "Empty:    %d\n", empty)

	if err != nil {
		return protocolError(err)
	}
	if complete != stats.TotalRuns {
		return failure("%d of %d reads incomplete", stats.TotalRuns-complete, stats.TotalRuns)
	}
	return nil
}
