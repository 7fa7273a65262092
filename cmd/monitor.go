// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/systolink/pkg/accel"
	"github.com/Thermoquad/systolink/pkg/session"
)

var (
	monitorInterval    time.Duration
	monitorDuration    time.Duration
	monitorChangesOnly bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll device status continuously",
	Long: `Poll STATUS at a fixed interval and print each result with the time
since monitoring began. Runs until --duration elapses or Ctrl-C.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 0, "Poll interval (default: --poll-interval)")
	monitorCmd.Flags().DurationVar(&monitorDuration, "duration", 0, "Stop after this long (0 = until Ctrl-C)")
	monitorCmd.Flags().BoolVar(&monitorChangesOnly, "changes-only", false, "Only print status changes")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	out := cmd.OutOrStdout()
	printHeader(out, "Monitor", s)
	fmt.Fprintln(out, "Press Ctrl-C to stop")
	fmt.Fprintln(out)

	ctx, cancel := signalContext()
	defer cancel()

	polls := 0
	err = s.Monitor(ctx, session.MonitorOptions{
		Interval:    monitorInterval,
		Duration:    monitorDuration,
		ChangesOnly: monitorChangesOnly,
	}, func(ev session.StatusEvent) {
		polls++
		marker := " "
		if ev.Changed {
			marker = "*"
		}
		fmt.Fprintf(out, "[%9.3fs] %s %s\n", ev.Elapsed.Seconds(), marker, accel.FormatStatus(ev.Status))
	})

	fmt.Fprintf(out, "\n%d events\n", polls)
	if err != nil {
		return protocolError(err)
	}
	return nil
}
