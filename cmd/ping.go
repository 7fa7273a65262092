// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	pingCount    int
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check device liveness with PING",
	Long: `Send PING ('P') and wait for PONG ('O').

Connecting already performs one PING as a liveness probe; this command then
sends --count further pings and reports round-trip times.

Exit codes:
  0 - All pings answered
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", 100*time.Millisecond, "Delay between pings")
}

func runPing(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	out := cmd.OutOrStdout()
	printHeader(out, "Ping", s)

	successCount := 0
	for i := 1; i <= pingCount; i++ {
		fmt.Fprintf(out, "Ping %d/%d: ", i, pingCount)

		start := time.Now()
		if s.Ping() {
			fmt.Fprintf(out, "PONG, rtt=%v\n", time.Since(start).Round(time.Millisecond))
			successCount++
		} else {
			fmt.Fprintf(out, "NO PONG (after %v)\n", time.Since(start).Round(time.Millisecond))
		}

		if i < pingCount {
			time.Sleep(pingInterval)
		}
	}

	failCount := pingCount - successCount
	fmt.Fprintf(out, "\n--- Ping statistics ---\n")
	if pingCount > 0 {
		fmt.Fprintf(out, "%d pings sent, %d responses received, %.0f%% loss\n",
			pingCount, successCount, float64(failCount)/float64(pingCount)*100)
	}

	if failCount > 0 {
		return failure("%d of %d pings unanswered", failCount, pingCount)
	}
	return nil
}
