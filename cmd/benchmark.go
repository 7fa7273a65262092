// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/systolink/pkg/accel"
	"github.com/Thermoquad/systolink/pkg/session"
)

var (
	benchmarkRuns  int
	benchmarkPause time.Duration
	benchmarkLog   string
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Run repeated processing cycles and report statistics",
	Long: `Run --runs complete processing cycles (START, wait, RESULTS) and report
throughput in MAC operations per cycle, its coefficient of variation, and
per-run latency.

Press Ctrl-C to stop early; statistics for completed runs are still printed.

Exit codes:
  0 - Every run produced a record
  1 - One or more runs failed
  2 - Connection error`,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)
	benchmarkCmd.Flags().IntVar(&benchmarkRuns, "runs", 20, "Number of runs")
	benchmarkCmd.Flags().DurationVar(&benchmarkPause, "pause", 0, "Pause between runs")
	benchmarkCmd.Flags().StringVar(&benchmarkLog, "log", "", "Append every run to a CBOR run log")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	if benchmarkRuns < 1 {
		return failure("--runs must be at least 1")
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	out := cmd.OutOrStdout()
	printHeader(out, "Benchmark", s)
	fmt.Fprintf(out, "Runs: %d, max wait per run: %v\n\n", benchmarkRuns, cfg.Session.MaxWait)

	runLog, closeLog, err := openRunLog(benchmarkLog)
	if err != nil {
		return failure("%w", err)
	}
	defer closeLog()

	ctx, cancel := signalContext()
	defer cancel()

	stats := s.Benchmark(ctx, session.BenchmarkOptions{
		Runs:    benchmarkRuns,
		MaxWait: cfg.Session.MaxWait,
		Pause:   benchmarkPause,
		OnRun: func(res session.RunResult) {
			printRun(out, res, benchmarkRuns)
			if runLog != nil {
				if err := runLog.Append(accel.NewRunEntry(s.ID(), res.Record, res.Latency, res.Err)); err != nil {
					logger.Warn("Failed to write run log", zap.Error(err))
				}
			}
		},
	})

	fmt.Fprintln(out)
	fmt.Fprint(out, stats.String())

	if stats.TotalRuns < uint64(benchmarkRuns) {
		if stats.Failures[accel.FailureTransport] > 0 {
			return connectionFailure(fmt.Errorf("benchmark stopped after %d of %d runs", stats.TotalRuns, benchmarkRuns))
		}
		return failure("benchmark stopped after %d of %d runs", stats.TotalRuns, benchmarkRuns)
	}
	if failed := stats.FailedRuns(); failed > 0 {
		return failure("%d of %d runs failed", failed, stats.TotalRuns)
	}
	return nil
}

func printRun(out io.Writer, res session.RunResult, total int) {
	if res.Err != nil {
		fmt.Fprintf(out, "Run %3d/%d: FAILED (%s) %v\n", res.Run, total, session.Classify(res.Err), res.Err)
		return
	}
	fmt.Fprintf(out, "Run %3d/%d: %s MAC, %s cycles, %s, %v\n",
		res.Run, total,
		accel.FormatCount(uint64(res.Record.MACOperations)),
		accel.FormatCount(uint64(res.Record.ProcessingCycles)),
		accel.FormatThroughput(*res.Record),
		res.Latency.Round(time.Millisecond))
}
