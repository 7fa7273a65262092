// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/systolink/pkg/accel"
)

// RunResult is the outcome of one benchmark or stress iteration.
type RunResult struct {
	Run     int
	Record  *accel.ResultRecord // nil on failure
	Latency time.Duration
	Err     error
}

// BenchmarkOptions configures Benchmark.
type BenchmarkOptions struct {
	Runs    int
	MaxWait time.Duration
	Pause   time.Duration // between runs
	OnRun   func(RunResult)
}

// StressOptions configures Stress.
type StressOptions struct {
	Count      int
	OnProgress func(RunResult)
}

// Classify maps a session error to a statistics failure kind.
func Classify(err error) accel.FailureKind {
	switch {
	case err == nil:
		return accel.FailureNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return accel.FailureCanceled
	case errors.Is(err, ErrTransport), errors.Is(err, ErrClosed):
		return accel.FailureTransport
	case errors.Is(err, ErrRejected):
		return accel.FailureRejected
	case errors.Is(err, ErrWaitTimeout):
		return accel.FailureTimeout
	case errors.Is(err, ErrDeviceError):
		return accel.FailureDeviceError
	case errors.Is(err, ErrUnexpectedIdle):
		return accel.FailureUnexpectedIdle
	case errors.Is(err, ErrNotReady):
		return accel.FailureNotReady
	case errors.Is(err, ErrPartialFrame):
		return accel.FailurePartialFrame
	case errors.Is(err, ErrNoData):
		return accel.FailureNoData
	default:
		return accel.FailureOther
	}
}

// fatal reports errors after which further runs cannot succeed.
func fatal(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrClosed) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func tally(stats *accel.Statistics, res RunResult) {
	stats.Update(res.Record, res.Latency, Classify(res.Err))
}

// Benchmark performs Runs complete Process cycles and collects throughput and
// latency statistics. It stops early on cancellation or a transport failure.
func (s *Session) Benchmark(ctx context.Context, opts BenchmarkOptions) *accel.Statistics {
	stats := accel.NewStatistics()
	logger := s.logger.With(zap.Int("runs", opts.Runs))
	logger.Info("Benchmark started")

	for run := 1; run <= opts.Runs; run++ {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		rec, err := s.Process(ctx, opts.MaxWait)
		res := RunResult{Run: run, Latency: time.Since(start), Err: err}
		if err == nil {
			res.Record = &rec
		}
		tally(stats, res)
		if opts.OnRun != nil {
			opts.OnRun(res)
		}

		if err != nil {
			logger.Warn("Benchmark run failed", zap.Int("run", run), zap.Error(err))
			if fatal(err) {
				break
			}
		}

		if opts.Pause > 0 && run < opts.Runs {
			timer := time.NewTimer(opts.Pause)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	logger.Info("Benchmark finished",
		zap.Uint64("successful", stats.SuccessfulRuns),
		zap.Uint64("failed", stats.FailedRuns()),
	)
	return stats
}

// Stress issues Count back-to-back RESULTS commands and counts complete,
// partial, and empty frames. The device must report DONE first; otherwise a
// *NotReadyError is returned and nothing is sent.
func (s *Session) Stress(opts StressOptions) (*accel.Statistics, error) {
	status, err := s.PollStatus()
	if err != nil {
		return nil, err
	}
	if !status.ResultsAvailable() {
		return nil, &NotReadyError{Status: status}
	}

	stats := accel.NewStatistics()
	for i := 1; i <= opts.Count; i++ {
		start := time.Now()
		rec, err := s.readRecord()
		res := RunResult{Run: i, Latency: time.Since(start), Err: err}
		if err == nil {
			res.Record = &rec
		}
		tally(stats, res)
		if opts.OnProgress != nil {
			opts.OnProgress(res)
		}
		if err != nil && fatal(err) {
			return stats, err
		}
	}

	s.logger.Info("Stress test finished",
		zap.Int("count", opts.Count),
		zap.Uint64("complete", stats.SuccessfulRuns),
		zap.Uint64("partial", stats.Failures[accel.FailurePartialFrame]),
		zap.Uint64("empty", stats.Failures[accel.FailureNoData]),
	)
	return stats, nil
}
