// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/systolink/pkg/accel"
)

// MonitorOptions configures Monitor.
type MonitorOptions struct {
	// Interval between polls; zero uses the session's poll interval.
	Interval time.Duration
	// Duration to monitor for; zero runs until ctx is done.
	Duration time.Duration
	// ChangesOnly reports only polls whose status differs from the last.
	ChangesOnly bool
}

// StatusEvent is one monitored poll.
type StatusEvent struct {
	Status  accel.DeviceStatus
	Elapsed time.Duration
	Changed bool
}

// Monitor polls STATUS and reports each result to fn. The first poll always
// counts as a change. It returns nil when Duration elapses or ctx is done,
// and the error of the first failed poll otherwise.
func (s *Session) Monitor(ctx context.Context, opts MonitorOptions, fn func(StatusEvent)) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = s.opts.pollInterval
	}

	start := time.Now()
	last := accel.StatusUnknown
	first := true

	for {
		status, err := s.PollStatus()
		if err != nil {
			return err
		}

		changed := first || status != last
		if changed && !first {
			s.logger.Info("Status changed", zap.Stringer("from", last), zap.Stringer("to", status))
		}
		if changed || !opts.ChangesOnly {
			fn(StatusEvent{Status: status, Elapsed: time.Since(start), Changed: changed})
		}
		first = false
		last = status

		if opts.Duration > 0 && time.Since(start) >= opts.Duration {
			return nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
