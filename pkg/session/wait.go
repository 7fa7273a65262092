// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Thermoquad/systolink/pkg/accel"
)

// WaitForCompletion polls STATUS until the device reports DONE. It fails with
// ErrDeviceError on ERROR and ErrUnexpectedIdle on IDLE. BUSY and unknown
// replies keep it polling until maxWait elapses, then it fails with
// ErrWaitTimeout. A poll started just before the deadline still runs to its
// read timeout, so the overrun past maxWait is at most the larger of the poll
// interval and the read timeout.
//
// ctx is checked between polls only.
func (s *Session) WaitForCompletion(ctx context.Context, maxWait time.Duration) error {
	return s.pollUntil(ctx, "completion", maxWait, func(st accel.DeviceStatus) (bool, error) {
		switch st {
		case accel.StatusDone:
			return true, nil
		case accel.StatusError:
			return true, ErrDeviceError
		case accel.StatusIdle:
			return true, ErrUnexpectedIdle
		default:
			return false, nil
		}
	})
}

// WaitForIdle polls STATUS until the device reports IDLE, failing with
// ErrDeviceError on ERROR.
func (s *Session) WaitForIdle(ctx context.Context, maxWait time.Duration) error {
	return s.pollUntil(ctx, "idle", maxWait, func(st accel.DeviceStatus) (bool, error) {
		switch st {
		case accel.StatusIdle:
			return true, nil
		case accel.StatusError:
			return true, ErrDeviceError
		default:
			return false, nil
		}
	})
}

// pollUntil polls until check reports done. Sleeps are clipped to the time
// remaining; only a poll already in flight at the deadline can overrun it.
func (s *Session) pollUntil(ctx context.Context, target string, maxWait time.Duration,
	check func(accel.DeviceStatus) (bool, error)) error {

	logger := s.logger.With(zap.String("target", target), zap.Duration("max_wait", maxWait))
	start := time.Now()
	polls := 0
	last := accel.StatusUnknown

	for {
		status, err := s.PollStatus()
		if err != nil {
			return err
		}
		polls++
		last = status

		if done, err := check(status); done {
			elapsed := time.Since(start)
			if err != nil {
				logger.Warn("Wait failed",
					zap.Stringer("status", status),
					zap.Int("polls", polls),
					zap.Duration("elapsed", elapsed),
				)
				return fmt.Errorf("%w after %d polls", err, polls)
			}
			logger.Debug("Wait finished", zap.Int("polls", polls), zap.Duration("elapsed", elapsed))
			return nil
		}

		remaining := maxWait - time.Since(start)
		if remaining <= 0 {
			break
		}

		timer := time.NewTimer(min(s.opts.pollInterval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("wait for %s canceled: %w", target, ctx.Err())
		case <-timer.C:
		}

		if time.Since(start) >= maxWait {
			break
		}
	}

	elapsed := time.Since(start)
	logger.Warn("Wait timed out",
		zap.Stringer("last_status", last),
		zap.Int("polls", polls),
		zap.Duration("elapsed", elapsed),
	)
	return fmt.Errorf("%w for %s after %v (%d polls, last status %s)",
		ErrWaitTimeout, target, elapsed.Round(time.Millisecond), polls, last)
}
