// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/Thermoquad/systolink/pkg/accel"
)

// Process runs one full computation: START, wait for DONE, fetch the record.
// A device that is already running is waited on rather than restarted.
func (s *Session) Process(ctx context.Context, maxWait time.Duration) (accel.ResultRecord, error) {
	outcome, err := s.StartProcessing()
	if err != nil {
		return accel.ResultRecord{}, err
	}
	if !outcome.Accepted() {
		return accel.ResultRecord{}, ErrRejected
	}

	if err := s.WaitForCompletion(ctx, maxWait); err != nil {
		return accel.ResultRecord{}, fmt.Errorf("processing did not complete: %w", err)
	}

	return s.FetchResults()
}
