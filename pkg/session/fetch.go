// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"go.uber.org/zap"

	"github.com/Thermoquad/systolink/pkg/accel"
)

// FetchResults reads the result record. It polls STATUS first and fails with
// a *NotReadyError, without sending RESULTS, unless the device reports DONE.
// A silent link yields ErrNoData; 1 to 7 bytes yield a *PartialFrameError.
func (s *Session) FetchResults() (accel.ResultRecord, error) {
	status, err := s.PollStatus()
	if err != nil {
		return accel.ResultRecord{}, err
	}
	if !status.ResultsAvailable() {
		s.logger.Info("Results requested before completion", zap.Stringer("status", status))
		return accel.ResultRecord{}, &NotReadyError{Status: status}
	}

	rec, err := s.readRecord()
	if err != nil {
		return rec, err
	}

	s.logger.Info("Results fetched",
		zap.Uint32("mac_operations", rec.MACOperations),
		zap.Uint32("processing_cycles", rec.ProcessingCycles),
	)
	return rec, nil
}

// readRecord sends RESULTS and decodes the reply without checking status.
func (s *Session) readRecord() (accel.ResultRecord, error) {
	reply, err := s.exchange(accel.CmdResults, accel.RecordSize, s.opts.resultsTimeout)
	if err != nil {
		return accel.ResultRecord{}, err
	}

	switch n := len(reply); {
	case n == 0:
		s.logger.Warn("No result data")
		return accel.ResultRecord{}, ErrNoData
	case n < accel.RecordSize:
		s.logger.Warn("Partial result frame", zap.Int("received", n), zap.String("reply", accel.FormatReply(reply)))
		return accel.ResultRecord{}, &PartialFrameError{Received: n}
	}

	return accel.DecodeResult(reply)
}
