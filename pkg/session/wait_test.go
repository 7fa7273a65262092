// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/systolink/pkg/accel"
	"github.com/Thermoquad/systolink/pkg/emulator"
)

func TestWaitForCompletion_BusyBusyDone(t *testing.T) {
	dev := emulator.New(emulator.WithRecord(referenceRecord), emulator.WithBusyPolls(2))
	s := newTestSession(t, dev)

	outcome, err := s.StartProcessing()
	require.NoError(t, err)
	require.Equal(t, accel.StartStarted, outcome)

	require.NoError(t, s.WaitForCompletion(context.Background(), time.Second))
	assert.Equal(t, 3, dev.Count(accel.CmdStatus))

	rec, err := s.FetchResults()
	require.NoError(t, err)
	assert.Equal(t, uint32(100), rec.MACOperations)
	assert.Equal(t, uint32(10), rec.ProcessingCycles)
	tp, ok := rec.Throughput()
	require.True(t, ok)
	assert.InDelta(t, 10.0, tp, 1e-9)

	assert.Equal(t, []byte("PS???"+"?R"), dev.Writes())
}

func TestWaitForCompletion_DeviceError(t *testing.T) {
	dev := emulator.New()
	s := newTestSession(t, dev)
	dev.SetState(accel.StatusError)

	err := s.WaitForCompletion(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrDeviceError)
	assert.False(t, Retryable(err))
	assert.Equal(t, 1, dev.Count(accel.CmdStatus))
}

func TestWaitForCompletion_UnexpectedIdle(t *testing.T) {
	dev := emulator.New()
	s := newTestSession(t, dev)

	dev.Script(accel.CmdStatus, []byte{'B'}, []byte{'A'})
	err := s.WaitForCompletion(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrUnexpectedIdle)
	assert.Equal(t, 2, dev.Count(accel.CmdStatus))
}

func TestWaitForCompletion_TimeoutBound(t *testing.T) {
	const (
		maxWait  = 200 * time.Millisecond
		interval = 50 * time.Millisecond
	)
	dev := emulator.New(emulator.WithBusyPolls(1 << 30))
	s := newTestSession(t, dev, WithPollInterval(interval))
	dev.SetState(accel.StatusBusy)

	start := time.Now()
	err := s.WaitForCompletion(context.Background(), maxWait)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.True(t, Retryable(err))
	assert.GreaterOrEqual(t, elapsed, maxWait)
	// Scheduling slack on top of the one-interval overrun allowance
	assert.Less(t, elapsed, maxWait+interval+50*time.Millisecond)
}

func TestWaitForCompletion_UnrecognizedStatusKeepsPolling(t *testing.T) {
	dev := emulator.New()
	s := newTestSession(t, dev, WithPollInterval(10*time.Millisecond))

	noise := make([][]byte, 200)
	for i := range noise {
		noise[i] = []byte{0x99}
	}
	dev.Script(accel.CmdStatus, noise...)

	err := s.WaitForCompletion(context.Background(), 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.Greater(t, dev.Count(accel.CmdStatus), 2)
	assert.Contains(t, err.Error(), "UNKNOWN")
}

func TestWaitForCompletion_Silence(t *testing.T) {
	dev := emulator.New()
	s := newTestSession(t, dev, WithPollInterval(10*time.Millisecond))

	silence := make([][]byte, 50)
	dev.Script(accel.CmdStatus, silence...)
	err := s.WaitForCompletion(context.Background(), 60*time.Millisecond)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestWaitForCompletion_Canceled(t *testing.T) {
	dev := emulator.New(emulator.WithBusyPolls(1 << 30))
	s := newTestSession(t, dev, WithPollInterval(time.Second))
	dev.SetState(accel.StatusBusy)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	err := s.WaitForCompletion(ctx, 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, accel.FailureCanceled, Classify(err))
}

func TestWaitForIdle(t *testing.T) {
	dev := emulator.New()
	s := newTestSession(t, dev)

	dev.Script(accel.CmdStatus, []byte{'D'}, []byte{'B'})
	require.NoError(t, s.WaitForIdle(context.Background(), time.Second))
	assert.Equal(t, 3, dev.Count(accel.CmdStatus))

	dev.SetState(accel.StatusError)
	assert.ErrorIs(t, s.WaitForIdle(context.Background(), time.Second), ErrDeviceError)
}

// mutedDevice answers the connect probe, then drops every reply and blocks
// each read for the full read timeout like a silent serial line.
type mutedDevice struct {
	*emulator.Device
	muted bool
}

func (m *mutedDevice) ReadExact(n int) ([]byte, error) {
	if !m.muted {
		return m.Device.ReadExact(n)
	}
	if _, err := m.Device.ReadExact(n); err != nil {
		return nil, err
	}
	time.Sleep(m.Device.ReadTimeout())
	return nil, nil
}

func TestWaitForCompletion_SilentLinkOverrunBound(t *testing.T) {
	const (
		maxWait     = 100 * time.Millisecond
		interval    = 10 * time.Millisecond
		readTimeout = 80 * time.Millisecond
	)
	dev := &mutedDevice{Device: emulator.New()}
	s, err := ConnectLink(dev, WithPollInterval(interval), WithReadTimeout(readTimeout))
	require.NoError(t, err)
	defer s.Disconnect()
	dev.muted = true

	start := time.Now()
	err = s.WaitForCompletion(context.Background(), maxWait)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.GreaterOrEqual(t, elapsed, maxWait)
	// A poll can begin just before the deadline and run its full read
	// timeout, so the bound is the read timeout, not the poll interval.
	assert.Less(t, elapsed, maxWait+max(interval, readTimeout)+50*time.Millisecond)
}
