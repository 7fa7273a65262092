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

func statuses(events []StatusEvent) []accel.DeviceStatus {
	out := make([]accel.DeviceStatus, len(events))
	for i, e := range events {
		out[i] = e.Status
	}
	return out
}

func TestMonitor_ChangesOnly(t *testing.T) {
	dev := emulator.New()
	s := newTestSession(t, dev)
	dev.Script(accel.CmdStatus, []byte{'B'}, []byte{'B'}, []byte{'B'}, []byte{'D'}, []byte{'D'})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var events []StatusEvent
	err := s.Monitor(ctx, MonitorOptions{Interval: time.Millisecond, ChangesOnly: true}, func(e StatusEvent) {
		events = append(events, e)
		if e.Status == accel.StatusIdle {
			cancel()
		}
	})
	require.NoError(t, err)

	assert.Equal(t, []accel.DeviceStatus{accel.StatusBusy, accel.StatusDone, accel.StatusIdle}, statuses(events))
	for _, e := range events {
		assert.True(t, e.Changed)
	}
}

func TestMonitor_EveryPollForDuration(t *testing.T) {
	dev := emulator.New()
	s := newTestSession(t, dev)

	var events []StatusEvent
	err := s.Monitor(context.Background(), MonitorOptions{
		Interval: 10 * time.Millisecond,
		Duration: 55 * time.Millisecond,
	}, func(e StatusEvent) { events = append(events, e) })
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(events), 3)
	assert.True(t, events[0].Changed)
	assert.False(t, events[1].Changed)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Elapsed, events[i-1].Elapsed)
	}
}

func TestMonitor_ClosedSession(t *testing.T) {
	dev := emulator.New()
	s := newTestSession(t, dev)
	require.NoError(t, s.Disconnect())

	err := s.Monitor(context.Background(), MonitorOptions{Duration: time.Second}, func(StatusEvent) {})
	assert.ErrorIs(t, err, ErrClosed)
}
