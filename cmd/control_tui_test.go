// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Thermoquad/systolink/pkg/accel"
	"github.com/Thermoquad/systolink/pkg/emulator"
	"github.com/Thermoquad/systolink/pkg/session"
)

func newTestControlModel(t *testing.T) controlModel {
	t.Helper()
	s, err := session.ConnectLink(emulator.New(), session.WithReadTimeout(50*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { s.Disconnect() })
	return initialControlModel(context.Background(), s, time.Second, time.Hour)
}

func update(t *testing.T, m controlModel, msg tea.Msg) (controlModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	switch v := next.(type) {
	case controlModel:
		return v, cmd
	case *controlModel:
		return *v, cmd
	}
	t.Fatalf("unexpected model type %T", next)
	return m, nil
}

func TestControl_EnterDuringPollIsQueued(t *testing.T) {
	m := newTestControlModel(t)
	require.True(t, m.polling, "Init issues the first poll")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Nil(t, m.running)
	require.NotNil(t, m.queued)
	assert.Equal(t, actionPing, m.queued.kind)

	m, cmd = update(t, m, pollResultMsg{status: accel.StatusIdle})
	assert.False(t, m.polling)
	assert.Nil(t, m.queued)
	require.NotNil(t, m.running)
	assert.Equal(t, actionPing, m.running.kind)
	assert.NotNil(t, cmd)
}

func TestControl_NoPollWhileActionRuns(t *testing.T) {
	m := newTestControlModel(t)
	m, _ = update(t, m, pollResultMsg{status: accel.StatusIdle})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.NotNil(t, m.running)

	m, _ = update(t, m, controlTickMsg(time.Now()))
	assert.False(t, m.polling)

	m, _ = update(t, m, actionResultMsg{action: *m.running, pong: true})
	assert.Nil(t, m.running)

	m, _ = update(t, m, controlTickMsg(time.Now()))
	assert.True(t, m.polling)
}

func TestControl_ActionHoldsSession(t *testing.T) {
	m := newTestControlModel(t)
	m, _ = update(t, m, pollResultMsg{status: accel.StatusIdle})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	// With the token taken, the command cannot reach the session.
	m.owner <- struct{}{}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case <-done:
		t.Fatal("command ran while the session was taken")
	case <-time.After(50 * time.Millisecond):
	}

	<-m.owner
	select {
	case msg := <-done:
		res, ok := msg.(actionResultMsg)
		require.True(t, ok)
		assert.True(t, res.pong)
	case <-time.After(time.Second):
		t.Fatal("command did not finish")
	}
}

func TestControl_ErrorEventsLogAtWarn(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s, err := session.ConnectLink(emulator.New(), session.WithLogger(zap.New(core)))
	require.NoError(t, err)
	defer s.Disconnect()
	m := initialControlModel(context.Background(), s, time.Second, time.Hour)

	m.addLogEntry("Status IDLE", false)
	m.addLogEntry("Poll failed: link down", true)

	events := logs.FilterMessage("Control event").All()
	require.Len(t, events, 1)
	assert.Equal(t, zapcore.WarnLevel, events[0].Level)
	assert.Equal(t, map[string]any{
		"event":      "Poll failed: link down",
		"session_id": s.ID(),
		"endpoint":   "emulator",
	}, events[0].ContextMap())
}
