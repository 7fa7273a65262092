// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/systolink/pkg/accel"
)

// execute runs the root command against the emulator. Flags keep their
// values between runs, so every call sets the ones it relies on.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	base := []string{"--emulate=true", "--poll-interval", "5ms", "--log-output", "discard"}
	rootCmd.SetArgs(append(args, base...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPingCommand(t *testing.T) {
	out, err := execute(t, "ping", "--count", "2", "--interval", "1ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Connection: emulator")
	assert.Contains(t, out, "2 pings sent, 2 responses received, 0% loss")
}

func TestStatusCommand(t *testing.T) {
	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: IDLE (0x41)")
}

func TestStartCommand(t *testing.T) {
	out, err := execute(t, "start")
	require.NoError(t, err)
	assert.Contains(t, out, "Start: ")
}

func TestRunCommand_LogAndReport(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "runs.cbor")

	out, err := execute(t, "run", "--log", logPath)
	require.NoError(t, err)
	assert.Contains(t, out, "262,144")
	assert.Contains(t, out, "16,512")

	f, err := os.Open(logPath)
	require.NoError(t, err)
	entries, err := accel.ReadRunLog(f)
	f.Close()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, emulatedRecord, entries[0].Record())
	assert.Empty(t, entries[0].Error)

	out, err = execute(t, "report", logPath)
	require.NoError(t, err)
	assert.Contains(t, out, "(1 entries)")
	assert.Contains(t, out, "Successful Runs:         1")
}

func TestBenchmarkCommand(t *testing.T) {
	out, err := execute(t, "benchmark", "--runs", "2", "--pause", "0s", "--log", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Run   1/2:")
	assert.Contains(t, out, "Run   2/2:")
	assert.Contains(t, out, "Total Runs:              2")
}

func TestStressCommand_RequiresDone(t *testing.T) {
	_, err := execute(t, "stress", "--count", "3")
	require.Error(t, err)
	assert.Equal(t, exitFailure, ExitCode(err))
}

func TestResultsCommand_NotReady(t *testing.T) {
	_, err := execute(t, "results")
	require.Error(t, err)
	assert.Equal(t, exitFailure, ExitCode(err))
	assert.Contains(t, err.Error(), "retryable")
}

func TestNoEndpointIsConnectionError(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"status", "--emulate=false", "--port", "", "--url", "", "--log-output", "discard"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Equal(t, exitConnection, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, ExitCode(nil))
	assert.Equal(t, exitFailure, ExitCode(errors.New("plain")))
	assert.Equal(t, exitFailure, ExitCode(failure("x")))
	assert.Equal(t, exitConnection, ExitCode(connectionFailure(errors.New("x"))))
}

func TestRawCommand(t *testing.T) {
	out, err := execute(t, "raw", "?", "--read", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Sent:  3F |?|")
	assert.Contains(t, out, "Reply: 41 |A|")
}

func TestParseRawByte(t *testing.T) {
	b, err := parseRawByte("R")
	require.NoError(t, err)
	assert.Equal(t, byte('R'), b)

	b, err = parseRawByte("0x7e")
	require.NoError(t, err)
	assert.Equal(t, byte(0x7E), b)

	_, err = parseRawByte("0x100")
	assert.Error(t, err)
	_, err = parseRawByte("PS")
	assert.Error(t, err)
}
