// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "systolink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9600, cfg.Link.BaudRate)
	assert.Equal(t, 2*time.Second, cfg.Link.ReadTimeout)
	assert.Equal(t, 2*time.Second, cfg.Session.ProbeTimeout)
	assert.Equal(t, time.Second, cfg.Session.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Session.SettleDelay)
	assert.Equal(t, 30*time.Second, cfg.Session.MaxWait)
	assert.True(t, cfg.Session.FlushInput)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
link:
  port: /dev/rfcomm0
  baud_rate: 115200
  read_timeout: 500ms
session:
  poll_interval: 250ms
  settle_delay: 0s
logging:
  level: debug
  format: json
`)

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/rfcomm0", cfg.Link.Port)
	assert.Equal(t, 115200, cfg.Link.BaudRate)
	assert.Equal(t, 500*time.Millisecond, cfg.Link.ReadTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.PollInterval)
	assert.Zero(t, cfg.Session.SettleDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_SearchPath(t *testing.T) {
	dir := filepath.Dir(writeConfig(t, "link:\n  url: ws://bridge.local/serial\n"))

	cfg, err := Load(New(), "", dir)
	require.NoError(t, err)
	assert.Equal(t, "ws://bridge.local/serial", cfg.Link.URL)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "link:\n  port: /dev/ttyUSB0\n")
	t.Setenv("SYSTOLINK_LINK_PORT", "/dev/rfcomm1")
	t.Setenv("SYSTOLINK_SESSION_MAX_WAIT", "45s")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/rfcomm1", cfg.Link.Port)
	assert.Equal(t, 45*time.Second, cfg.Session.MaxWait)
}

func TestBindFlags_OverrideEnv(t *testing.T) {
	t.Setenv("SYSTOLINK_LINK_PORT", "/dev/rfcomm1")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("port", "", "")
	fs.Int("baud", 9600, "")
	fs.Duration("poll-interval", time.Second, "")
	fs.Bool("emulate", false, "")

	v := New()
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--port", "COM3", "--poll-interval", "100ms", "--emulate"}))

	cfg, err := Load(v, "", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "COM3", cfg.Link.Port)
	assert.Equal(t, 9600, cfg.Link.BaudRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Session.PollInterval)
	assert.True(t, cfg.Link.Emulate)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"baud", "link:\n  baud_rate: 0\n"},
		{"poll interval", "session:\n  poll_interval: 0s\n"},
		{"level", "logging:\n  level: loud\n"},
		{"format", "logging:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(New(), writeConfig(t, tt.body))
			assert.ErrorContains(t, err, "validation failed")
		})
	}
}

func TestConfig_LinkAndSessionOptions(t *testing.T) {
	cfg, err := Load(New(), "", t.TempDir())
	require.NoError(t, err)
	cfg.Link.URL = "wss://bridge/serial"
	cfg.Link.Username = "admin"

	lc := cfg.LinkConfig("secret")
	assert.Equal(t, "wss://bridge/serial", lc.URL)
	assert.Equal(t, "secret", lc.Password)
	assert.Equal(t, cfg.Link.ReadTimeout, lc.ReadTimeout)

	assert.Len(t, cfg.SessionOptions(zap.NewNop()), 7)
}
