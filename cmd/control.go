// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for driving the accelerator",
	Long: `Drive the accelerator from an interactive terminal UI.

Features:
  - One-key PING, STATUS, START, wait, RESULTS and full runs
  - Background STATUS polling while idle
  - Throughput and latency statistics over completed runs
  - Event logging

Arrow keys select an action and Enter runs it. Only one action runs at a
time. Press 'a' to toggle background polling, 'r' to reset statistics and
'q' to quit.

Supports serial, WebSocket and --emulate connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

func runControl(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	// Canceled on quit so an in-flight wait stops polling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := initialControlModel(ctx, s, cfg.Session.MaxWait, cfg.Session.PollInterval)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()

	// Take the session back from any command still running before the
	// deferred Disconnect.
	cancel()
	m.owner <- struct{}{}

	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
