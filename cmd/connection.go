// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Thermoquad/systolink/pkg/accel"
	"github.com/Thermoquad/systolink/pkg/emulator"
	"github.com/Thermoquad/systolink/pkg/session"
)

// PasswordEnv names the environment variable holding the WebSocket password.
const PasswordEnv = "SYSTOLINK_PASSWORD"

// emulatedRecord is what the --emulate device returns: a 64x64 tile through
// the 4x4 array.
var emulatedRecord = accel.ResultRecord{MACOperations: 262144, ProcessingCycles: 16512}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal; read a line instead
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// newEmulator builds the device used by --emulate.
func newEmulator() *emulator.Device {
	return emulator.New(
		emulator.WithRecord(emulatedRecord),
		emulator.WithBusyPolls(3),
		emulator.WithLatency(15*time.Millisecond),
	)
}

// openSession connects to the configured endpoint. Connection failures carry
// exit code 2.
func openSession() (*session.Session, error) {
	opts := cfg.SessionOptions(logger)

	if cfg.Link.Emulate {
		opts = append(opts, session.WithSettleDelay(0))
		s, err := session.ConnectLink(newEmulator(), opts...)
		if err != nil {
			return nil, connectionFailure(err)
		}
		return s, nil
	}

	password := ""
	if cfg.Link.URL != "" && cfg.Link.Username != "" {
		var err error
		password, err = GetPassword()
		if err != nil {
			return nil, connectionFailure(err)
		}
	}

	s, err := session.Connect(cfg.LinkConfig(password), opts...)
	if err != nil {
		return nil, connectionFailure(err)
	}
	return s, nil
}

// printHeader prints the banner shared by the one-shot commands.
func printHeader(w io.Writer, title string, s *session.Session) {
	fmt.Fprintf(w, "Systolink - %s\n", title)
	fmt.Fprintf(w, "Connection: %s\n", s.Endpoint())
	fmt.Fprintf(w, "Session: %s\n\n", s.ID())
}

// signalContext is canceled on Ctrl-C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
