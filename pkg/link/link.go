// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package link provides the byte channels an accelerator session runs over:
// a local serial port, or a serial port exposed by a WebSocket bridge.
//
// A Link carries no protocol knowledge. Every read is bounded by the link's
// read timeout, so callers never block on a silent device.
package link

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Defaults match the Bluetooth serial bridge the accelerator ships with.
const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 2 * time.Second
)

// Link is a duplex byte channel with a configurable read timeout.
type Link interface {
	io.Writer
	io.Closer

	// ReadExact collects up to n bytes until the read timeout elapses. A
	// short or empty slice with a nil error means the deadline passed; a
	// non-nil error means the transport failed.
	ReadExact(n int) ([]byte, error)

	// SetReadTimeout changes the deadline applied to each ReadExact call.
	SetReadTimeout(d time.Duration) error

	// ResetInputBuffer discards bytes received but not yet read.
	ResetInputBuffer() error
}

// ErrClosed is returned by operations on a link that has been closed.
var ErrClosed = errors.New("link closed")

// ErrNoEndpoint is returned by Open when the config names neither a serial
// port nor a WebSocket URL.
var ErrNoEndpoint = errors.New("either a serial port or a WebSocket URL must be specified")

// Config selects and parameterizes a link.
type Config struct {
	Port     string
	BaudRate int

	ReadTimeout time.Duration

	URL         string
	Username    string
	Password    string
	NoSSLVerify bool
}

func (c Config) baudRate() int {
	if c.BaudRate <= 0 {
		return DefaultBaudRate
	}
	return c.BaudRate
}

func (c Config) readTimeout() time.Duration {
	if c.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return c.ReadTimeout
}

// String describes the endpoint for log and status lines.
func (c Config) String() string {
	switch {
	case c.URL != "":
		return fmt.Sprintf("WebSocket: %s", c.URL)
	case c.Port != "":
		return fmt.Sprintf("Serial: %s @ %d baud", c.Port, c.baudRate())
	default:
		return "(no endpoint)"
	}
}

// Open opens a WebSocket link when URL is set, otherwise a serial link on
// Port.
func Open(cfg Config) (Link, error) {
	switch {
	case cfg.URL != "":
		l, err := OpenWebSocket(cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	case cfg.Port != "":
		l, err := OpenSerial(cfg.Port, cfg.baudRate(), cfg.readTimeout())
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, ErrNoEndpoint
	}
}
