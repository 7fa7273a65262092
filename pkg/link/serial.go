// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// serialPort is the subset of serial.Port the link drives.
type serialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// SerialLink wraps a serial port
type SerialLink struct {
	port    serialPort
	name    string
	timeout time.Duration
	closed  bool
}

// OpenSerial opens a serial port at 8N1
func OpenSerial(portName string, baudRate int, readTimeout time.Duration) (*SerialLink, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return newSerialLink(port, portName, readTimeout), nil
}

func newSerialLink(port serialPort, name string, readTimeout time.Duration) *SerialLink {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &SerialLink{port: port, name: name, timeout: readTimeout}
}

func (s *SerialLink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	n, err := s.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write to %s: %w", s.name, err)
	}
	return n, nil
}

// ReadExact reads until n bytes arrive or the read timeout elapses. The
// driver reports its own timeout as a zero-byte read.
func (s *SerialLink) ReadExact(n int) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}

	buf := make([]byte, n)
	got := 0
	deadline := time.Now().Add(s.timeout)
	for got < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return buf[:got], fmt.Errorf("failed to set read timeout on %s: %w", s.name, err)
		}
		k, err := s.port.Read(buf[got:])
		if err != nil {
			return buf[:got], fmt.Errorf("read error on %s after %d/%d bytes: %w", s.name, got, n, err)
		}
		if k == 0 {
			break
		}
		got += k
	}
	return buf[:got], nil
}

func (s *SerialLink) SetReadTimeout(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid read timeout %v", d)
	}
	s.timeout = d
	return nil
}

func (s *SerialLink) ResetInputBuffer() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input buffer on %s: %w", s.name, err)
	}
	return nil
}

// Close closes the port. Closing twice is a no-op.
func (s *SerialLink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

func (s *SerialLink) String() string {
	return s.name
}
