// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package emulator models the accelerator at the protocol level so sessions
// can run without hardware. A Device implements link.Link.
package emulator

import (
	"sync"
	"time"

	"github.com/Thermoquad/systolink/pkg/accel"
	"github.com/Thermoquad/systolink/pkg/link"
)

// Option configures a Device.
type Option func(*Device)

// WithRecord sets the record returned by RESULTS once processing completes.
func WithRecord(r accel.ResultRecord) Option {
	return func(d *Device) { d.record = r }
}

// WithBusyPolls sets how many STATUS polls report BUSY after START before the
// device reports DONE.
func WithBusyPolls(n int) Option {
	return func(d *Device) { d.busyPolls = n }
}

// WithIdleAfterFetch makes the device return to IDLE after delivering a record.
func WithIdleAfterFetch() Option {
	return func(d *Device) { d.idleAfterFetch = true }
}

// WithLatency delays every non-empty read, approximating the bridge's
// round trip.
func WithLatency(l time.Duration) Option {
	return func(d *Device) { d.latency = l }
}

// Device is an emulated accelerator.
type Device struct {
	mu sync.Mutex

	record         accel.ResultRecord
	busyPolls      int
	idleAfterFetch bool
	latency        time.Duration

	state    accel.DeviceStatus
	busyLeft int
	script   map[accel.Command][][]byte
	rx       []byte

	writes       []byte
	counts       map[accel.Command]int
	resets       int
	closeCount   int
	closed       bool
	transportErr error
	readTimeout  time.Duration
}

var _ link.Link = (*Device)(nil)

// New creates an idle device.
func New(opts ...Option) *Device {
	d := &Device{
		state:       accel.StatusIdle,
		script:      make(map[accel.Command][][]byte),
		counts:      make(map[accel.Command]int),
		readTimeout: link.DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Script queues replies for the next occurrences of cmd, one reply per
// command. A scripted reply replaces the modeled one; an empty reply is
// silence. The model's state does not advance for scripted commands.
func (d *Device) Script(cmd accel.Command, replies ...[]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script[cmd] = append(d.script[cmd], replies...)
}

// SetState forces the modeled state.
func (d *Device) SetState(s accel.DeviceStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
	if s == accel.StatusBusy {
		d.busyLeft = d.busyPolls
	}
}

// State returns the modeled state.
func (d *Device) State() accel.DeviceStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// FailTransport makes every later Write and ReadExact fail with err; nil
// restores the link.
func (d *Device) FailTransport(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transportErr = err
}

// Writes returns every byte written to the device.
func (d *Device) Writes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.writes...)
}

// Count returns how many times cmd was received.
func (d *Device) Count(cmd accel.Command) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[cmd]
}

// CloseCount returns how many times Close was called.
func (d *Device) CloseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeCount
}

// Resets returns how many times the input buffer was reset.
func (d *Device) Resets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resets
}

// ReadTimeout returns the last timeout set on the device.
func (d *Device) ReadTimeout() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readTimeout
}

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, link.ErrClosed
	}
	if d.transportErr != nil {
		return 0, d.transportErr
	}

	for _, b := range p {
		d.writes = append(d.writes, b)
		cmd := accel.Command(b)
		d.counts[cmd]++

		if queued := d.script[cmd]; len(queued) > 0 {
			d.script[cmd] = queued[1:]
			d.rx = append(d.rx, queued[0]...)
			continue
		}
		d.rx = append(d.rx, d.respond(cmd)...)
	}
	return len(p), nil
}

// respond advances the model for one command. Bytes outside the command
// alphabet get no reply.
func (d *Device) respond(cmd accel.Command) []byte {
	switch cmd {
	case accel.CmdPing:
		return reply(accel.RespPong)
	case accel.CmdStart:
		return d.start()
	case accel.CmdStatus:
		return d.status()
	case accel.CmdResults:
		return d.results()
	default:
		return nil
	}
}

func reply(k accel.ResponseKind) []byte {
	return []byte{accel.EncodeResponse(k)}
}

func (d *Device) start() []byte {
	switch d.state {
	case accel.StatusBusy:
		return reply(accel.RespBusy)
	case accel.StatusError:
		return reply(accel.RespError)
	default:
		d.state = accel.StatusBusy
		d.busyLeft = d.busyPolls
		return reply(accel.RespAck)
	}
}

func (d *Device) status() []byte {
	switch d.state {
	case accel.StatusIdle:
		return reply(accel.RespAck)
	case accel.StatusBusy:
		if d.busyLeft > 0 {
			d.busyLeft--
			return reply(accel.RespBusy)
		}
		d.state = accel.StatusDone
		return reply(accel.RespDone)
	case accel.StatusDone:
		return reply(accel.RespDone)
	case accel.StatusError:
		return reply(accel.RespError)
	default:
		return nil
	}
}

func (d *Device) results() []byte {
	switch d.state {
	case accel.StatusDone:
		if d.idleAfterFetch {
			d.state = accel.StatusIdle
		}
		return d.record.Bytes()
	case accel.StatusError:
		return reply(accel.RespError)
	default:
		return reply(accel.RespBusy)
	}
}

// ReadExact returns up to n queued reply bytes. A short read stands for the
// deadline passing and returns at once.
func (d *Device) ReadExact(n int) ([]byte, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, link.ErrClosed
	}
	if d.transportErr != nil {
		err := d.transportErr
		d.mu.Unlock()
		return nil, err
	}
	k := min(n, len(d.rx))
	out := append([]byte(nil), d.rx[:k]...)
	d.rx = d.rx[k:]
	latency := d.latency
	d.mu.Unlock()

	if k > 0 && latency > 0 {
		time.Sleep(latency)
	}
	return out, nil
}

func (d *Device) SetReadTimeout(t time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readTimeout = t
	return nil
}

func (d *Device) ResetInputBuffer() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return link.ErrClosed
	}
	d.resets++
	d.rx = nil
	return nil
}

// Close marks the device closed and counts the call.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeCount++
	d.closed = true
	return nil
}

func (d *Device) String() string {
	return "emulator"
}
