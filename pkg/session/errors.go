// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/systolink/pkg/accel"
)

var (
	// ErrNoResponse indicates the liveness probe saw no PONG.
	ErrNoResponse = errors.New("no response from device")

	// ErrTransport indicates the link could not be opened, written, read, or
	// closed. It is fatal to the session.
	ErrTransport = errors.New("transport failure")

	// ErrClosed is returned by every operation after Disconnect.
	ErrClosed = errors.New("session closed")
)

var (
	// ErrWaitTimeout indicates the device never reached a terminal status
	// within the allowed wait.
	ErrWaitTimeout = errors.New("timed out waiting for device")

	// ErrDeviceError indicates the device reported ERROR.
	ErrDeviceError = errors.New("device reported error")

	// ErrUnexpectedIdle indicates the device fell back to IDLE while a
	// computation was expected to be running.
	ErrUnexpectedIdle = errors.New("device returned to idle without completing")

	// ErrRejected indicates START was answered with anything but ACK or BUSY.
	ErrRejected = errors.New("start rejected by device")
)

var (
	// ErrNotReady indicates results were requested before the device
	// reported DONE. RESULTS was not sent.
	ErrNotReady = errors.New("results not ready")

	// ErrPartialFrame indicates the link delivered 1 to 7 bytes of a result
	// record before the deadline.
	ErrPartialFrame = errors.New("partial result frame")

	// ErrNoData indicates the link stayed silent after RESULTS.
	ErrNoData = errors.New("no result data")
)

// TransportError wraps a link failure with the operation that hit it.
type TransportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// NotReadyError carries the status observed when results were requested.
type NotReadyError struct {
	Status accel.DeviceStatus
}

// Error implements error.
func (e *NotReadyError) Error() string {
	return fmt.Sprintf("results not ready: device is %s", e.Status)
}

// Is matches ErrNotReady.
func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

// PartialFrameError carries the number of bytes received before the deadline.
type PartialFrameError struct {
	Received int
}

// Error implements error.
func (e *PartialFrameError) Error() string {
	return fmt.Sprintf("partial result frame: received %d of %d bytes", e.Received, accel.RecordSize)
}

// Is matches ErrPartialFrame.
func (e *PartialFrameError) Is(target error) bool { return target == ErrPartialFrame }

// Retryable reports whether repeating the failed step may succeed without
// reconnecting: re-poll after NotReady or a wait timeout, re-issue after a
// partial or empty frame, re-probe after no response. Device errors,
// unexpected idle, rejection, and transport failures are not retryable.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrTransport), errors.Is(err, ErrClosed):
		return false
	case errors.Is(err, ErrNotReady),
		errors.Is(err, ErrPartialFrame),
		errors.Is(err, ErrNoData),
		errors.Is(err, ErrWaitTimeout),
		errors.Is(err, ErrNoResponse):
		return true
	default:
		return false
	}
}
