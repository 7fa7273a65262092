// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

// DeviceStatus is the device lifecycle as reported by the most recent
// STATUS or START exchange. It is a projection of the last reply, never a
// cached or client-driven state.
type DeviceStatus int

// Device status values
const (
	StatusUnknown DeviceStatus = iota
	StatusIdle
	StatusBusy
	StatusDone
	StatusError
)

// String returns the status name
func (s DeviceStatus) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusBusy:
		return "BUSY"
	case StatusDone:
		return "DONE"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether polling can stop at this status.
func (s DeviceStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// ResultsAvailable reports whether RESULTS may be requested.
func (s DeviceStatus) ResultsAvailable() bool {
	return s == StatusDone
}

// StatusFromResponse classifies a reply to STATUS. ACK doubles as IDLE.
func StatusFromResponse(r Response) DeviceStatus {
	switch r.Kind {
	case RespAck:
		return StatusIdle
	case RespBusy:
		return StatusBusy
	case RespDone:
		return StatusDone
	case RespError:
		return StatusError
	default:
		return StatusUnknown
	}
}

// StatusFromReply classifies the bytes read after STATUS. An empty reply
// means the read deadline passed and yields StatusUnknown.
func StatusFromReply(reply []byte) DeviceStatus {
	if len(reply) == 0 {
		return StatusUnknown
	}
	return StatusFromResponse(DecodeResponse(reply[0]))
}

// StartOutcome is the result of a START exchange. Rejection is an ordinary
// outcome, not an error.
type StartOutcome int

// Start outcomes
const (
	StartRejected StartOutcome = iota
	StartStarted
	StartAlreadyRunning
)

// String returns the outcome name
func (o StartOutcome) String() string {
	switch o {
	case StartStarted:
		return "STARTED"
	case StartAlreadyRunning:
		return "ALREADY_RUNNING"
	default:
		return "REJECTED"
	}
}

// Accepted reports whether the device is processing after START, either
// because it just started or because it already was.
func (o StartOutcome) Accepted() bool {
	return o == StartStarted || o == StartAlreadyRunning
}

// Status returns the device status implied by the outcome.
func (o StartOutcome) Status() DeviceStatus {
	if o.Accepted() {
		return StatusBusy
	}
	return StatusError
}

// StartOutcomeFromReply classifies the bytes read after START. Anything
// other than ACK or BUSY, including silence, is a rejection.
func StartOutcomeFromReply(reply []byte) StartOutcome {
	if len(reply) == 0 {
		return StartRejected
	}
	switch DecodeResponse(reply[0]).Kind {
	case RespAck:
		return StartStarted
	case RespBusy:
		return StartAlreadyRunning
	default:
		return StartRejected
	}
}

// IsPong reports whether the bytes read after PING are exactly one PONG.
func IsPong(reply []byte) bool {
	return len(reply) == 1 && DecodeResponse(reply[0]).Kind == RespPong
}
