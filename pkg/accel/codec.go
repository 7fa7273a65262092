// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import (
	"encoding/binary"
	"fmt"
)

// Command is a single-byte opcode sent to the device.
type Command byte

// Protocol commands
const (
	CmdPing    Command = bytePing
	CmdStart   Command = byteStart
	CmdStatus  Command = byteStatus
	CmdResults Command = byteResults
)

// Commands lists every command in wire order of the protocol table.
var Commands = []Command{CmdPing, CmdStart, CmdStatus, CmdResults}

// Encode returns the wire byte for a command.
func Encode(c Command) byte {
	return byte(c)
}

// String returns the protocol name of the command.
func (c Command) String() string {
	switch c {
	case CmdPing:
		return "PING"
	case CmdStart:
		return "START"
	case CmdStatus:
		return "STATUS"
	case CmdResults:
		return "RESULTS"
	default:
		return fmt.Sprintf("CMD(0x%02X)", byte(c))
	}
}

// ResponseKind classifies a response byte.
type ResponseKind int

// Response kinds
const (
	RespUnrecognized ResponseKind = iota
	RespPong
	RespAck
	RespBusy
	RespDone
	RespError
)

// String returns the protocol name of the response kind.
func (k ResponseKind) String() string {
	switch k {
	case RespPong:
		return "PONG"
	case RespAck:
		return "ACK"
	case RespBusy:
		return "BUSY"
	case RespDone:
		return "DONE"
	case RespError:
		return "ERROR"
	default:
		return "UNRECOGNIZED"
	}
}

// Response is a decoded response byte. Raw always holds the byte as received.
type Response struct {
	Kind ResponseKind
	Raw  byte
}

// Recognized reports whether the byte belongs to the protocol alphabet.
func (r Response) Recognized() bool {
	return r.Kind != RespUnrecognized
}

// String returns the kind name, with the raw byte for unrecognized values.
func (r Response) String() string {
	if r.Kind == RespUnrecognized {
		return fmt.Sprintf("UNRECOGNIZED(0x%02X)", r.Raw)
	}
	return r.Kind.String()
}

// DecodeResponse classifies a single response byte. It is total: bytes
// outside the protocol alphabet become RespUnrecognized.
func DecodeResponse(b byte) Response {
	switch b {
	case bytePong:
		return Response{Kind: RespPong, Raw: b}
	case byteAck:
		return Response{Kind: RespAck, Raw: b}
	case byteBusy:
		return Response{Kind: RespBusy, Raw: b}
	case byteDone:
		return Response{Kind: RespDone, Raw: b}
	case byteError:
		return Response{Kind: RespError, Raw: b}
	default:
		return Response{Kind: RespUnrecognized, Raw: b}
	}
}

// EncodeResponse returns the wire byte for a response kind, or 0 for
// RespUnrecognized.
func EncodeResponse(k ResponseKind) byte {
	switch k {
	case RespPong:
		return bytePong
	case RespAck:
		return byteAck
	case RespBusy:
		return byteBusy
	case RespDone:
		return byteDone
	case RespError:
		return byteError
	default:
		return 0
	}
}

// ExpectedResponse returns the reply a healthy, idle device gives to a
// command: PONG for PING, ACK for START, ACK (idle) for STATUS, and BUSY for
// RESULTS since no record exists before processing completes.
func ExpectedResponse(c Command) ResponseKind {
	switch c {
	case CmdPing:
		return RespPong
	case CmdStart, CmdStatus:
		return RespAck
	case CmdResults:
		return RespBusy
	default:
		return RespUnrecognized
	}
}

// IncompleteFrameError is returned when a result frame does not have exactly
// RecordSize bytes.
type IncompleteFrameError struct {
	Expected int
	Actual   int
}

// Error implements the error interface
func (e *IncompleteFrameError) Error() string {
	return fmt.Sprintf("incomplete frame: expected %d bytes, got %d", e.Expected, e.Actual)
}

// DecodeResult decodes an 8-byte result frame. Both counters are
// little-endian, matching the device's native word order.
func DecodeResult(buf []byte) (ResultRecord, error) {
	if len(buf) != RecordSize {
		return ResultRecord{}, &IncompleteFrameError{Expected: RecordSize, Actual: len(buf)}
	}
	return ResultRecord{
		MACOperations:    binary.LittleEndian.Uint32(buf[macOperationsOffset:]),
		ProcessingCycles: binary.LittleEndian.Uint32(buf[processingCyclesOffset:]),
	}, nil
}
