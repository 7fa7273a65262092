// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package accel implements the host side of the image accelerator's serial
// command protocol.
//
// The protocol is a strict single-byte request/response exchange. The host
// writes one command byte and the device answers with one status byte, except
// for RESULTS which, once processing is done, answers with an 8-byte
// little-endian record of two 32-bit counters.
//
// This package is pure: it translates bytes to typed values and back and
// never fails on unexpected input. Transport and sequencing live in the link
// and session packages.
package accel

// Command bytes (host → device)
const (
	bytePing    = 0x50 // 'P'
	byteStart   = 0x53 // 'S'
	byteStatus  = 0x3F // '?'
	byteResults = 0x52 // 'R'
)

// Response bytes (device → host)
const (
	bytePong  = 0x4F // 'O'
	byteAck   = 0x41 // 'A', also IDLE when answering STATUS
	byteBusy  = 0x42 // 'B'
	byteDone  = 0x44 // 'D'
	byteError = 0x45 // 'E'
)

// Result record layout
const (
	RecordSize             = 8
	macOperationsOffset    = 0
	processingCyclesOffset = 4
)
