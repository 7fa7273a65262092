// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import (
	"errors"
	"strings"
	"testing"
)

// ============================================================
// Command Encoding Tests
// ============================================================

func TestEncode_WireBytes(t *testing.T) {
	tests := []struct {
		cmd  Command
		want byte
		name string
	}{
		{CmdPing, 0x50, "PING"},
		{CmdStart, 0x53, "START"},
		{CmdStatus, 0x3F, "STATUS"},
		{CmdResults, 0x52, "RESULTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.cmd); got != tt.want {
				t.Errorf("Encode(%s) = 0x%02X, want 0x%02X", tt.name, got, tt.want)
			}
			if tt.cmd.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.cmd.String(), tt.name)
			}
		})
	}
}

func TestEncode_ExpectedResponseRoundTrip(t *testing.T) {
	// A device that answers each command correctly from idle:
	// PING→'O', START→'A', STATUS→'A' (idle), RESULTS→'B' (nothing ready)
	replies := map[Command]byte{
		CmdPing:    'O',
		CmdStart:   'A',
		CmdStatus:  'A',
		CmdResults: 'B',
	}

	for _, cmd := range Commands {
		t.Run(cmd.String(), func(t *testing.T) {
			wire := Encode(cmd)
			if Command(wire) != cmd {
				t.Fatalf("Command(Encode(%s)) = %s", cmd, Command(wire))
			}
			resp := DecodeResponse(replies[cmd])
			if resp.Kind != ExpectedResponse(cmd) {
				t.Errorf("reply to %s decoded as %s, want %s", cmd, resp.Kind, ExpectedResponse(cmd))
			}
		})
	}
}

// ============================================================
// Response Decoding Tests
// ============================================================

func TestDecodeResponse_KnownBytes(t *testing.T) {
	tests := []struct {
		b    byte
		want ResponseKind
	}{
		{'O', RespPong},
		{'A', RespAck},
		{'B', RespBusy},
		{'D', RespDone},
		{'E', RespError},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			r := DecodeResponse(tt.b)
			if r.Kind != tt.want {
				t.Errorf("DecodeResponse(0x%02X).Kind = %s, want %s", tt.b, r.Kind, tt.want)
			}
			if r.Raw != tt.b {
				t.Errorf("Raw = 0x%02X, want 0x%02X", r.Raw, tt.b)
			}
			if !r.Recognized() {
				t.Error("Recognized() = false for protocol byte")
			}
		})
	}
}

func TestDecodeResponse_Unrecognized(t *testing.T) {
	for _, b := range []byte{0x00, 0x99, 0xFF, 'P', 'S', '?', 'R', 0x80} {
		r := DecodeResponse(b)
		if r.Recognized() {
			t.Errorf("DecodeResponse(0x%02X) recognized as %s", b, r.Kind)
		}
		if r.Raw != b {
			t.Errorf("Raw = 0x%02X, want 0x%02X", r.Raw, b)
		}
		if !strings.Contains(r.String(), "UNRECOGNIZED") {
			t.Errorf("String() = %q, want UNRECOGNIZED prefix", r.String())
		}
	}
}

// ============================================================
// Result Decoding Tests
// ============================================================

func TestDecodeResult_ReferenceFrame(t *testing.T) {
	rec, err := DecodeResult([]byte{0x64, 0, 0, 0, 0x0A, 0, 0, 0})
	if err != nil {
		t.Fatalf("DecodeResult error: %v", err)
	}
	if rec.MACOperations != 100 {
		t.Errorf("MACOperations = %d, want 100", rec.MACOperations)
	}
	if rec.ProcessingCycles != 10 {
		t.Errorf("ProcessingCycles = %d, want 10", rec.ProcessingCycles)
	}
	tp, ok := rec.Throughput()
	if !ok || tp != 10.0 {
		t.Errorf("Throughput() = %v, %v, want 10.0, true", tp, ok)
	}
}

func TestDecodeResult_LittleEndian(t *testing.T) {
	// High bytes set: guards against big-endian or signed reassembly
	rec, err := DecodeResult([]byte{0x78, 0x56, 0x34, 0x12, 0xFF, 0xFF, 0xFF, 0xFF})
	if err != nil {
		t.Fatalf("DecodeResult error: %v", err)
	}
	if rec.MACOperations != 0x12345678 {
		t.Errorf("MACOperations = 0x%08X, want 0x12345678", rec.MACOperations)
	}
	if rec.ProcessingCycles != 0xFFFFFFFF {
		t.Errorf("ProcessingCycles = 0x%08X, want 0xFFFFFFFF", rec.ProcessingCycles)
	}
}

func TestDecodeResult_WrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 3, 7, 9, 16} {
		_, err := DecodeResult(make([]byte, n))
		var frameErr *IncompleteFrameError
		if !errors.As(err, &frameErr) {
			t.Fatalf("len %d: error = %v, want *IncompleteFrameError", n, err)
		}
		if frameErr.Expected != RecordSize || frameErr.Actual != n {
			t.Errorf("len %d: got expected=%d actual=%d", n, frameErr.Expected, frameErr.Actual)
		}
	}
}

func TestResultRecord_BytesMatchesDecode(t *testing.T) {
	rec := ResultRecord{MACOperations: 4096, ProcessingCycles: 256}
	wire := rec.Bytes()
	if len(wire) != RecordSize {
		t.Fatalf("Bytes() length = %d, want %d", len(wire), RecordSize)
	}
	want := []byte{0x00, 0x10, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00}
	for i := range want {
		if wire[i] != want[i] {
			t.Fatalf("Bytes() = % X, want % X", wire, want)
		}
	}
	got, err := DecodeResult(wire)
	if err != nil || got != rec {
		t.Errorf("DecodeResult(Bytes()) = %+v, %v", got, err)
	}
}

func TestResultRecord_ThroughputUndefined(t *testing.T) {
	rec := ResultRecord{MACOperations: 50}
	if _, ok := rec.Throughput(); ok {
		t.Error("Throughput() defined with zero cycles")
	}
	if got := FormatThroughput(rec); got != "undefined" {
		t.Errorf("FormatThroughput = %q, want undefined", got)
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatRecord(t *testing.T) {
	out := FormatRecord(ResultRecord{MACOperations: 1234567, ProcessingCycles: 1000})
	for _, want := range []string{"1,234,567", "1,000", "1234.567 MAC/cycle"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatRecord output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatReply(t *testing.T) {
	if got := FormatReply(nil); got != "(no data)" {
		t.Errorf("FormatReply(nil) = %q", got)
	}
	if got := FormatReply([]byte{'B', 0x00}); got != "42 00 |B.|" {
		t.Errorf("FormatReply = %q", got)
	}
}
