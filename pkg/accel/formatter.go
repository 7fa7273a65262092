// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCount renders a counter with thousands separators.
func FormatCount(n uint64) string {
	return printer.Sprintf("%d", n)
}

// FormatThroughput renders MAC operations per cycle, or "undefined" when the
// record has zero cycles.
func FormatThroughput(r ResultRecord) string {
	t, ok := r.Throughput()
	if !ok {
		return "undefined"
	}
	return fmt.Sprintf("%.3f MAC/cycle", t)
}

// FormatRecord formats a result record into a human-readable block
func FormatRecord(r ResultRecord) string {
	var s strings.Builder
	s.WriteString(fmt.Sprintf("  MAC Operations:    %s\n", FormatCount(uint64(r.MACOperations))))
	s.WriteString(fmt.Sprintf("  Processing Cycles: %s\n", FormatCount(uint64(r.ProcessingCycles))))
	s.WriteString(fmt.Sprintf("  Throughput:        %s\n", FormatThroughput(r)))
	return s.String()
}

// FormatStatus returns the status name with its wire byte where one exists.
func FormatStatus(s DeviceStatus) string {
	switch s {
	case StatusIdle:
		return fmt.Sprintf("%s (0x%02X)", s, byteAck)
	case StatusBusy:
		return fmt.Sprintf("%s (0x%02X)", s, byteBusy)
	case StatusDone:
		return fmt.Sprintf("%s (0x%02X)", s, byteDone)
	case StatusError:
		return fmt.Sprintf("%s (0x%02X)", s, byteError)
	default:
		return s.String()
	}
}

// FormatReply renders raw reply bytes as a hex dump with printable ASCII.
func FormatReply(reply []byte) string {
	if len(reply) == 0 {
		return "(no data)"
	}
	var hex, ascii strings.Builder
	for i, b := range reply {
		if i > 0 {
			hex.WriteByte(' ')
		}
		hex.WriteString(fmt.Sprintf("%02X", b))
		if b >= 0x20 && b < 0x7F {
			ascii.WriteByte(b)
		} else {
			ascii.WriteByte('.')
		}
	}
	return fmt.Sprintf("%s |%s|", hex.String(), ascii.String())
}
