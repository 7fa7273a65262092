// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import "encoding/binary"

// ResultRecord holds the counters reported by the device after processing.
type ResultRecord struct {
	MACOperations    uint32
	ProcessingCycles uint32
}

// Throughput returns MAC operations per processing cycle. The second return
// value is false when the cycle count is zero and the ratio is undefined.
func (r ResultRecord) Throughput() (float64, bool) {
	if r.ProcessingCycles == 0 {
		return 0, false
	}
	return float64(r.MACOperations) / float64(r.ProcessingCycles), true
}

// Bytes encodes the record in wire format (little-endian).
func (r ResultRecord) Bytes() []byte {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(buf[macOperationsOffset:], r.MACOperations)
	binary.LittleEndian.PutUint32(buf[processingCyclesOffset:], r.ProcessingCycles)
	return buf
}

// IsZero reports whether both counters are zero, which the device reports
// when a run produced no work.
func (r ResultRecord) IsZero() bool {
	return r.MACOperations == 0 && r.ProcessingCycles == 0
}
