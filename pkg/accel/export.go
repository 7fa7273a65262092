// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// RunEntry is one run as written to a run log. Logs are CBOR sequences
// (RFC 8742) so plotting tools can stream them without framing.
type RunEntry struct {
	Time             time.Time     `cbor:"0,keyasint"`
	Session          string        `cbor:"1,keyasint,omitempty"`
	MACOperations    uint32        `cbor:"2,keyasint"`
	ProcessingCycles uint32        `cbor:"3,keyasint"`
	Throughput       *float64      `cbor:"4,keyasint,omitempty"` // nil when undefined
	Latency          time.Duration `cbor:"5,keyasint"`
	Error            string        `cbor:"6,keyasint,omitempty"`
}

// NewRunEntry builds a log entry from a run outcome. record is nil for a
// failed run, in which case err should describe the failure.
func NewRunEntry(session string, record *ResultRecord, latency time.Duration, err error) RunEntry {
	e := RunEntry{
		Time:    time.Now().UTC(),
		Session: session,
		Latency: latency,
	}
	if record != nil {
		e.MACOperations = record.MACOperations
		e.ProcessingCycles = record.ProcessingCycles
		if t, ok := record.Throughput(); ok {
			e.Throughput = &t
		}
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Record returns the counters carried by the entry.
func (e RunEntry) Record() ResultRecord {
	return ResultRecord{MACOperations: e.MACOperations, ProcessingCycles: e.ProcessingCycles}
}

// RunLog appends entries to a CBOR sequence.
type RunLog struct {
	enc *cbor.Encoder
}

var runLogEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("accel: cbor enc mode: %v", err))
	}
	return em
}()

// NewRunLog creates a run log writing to w.
func NewRunLog(w io.Writer) *RunLog {
	return &RunLog{enc: runLogEncMode.NewEncoder(w)}
}

// Append writes one entry.
func (l *RunLog) Append(e RunEntry) error {
	if err := l.enc.Encode(e); err != nil {
		return fmt.Errorf("failed to encode run entry: %w", err)
	}
	return nil
}

// ReadRunLog decodes every entry of a CBOR sequence.
func ReadRunLog(r io.Reader) ([]RunEntry, error) {
	dec := cbor.NewDecoder(r)
	var entries []RunEntry
	for {
		var e RunEntry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, fmt.Errorf("failed to decode run entry %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
}
