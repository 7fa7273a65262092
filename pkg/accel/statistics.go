// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package accel

import (
	"fmt"
	"math"
	"time"
)

// FailureKind classifies why a run did not produce a record.
type FailureKind int

// Failure kinds
const (
	FailureNone FailureKind = iota
	FailureRejected
	FailureTimeout
	FailureDeviceError
	FailureUnexpectedIdle
	FailureNotReady
	FailurePartialFrame
	FailureNoData
	FailureTransport
	FailureCanceled
	FailureOther
)

// String returns the failure kind name
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureRejected:
		return "rejected"
	case FailureTimeout:
		return "timeout"
	case FailureDeviceError:
		return "device error"
	case FailureUnexpectedIdle:
		return "unexpected idle"
	case FailureNotReady:
		return "not ready"
	case FailurePartialFrame:
		return "partial frame"
	case FailureNoData:
		return "no data"
	case FailureTransport:
		return "transport"
	case FailureCanceled:
		return "canceled"
	default:
		return "other"
	}
}

// Statistics tracks run outcomes, throughput, and latency over a series of
// runs.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalRuns      uint64
	SuccessfulRuns uint64
	ZeroRecords    uint64
	Failures       map[FailureKind]uint64

	// Samples from successful runs
	Throughput []float64
	MACOps     []float64
	Cycles     []float64

	// Latency of every run, successful or not
	Latency []time.Duration
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		Failures:       make(map[FailureKind]uint64),
	}
}

// Update records one run. record is nil when the run failed.
func (s *Statistics) Update(record *ResultRecord, latency time.Duration, failure FailureKind) {
	s.TotalRuns++
	s.Latency = append(s.Latency, latency)
	s.LastUpdateTime = time.Now()

	if record == nil || failure != FailureNone {
		if failure == FailureNone {
			failure = FailureOther
		}
		s.Failures[failure]++
		return
	}

	s.SuccessfulRuns++
	if record.IsZero() {
		s.ZeroRecords++
	}
	s.MACOps = append(s.MACOps, float64(record.MACOperations))
	s.Cycles = append(s.Cycles, float64(record.ProcessingCycles))
	if t, ok := record.Throughput(); ok {
		s.Throughput = append(s.Throughput, t)
	}
}

// FailedRuns returns the number of runs that did not produce a record.
func (s *Statistics) FailedRuns() uint64 {
	return s.TotalRuns - s.SuccessfulRuns
}

// SuccessRate returns the percentage of runs that produced a record.
func (s *Statistics) SuccessRate() float64 {
	if s.TotalRuns == 0 {
		return 0
	}
	return float64(s.SuccessfulRuns) * 100.0 / float64(s.TotalRuns)
}

// Summary holds descriptive statistics for one sample set.
type Summary struct {
	N      int
	Mean   float64
	StdDev float64 // sample standard deviation (n-1)
	Min    float64
	Max    float64
}

// CV returns the coefficient of variation in percent, or 0 when the mean is
// zero.
func (m Summary) CV() float64 {
	if m.Mean == 0 {
		return 0
	}
	return m.StdDev / m.Mean * 100.0
}

// Summarize computes descriptive statistics for a sample set.
func Summarize(samples []float64) Summary {
	m := Summary{N: len(samples)}
	if m.N == 0 {
		return m
	}

	m.Min, m.Max = samples[0], samples[0]
	sum := 0.0
	for _, v := range samples {
		sum += v
		m.Min = math.Min(m.Min, v)
		m.Max = math.Max(m.Max, v)
	}
	m.Mean = sum / float64(m.N)

	if m.N > 1 {
		sq := 0.0
		for _, v := range samples {
			d := v - m.Mean
			sq += d * d
		}
		m.StdDev = math.Sqrt(sq / float64(m.N-1))
	}
	return m
}

// ThroughputSummary summarizes throughput over successful runs.
func (s *Statistics) ThroughputSummary() Summary {
	return Summarize(s.Throughput)
}

// LatencySummary summarizes run latency in seconds.
func (s *Statistics) LatencySummary() Summary {
	secs := make([]float64, len(s.Latency))
	for i, d := range s.Latency {
		secs[i] = d.Seconds()
	}
	return Summarize(secs)
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Runs:       %8d\n", s.TotalRuns)
	result += fmt.Sprintf("Successful Runs:  %8d (%.1f%%)\n", s.SuccessfulRuns, s.SuccessRate())

	if failed := s.FailedRuns(); failed > 0 {
		result += fmt.Sprintf("Failed Runs:      %8d\n", failed)
		for kind := FailureRejected; kind <= FailureOther; kind++ {
			if n := s.Failures[kind]; n > 0 {
				result += fmt.Sprintf("  %-16s %6d\n", kind.String()+":", n)
			}
		}
	}
	if s.ZeroRecords > 0 {
		result += fmt.Sprintf("Zero Records:     %8d\n", s.ZeroRecords)
	}

	if t := s.ThroughputSummary(); t.N > 0 {
		result += fmt.Sprintf("Throughput Mean:  %8.3f +/- %.3f MAC/cycle\n", t.Mean, t.StdDev)
		result += fmt.Sprintf("Throughput Min:   %8.3f MAC/cycle\n", t.Min)
		result += fmt.Sprintf("Throughput Max:   %8.3f MAC/cycle\n", t.Max)
		result += fmt.Sprintf("Variation (CV):   %8.2f%%\n", t.CV())
	}
	if m := Summarize(s.MACOps); m.N > 0 {
		result += fmt.Sprintf("MAC Ops Mean:     %8s\n", FormatCount(uint64(math.Round(m.Mean))))
	}
	if c := Summarize(s.Cycles); c.N > 0 {
		result += fmt.Sprintf("Cycles Mean:      %8s\n", FormatCount(uint64(math.Round(c.Mean))))
	}
	if l := s.LatencySummary(); l.N > 0 {
		result += fmt.Sprintf("Latency Mean:     %8.1f +/- %.1f ms\n", l.Mean*1000, l.StdDev*1000)
		if l.Mean > 0 {
			result += fmt.Sprintf("Run Rate:         %8.1f runs/sec\n", 1/l.Mean)
		}
	}
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalRuns = 0
	s.SuccessfulRuns = 0
	s.ZeroRecords = 0
	s.Failures = make(map[FailureKind]uint64)
	s.Throughput = nil
	s.MACOps = nil
	s.Cycles = nil
	s.Latency = nil
}
