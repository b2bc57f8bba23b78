// Package model contains the data types shared between the probe's sender
// and receiver halves.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/lc-may/udp-toolkit/pkg/probe/spec"
)

// SessionConfig is the validated configuration for a probe run. It is
// immutable for the life of the run.
type SessionConfig struct {
	// Server is the receiver's host or IP address. The sync and data
	// ports are fixed by the protocol (spec.SyncPort, spec.DataPort).
	Server string

	// Bandwidth is the target send rate in bits per second.
	Bandwidth int64

	// Duration is the wall-clock length of the send phase.
	Duration time.Duration

	// PacketSize is the total size of each probe datagram, header
	// included.
	PacketSize int

	// MeasurementID identifies this run in logs and summaries.
	MeasurementID string

	// SyncTimeout bounds the wait for a clock sync response.
	SyncTimeout time.Duration

	// AllowUnsynchronized makes a sync timeout non-fatal: the run
	// proceeds with a zero clock offset. One-way latency figures are
	// then raw clock differences and must be read accordingly.
	AllowUnsynchronized bool
}

// Validate checks the configuration before any socket is opened.
func (c *SessionConfig) Validate() error {
	if c.Server == "" {
		return errors.New("server address is required")
	}
	if c.Bandwidth <= 0 {
		return fmt.Errorf("bandwidth must be positive, got %d", c.Bandwidth)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.Duration)
	}
	if c.PacketSize <= spec.DataHeaderSize {
		return fmt.Errorf("packet size must be greater than the %d-byte header, got %d",
			spec.DataHeaderSize, c.PacketSize)
	}
	if c.PacketSize > spec.MaxDatagramSize {
		return fmt.Errorf("packet size must not exceed %d bytes, got %d",
			spec.MaxDatagramSize, c.PacketSize)
	}
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("sync timeout must be positive, got %s", c.SyncTimeout)
	}
	return nil
}

// Interval returns the nominal inter-packet interval for this
// configuration: PacketSize * 8 / Bandwidth.
func (c *SessionConfig) Interval() time.Duration {
	seconds := float64(c.PacketSize) * 8 / float64(c.Bandwidth)
	return time.Duration(seconds * float64(time.Second))
}

// ClockOffsetSample holds the four timestamps of one NTP-style clock sync
// exchange. T1 and T4 are on the sender's clock, T2 and T3 on the
// receiver's. It is computed once per session and immutable thereafter.
type ClockOffsetSample struct {
	T1 float64
	T2 float64
	T3 float64
	T4 float64
}

// Offset returns the estimated sender-to-receiver clock offset in seconds,
// under the NTP symmetric-delay assumption.
func (s ClockOffsetSample) Offset() float64 {
	return ((s.T2 - s.T1) + (s.T3 - s.T4)) / 2
}

// Delay returns the round-trip delay of the exchange in seconds.
func (s ClockOffsetSample) Delay() float64 {
	return (s.T4 - s.T1) - (s.T3 - s.T2)
}

// ThroughputSample is one windowed throughput report emitted by the stats
// engine. Start and End are seconds elapsed since the session started.
type ThroughputSample struct {
	Start float64
	End   float64

	// SampleBPS is the throughput over this window in bits per second.
	SampleBPS float64

	// AverageBPS is the cumulative average throughput since the session
	// started, in bits per second.
	AverageBPS float64

	// BytesInWindow is the byte count this sample was computed from.
	BytesInWindow uint64

	// TotalBytes is the cumulative byte count since the session started.
	TotalBytes uint64
}

// Summary is a receiver-side snapshot of a session's counters.
type Summary struct {
	// PacketsReceived is the number of well-formed data packets received.
	PacketsReceived uint64

	// TotalBytes is the number of payload bytes received, counted from
	// actual datagram lengths.
	TotalBytes uint64

	// TotalGaps is the number of packets inferred lost from forward
	// sequence jumps.
	TotalGaps uint64

	// MalformedPackets is the number of datagrams discarded because they
	// were shorter than the fixed header.
	MalformedPackets uint64

	// SizeMismatches is the number of packets whose declared size did not
	// match the received length. These packets still count toward every
	// other statistic.
	SizeMismatches uint64

	// LastLatencyMs is the most recent one-way latency observation, as an
	// absolute value in milliseconds.
	LastLatencyMs float64

	// Elapsed is the seconds between the first received packet and the
	// last state change, zero if nothing was received.
	Elapsed float64
}
