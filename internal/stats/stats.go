// Package stats implements the receiver's per-packet analysis: sequence
// gap detection, one-way latency computation and windowed throughput
// sampling. An Engine is owned by a single goroutine (the reactor's event
// loop) and is not safe for concurrent use.
package stats

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/lc-may/udp-toolkit/internal/metrics"
	"github.com/lc-may/udp-toolkit/pkg/probe"
	"github.com/lc-may/udp-toolkit/pkg/probe/model"
	"github.com/lc-may/udp-toolkit/pkg/probe/spec"
	"github.com/lc-may/udp-toolkit/pkg/probe/wire"
)

// Engine consumes decoded data packets and maintains the session's
// statistics. The zero session starts with the first received packet.
type Engine struct {
	emitter probe.Emitter

	// Sequence tracking. totalGaps only increases, and only for forward
	// jumps; reordered or duplicate arrivals never change it.
	lastSeq   uint32
	haveSeq   bool
	totalGaps uint64

	// Throughput window. windowStart advances to each emission instant,
	// so a window's length is the true elapsed time, always at least
	// spec.SampleInterval.
	started       bool
	sessionStart  float64
	windowStart   float64
	bytesInWindow uint64
	totalBytes    uint64

	packetsReceived uint64
	malformed       uint64
	sizeMismatches  uint64
	lastLatencyMs   float64
	lastEvent       float64
}

// New returns an Engine emitting throughput samples to emitter.
func New(emitter probe.Emitter) *Engine {
	return &Engine{emitter: emitter}
}

// Record folds one well-formed data packet into the session statistics.
// actualLen is the received datagram length, which drives byte accounting
// regardless of the packet's declared size. recvTime is the arrival time
// on the local monotonic clock, recorded right after the read.
func (e *Engine) Record(p wire.DataPacket, actualLen int, recvTime float64) {
	if !e.started {
		e.started = true
		e.sessionStart = recvTime
		e.windowStart = recvTime
	}
	e.packetsReceived++
	e.lastEvent = recvTime
	metrics.PacketsReceived.Inc()

	// Gap detection. Forward jumps count the skipped packets; anything
	// at or before lastSeq is reordering or duplication and never
	// changes totalGaps. lastSeq tracks the highest sequence seen, so a
	// late arrival cannot make later in-order packets look like a gap.
	switch {
	case !e.haveSeq:
		e.lastSeq = p.Sequence
		e.haveSeq = true
	case p.Sequence > e.lastSeq:
		if p.Sequence != e.lastSeq+1 {
			gap := uint64(p.Sequence - e.lastSeq - 1)
			e.totalGaps += gap
			metrics.SequenceGaps.Add(float64(gap))
			log.Debug("sequence gap", "missing", gap, "from", e.lastSeq, "to", p.Sequence)
		}
		e.lastSeq = p.Sequence
	}

	// One-way latency, translated into the local time frame through the
	// offset measured once at session start. Reported as an absolute
	// value in milliseconds.
	latency := math.Abs(recvTime - (p.SendTimestamp + p.ClockOffset))
	e.lastLatencyMs = latency * 1e3
	metrics.LastLatency.Set(latency)
	log.Debug("packet", "seq", p.Sequence, "size", actualLen,
		"latency_ms", e.lastLatencyMs)

	if p.SizeMismatch(actualLen) {
		e.sizeMismatches++
		metrics.SizeMismatches.Inc()
		log.Debug("declared size mismatch", "declared", p.DeclaredSize,
			"actual", actualLen, "seq", p.Sequence)
	}

	e.bytesInWindow += uint64(actualLen)
	e.totalBytes += uint64(actualLen)

	e.maybeSample(recvTime)
}

// RecordMalformed counts a datagram that was too short to decode. No
// other state is touched.
func (e *Engine) RecordMalformed(n int) {
	e.malformed++
	metrics.MalformedPackets.Inc()
	log.Info("discarding malformed datagram", "len", n,
		"min", spec.DataHeaderSize)
}

// maybeSample emits a throughput sample once the current window has
// lasted at least the sampling interval, then opens a new window at now.
func (e *Engine) maybeSample(now float64) {
	elapsed := now - e.windowStart
	if elapsed < spec.SampleInterval.Seconds() {
		return
	}
	sample := model.ThroughputSample{
		Start:         e.windowStart - e.sessionStart,
		End:           now - e.sessionStart,
		SampleBPS:     float64(e.bytesInWindow) * 8 / elapsed,
		AverageBPS:    float64(e.totalBytes) * 8 / (now - e.sessionStart),
		BytesInWindow: e.bytesInWindow,
		TotalBytes:    e.totalBytes,
	}
	e.emitter.OnSample(sample)

	e.bytesInWindow = 0
	e.windowStart = now
}

// Summary returns a snapshot of the session counters.
func (e *Engine) Summary() model.Summary {
	s := model.Summary{
		PacketsReceived:  e.packetsReceived,
		TotalBytes:       e.totalBytes,
		TotalGaps:        e.totalGaps,
		MalformedPackets: e.malformed,
		SizeMismatches:   e.sizeMismatches,
		LastLatencyMs:    e.lastLatencyMs,
	}
	if e.started {
		s.Elapsed = e.lastEvent - e.sessionStart
	}
	return s
}
