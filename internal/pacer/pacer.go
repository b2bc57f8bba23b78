// Package pacer implements the sender's timed transmission loop.
package pacer

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lc-may/udp-toolkit/internal/metrics"
	"github.com/lc-may/udp-toolkit/internal/monotime"
	"github.com/lc-may/udp-toolkit/pkg/probe/model"
	"github.com/lc-may/udp-toolkit/pkg/probe/spec"
	"github.com/lc-may/udp-toolkit/pkg/probe/wire"
)

// Pacer transmits a rate-paced stream of probe datagrams over a connected
// UDP socket. Packet n's target send time is start + n*interval, computed
// from the fixed schedule base rather than the previous actual send time,
// so per-packet jitter does not accumulate into long-run drift.
type Pacer struct {
	cfg    model.SessionConfig
	offset float64

	// write sends one datagram. It is the connected socket's Write in
	// production; tests substitute writers that fail on demand.
	write func([]byte) (int, error)

	packetsSent    atomic.Uint64
	packetsDropped atomic.Uint64
}

// Result summarizes a completed run.
type Result struct {
	// PacketsSent is the number of datagrams handed to the socket.
	PacketsSent uint64
	// PacketsDropped is the number of packets abandoned after exhausting
	// retries. Their sequence numbers were still consumed, so receiver
	// side gaps reflect genuinely never-transmitted payload.
	PacketsDropped uint64
	// SendRetries is the number of transient send failures retried.
	SendRetries uint64
	// DriftWarnings is the number of times the loop fell behind schedule
	// beyond the drift slack.
	DriftWarnings uint64
	// Elapsed is the wall-clock duration of the loop.
	Elapsed time.Duration
}

// New returns a Pacer for the given connected socket, configuration and
// session clock offset.
func New(conn *net.UDPConn, cfg model.SessionConfig, offset float64) *Pacer {
	return &Pacer{
		cfg:    cfg,
		offset: offset,
		write:  conn.Write,
	}
}

// Progress returns the live sent/dropped counters. Safe to call from
// another goroutine while Run is in flight.
func (p *Pacer) Progress() (sent, dropped uint64) {
	return p.packetsSent.Load(), p.packetsDropped.Load()
}

// Run transmits until the configured duration has elapsed or ctx is
// canceled. Termination is time-bounded rather than count-bounded, so the
// target bitrate is honored regardless of packet size.
func (p *Pacer) Run(ctx context.Context) (Result, error) {
	interval := p.cfg.Interval()
	buf := make([]byte, p.cfg.PacketSize)

	var res Result
	var seq uint32
	begin := time.Now()
	deadline := begin.Add(p.cfg.Duration)
	// base anchors the schedule. It only moves when the loop falls
	// behind beyond the slack, in which case pacing continues from the
	// later actual clock with no catch-up burst.
	base := begin
	behind := false

	log.Info("pacing started", "interval", interval,
		"bandwidth_bps", p.cfg.Bandwidth, "packet_size", p.cfg.PacketSize,
		"duration", p.cfg.Duration)

	for time.Now().Before(deadline) {
		pkt := wire.DataPacket{
			Sequence:      seq,
			SendTimestamp: monotime.Seconds(),
			ClockOffset:   p.offset,
			DeclaredSize:  uint32(p.cfg.PacketSize),
		}
		if err := wire.PutData(buf, pkt); err != nil {
			// Unreachable with a validated config.
			return p.result(&res, begin), err
		}
		dropped, err := p.send(buf, &res)
		if err != nil {
			return p.result(&res, begin), fmt.Errorf("send seq %d: %w", seq, err)
		}
		if dropped {
			p.packetsDropped.Add(1)
		} else {
			p.packetsSent.Add(1)
		}
		// The sequence number is consumed even for dropped packets.
		seq++

		target := base.Add(time.Duration(seq) * interval)
		now := time.Now()
		if wait := target.Sub(now); wait > 0 {
			behind = false
			select {
			case <-ctx.Done():
				return p.result(&res, begin), ctx.Err()
			case <-time.After(wait):
			}
		} else if now.Sub(target) > spec.DriftSlack {
			res.DriftWarnings++
			metrics.PacerDriftWarnings.Inc()
			if !behind {
				log.Warn("pacer behind schedule, rebasing",
					"behind", now.Sub(target), "seq", seq)
				behind = true
			}
			// Continue from the actual clock: the next packet is due
			// now, and the ones that should have gone out since target
			// are simply late, never burst.
			base = now.Add(-time.Duration(seq) * interval)
		}
		if ctx.Err() != nil {
			return p.result(&res, begin), ctx.Err()
		}
	}
	return p.result(&res, begin), nil
}

// send writes buf, retrying transient failures up to spec.SendRetries
// times with no inter-retry delay. It reports dropped=true when the
// packet was abandoned; any non-transient error is returned as is.
func (p *Pacer) send(buf []byte, res *Result) (dropped bool, err error) {
	for attempt := 0; ; attempt++ {
		_, err = p.write(buf)
		if err == nil {
			return false, nil
		}
		if !isTransient(err) {
			return false, err
		}
		if attempt == spec.SendRetries {
			log.Warn("packet dropped after retries", "retries", attempt, "error", err)
			metrics.PacketsDropped.Inc()
			return true, nil
		}
		res.SendRetries++
		metrics.SendRetries.Inc()
	}
}

func (p *Pacer) result(res *Result, begin time.Time) Result {
	res.PacketsSent = p.packetsSent.Load()
	res.PacketsDropped = p.packetsDropped.Load()
	res.Elapsed = time.Since(begin)
	return *res
}
