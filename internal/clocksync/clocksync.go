// Package clocksync implements the one-shot NTP-style clock offset
// exchange: Synchronize is the sender half, Responder the receiver half.
package clocksync

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jellydator/ttlcache/v3"

	"github.com/lc-may/udp-toolkit/internal/metrics"
	"github.com/lc-may/udp-toolkit/internal/monotime"
	"github.com/lc-may/udp-toolkit/pkg/probe/model"
	"github.com/lc-may/udp-toolkit/pkg/probe/wire"
)

// ErrSyncTimeout is returned when no valid sync response arrives within
// the configured timeout.
var ErrSyncTimeout = errors.New("clock sync timed out")

// clientTableTTL is how long the responder remembers a requester for
// first-contact logging.
const clientTableTTL = 1 * time.Minute

// syncBufSize is large enough for any sync message plus slack for
// unexpected trailing bytes.
const syncBufSize = 64

// Synchronize runs a single request/response exchange over the connected
// conn and returns the resulting four-timestamp sample. There is no retry,
// outlier rejection or multi-sample averaging: offset accuracy rests on
// the NTP symmetric-delay assumption, and callers needing robustness must
// repeat the exchange themselves. The offset is measured once per session;
// it is never refreshed, which is a known source of latency drift on long
// sessions.
func Synchronize(conn *net.UDPConn, timeout time.Duration) (model.ClockOffsetSample, error) {
	// Record t1 immediately before the write so the request's own send
	// time is part of the measured path.
	t1 := monotime.Seconds()
	if _, err := conn.Write(wire.EncodeSyncRequest(wire.SyncRequest{T1: t1})); err != nil {
		return model.ClockOffsetSample{}, fmt.Errorf("sync request: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return model.ClockOffsetSample{}, fmt.Errorf("set deadline: %w", err)
	}
	buf := make([]byte, syncBufSize)
	for {
		n, err := conn.Read(buf)
		// t4 is taken right after the read returns, before any parsing.
		t4 := monotime.Seconds()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return model.ClockOffsetSample{}, fmt.Errorf("%w after %s", ErrSyncTimeout, timeout)
			}
			return model.ClockOffsetSample{}, fmt.Errorf("sync response: %w", err)
		}
		resp, err := wire.DecodeSyncResponse(buf[:n])
		if err != nil {
			log.Debug("discarding undersized sync response", "len", n)
			continue
		}
		if resp.T1 != t1 {
			// A stale response from a previous exchange on the same
			// five-tuple. Keep waiting for ours.
			log.Debug("discarding stale sync response", "t1", resp.T1, "want", t1)
			continue
		}
		return model.ClockOffsetSample{T1: t1, T2: resp.T2, T3: resp.T3, T4: t4}, nil
	}
}

// Responder answers clock sync requests on a UDP socket. It keeps a small
// TTL table of requesters so that first contact can be logged once per
// client rather than per request.
type Responder struct {
	conn    *net.UDPConn
	clients *ttlcache.Cache[string, uint64]
}

// NewResponder returns a Responder replying on conn.
func NewResponder(conn *net.UDPConn) *Responder {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, uint64](clientTableTTL),
	)
	cache.OnEviction(func(ctx context.Context,
		er ttlcache.EvictionReason,
		i *ttlcache.Item[string, uint64]) {
		log.Debug("sync client expired", "addr", i.Key(), "requests", i.Value())
	})
	go cache.Start()
	return &Responder{
		conn:    conn,
		clients: cache,
	}
}

// Handle answers a single sync request. recvTime is the request's arrival
// time (t2), recorded by the caller right after the read; t3 is taken
// immediately afterwards, so the documented simplification t3 ~= t2 (zero
// processing delay) holds.
func (r *Responder) Handle(raddr *net.UDPAddr, payload []byte, recvTime float64) error {
	req, err := wire.DecodeSyncRequest(payload)
	if err != nil {
		metrics.MalformedPackets.Inc()
		return fmt.Errorf("sync request from %s: %w", raddr, err)
	}

	resp := wire.SyncResponse{
		T1: req.T1,
		T2: recvTime,
		T3: monotime.Seconds(),
	}
	if _, err := r.conn.WriteToUDP(wire.EncodeSyncResponse(resp), raddr); err != nil {
		return fmt.Errorf("sync response to %s: %w", raddr, err)
	}

	key := raddr.String()
	item := r.clients.Get(key)
	if item == nil {
		log.Info("new sync client", "addr", key)
		r.clients.Set(key, 1, ttlcache.DefaultTTL)
	} else {
		r.clients.Set(key, item.Value()+1, ttlcache.DefaultTTL)
	}
	metrics.SyncExchanges.Inc()

	log.Debug("sync exchange answered", "addr", key, "t1", req.T1,
		"t2", resp.T2, "t3", resp.T3)
	return nil
}

// Stop stops the responder's client table janitor.
func (r *Responder) Stop() {
	r.clients.Stop()
}
