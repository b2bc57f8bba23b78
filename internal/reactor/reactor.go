// Package reactor implements the receiver's event loop. The original
// design multiplexes two UDP sockets from one thread; here each socket has
// a reader goroutine feeding a buffered channel, and a single event-loop
// goroutine owns every piece of mutable state. No locks exist anywhere in
// the receive path.
package reactor

import (
	"context"
	"errors"
	"net"

	"github.com/charmbracelet/log"

	"github.com/lc-may/udp-toolkit/internal/clocksync"
	"github.com/lc-may/udp-toolkit/internal/monotime"
	"github.com/lc-may/udp-toolkit/internal/stats"
	"github.com/lc-may/udp-toolkit/pkg/probe/spec"
	"github.com/lc-may/udp-toolkit/pkg/probe/wire"
)

// event is one received datagram with its arrival time.
type event struct {
	payload  []byte
	raddr    *net.UDPAddr
	recvTime float64
}

// Reactor dispatches incoming datagrams to the clock sync responder and
// the stats engine. It runs until the context is canceled; with no
// traffic it blocks indefinitely, which is acceptable since the receiver
// has no other scheduled work.
type Reactor struct {
	syncConn  *net.UDPConn
	dataConn  *net.UDPConn
	responder *clocksync.Responder
	engine    *stats.Engine
}

// New returns a Reactor wiring the two sockets to their handlers.
func New(syncConn, dataConn *net.UDPConn, responder *clocksync.Responder,
	engine *stats.Engine) *Reactor {
	return &Reactor{
		syncConn:  syncConn,
		dataConn:  dataConn,
		responder: responder,
		engine:    engine,
	}
}

// Run processes events until ctx is canceled. Canceling closes both
// sockets to unblock the reader goroutines; Run then returns nil.
func (r *Reactor) Run(ctx context.Context) error {
	syncCh := make(chan event, 16)
	dataCh := make(chan event, 256)
	go readLoop(ctx, r.syncConn, syncCh)
	go readLoop(ctx, r.dataConn, dataCh)

	stop := context.AfterFunc(ctx, func() {
		r.syncConn.Close()
		r.dataConn.Close()
	})
	defer stop()

	log.Info("accepting UDP packets",
		"sync", r.syncConn.LocalAddr(), "data", r.dataConn.LocalAddr())
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-syncCh:
			if err := r.responder.Handle(ev.raddr, ev.payload, ev.recvTime); err != nil {
				log.Info("failed to answer sync request", "err", err)
			}
		case ev := <-dataCh:
			r.handleData(ev)
		}
	}
}

// handleData decodes one data datagram and folds it into the engine.
// Malformed datagrams are counted and discarded without touching any
// other state.
func (r *Reactor) handleData(ev event) {
	pkt, err := wire.DecodeData(ev.payload)
	if err != nil {
		r.engine.RecordMalformed(len(ev.payload))
		return
	}
	r.engine.Record(pkt, len(ev.payload), ev.recvTime)
}

// readLoop reads datagrams into a fixed MaxDatagramSize buffer and
// forwards copies over ch. The buffer size is independent of any
// sender-declared size field. It returns when the socket is closed or
// ctx is canceled, even while parked on a full channel.
func readLoop(ctx context.Context, conn *net.UDPConn, ch chan<- event) {
	buf := make([]byte, spec.MaxDatagramSize)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		// The receive time is recorded as soon as possible after the
		// read, to improve accuracy.
		recvTime := monotime.Seconds()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Error("error while reading UDP packet", "err", err)
			continue
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		select {
		case ch <- event{payload: payload, raddr: raddr, recvTime: recvTime}:
		case <-ctx.Done():
			return
		}
	}
}
