//go:build unix

package pacer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/lc-may/udp-toolkit/pkg/probe/model"
	"github.com/lc-may/udp-toolkit/pkg/probe/spec"
	"github.com/lc-may/udp-toolkit/pkg/probe/wire"
)

func TestIsTransient(t *testing.T) {
	require.True(t, isTransient(unix.ENOBUFS))
	require.True(t, isTransient(unix.EAGAIN))
	require.True(t, isTransient(&os.SyscallError{
		Syscall: "sendto",
		Err:     unix.ENOBUFS,
	}))
	require.True(t, isTransient(fmt.Errorf("write: %w", unix.EAGAIN)))

	require.False(t, isTransient(unix.ECONNREFUSED))
	require.False(t, isTransient(errors.New("broken")))
	require.False(t, isTransient(net.ErrClosed))
}

func TestRunCountsRetriesAndDrops(t *testing.T) {
	sink, seqs := startSink(t)
	conn := dialSink(t, sink)

	cfg := model.SessionConfig{
		Server:      "127.0.0.1",
		Bandwidth:   800000,
		PacketSize:  1000,
		Duration:    200 * time.Millisecond,
		SyncTimeout: time.Second,
	}
	require.NoError(t, cfg.Validate())
	p := New(conn, cfg, 0)

	// Sequence 1 exhausts every retry and is abandoned; sequence 3
	// succeeds on its third attempt.
	var dropFails, retryFails int
	realWrite := p.write
	p.write = func(b []byte) (int, error) {
		pkt, err := wire.DecodeData(b)
		if err != nil {
			return 0, err
		}
		switch {
		case pkt.Sequence == 1 && dropFails <= spec.SendRetries:
			dropFails++
			return 0, unix.ENOBUFS
		case pkt.Sequence == 3 && retryFails < 2:
			retryFails++
			return 0, os.NewSyscallError("sendto", unix.EAGAIN)
		}
		return realWrite(b)
	}

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.PacketsDropped)
	require.Equal(t, uint64(spec.SendRetries+2), res.SendRetries)
	require.Equal(t, spec.SendRetries+1, dropFails)

	// Give the last datagram a moment to drain before closing the sink.
	time.Sleep(100 * time.Millisecond)
	sink.Close()
	var got []uint32
	for seq := range seqs {
		got = append(got, seq)
	}
	require.GreaterOrEqual(t, len(got), 5)

	// The dropped packet's sequence number was consumed, never reused:
	// the wire shows 0, 2, 3, ... with no second gap.
	require.Equal(t, uint32(0), got[0])
	require.Equal(t, uint32(2), got[1])
	for i := 2; i < len(got); i++ {
		require.Equal(t, got[i-1]+1, got[i])
	}
	require.Equal(t, res.PacketsSent, uint64(len(got)))
}
