package reactor

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/m-lab/go/rtx"
	"github.com/stretchr/testify/require"
)

func TestReadLoopExitsWhileParkedOnFullChannel(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	rtx.Must(err, "failed to bind loopback socket")
	t.Cleanup(func() { conn.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// An unbuffered channel with no consumer: the reader parks on the
	// send as soon as a datagram arrives.
	ch := make(chan event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(ctx, conn, ch)
	}()

	client, err := net.DialUDP("udp", nil, conn.LocalAddr().(*net.UDPAddr))
	rtx.Must(err, "failed to dial loopback socket")
	t.Cleanup(func() { client.Close() })
	_, err = client.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	// Let the datagram arrive and the send block before canceling.
	time.Sleep(50 * time.Millisecond)
	cancel()
	conn.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader goroutine did not exit")
	}
}
