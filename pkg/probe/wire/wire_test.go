package wire_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lc-may/udp-toolkit/pkg/probe/spec"
	"github.com/lc-may/udp-toolkit/pkg/probe/wire"
)

func TestDataRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  wire.DataPacket
		size int
	}{
		{
			name: "typical",
			pkt: wire.DataPacket{
				Sequence:      42,
				SendTimestamp: 1234.567891234,
				ClockOffset:   -0.003125,
				DeclaredSize:  1000,
			},
			size: 1000,
		},
		{
			name: "header-only",
			pkt: wire.DataPacket{
				Sequence:      0,
				SendTimestamp: 0,
				ClockOffset:   0,
				DeclaredSize:  spec.DataHeaderSize,
			},
			size: spec.DataHeaderSize,
		},
		{
			name: "extremes",
			pkt: wire.DataPacket{
				Sequence:      math.MaxUint32,
				SendTimestamp: math.MaxFloat64,
				ClockOffset:   -math.SmallestNonzeroFloat64,
				DeclaredSize:  math.MaxUint32,
			},
			size: spec.MaxDatagramSize,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := wire.EncodeData(tt.pkt, tt.size)
			require.NoError(t, err)
			require.Len(t, buf, tt.size)

			got, err := wire.DecodeData(buf)
			require.NoError(t, err)
			require.Equal(t, tt.pkt, got)
		})
	}
}

func TestEncodeDataRejectsUndersized(t *testing.T) {
	_, err := wire.EncodeData(wire.DataPacket{}, spec.DataHeaderSize-1)
	require.Error(t, err)
}

func TestDecodeDataShortDatagram(t *testing.T) {
	for _, n := range []int{0, 1, 10, spec.DataHeaderSize - 1} {
		_, err := wire.DecodeData(make([]byte, n))
		require.ErrorIs(t, err, wire.ErrMalformedPacket, "len %d", n)
	}
}

func TestDecodeDataIgnoresFiller(t *testing.T) {
	pkt := wire.DataPacket{Sequence: 7, SendTimestamp: 1.5, DeclaredSize: 512}
	buf, err := wire.EncodeData(pkt, 512)
	require.NoError(t, err)
	// Filler content has no semantic meaning.
	for i := spec.DataHeaderSize; i < len(buf); i++ {
		buf[i] = 0xAA
	}
	got, err := wire.DecodeData(buf)
	require.NoError(t, err)
	require.Equal(t, pkt, got)
}

func TestSizeMismatch(t *testing.T) {
	pkt := wire.DataPacket{DeclaredSize: 1000}
	require.False(t, pkt.SizeMismatch(1000))
	require.True(t, pkt.SizeMismatch(999))
	require.True(t, pkt.SizeMismatch(spec.DataHeaderSize))
}

func TestPutDataReusesBuffer(t *testing.T) {
	buf := make([]byte, 100)
	for i := range buf {
		buf[i] = 0xFF
	}
	pkt := wire.DataPacket{Sequence: 3, SendTimestamp: 2.25, DeclaredSize: 100}
	require.NoError(t, wire.PutData(buf, pkt))

	got, err := wire.DecodeData(buf)
	require.NoError(t, err)
	require.Equal(t, pkt, got)
	// Bytes beyond the header are untouched.
	require.Equal(t, byte(0xFF), buf[spec.DataHeaderSize])

	require.Error(t, wire.PutData(make([]byte, spec.DataHeaderSize-1), pkt))
}

func TestSyncRoundTrip(t *testing.T) {
	req := wire.SyncRequest{T1: 1001.25}
	gotReq, err := wire.DecodeSyncRequest(wire.EncodeSyncRequest(req))
	require.NoError(t, err)
	require.Equal(t, req, gotReq)

	resp := wire.SyncResponse{T1: 1001.25, T2: 1001.35, T3: 1001.350001}
	gotResp, err := wire.DecodeSyncResponse(wire.EncodeSyncResponse(resp))
	require.NoError(t, err)
	require.Equal(t, resp, gotResp)
}

func TestSyncShortMessages(t *testing.T) {
	_, err := wire.DecodeSyncRequest(make([]byte, spec.SyncRequestSize-1))
	require.ErrorIs(t, err, wire.ErrMalformedPacket)

	_, err = wire.DecodeSyncResponse(make([]byte, spec.SyncResponseSize-1))
	require.ErrorIs(t, err, wire.ErrMalformedPacket)
}
