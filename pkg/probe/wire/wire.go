// Package wire implements the probe's fixed-layout wire format. All fields
// are big-endian; timestamps and offsets are IEEE-754 float64 seconds on
// the sender's or receiver's monotonic clock.
//
// Data packet (version spec.WireVersion):
//
//	[sequence:4][sendTimestamp:8][clockOffset:8][declaredSize:4][filler...]
//
// Sync request: [t1:8]. Sync response: [t1:8][t2:8][t3:8]; t1 is echoed so
// the requester can reject stale responses.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/lc-may/udp-toolkit/pkg/probe/spec"
)

// ErrMalformedPacket is returned when a datagram is shorter than the fixed
// layout it is decoded against.
var ErrMalformedPacket = errors.New("malformed packet")

// DataPacket is the decoded header of a probe data packet. The filler
// bytes beyond the header carry no semantic content and are not retained.
type DataPacket struct {
	// Sequence is the sender-assigned packet counter.
	Sequence uint32

	// SendTimestamp is the send time on the sender's monotonic clock.
	SendTimestamp float64

	// ClockOffset is the sender-to-receiver offset measured at session
	// start, carried in every packet.
	ClockOffset float64

	// DeclaredSize is the total datagram size claimed by the sender.
	// Informational only: receivers must size buffers independently.
	DeclaredSize uint32
}

// SizeMismatch reports whether the declared size disagrees with the actual
// received length. The mismatch is non-fatal.
func (p DataPacket) SizeMismatch(actual int) bool {
	return int(p.DeclaredSize) != actual
}

// PutData writes the data packet header into buf, which must hold at least
// spec.DataHeaderSize bytes. Bytes beyond the header are left untouched so
// a prepared filler buffer can be reused across sends.
func PutData(buf []byte, p DataPacket) error {
	if len(buf) < spec.DataHeaderSize {
		return fmt.Errorf("buffer too small for header: %d < %d",
			len(buf), spec.DataHeaderSize)
	}
	binary.BigEndian.PutUint32(buf[0:4], p.Sequence)
	binary.BigEndian.PutUint64(buf[4:12], math.Float64bits(p.SendTimestamp))
	binary.BigEndian.PutUint64(buf[12:20], math.Float64bits(p.ClockOffset))
	binary.BigEndian.PutUint32(buf[20:24], p.DeclaredSize)
	return nil
}

// EncodeData returns a datagram of exactly size bytes carrying p, with
// zero filler after the header.
func EncodeData(p DataPacket, size int) ([]byte, error) {
	if size < spec.DataHeaderSize {
		return nil, fmt.Errorf("packet size %d below header size %d",
			size, spec.DataHeaderSize)
	}
	buf := make([]byte, size)
	if err := PutData(buf, p); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeData parses a data packet header. Datagrams shorter than the fixed
// header fail with ErrMalformedPacket; filler bytes are ignored.
func DecodeData(buf []byte) (DataPacket, error) {
	if len(buf) < spec.DataHeaderSize {
		return DataPacket{}, fmt.Errorf("%w: %d bytes, need at least %d",
			ErrMalformedPacket, len(buf), spec.DataHeaderSize)
	}
	return DataPacket{
		Sequence:      binary.BigEndian.Uint32(buf[0:4]),
		SendTimestamp: math.Float64frombits(binary.BigEndian.Uint64(buf[4:12])),
		ClockOffset:   math.Float64frombits(binary.BigEndian.Uint64(buf[12:20])),
		DeclaredSize:  binary.BigEndian.Uint32(buf[20:24]),
	}, nil
}

// SyncRequest is a clock sync request carrying the requester's send time.
type SyncRequest struct {
	T1 float64
}

// SyncResponse is a clock sync response. T1 echoes the request; T2 and T3
// are the responder's arrival and reply times.
type SyncResponse struct {
	T1 float64
	T2 float64
	T3 float64
}

// EncodeSyncRequest returns the wire form of r.
func EncodeSyncRequest(r SyncRequest) []byte {
	buf := make([]byte, spec.SyncRequestSize)
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(r.T1))
	return buf
}

// DecodeSyncRequest parses a sync request.
func DecodeSyncRequest(buf []byte) (SyncRequest, error) {
	if len(buf) < spec.SyncRequestSize {
		return SyncRequest{}, fmt.Errorf("%w: %d bytes, need %d",
			ErrMalformedPacket, len(buf), spec.SyncRequestSize)
	}
	return SyncRequest{
		T1: math.Float64frombits(binary.BigEndian.Uint64(buf[0:8])),
	}, nil
}

// EncodeSyncResponse returns the wire form of r.
func EncodeSyncResponse(r SyncResponse) []byte {
	buf := make([]byte, spec.SyncResponseSize)
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(r.T1))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(r.T2))
	binary.BigEndian.PutUint64(buf[16:24], math.Float64bits(r.T3))
	return buf
}

// DecodeSyncResponse parses a sync response.
func DecodeSyncResponse(buf []byte) (SyncResponse, error) {
	if len(buf) < spec.SyncResponseSize {
		return SyncResponse{}, fmt.Errorf("%w: %d bytes, need %d",
			ErrMalformedPacket, len(buf), spec.SyncResponseSize)
	}
	return SyncResponse{
		T1: math.Float64frombits(binary.BigEndian.Uint64(buf[0:8])),
		T2: math.Float64frombits(binary.BigEndian.Uint64(buf[8:16])),
		T3: math.Float64frombits(binary.BigEndian.Uint64(buf[16:24])),
	}, nil
}
