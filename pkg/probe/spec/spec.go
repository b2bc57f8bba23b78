// Package spec contains constants for the udp-toolkit probe protocol.
package spec

import "time"

const (
	// WireVersion is the version of the wire format implemented by this
	// module. Both ends of a session must run the same version; there is
	// no in-band negotiation.
	WireVersion = 1

	// SyncPort is the receiver's UDP port for clock synchronization.
	SyncPort = 4000

	// DataPort is the receiver's UDP port for the probe data stream.
	DataPort = 5000

	// DataHeaderSize is the fixed size of a data packet header:
	// sequence (4) + send timestamp (8) + clock offset (8) +
	// declared size (4).
	DataHeaderSize = 24

	// SyncRequestSize is the size of a clock sync request: t1 (8).
	SyncRequestSize = 8

	// SyncResponseSize is the size of a clock sync response:
	// t1 echo (8) + t2 (8) + t3 (8).
	SyncResponseSize = 24

	// MaxDatagramSize is the fixed size of the receiver's intake buffers.
	// The declared-size header field is informational only and must never
	// drive buffer allocation.
	MaxDatagramSize = 8192

	// SampleInterval is the minimum length of a throughput sampling
	// window. Windows are measured from the previous emission instant, so
	// their true length is always >= this value.
	SampleInterval = 1 * time.Second

	// DriftSlack is how far the pacer may fall behind its schedule before
	// a drift warning is surfaced. No catch-up burst is ever attempted.
	DriftSlack = 100 * time.Millisecond

	// SendRetries is the number of immediate retries after a transient
	// send failure before the packet is counted as dropped.
	SendRetries = 5

	// DefaultSyncTimeout bounds the wait for a clock sync response.
	DefaultSyncTimeout = 5 * time.Second

	// DefaultPacketSize is the default probe datagram size in bytes.
	DefaultPacketSize = 1000

	// DefaultBandwidth is the default target bitrate in bits per second.
	DefaultBandwidth = 1000000

	// DefaultDuration is the default length of a probe run.
	DefaultDuration = 10 * time.Second
)
