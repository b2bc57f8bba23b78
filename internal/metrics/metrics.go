// Package metrics defines the Prometheus collectors shared by the probe's
// sender and receiver. They are served by prometheusx from the binaries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsReceived counts well-formed data packets folded into the
	// stats engine.
	PacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udpprobe_packets_received_total",
		Help: "Data packets received and processed.",
	})

	// MalformedPackets counts datagrams discarded because they were
	// shorter than the fixed header.
	MalformedPackets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udpprobe_malformed_packets_total",
		Help: "Datagrams discarded as malformed.",
	})

	// SizeMismatches counts packets whose declared size disagreed with
	// the received length.
	SizeMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udpprobe_size_mismatches_total",
		Help: "Packets whose declared size did not match the received length.",
	})

	// SequenceGaps counts packets inferred lost from forward sequence
	// jumps.
	SequenceGaps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udpprobe_sequence_gaps_total",
		Help: "Packets inferred lost from sequence gaps.",
	})

	// SyncExchanges counts answered clock sync requests.
	SyncExchanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udpprobe_sync_exchanges_total",
		Help: "Clock synchronization exchanges answered.",
	})

	// SendRetries counts transient send failures that were retried.
	SendRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udpprobe_send_retries_total",
		Help: "Transient send failures retried by the pacer.",
	})

	// PacketsDropped counts packets abandoned after exhausting retries.
	// Their sequence numbers are still consumed.
	PacketsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udpprobe_packets_dropped_total",
		Help: "Packets dropped after exhausting send retries.",
	})

	// PacerDriftWarnings counts sends that fell behind schedule by more
	// than the drift slack.
	PacerDriftWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udpprobe_pacer_drift_warnings_total",
		Help: "Sends that fell behind the pacing schedule beyond the slack.",
	})

	// LastLatency is the most recent one-way latency observation in
	// seconds (absolute value).
	LastLatency = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "udpprobe_last_latency_seconds",
		Help: "Most recent one-way latency observation (absolute value).",
	})
)
