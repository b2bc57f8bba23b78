// Package probe contains the output interfaces for probe results.
package probe

import (
	"fmt"

	"github.com/lc-may/udp-toolkit/pkg/probe/model"
)

// Emitter is an interface for emitting receiver-side results.
type Emitter interface {
	// OnSample is called each time a throughput sampling window closes.
	OnSample(s model.ThroughputSample)
	// OnSummary is called with the session counters when the receiver
	// shuts down.
	OnSummary(s model.Summary)
}

// HumanReadable prints human-readable output to stdout.
type HumanReadable struct{}

// OnSample prints a throughput sample.
func (HumanReadable) OnSample(s model.ThroughputSample) {
	fmt.Printf("[%.0f-%.0f s] sample throughput: %.3f Mbps, average throughput: %.3f Mbps\n",
		s.Start, s.End, s.SampleBPS/1e6, s.AverageBPS/1e6)
}

// OnSummary prints the session counters.
func (HumanReadable) OnSummary(s model.Summary) {
	fmt.Printf("packets: %d, bytes: %d, gaps: %d, malformed: %d, size mismatches: %d\n",
		s.PacketsReceived, s.TotalBytes, s.TotalGaps, s.MalformedPackets,
		s.SizeMismatches)
}

// Checks that HumanReadable implements Emitter.
var _ Emitter = HumanReadable{}
