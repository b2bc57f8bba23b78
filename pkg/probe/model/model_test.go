package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lc-may/udp-toolkit/pkg/probe/model"
	"github.com/lc-may/udp-toolkit/pkg/probe/spec"
)

func validConfig() model.SessionConfig {
	return model.SessionConfig{
		Server:      "127.0.0.1",
		Bandwidth:   spec.DefaultBandwidth,
		Duration:    spec.DefaultDuration,
		PacketSize:  spec.DefaultPacketSize,
		SyncTimeout: spec.DefaultSyncTimeout,
	}
}

func TestSessionConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.SessionConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *model.SessionConfig) {}},
		{
			name:    "missing-server",
			mutate:  func(c *model.SessionConfig) { c.Server = "" },
			wantErr: true,
		},
		{
			name:    "zero-bandwidth",
			mutate:  func(c *model.SessionConfig) { c.Bandwidth = 0 },
			wantErr: true,
		},
		{
			name:    "negative-bandwidth",
			mutate:  func(c *model.SessionConfig) { c.Bandwidth = -1 },
			wantErr: true,
		},
		{
			name:    "zero-duration",
			mutate:  func(c *model.SessionConfig) { c.Duration = 0 },
			wantErr: true,
		},
		{
			name:    "packet-size-at-header",
			mutate:  func(c *model.SessionConfig) { c.PacketSize = spec.DataHeaderSize },
			wantErr: true,
		},
		{
			name:   "packet-size-just-above-header",
			mutate: func(c *model.SessionConfig) { c.PacketSize = spec.DataHeaderSize + 1 },
		},
		{
			name:    "packet-size-above-max",
			mutate:  func(c *model.SessionConfig) { c.PacketSize = spec.MaxDatagramSize + 1 },
			wantErr: true,
		},
		{
			name:    "zero-sync-timeout",
			mutate:  func(c *model.SessionConfig) { c.SyncTimeout = 0 },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSessionConfigInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Bandwidth = 800000
	cfg.PacketSize = 1000
	// 1000 * 8 / 800000 = 10ms.
	require.Equal(t, 10*time.Millisecond, cfg.Interval())
}

func TestClockOffsetSample(t *testing.T) {
	// Server clock exactly 100ms ahead, 50ms symmetric one-way delay.
	s := model.ClockOffsetSample{
		T1: 10.000,
		T2: 10.150, // 10.050 on the client clock + 0.100 offset
		T3: 10.150,
		T4: 10.100,
	}
	require.InDelta(t, 0.100, s.Offset(), 1e-9)
	require.InDelta(t, 0.100, s.Delay(), 1e-9)
}

func TestClockOffsetSampleNegligibleDelay(t *testing.T) {
	// Server 100ms ahead, negligible network delay.
	s := model.ClockOffsetSample{
		T1: 5.0,
		T2: 5.1,
		T3: 5.1,
		T4: 5.0,
	}
	require.InDelta(t, 0.100, s.Offset(), 1e-9)
	require.InDelta(t, 0.0, s.Delay(), 1e-9)
}
