package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/memoryless"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/lc-may/udp-toolkit/internal/clocksync"
	"github.com/lc-may/udp-toolkit/internal/pacer"
	"github.com/lc-may/udp-toolkit/pkg/probe/model"
	"github.com/lc-may/udp-toolkit/pkg/probe/spec"
)

var (
	flagServer = flag.String("server", "", "Server host or IP address")
	flagBandwidth = flag.Int64("bandwidth", spec.DefaultBandwidth,
		"Target send rate in bits per second")
	flagDuration = flag.Duration("duration", spec.DefaultDuration,
		"Length of the probe run")
	flagPacketSize = flag.Int("packet.size", spec.DefaultPacketSize,
		"Probe datagram size in bytes, header included")
	flagMID = flag.String("mid", uuid.NewString(),
		"Measurement ID to use")
	flagSyncTimeout = flag.Duration("sync.timeout", spec.DefaultSyncTimeout,
		"How long to wait for the clock sync response")
	flagSyncOptional = flag.Bool("sync.optional", false,
		"Proceed with a zero clock offset if clock sync times out")
	flagLogLevel = flag.String("log.level", "info",
		"Log level (debug|info|warn|error)")
)

func setLogLevel(level string) error {
	levels := map[string]log.Level{
		"debug": log.DebugLevel,
		"info":  log.InfoLevel,
		"warn":  log.WarnLevel,
		"error": log.ErrorLevel,
	}
	l, ok := levels[level]
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	log.SetLevel(l)
	return nil
}

func dialUDP(host string, port int) *net.UDPConn {
	addr, err := net.ResolveUDPAddr("udp",
		net.JoinHostPort(host, strconv.Itoa(port)))
	rtx.Must(err, "failed to resolve %s port %d", host, port)
	conn, err := net.DialUDP("udp", nil, addr)
	rtx.Must(err, "failed to dial %s", addr)
	return conn
}

// measureOffset runs the one-shot clock sync exchange. The offset is
// measured once per run and never refreshed: on long sessions the
// receiver's latency figures drift with the clocks.
func measureOffset(cfg model.SessionConfig) float64 {
	syncConn := dialUDP(cfg.Server, spec.SyncPort)
	defer syncConn.Close()

	sample, err := clocksync.Synchronize(syncConn, cfg.SyncTimeout)
	if err != nil {
		if cfg.AllowUnsynchronized && errors.Is(err, clocksync.ErrSyncTimeout) {
			log.Warn("clock sync timed out, proceeding UNSYNCHRONIZED",
				"offset", 0.0,
				"note", "latency figures are raw clock differences")
			return 0
		}
		log.Fatal("clock synchronization failed", "error", err)
	}
	log.Info("clock offset measured",
		"offset_s", sample.Offset(), "rtt_s", sample.Delay())
	return sample.Offset()
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "failed to read args from env")

	log.SetReportTimestamp(true)
	rtx.Must(setLogLevel(*flagLogLevel), "invalid configuration")

	cfg := model.SessionConfig{
		Server:              *flagServer,
		Bandwidth:           *flagBandwidth,
		Duration:            *flagDuration,
		PacketSize:          *flagPacketSize,
		MeasurementID:       *flagMID,
		SyncTimeout:         *flagSyncTimeout,
		AllowUnsynchronized: *flagSyncOptional,
	}
	rtx.Must(cfg.Validate(), "invalid configuration")

	promSrv := prometheusx.MustServeMetrics()
	defer promSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	offset := measureOffset(cfg)

	dataConn := dialUDP(cfg.Server, spec.DataPort)
	defer dataConn.Close()

	p := pacer.New(dataConn, cfg, offset)

	// Progress reporting runs on randomized intervals so it cannot align
	// with the pacer's deterministic schedule.
	go memoryless.Run(ctx, func() {
		sent, dropped := p.Progress()
		log.Info("progress", "mid", cfg.MeasurementID, "sent", sent,
			"dropped", dropped)
	}, memoryless.Config{
		Expected: 5 * time.Second,
		Min:      2 * time.Second,
		Max:      10 * time.Second,
	})

	res, err := p.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("send loop failed", "error", err)
	}

	log.Info("run complete",
		"mid", cfg.MeasurementID,
		"sent", res.PacketsSent,
		"dropped", res.PacketsDropped,
		"retries", res.SendRetries,
		"drift_warnings", res.DriftWarnings,
		"elapsed", res.Elapsed)
}
