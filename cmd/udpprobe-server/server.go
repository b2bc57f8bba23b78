package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/lc-may/udp-toolkit/internal/clocksync"
	"github.com/lc-may/udp-toolkit/internal/reactor"
	"github.com/lc-may/udp-toolkit/internal/stats"
	"github.com/lc-may/udp-toolkit/pkg/probe"
	"github.com/lc-may/udp-toolkit/pkg/probe/spec"
)

var (
	flagSyncAddr = flag.String("sync.addr", fmt.Sprintf(":%d", spec.SyncPort),
		"Listen address/port for clock sync requests")
	flagDataAddr = flag.String("data.addr", fmt.Sprintf(":%d", spec.DataPort),
		"Listen address/port for probe data packets")
	flagLogLevel = flag.String("log.level", "info",
		"Log level (debug|info|warn|error)")
)

// setLogLevel configures the global logger. The level is a runtime option
// rather than a build-time constant so verbosity can change per run.
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

func listenUDP(addr string) *net.UDPConn {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	rtx.Must(err, "failed to resolve %s", addr)
	conn, err := net.ListenUDP("udp", udpAddr)
	rtx.Must(err, "failed to bind %s", addr)
	return conn
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "failed to read args from env")

	log.SetReportTimestamp(true)
	rtx.Must(setLogLevel(*flagLogLevel), "invalid configuration")

	promSrv := prometheusx.MustServeMetrics()
	defer promSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	syncConn := listenUDP(*flagSyncAddr)
	defer syncConn.Close()
	dataConn := listenUDP(*flagDataAddr)
	defer dataConn.Close()

	responder := clocksync.NewResponder(syncConn)
	defer responder.Stop()
	engine := stats.New(probe.HumanReadable{})

	r := reactor.New(syncConn, dataConn, responder, engine)
	rtx.Must(r.Run(ctx), "receiver loop failed")

	log.Info("server shutting down")
	probe.HumanReadable{}.OnSummary(engine.Summary())
}
