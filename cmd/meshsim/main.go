// Command meshsim runs a power-gated mesh network-on-chip simulation
// to completion and prints its end-of-run stats report.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onchipmesh/meshgate"
	"github.com/onchipmesh/meshgate/stats"
)

func main() {
	// parse command line flags
	k := flag.Int("k", 4, "mesh side length")
	numVCs := flag.Int("num-vcs", 2, "virtual channels per physical channel")
	vcBufSize := flag.Int("vc-buf-size", 4, "flit slots per virtual channel")
	packetSize := flag.Int("packet-size", 1, "flits per synthetic packet")
	rate := flag.Float64("rate", 0.1, "per-node injection probability per cycle")
	pattern := flag.String("pattern", "uniform", "traffic pattern: uniform, tornado, bitcomp, neighbor")
	powergate := flag.String("powergate", "none", "power-gating policy: none, flov, rflov, noflov, nord")
	cycles := flag.Int64("cycles", 10000, "number of cycles to run")
	seed := flag.Int64("seed", 1, "synthetic traffic RNG seed")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address")
	reportPath := flag.String("report", "", "if set, write the JSON stats report here instead of stdout")
	trace := flag.Bool("trace", false, "log every injection, ejection and power transition")
	flag.Parse()

	cfg := meshgate.NewNetworkConfig()
	cfg.K = *k
	cfg.NumVCs = *numVCs
	cfg.VCBufSize = *vcBufSize
	cfg.PacketSize = *packetSize
	cfg.PowergateType = parsePowerGateType(*powergate)
	cfg.Logger = &apexLogger{}
	if *trace {
		cfg.Watcher = &meshgate.LogWatcher{Log: cfg.Logger}
	}

	net, err := meshgate.NewNetwork(cfg)
	meshgate.Must0(err)

	source := meshgate.NewSyntheticSource(*rate, parsePattern(*pattern, *seed), cfg.K, cfg.N, *seed)
	source.SetPacketSize(cfg.PacketSize)
	tm := meshgate.NewTrafficManager(net, cfg, source, meshgate.ThresholdPolicy{})
	if cfg.Watcher != nil {
		tm.AttachWatcher(cfg.Watcher)
	}

	var metrics *stats.Metrics
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = stats.NewMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Warn("metrics server exited")
			}
		}()
	}

	observed := 0
	for c := int64(0); c < *cycles; c++ {
		tm.Step(net.Cycle())
		meshgate.Must0(net.Step())
		if metrics != nil && c%1000 == 0 {
			observed = metrics.Observe(net, tm, observed)
		}
	}

	report := stats.Build(net, tm, 0, *cycles)
	buf, err := json.MarshalIndent(report, "", "  ")
	meshgate.Must0(err)

	if *reportPath == "" {
		fmt.Println(string(buf))
		return
	}
	meshgate.Must0(os.WriteFile(*reportPath, buf, 0o644))
}

func parsePattern(name string, seed int64) meshgate.Pattern {
	switch name {
	case "tornado":
		return meshgate.TornadoPattern
	case "bitcomp":
		return meshgate.BitComplementPattern
	case "neighbor":
		return meshgate.NeighborPattern
	default:
		return meshgate.UniformRandomPattern(rand.New(rand.NewSource(seed)))
	}
}

func parsePowerGateType(name string) meshgate.PowerGateType {
	switch name {
	case "flov":
		return meshgate.PowerGateFLOV
	case "rflov":
		return meshgate.PowerGateRowFLOV
	case "noflov":
		return meshgate.PowerGateNoFLOV
	case "nord":
		return meshgate.PowerGateNoRD
	default:
		return meshgate.PowerGateNone
	}
}

// apexLogger adapts github.com/apex/log's package-level logger to
// meshgate.Logger, the same split the teacher's cmd/ tools use between
// the library's own Logger interface and apex/log at the edge.
type apexLogger struct{}

func (apexLogger) Debug(message string)           { log.Debug(message) }
func (apexLogger) Debugf(format string, v ...any) { log.Debugf(format, v...) }
func (apexLogger) Info(message string)            { log.Info(message) }
func (apexLogger) Infof(format string, v ...any)  { log.Infof(format, v...) }
func (apexLogger) Warn(message string)            { log.Warn(message) }
func (apexLogger) Warnf(format string, v ...any)  { log.Warnf(format, v...) }
