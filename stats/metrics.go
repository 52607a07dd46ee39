package stats

import (
	"strconv"

	"github.com/onchipmesh/meshgate"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics mirrors the JSON [Report] as live Prometheus gauges, served
// by cmd/meshsim -metrics-addr alongside the end-of-run dump (spec.md
// §10 domain-stack wiring).
type Metrics struct {
	Switches       *prometheus.GaugeVec
	PowerOffCycles *prometheus.GaugeVec
	PacketLatency  prometheus.Histogram
	HopsAverage    prometheus.Gauge
}

// NewMetrics creates and registers a Metrics set against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Switches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "meshgate",
			Name:      "router_switches_total",
			Help:      "Flits that have completed switch traversal at this router.",
		}, []string{"router"}),
		PowerOffCycles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "meshgate",
			Name:      "router_power_off_cycles_total",
			Help:      "Cycles this router has spent powered off.",
		}, []string{"router"}),
		PacketLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "meshgate",
			Name:      "packet_latency_cycles",
			Help:      "Network latency of retired packets, in cycles.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}),
		HopsAverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meshgate",
			Name:      "hops_average",
			Help:      "Running average hop count of retired packets.",
		}),
	}
	reg.MustRegister(m.Switches, m.PowerOffCycles, m.PacketLatency, m.HopsAverage)
	return m
}

// Observe updates every gauge from the current state of net and tm,
// and records one histogram sample per ejected flit record added since
// the last call (tm.Ejected accumulates for the whole run, so callers that
// poll periodically should track their own high-water mark of how
// much of the slice they have already observed).
func (m *Metrics) Observe(net *meshgate.Network, tm *meshgate.TrafficManager, observedLatencies int) int {
	for _, id := range net.RouterIDs() {
		r, ok := net.Router(id)
		if !ok {
			continue
		}
		label := prometheus.Labels{"router": routerLabel(id)}
		m.Switches.With(label).Set(float64(r.Switches()))
		m.PowerOffCycles.With(label).Set(float64(r.PowerOffCycles()))
	}

	ejected := tm.Ejected()
	var hopsSum float64
	for i, e := range ejected {
		if i < observedLatencies {
			hopsSum += float64(e.Hops)
			continue
		}
		m.PacketLatency.Observe(float64(e.EjectTime - e.InjTime))
		hopsSum += float64(e.Hops)
	}
	if len(ejected) > 0 {
		m.HopsAverage.Set(hopsSum / float64(len(ejected)))
	}
	return len(ejected)
}

func routerLabel(id meshgate.RouterID) string {
	return strconv.Itoa(int(id))
}
