// Package stats builds the end-of-run JSON report spec.md §6 requires
// and the live Prometheus mirror of the same counters.
package stats

import (
	"math"

	"github.com/onchipmesh/meshgate"
)

// RouterReport is one router's entry in [Report.Routers].
type RouterReport struct {
	ID             int   `json:"id"`
	Reads          int64 `json:"reads"`
	Writes         int64 `json:"writes"`
	Switches       int64 `json:"switches"`
	PowerOffCycles int64 `json:"power-off-cycles"`
}

// LatencyReport summarizes network latency over the ejected flit
// records, one per retired flit (spec.md §6).
type LatencyReport struct {
	Average float64 `json:"average"`
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
}

// Report is the exact JSON shape spec.md §6 specifies for an
// end-of-run stats dump.
type Report struct {
	Start           int64          `json:"start"`
	End             int64          `json:"end"`
	Cycles          int64          `json:"cycles"`
	Routers         []RouterReport `json:"routers"`
	PacketLatency   LatencyReport  `json:"packet-latency"`
	HopsAverage     float64        `json:"hops-average"`
	FLOVHopsAverage float64        `json:"flov-hops-average"`
}

// Build assembles a Report from a Network and the TrafficManager that
// drove it. start and end are recorded as given (Cycles is end -
// start); the router counters and latencies cover the whole run so
// far, not only that range.
func Build(net *meshgate.Network, tm *meshgate.TrafficManager, start, end int64) *Report {
	rep := &Report{Start: start, End: end, Cycles: end - start}

	for _, id := range net.RouterIDs() {
		r, ok := net.Router(id)
		if !ok {
			continue
		}
		rep.Routers = append(rep.Routers, RouterReport{
			ID:             int(id),
			Reads:          r.Reads(),
			Writes:         r.Writes(),
			Switches:       r.Switches(),
			PowerOffCycles: r.PowerOffCycles(),
		})
	}

	ejected := tm.Ejected()
	if len(ejected) == 0 {
		return rep
	}

	var sum, hopsSum, flovSum float64
	min, max := math.Inf(1), math.Inf(-1)
	for _, e := range ejected {
		lat := float64(e.EjectTime - e.InjTime)
		sum += lat
		if lat < min {
			min = lat
		}
		if lat > max {
			max = lat
		}
		hopsSum += float64(e.Hops)
		flovSum += float64(e.FLOVHops)
	}
	n := float64(len(ejected))
	rep.PacketLatency = LatencyReport{Average: sum / n, Minimum: min, Maximum: max}
	rep.HopsAverage = hopsSum / n
	rep.FLOVHopsAverage = flovSum / n
	return rep
}
