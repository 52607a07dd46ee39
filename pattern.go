package meshgate

import "math/rand"

//
// Traffic patterns (spec.md §6 "traffic-pattern contract"): pure
// functions from (source node, k, n) to a destination node, plus a
// synthetic [WorkloadSource] that drives them with a Bernoulli
// injection process, the standard booksim-style workload generator
// this simulator's traffic manager needs by default.
//

// Pattern computes the destination node for a packet generated at src
// in a k-ary n-mesh.
type Pattern func(src, k, n int) int

// UniformRandomPattern picks a uniformly random destination different
// from src, using rng for reproducibility.
func UniformRandomPattern(rng *rand.Rand) Pattern {
	return func(src, k, n int) int {
		total := 1
		for i := 0; i < n; i++ {
			total *= k
		}
		if total <= 1 {
			return src
		}
		for {
			d := rng.Intn(total)
			if d != src {
				return d
			}
		}
	}
}

// TornadoPattern implements the tornado pattern for a k-ary 2-mesh:
// each node sends to the node (k/2 - 1) hops away in each dimension,
// the classic adversarial pattern for dimension-order routing's
// channel load balance.
func TornadoPattern(src, k, n int) int {
	x, y := src%k, src/k
	off := k/2 - 1
	if off < 1 {
		off = 1
	}
	dx := (x + off) % k
	dy := (y + off) % k
	return dy*k + dx
}

// BitComplementPattern flips every coordinate bit: a node at (x, y) in
// a k-ary mesh (k a power of two) sends to (k-1-x, k-1-y), the
// standard worst-case pattern for many topologies.
func BitComplementPattern(src, k, n int) int {
	x, y := src%k, src/k
	return (k-1-y)*k + (k - 1 - x)
}

// NeighborPattern sends every packet one hop east (wrapping), useful
// for isolating single-channel behavior in tests.
func NeighborPattern(src, k, n int) int {
	x, y := src%k, src/k
	return y*k + (x+1)%k
}

// packetSpec is what SyntheticSource stages per node between
// PeekMsg and Dequeue.
type packetSpec struct {
	dst     int
	size    int
	payload any
}

// SyntheticSource is a [WorkloadSource] that generates packets
// in-process according to injection rate and a [Pattern], the
// synthetic-traffic generator every booksim-style simulator ships as
// its default workload (spec.md §6).
type SyntheticSource struct {
	rng        *rand.Rand
	rate       float64
	pattern    Pattern
	k, n       int
	packetSize int

	// destinationOn, when set, reports whether a candidate
	// destination's router is currently powered on; a rejected
	// destination is re-rolled from pattern until an on one is found
	// (spec.md §4.7 item 3 "rejecting any destination whose compute
	// core is off by retrying with a fresh destination"). nil treats
	// every destination as reachable.
	destinationOn func(node int) bool

	pending map[int]*packetSpec
}

// NewSyntheticSource creates a SyntheticSource injecting with
// Bernoulli probability rate per node per cycle, routing packets
// according to pattern over a k-ary n-mesh, seeded by seed for
// reproducible runs. Packets default to a single flit; use
// [SyntheticSource.SetPacketSize] to generate multi-flit packets.
func NewSyntheticSource(rate float64, pattern Pattern, k, n int, seed int64) *SyntheticSource {
	return &SyntheticSource{
		rng:        rand.New(rand.NewSource(seed)),
		rate:       rate,
		pattern:    pattern,
		k:          k,
		n:          n,
		packetSize: 1,
		pending:    make(map[int]*packetSpec),
	}
}

// SetPacketSize sets the flit count every subsequently generated
// packet carries (spec.md §4.7 item 3 "generates size flits").
func (s *SyntheticSource) SetPacketSize(size int) {
	if size < 1 {
		size = 1
	}
	s.packetSize = size
}

// SetDestinationFilter implements [PowerAwareSource].
func (s *SyntheticSource) SetDestinationFilter(fn func(node int) bool) {
	s.destinationOn = fn
}

// maxDestinationRetries bounds the destination-rejection retry loop
// so a pathological run (every other node off) cannot spin forever;
// the original traffic generator assumes at least one reachable
// destination always exists and loops unconditionally, but a bounded
// retry with a same-node fallback is the safer Go-side equivalent.
const maxDestinationRetries = 64

// IsReady implements WorkloadSource: a packet is already staged for
// node, or a fresh Bernoulli trial generates one this cycle.
func (s *SyntheticSource) IsReady(node int, now int64) bool {
	if _, ok := s.pending[node]; ok {
		return true
	}
	if s.rng.Float64() < s.rate {
		dst := s.pattern(node, s.k, s.n)
		if s.destinationOn != nil {
			for tries := 0; !s.destinationOn(dst) && tries < maxDestinationRetries; tries++ {
				dst = s.pattern(node, s.k, s.n)
			}
			if !s.destinationOn(dst) {
				dst = node // every candidate rejected: fall back to a self-addressed no-op
			}
		}
		s.pending[node] = &packetSpec{dst: dst, size: s.packetSize}
		return true
	}
	return false
}

// PeekMsg implements WorkloadSource.
func (s *SyntheticSource) PeekMsg(node int) (int, int, any, bool) {
	p, ok := s.pending[node]
	if !ok {
		return 0, 0, nil, false
	}
	return p.dst, p.size, p.payload, true
}

// Dequeue implements WorkloadSource.
func (s *SyntheticSource) Dequeue(node int) {
	delete(s.pending, node)
}

// Enqueue implements WorkloadSource: the synthetic source has nothing
// further to do with an ejected packet beyond what the traffic
// manager already recorded for the stats report.
func (s *SyntheticSource) Enqueue(node int, payload any, genTime, injTime, ejectTime int64, hops, flovHops int) {
	// nothing: a synthetic run never re-consumes ejected payloads.
}
