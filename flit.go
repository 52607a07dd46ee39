package meshgate

//
// Flit: the smallest granularity of network transport (spec.md §3).
//

// FlitRole is a flit's role within its packet. A single flit may be
// both head and tail (a one-flit packet).
type FlitRole int

const (
	FlitHead FlitRole = iota
	FlitBody
	FlitTail
)

func (r FlitRole) String() string {
	switch r {
	case FlitHead:
		return "head"
	case FlitBody:
		return "body"
	case FlitTail:
		return "tail"
	default:
		return "unknown"
	}
}

// IsHeadOrTail reports whether a role marks either packet boundary.
// A head-and-tail (single-flit packet) flit is both FlitHead and
// FlitTail is not representable by FlitRole alone: callers test
// Flit.Head and Flit.Tail separately (see below) rather than this
// three-way enum when they need the "single-flit packet" case.
func (r FlitRole) IsHeadOrTail() bool {
	return r == FlitHead || r == FlitTail
}

// Flit is the unit of transport that moves across [Channel]s and
// through a [Router]'s pipeline. Fields mirror spec.md §3 verbatim.
type Flit struct {
	// ID is a stable identifier for this flit.
	ID int64

	// PacketID groups flits belonging to the same packet. Flits of a
	// packet share PacketID, have contiguous IDs, and a monotonically
	// non-decreasing SeqInPacket.
	PacketID int64

	// SeqInPacket is this flit's zero-based index within its packet.
	SeqInPacket int

	// Head is true if this flit begins its packet.
	Head bool

	// Tail is true if this flit ends its packet. Head and Tail may
	// both be true for a single-flit packet.
	Tail bool

	// Class is the traffic class used for QoS prioritization.
	Class int

	// Subnet is the subnetwork index when multiple parallel networks
	// are simulated (e.g. request/reply subnetworks).
	Subnet int

	// Src and Dst are node identifiers, not router identifiers: a
	// node is attached to a router's injection port via
	// NetworkConfig.NodeRouterMap.
	Src int
	Dst int

	// VC is the virtual channel this flit (and every other flit of
	// its packet) has been assigned once the head leaves VC-alloc.
	// -1 until assigned.
	VC int

	// Hops counts the number of distinct routers this flit has
	// entered (including FLOV bypass hops, per spec.md §8 FLOV
	// invariant: total hops equals the count of distinct routers
	// transited).
	Hops int

	// FLOVHops counts how many of those hops were serviced by a
	// powered-off router's bypass path rather than its pipeline.
	FLOVHops int

	// Priority is used to break switch/VC allocation ties.
	Priority int

	// GenTime, InjTime, EjectTime are cycle timestamps: when the
	// traffic manager generated the flit, when it entered the
	// network, and when it was retired at the tail.
	GenTime   int64
	InjTime   int64
	EjectTime int64

	// EnteredRouterTime is the cycle this flit entered its *current*
	// router's input buffer; used to drive the 300-cycle VA/SA
	// watchdog (spec.md §4.4).
	EnteredRouterTime int64

	// Lookahead is the route set computed one hop ahead of this
	// flit's arrival, when lookahead routing is enabled. Nil if not
	// computed.
	//
	// Lookahead routing and NOQ (the original's next-output-queue
	// optimization that uses a precomputed Lookahead to skip routing
	// computation at the next hop) are not implemented: no code sets
	// or reads this field. It is kept on Flit, unset, to document the
	// field the wire format reserves for it rather than silently
	// absorbed into a generic extension point. See DESIGN.md.
	Lookahead *OutputSet

	// Payload is an opaque reference to application-level payload;
	// the core never interprets it.
	Payload any
}

// idSequence is a monotonic flit/packet ID generator. The core
// does not pool flits across a run (spec.md §9 treats pooling as a
// pure implementation hint); a [TrafficManager] keeps one idSequence
// for packet IDs and one for flit IDs.
type idSequence struct {
	next int64
}

func (s *idSequence) take() int64 {
	s.next++
	return s.next
}
