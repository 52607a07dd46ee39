package meshgate

import "sort"

//
// Network: the mesh fabric. Owns every Router and every Channel as an
// arena indexed by stable (RouterID, Port) keys rather than pointers
// (spec.md §9 "cyclic graphs": routers reference neighbors and
// channels only by ID, so the whole topology can be torn down and
// rebuilt without chasing cycles). Network.Step is the only place
// that drives the barrier ordering spec.md §5 requires: every
// router's Evaluate, then every router's WriteOutputs, then every
// channel's WriteOutputs.
//

type portKey struct {
	router RouterID
	port   Port
}

// Network is a constructed k-ary n-mesh of Routers connected by
// Channels. The zero value is invalid; use [NewNetwork].
type Network struct {
	cfg *NetworkConfig
	log Logger

	routingFn RoutingFunc

	routers    map[RouterID]*Router
	routerIDs  []RouterID // stable, sorted order for deterministic Step
	coords     map[RouterID][2]int
	portDir    map[RouterID]map[Port]Direction
	dirPort    map[RouterID]map[Direction]Port
	nodeRouter map[int]RouterID

	flitOut      map[portKey]*Channel[*Flit]
	creditOut    map[portKey]*Channel[*Credit]
	handshakeOut map[portKey]*Channel[*Handshake]

	traffic *TrafficManager

	cycle int64
}

// NewNetwork builds a k-ary 2-mesh from cfg: K*K routers laid out on a
// grid, each connected to its in-bounds north/south/east/west
// neighbors, plus one injection port per router (spec.md §2, §6).
// Construction fails with a [*ConfigError] if cfg is self-contradictory.
func NewNetwork(cfg *NetworkConfig) (*Network, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	fn, err := LookupRoutingFunc(cfg.RoutingFunction)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = &nullLogger{}
	}

	n := &Network{
		cfg:          cfg,
		log:          log,
		routingFn:    fn,
		routers:      make(map[RouterID]*Router),
		coords:       make(map[RouterID][2]int),
		portDir:      make(map[RouterID]map[Port]Direction),
		dirPort:      make(map[RouterID]map[Direction]Port),
		nodeRouter:   make(map[int]RouterID),
		flitOut:      make(map[portKey]*Channel[*Flit]),
		creditOut:    make(map[portKey]*Channel[*Credit]),
		handshakeOut: make(map[portKey]*Channel[*Handshake]),
	}

	k := cfg.K
	idOf := func(x, y int) RouterID { return RouterID(y*k + x) }

	type neighborSpec struct {
		dir Direction
		dx  int
		dy  int
	}
	order := []neighborSpec{
		{DirNorth, 0, -1},
		{DirSouth, 0, 1},
		{DirEast, 1, 0},
		{DirWest, -1, 0},
	}

	for y := 0; y < k; y++ {
		for x := 0; x < k; x++ {
			id := idOf(x, y)
			n.coords[id] = [2]int{x, y}
			n.routerIDs = append(n.routerIDs, id)
			n.portDir[id] = make(map[Port]Direction)
			n.dirPort[id] = make(map[Direction]Port)
		}
	}

	neighborOf := make(map[RouterID]map[Port]RouterID)
	for y := 0; y < k; y++ {
		for x := 0; x < k; x++ {
			id := idOf(x, y)
			neighborOf[id] = make(map[Port]RouterID)
			var next Port
			for _, sp := range order {
				nx, ny := x+sp.dx, y+sp.dy
				if nx < 0 || nx >= k || ny < 0 || ny >= k {
					continue
				}
				p := next
				next++
				n.portDir[id][p] = sp.dir
				n.dirPort[id][sp.dir] = p
				neighborOf[id][p] = idOf(nx, ny)
			}
		}
	}

	if cfg.NodeRouterMap != nil {
		n.nodeRouter = cfg.NodeRouterMap
	} else {
		for _, id := range n.routerIDs {
			n.nodeRouter[int(id)] = id
		}
	}

	for _, id := range n.routerIDs {
		_, y := n.coords[id][0], n.coords[id][1]
		isAnchor := y == k-1 // bottom row never gates off (spec.md §4.5, §9 Open Question)

		ports := make([]Port, 0, len(neighborOf[id])+1)
		for p := range neighborOf[id] {
			ports = append(ports, p)
		}
		sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
		ports = append(ports, InjectionPort)

		r := newRouter(id, n, cfg, log, ports, neighborOf[id], isAnchor)
		n.routers[id] = r
	}

	for _, id := range n.routerIDs {
		for p, neigh := range neighborOf[id] {
			key := portKey{id, p}
			n.flitOut[key] = NewChannel[*Flit](id, neigh, cfg.STFinalDelay)
			n.creditOut[key] = NewChannel[*Credit](id, neigh, cfg.CreditDelay)
			n.handshakeOut[key] = NewChannel[*Handshake](id, neigh, 1)
		}
	}

	return n, nil
}

// AttachTrafficManager wires tm as the source of injection demand and
// the sink for ejected flits (spec.md §4.7). A Network built without
// one never wakes on injection demand and silently discards ejected
// flits, which is adequate for unit tests exercising the pipeline in
// isolation.
func (n *Network) AttachTrafficManager(tm *TrafficManager) { n.traffic = tm }

// Coords returns a router's (x, y) grid position.
func (n *Network) Coords(id RouterID) (int, int) {
	c := n.coords[id]
	return c[0], c[1]
}

// NeighborPort returns the port id's router uses to reach its
// neighbor in the given direction, if one exists (edge routers lack
// some directions).
func (n *Network) NeighborPort(id RouterID, dir Direction) (Port, bool) {
	p, ok := n.dirPort[id][dir]
	return p, ok
}

// PortDirection returns the Direction a mesh port faces, used by the
// FLOV engine to find the opposite port for a straight-through bypass.
func (n *Network) PortDirection(id RouterID, port Port) (Direction, bool) {
	d, ok := n.portDir[id][port]
	return d, ok
}

// RouterForNode resolves a traffic node identifier to the router it
// injects/ejects through (spec.md §6 node_router_map).
func (n *Network) RouterForNode(node int) (RouterID, bool) {
	id, ok := n.nodeRouter[node]
	return id, ok
}

// RouteCompute invokes the configured routing function for a flit
// currently at router, arriving on inPort.
func (n *Network) RouteCompute(router RouterID, f *Flit, inPort Port, injection bool) (*OutputSet, error) {
	return n.routingFn(n, router, f, inPort, injection)
}

func (n *Network) reversePort(id RouterID, port Port) (RouterID, Port, bool) {
	r, ok := n.routers[id]
	if !ok {
		return 0, 0, false
	}
	neigh, ok := r.neighbor[port]
	if !ok {
		return 0, 0, false
	}
	d := n.portDir[id][port]
	backPort, ok := n.dirPort[neigh][d.Opposite()]
	return neigh, backPort, ok
}

func (n *Network) flitChannelOut(id RouterID, port Port) *Channel[*Flit] {
	return n.flitOut[portKey{id, port}]
}

func (n *Network) flitChannelIn(id RouterID, port Port) *Channel[*Flit] {
	neigh, back, ok := n.reversePort(id, port)
	if !ok {
		return nil
	}
	return n.flitOut[portKey{neigh, back}]
}

func (n *Network) creditChannelOut(id RouterID, port Port) *Channel[*Credit] {
	return n.creditOut[portKey{id, port}]
}

func (n *Network) creditChannelIn(id RouterID, port Port) *Channel[*Credit] {
	neigh, back, ok := n.reversePort(id, port)
	if !ok {
		return nil
	}
	return n.creditOut[portKey{neigh, back}]
}

func (n *Network) handshakeChannelOut(id RouterID, port Port) *Channel[*Handshake] {
	return n.handshakeOut[portKey{id, port}]
}

func (n *Network) handshakeChannelIn(id RouterID, port Port) *Channel[*Handshake] {
	neigh, back, ok := n.reversePort(id, port)
	if !ok {
		return nil
	}
	return n.handshakeOut[portKey{neigh, back}]
}

func (n *Network) injectionPending(id RouterID) bool {
	if n.traffic == nil {
		return false
	}
	return n.traffic.hasDemand(id)
}

func (n *Network) eject(f *Flit, now int64) {
	if n.traffic != nil {
		n.traffic.ejectFlit(f, now)
	}
}

// Router returns the router by id, for callers (traffic managers,
// watch/trace, tests) that need direct access beyond what Network
// itself exposes.
func (n *Network) Router(id RouterID) (*Router, bool) {
	r, ok := n.routers[id]
	return r, ok
}

// RouterIDs returns every router id in stable, sorted order.
func (n *Network) RouterIDs() []RouterID { return n.routerIDs }

// Cycle returns the number of cycles Step has advanced so far.
func (n *Network) Cycle() int64 { return n.cycle }

// Step advances the simulation by exactly one cycle, in the order
// spec.md §5 mandates: every router reads its inputs, evaluates its
// handshakes, power state and pipeline; then every router writes its
// staged outputs to channels; then every channel admits what was
// written this cycle into its delay line.
func (n *Network) Step() error {
	n.cycle++
	for _, id := range n.routerIDs {
		if err := n.routers[id].Evaluate(n.cycle); err != nil {
			return err
		}
	}
	for _, id := range n.routerIDs {
		if err := n.routers[id].WriteOutputs(n.cycle); err != nil {
			return err
		}
	}
	for _, ch := range n.flitOut {
		ch.WriteOutputs()
	}
	for _, ch := range n.creditOut {
		ch.WriteOutputs()
	}
	for _, ch := range n.handshakeOut {
		ch.WriteOutputs()
	}
	return nil
}

// EventsOutstanding reports whether any flit is still in flight
// anywhere in the fabric (in a router's input buffers, staged for
// switch traversal, or in flight on a link) or a credit is still
// staged at a router for its link. A driver loop can use this
// together with the traffic manager's own demand to decide when a run
// has drained completely (spec.md §4.7 "simulation ends once ...").
func (n *Network) EventsOutstanding() bool {
	for _, id := range n.routerIDs {
		r := n.routers[id]
		for _, p := range r.ports {
			buf := r.inBuf[p]
			for vc := 0; vc < buf.NumVCs(); vc++ {
				if !buf.Empty(vc) {
					return true
				}
			}
			if len(r.outQueue[p]) > 0 || len(r.outCredit[p]) > 0 {
				return true
			}
		}
	}
	for _, ch := range n.flitOut {
		if !ch.Empty() {
			return true
		}
	}
	return false
}
