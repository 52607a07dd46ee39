package meshgate

//
// Channel[T]: a FIFO delay line modeling a physical link (spec.md
// §4.1). Grounded on the teacher's LinkFwdWithDelay (linkfwddelay.go),
// which queues frames with a delivery deadline and releases the front
// of the queue once its deadline elapses; Channel does the same thing
// on the integer cycle clock instead of wall-clock time, and without
// goroutines: WriteOutputs is called once per cycle by the owning
// Network (spec.md §5 ordering).
//

// Channel is a delay line of configurable integer latency shared by
// flits, credits and handshakes alike (spec.md §2). The zero value is
// invalid; use [NewChannel].
type Channel[T any] struct {
	// delay is the fixed number of cycles an item spends in flight.
	delay int

	// src and sink are the routers this channel connects, returned by
	// Src and Sink; nothing in the package reads them. A flit arriving
	// at an off router raises a wake from that router itself
	// (router.go readInputs, flov.go).
	src  RouterID
	sink RouterID

	// inflight holds items in flight together with the cycle on
	// which each becomes readable.
	inflight []channelItem[T]

	// sentThisTick guards the spec.md §4.1 precondition: at most one
	// Send per tick.
	sentThisTick bool

	// pending is the item deposited this tick by Send, staged until
	// WriteOutputs admits it to inflight (so Read during the same
	// cycle never observes what was just sent).
	pending   T
	hasPend   bool
	pendReady int64
}

type channelItem[T any] struct {
	value T
	ready int64
}

// NewChannel creates a Channel with the given fixed per-item latency
// in cycles, connecting src to sink. A zero delay means an item sent
// at cycle t is readable starting at cycle t (combinational link).
func NewChannel[T any](src, sink RouterID, delay int) *Channel[T] {
	if delay < 0 {
		delay = 0
	}
	return &Channel[T]{
		delay: delay,
		src:   src,
		sink:  sink,
	}
}

// Src returns the channel's source router.
func (c *Channel[T]) Src() RouterID { return c.src }

// Sink returns the channel's sink router.
func (c *Channel[T]) Sink() RouterID { return c.sink }

// Send deposits one item to be delivered `delay` cycles from now.
// Sending a second item within the same tick is a precondition
// violation (spec.md §4.1): it returns errChannelBusy rather than
// silently overwriting the first.
func (c *Channel[T]) Send(now int64, item T) error {
	if c.sentThisTick {
		return errChannelBusy
	}
	c.sentThisTick = true
	c.pending = item
	c.hasPend = true
	c.pendReady = now + int64(c.delay)
	return nil
}

// Read returns the item whose delay has elapsed, if any, at most one
// per tick (spec.md §4.1). It does not remove the item from the
// internal queue's future entries; call Read at most once per cycle
// per channel, matching the "reads precede writes" ordering of
// spec.md §5.
func (c *Channel[T]) Read(now int64) (T, error) {
	var zero T
	if len(c.inflight) == 0 || c.inflight[0].ready > now {
		return zero, errChannelEmpty
	}
	item := c.inflight[0].value
	c.inflight = c.inflight[1:]
	return item, nil
}

// Peek reports whether an item is ready to read this cycle, without
// consuming it.
func (c *Channel[T]) Peek(now int64) bool {
	return len(c.inflight) > 0 && c.inflight[0].ready <= now
}

// Empty reports whether the channel has nothing in flight and nothing
// staged this tick.
func (c *Channel[T]) Empty() bool {
	return len(c.inflight) == 0 && !c.hasPend
}

// WriteOutputs admits the item staged by Send (if any) into the
// inflight queue and resets the per-tick Send guard. This is called
// once per cycle, after every component has had a chance to Read, per
// spec.md §5's "channel writes" phase.
func (c *Channel[T]) WriteOutputs() {
	if c.hasPend {
		c.inflight = append(c.inflight, channelItem[T]{value: c.pending, ready: c.pendReady})
		c.hasPend = false
	}
	c.sentThisTick = false
}
