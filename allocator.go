package meshgate

import "sort"

//
// Allocator: the two-phase request/grant arbitration primitive used
// for VC allocation and switch allocation (spec.md §4.3). Round-robin
// separable: requests are first reduced to at most one per input by
// the supersession rule, then a per-output arbitration picks a winner
// among the inputs still requesting that output.
//

// allocRequest is one (input, output) bid.
type allocRequest struct {
	input     int
	output    int
	label     int // e.g. the requesting VC index, used for RR tie-break
	inputPri  int
	outputPri int
}

// Allocator is a round-robin, separable two-phase allocator. The zero
// value is invalid; use [NewAllocator].
type Allocator struct {
	numInputs  int
	numOutputs int
	vcCount    int // modulo used when comparing a label's closeness to rrOffset
	rrOffset   int

	// perInput holds at most one surviving request per input, after
	// supersession.
	perInput map[int]allocRequest

	grantedOutputForInput map[int]int
	grantedInputForOutput map[int]int
}

// NewAllocator creates an Allocator for the given crossbar shape.
// vcCount is the modulus used by the supersession tie-break (spec.md
// §4.3); pass the number of VCs per physical channel.
func NewAllocator(numInputs, numOutputs, vcCount int) *Allocator {
	return &Allocator{
		numInputs:  numInputs,
		numOutputs: numOutputs,
		vcCount:    vcCount,
		perInput:   make(map[int]allocRequest),
	}
}

// RROffset returns the allocator's round-robin offset.
func (a *Allocator) RROffset() int { return a.rrOffset }

// SetRROffset sets the round-robin offset (e.g. to keep it in sync
// with a Buffer's own rrOffset).
func (a *Allocator) SetRROffset(v int) { a.rrOffset = ((v % a.vcCount) + a.vcCount) % max1(a.vcCount) }

func max1(v int) int {
	if v <= 0 {
		return 1
	}
	return v
}

// closeness returns how close label is to the round-robin offset,
// modulo vcCount; smaller is closer/better.
func (a *Allocator) closeness(label int) int {
	m := max1(a.vcCount)
	d := ((label - a.rrOffset) % m) + m
	return d % m
}

// supersedes reports whether candidate should replace incumbent under
// the spec.md §4.3 supersession rule: strictly higher output-priority,
// or equal output-priority with a label strictly closer to the
// round-robin offset modulo the VC count.
func (a *Allocator) supersedes(candidate, incumbent allocRequest) bool {
	if candidate.outputPri != incumbent.outputPri {
		return candidate.outputPri > incumbent.outputPri
	}
	return a.closeness(candidate.label) < a.closeness(incumbent.label)
}

// AddRequest issues a request for (input, output) during the current
// evaluation window, applying the supersession rule against any prior
// request already queued for this input this cycle.
func (a *Allocator) AddRequest(input, output, label, inputPri, outputPri int) {
	cand := allocRequest{input: input, output: output, label: label, inputPri: inputPri, outputPri: outputPri}
	if cur, ok := a.perInput[input]; ok {
		if !a.supersedes(cand, cur) {
			return
		}
	}
	a.perInput[input] = cand
}

// Allocate computes one round of matching: each output picks at most one
// winning input among those still requesting it (by input-priority,
// ties broken by closeness-to-rrOffset); each input wins at most one
// output because supersession already reduced it to a single request.
// An input whose single request loses is left unmatched for this round
// even when another output it asked for stays free, so the result is
// not always a maximal matching.
func (a *Allocator) Allocate() {
	a.grantedOutputForInput = make(map[int]int)
	a.grantedInputForOutput = make(map[int]int)

	byOutput := make(map[int][]allocRequest)
	// deterministic iteration order for reproducibility
	inputs := make([]int, 0, len(a.perInput))
	for in := range a.perInput {
		inputs = append(inputs, in)
	}
	sort.Ints(inputs)
	for _, in := range inputs {
		r := a.perInput[in]
		byOutput[r.output] = append(byOutput[r.output], r)
	}

	outs := make([]int, 0, len(byOutput))
	for o := range byOutput {
		outs = append(outs, o)
	}
	sort.Ints(outs)
	for _, out := range outs {
		reqs := byOutput[out]
		best := reqs[0]
		for _, r := range reqs[1:] {
			if r.inputPri != best.inputPri {
				if r.inputPri > best.inputPri {
					best = r
				}
				continue
			}
			if a.closeness(r.label) < a.closeness(best.label) {
				best = r
			}
		}
		a.grantedOutputForInput[best.input] = out
		a.grantedInputForOutput[out] = best.input
	}
}

// Reset clears all requests queued this cycle, ready for the next
// evaluation window. Grants from the last Allocate remain readable
// until the next Allocate.
func (a *Allocator) Reset() {
	a.perInput = make(map[int]allocRequest)
}

// OutputAssigned returns the output granted to input, and whether one
// was granted at all.
func (a *Allocator) OutputAssigned(input int) (int, bool) {
	out, ok := a.grantedOutputForInput[input]
	return out, ok
}

// InputAssigned returns the input granted output, and whether one was
// granted at all.
func (a *Allocator) InputAssigned(output int) (int, bool) {
	in, ok := a.grantedInputForOutput[output]
	return in, ok
}

// LosingRequests returns every input that requested an output this
// cycle but was not granted one, for crossbar-conflict accounting.
func (a *Allocator) LosingRequests() []int {
	var losers []int
	for in := range a.perInput {
		if _, ok := a.grantedOutputForInput[in]; !ok {
			losers = append(losers, in)
		}
	}
	return losers
}
