package trace

import (
	"strconv"

	"github.com/dgryski/go-rendezvous"
)

//
// Shard: deterministic work assignment for multi-process trace
// replay. A single logical run's node set is split across N worker
// processes by rendezvous hashing each node id against the set of
// worker names, so every worker can independently compute the same
// partition without a coordinator (SPEC_FULL.md §10 domain-stack
// wiring).
//

// Shard assigns nodes to workers by rendezvous hashing.
type Shard struct {
	rdv     *rendezvous.Rendezvous
	workers []string
}

// NewShard creates a Shard across the given worker names (e.g.
// "worker-0".."worker-N"). Worker names must be unique.
func NewShard(workers []string) *Shard {
	cp := append([]string(nil), workers...)
	return &Shard{
		rdv:     rendezvous.New(cp, hashString),
		workers: cp,
	}
}

// hashString is the hash function go-rendezvous requires: a
// string->uint64 mapping: an inline 64-bit FNV-1a, to avoid an extra
// import for a one-line hash.
func hashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// WorkerFor returns which worker owns node.
func (s *Shard) WorkerFor(node int) string {
	return s.rdv.Lookup(strconv.Itoa(node))
}

// Owns reports whether worker owns node, the check each worker process
// runs before injecting/ejecting on behalf of that node during a
// sharded multi-process trace replay.
func (s *Shard) Owns(worker string, node int) bool {
	return s.WorkerFor(node) == worker
}
