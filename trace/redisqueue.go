// Package trace holds WorkloadSource implementations that pull
// injected-packet descriptors from outside the process: a Redis-backed
// queue for external load generators, and a rendezvous-hash sharding
// helper for splitting one trace-replay run across several worker
// processes.
package trace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/onchipmesh/meshgate"
	"github.com/redis/go-redis/v9"
)

// packetDescriptor is the wire shape an external load generator pushes
// onto a node's Redis list: one JSON object per packet.
type packetDescriptor struct {
	Dst     int             `json:"dst"`
	Size    int             `json:"size"`
	Payload json.RawMessage `json:"payload"`
}

// RedisSource is an OPTIONAL [meshgate.WorkloadSource] that pulls
// injection demand off a Redis list keyed per node, letting an
// external process feed packets into a running simulation instead of
// only the in-process synthetic generator (spec.md §6 workload-source
// contract; SPEC_FULL.md §10 domain-stack wiring).
type RedisSource struct {
	client *redis.Client
	ctx    context.Context
	prefix string

	pending map[int]packetDescriptor
	ejected *redis.Client // same client; kept separate for readability at call sites
}

// NewRedisSource creates a RedisSource that reads injection demand
// from "<prefix><node>" Redis lists (LPUSH by the external producer,
// RPOP here) and writes ejection records to "<prefix>ejected".
func NewRedisSource(ctx context.Context, client *redis.Client, prefix string) *RedisSource {
	return &RedisSource{
		client:  client,
		ctx:     ctx,
		prefix:  prefix,
		pending: make(map[int]packetDescriptor),
		ejected: client,
	}
}

func (s *RedisSource) nodeKey(node int) string {
	return fmt.Sprintf("%s%d", s.prefix, node)
}

// IsReady implements meshgate.WorkloadSource.
func (s *RedisSource) IsReady(node int, now int64) bool {
	if _, ok := s.pending[node]; ok {
		return true
	}
	raw, err := s.client.RPop(s.ctx, s.nodeKey(node)).Result()
	if err != nil {
		return false
	}
	var pd packetDescriptor
	if json.Unmarshal([]byte(raw), &pd) != nil {
		return false
	}
	s.pending[node] = pd
	return true
}

// PeekMsg implements meshgate.WorkloadSource.
func (s *RedisSource) PeekMsg(node int) (int, int, any, bool) {
	pd, ok := s.pending[node]
	if !ok {
		return 0, 0, nil, false
	}
	size := pd.Size
	if size <= 0 {
		size = 1
	}
	return pd.Dst, size, pd.Payload, true
}

// Dequeue implements meshgate.WorkloadSource.
func (s *RedisSource) Dequeue(node int) {
	delete(s.pending, node)
}

// Enqueue implements meshgate.WorkloadSource, recording an ejected
// packet onto a shared "<prefix>ejected" list for the external
// consumer to drain.
func (s *RedisSource) Enqueue(node int, payload any, genTime, injTime, ejectTime int64, hops, flovHops int) {
	rec := struct {
		Node      int   `json:"node"`
		GenTime   int64 `json:"gen_time"`
		InjTime   int64 `json:"inj_time"`
		EjectTime int64 `json:"eject_time"`
		Hops      int   `json:"hops"`
		FLOVHops  int   `json:"flov_hops"`
	}{node, genTime, injTime, ejectTime, hops, flovHops}

	buf, err := json.Marshal(rec)
	if err != nil {
		return
	}
	s.ejected.LPush(s.ctx, s.prefix+"ejected", buf)
}

var _ meshgate.WorkloadSource = (*RedisSource)(nil)
