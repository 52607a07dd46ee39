package trace

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newUnreachableSource(t *testing.T) *RedisSource {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1", // nothing listens here; RPop fails fast
		DialTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(func() { client.Close() })
	return NewRedisSource(context.Background(), client, "mesh:")
}

func TestRedisSourceNodeKeyUsesPrefix(t *testing.T) {
	s := newUnreachableSource(t)
	if got, want := s.nodeKey(7), "mesh:7"; got != want {
		t.Fatalf("nodeKey(7) = %q, want %q", got, want)
	}
}

func TestRedisSourceIsReadyFalseWhenRedisUnreachable(t *testing.T) {
	s := newUnreachableSource(t)
	if s.IsReady(1, 0) {
		t.Fatal("IsReady should be false when the Redis RPop fails")
	}
}

func TestRedisSourcePeekMsgReflectsPendingEntry(t *testing.T) {
	s := newUnreachableSource(t)
	if _, _, _, ok := s.PeekMsg(1); ok {
		t.Fatal("PeekMsg should report false for a node with no staged descriptor")
	}

	s.pending[1] = packetDescriptor{Dst: 9}
	dst, size, _, ok := s.PeekMsg(1)
	if !ok || dst != 9 {
		t.Fatalf("PeekMsg(1) = (%d, _, _, %v), want (9, _, _, true)", dst, ok)
	}
	if size != 1 {
		t.Fatalf("PeekMsg(1) size = %d, want 1 (descriptor omitted size)", size)
	}

	s.Dequeue(1)
	if _, _, _, ok := s.PeekMsg(1); ok {
		t.Fatal("PeekMsg should report false after Dequeue")
	}
}
