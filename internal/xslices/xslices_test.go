package xslices

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestContainsInt(t *testing.T) {
	if !ContainsInt([]int{1, 2, 3}, 2) {
		t.Fatal("expected 2 to be contained")
	}
	if ContainsInt([]int{1, 2, 3}, 9) {
		t.Fatal("did not expect 9 to be contained")
	}
	if ContainsInt(nil, 1) {
		t.Fatal("nil slice should never contain anything")
	}
}

func TestDedupIntPreservesFirstOccurrenceOrder(t *testing.T) {
	got := DedupInt([]int{3, 1, 3, 2, 1, 4})
	want := []int{3, 1, 2, 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatal(diff)
	}
}

func TestDedupIntEmpty(t *testing.T) {
	got := DedupInt(nil)
	if len(got) != 0 {
		t.Fatalf("DedupInt(nil) = %v, want empty", got)
	}
}

func TestInsertSortedIntKeepsOrderAndDedups(t *testing.T) {
	s := []int{1, 3, 5}
	s = InsertSortedInt(s, 4)
	want := []int{1, 3, 4, 5}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatal(diff)
	}
	// Inserting an already-present value must not duplicate it.
	s = InsertSortedInt(s, 4)
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatal(diff)
	}
}
