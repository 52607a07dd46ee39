package meshgate

import "testing"

func TestBufferStateTakeAndSendAndCredit(t *testing.T) {
	bs := NewBufferState(2, 2)

	if !bs.IsAvailableFor(0) {
		t.Fatal("freshly created VC should be available")
	}
	bs.TakeBuffer(0, 7)
	if bs.IsAvailableFor(0) {
		t.Fatal("VC should be unavailable once taken")
	}
	if by := bs.TakenBy(0); by != 7 {
		t.Fatalf("TakenBy = %d, want 7", by)
	}

	head := &Flit{Head: true, Tail: false}
	bs.SendingFlit(0, head)
	if bs.IsFullFor(0) {
		t.Fatal("occupancy 1 of capacity 2 should not be full yet")
	}
	bs.SendingFlit(0, head)
	if !bs.IsFullFor(0) {
		t.Fatal("occupancy 2 of capacity 2 should be full")
	}

	tail := &Flit{Tail: true}
	bs.SendingFlit(0, tail)
	// occupancy now 3 but capacity only 2; IsFullFor is a >= comparison
	// so this case would never arise in practice (SA is gated by
	// IsFullFor before SendingFlit is ever called again), but the
	// bookkeeping itself must not go negative on credit return.
	bs.ProcessCredit(newCredit(0))
	bs.ProcessCredit(newCredit(0))
	bs.ProcessCredit(newCredit(0))
	if bs.Occupancy(0) != 0 {
		t.Fatalf("occupancy after three credits for three sends = %d, want 0", bs.Occupancy(0))
	}
	if !bs.IsAvailableFor(0) {
		t.Fatal("VC should become available again once the tail's occupancy drains to zero")
	}
	if by := bs.TakenBy(0); by != notTaken {
		t.Fatalf("TakenBy after release = %d, want notTaken", by)
	}
}

func TestBufferStateDoesNotReleaseBeforeTailSent(t *testing.T) {
	bs := NewBufferState(1, 4)
	bs.TakeBuffer(0, 1)
	bs.SendingFlit(0, &Flit{Head: true, Tail: false})
	bs.ProcessCredit(newCredit(0))
	if bs.IsAvailableFor(0) {
		t.Fatal("VC must stay reserved until the tail's credit returns, even at zero occupancy")
	}
}

func TestBufferStateClearAndFullCredits(t *testing.T) {
	bs := NewBufferState(2, 4)
	bs.TakeBuffer(0, 1)
	bs.SendingFlit(0, &Flit{Head: true})

	bs.ClearCredits()
	if bs.IsAvailableFor(0) || bs.Occupancy(0) != 0 {
		t.Fatal("ClearCredits should mark every VC unavailable with zero occupancy")
	}

	bs.FullCredits(4)
	if !bs.IsAvailableFor(0) || !bs.IsAvailableFor(1) {
		t.Fatal("FullCredits should restore every VC to available")
	}
	if bs.IsFullFor(0) {
		t.Fatal("FullCredits should restore zero occupancy")
	}
}

func TestBufferStateReturnBufferCancelsReservation(t *testing.T) {
	bs := NewBufferState(1, 4)
	bs.TakeBuffer(0, 3)
	bs.ReturnBuffer(0)
	if !bs.IsAvailableFor(0) {
		t.Fatal("ReturnBuffer should make the VC available again")
	}
	if by := bs.TakenBy(0); by != notTaken {
		t.Fatalf("TakenBy after ReturnBuffer = %d, want notTaken", by)
	}
}
