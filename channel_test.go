package meshgate

import "testing"

func TestChannelDelaysDelivery(t *testing.T) {
	c := NewChannel[*Flit](0, 1, 3)
	if err := c.Send(10, &Flit{ID: 1}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	c.WriteOutputs()

	for now := int64(10); now < 13; now++ {
		if _, err := c.Read(now); err != errChannelEmpty {
			t.Fatalf("Read(%d) err = %v, want errChannelEmpty", now, err)
		}
	}
	f, err := c.Read(13)
	if err != nil {
		t.Fatalf("Read(13): %v", err)
	}
	if f.ID != 1 {
		t.Fatalf("delivered flit ID = %d, want 1", f.ID)
	}
}

func TestChannelZeroDelayIsCombinational(t *testing.T) {
	c := NewChannel[*Flit](0, 1, 0)
	if err := c.Send(5, &Flit{ID: 9}); err != nil {
		t.Fatal(err)
	}
	c.WriteOutputs()
	f, err := c.Read(5)
	if err != nil {
		t.Fatalf("Read at the same cycle it was sent: %v", err)
	}
	if f.ID != 9 {
		t.Fatalf("got ID %d, want 9", f.ID)
	}
}

func TestChannelRejectsSecondSendSameTick(t *testing.T) {
	c := NewChannel[*Credit](0, 1, 1)
	if err := c.Send(0, newCredit(0)); err != nil {
		t.Fatal(err)
	}
	if err := c.Send(0, newCredit(1)); err != errChannelBusy {
		t.Fatalf("second Send err = %v, want errChannelBusy", err)
	}
}

func TestChannelSendDuringSameCycleIsNotImmediatelyReadable(t *testing.T) {
	c := NewChannel[*Flit](0, 1, 0)
	if err := c.Send(5, &Flit{ID: 1}); err != nil {
		t.Fatal(err)
	}
	// Before WriteOutputs admits the pending item, Read must not see it:
	// reads precede writes within one cycle (spec.md §5).
	if _, err := c.Read(5); err != errChannelEmpty {
		t.Fatalf("Read before WriteOutputs err = %v, want errChannelEmpty", err)
	}
}

func TestChannelEmptyReflectsInflightAndPending(t *testing.T) {
	c := NewChannel[*Flit](0, 1, 2)
	if !c.Empty() {
		t.Fatal("freshly created channel should be empty")
	}
	_ = c.Send(0, &Flit{ID: 1})
	if c.Empty() {
		t.Fatal("channel with a pending send should not be empty")
	}
	c.WriteOutputs()
	if c.Empty() {
		t.Fatal("channel with an item in flight should not be empty")
	}
	if _, err := c.Read(2); err != nil {
		t.Fatal(err)
	}
	if !c.Empty() {
		t.Fatal("channel should be empty again once the only item is read")
	}
}
