package rtring

import "testing"

func TestCellWriteLoad(t *testing.T) {
	const size = 8
	var c cell[uint64]

	if _, state, ok := c.load(size); ok || state != 0 {
		t.Fatalf("fresh cell: expected state 0 and no data, got state=%d ok=%v", state, ok)
	}

	c.write(7, size, size)
	v, state, ok := c.load(size)
	if !ok || v != 7 || state != size {
		t.Fatalf("expected 7 at epoch %d, got v=%d state=%d ok=%v", size, v, state, ok)
	}

	// the next lap replaces it
	c.write(9, 2*size, size)
	if _, state, ok = c.load(size); ok || state != 2*size {
		t.Fatalf("expected old epoch to be gone, got state=%d ok=%v", state, ok)
	}
	if v, _, ok = c.load(2 * size); !ok || v != 9 {
		t.Fatalf("expected 9, got %d (ok=%v)", v, ok)
	}
}

func TestCellInProgressHidesPayload(t *testing.T) {
	var c cell[uint64]
	c.write(1, 4, 4)
	c.state.Store(8 | inProgress)
	c.val = 2

	_, state, ok := c.load(8)
	if ok {
		t.Fatalf("expected an in-progress cell to be unreadable")
	}
	if state&inProgress == 0 || state&^inProgress != 8 {
		t.Fatalf("expected in-progress epoch 8, got state=%#x", state)
	}
}

func TestCellWaitsForPreviousLap(t *testing.T) {
	var c cell[uint64]
	c.write(1, 4, 4)
	// the writer of epoch 8 is stalled mid-write
	c.state.Store(8 | inProgress)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.write(3, 12, 4)
	}()

	select {
	case <-done:
		t.Fatalf("write of epoch 12 must wait for epoch 8 to finish")
	default:
	}

	c.state.Store(8)
	<-done
	if v, _, ok := c.load(12); !ok || v != 3 {
		t.Fatalf("expected 3, got %d (ok=%v)", v, ok)
	}
}
