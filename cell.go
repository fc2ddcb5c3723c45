package rtring

import (
	"runtime"
	"sync/atomic"
)

// cell is one slot of the ring.
//
// state holds the epoch of the write that owns val, or'ed with inProgress
// while that write is under way. Epoch 0 is the zero value the ring was
// created with; the first real write has epoch == ring size.
//
// val is read and written without a lock. The acquire/release pairing on
// state orders every access to val: a writer only touches val between its
// claiming CAS and its final store, and a reader only trusts a copy of val
// when state was the same, and not in progress, on both sides of the copy.
// The copy may be torn while racing a writer; the second check discards it.
// T is restricted to pointer-free types by checkCopyable, so a torn copy is
// just wrong bits and never a dangling reference.
type cell[T any] struct {
	state atomic.Uint64
	val   T
}

// write stores v as the write with the given epoch. increment is the ring
// size, so epoch-increment is the epoch of the previous lap that must be done
// with the cell before this write may start.
func (c *cell[T]) write(v T, epoch, increment uint64) {
	prev := epoch - increment
	var spins uint32
	for !c.state.CompareAndSwap(prev, epoch|inProgress) {
		// The previous lap's writer has not finished yet. If the cell is
		// already past our epoch we lost a whole lap and will spin forever.
		if debugChecks {
			observed := c.state.Load() &^ inProgress
			assertf(observed <= prev, "cell claimed by a newer writer: epoch %d, expected at most %d", observed, prev)
		}
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
	c.val = v
	c.state.Store(epoch)
}

// load copies the payload if the cell still holds the write with the given
// epoch. On failure it returns the state word that did not match.
func (c *cell[T]) load(epoch uint64) (T, uint64, bool) {
	var zero T
	state := c.state.Load()
	if state != epoch {
		return zero, state, false
	}
	v := c.val
	state = c.state.Load()
	if state != epoch {
		return zero, state, false
	}
	return v, state, true
}
