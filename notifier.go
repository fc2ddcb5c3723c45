package rtring

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	// ErrInterrupted is returned when a wait was interrupted by a signal.
	ErrInterrupted = errors.New("wait interrupted by signal")
	// ErrTimeout is returned by WaitTimeout when the deadline passed first.
	ErrTimeout = errors.New("wait timed out")
)

// OSError reports a failure of the underlying OS wait primitive.
type OSError struct {
	Op    string
	Errno error
}

func (e *OSError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Errno)
}

func (e *OSError) Unwrap() error { return e.Errno }

// Notifier is a broadcast wake-up: any number of goroutines park in Wait
// until Notify, at which point all of them wake.
//
// The notifier keeps a generation counter instead of a set/unset flag. A
// waiter first takes a Token, then re-checks whatever condition it is waiting
// for, then calls Wait with the token. A Notify that lands anywhere after the
// Token call makes Wait return at once, so no wake-up is lost between the
// check and the park.
//
// On Linux waiters park on a private futex, so a thread locked with
// runtime.LockOSThread sleeps in the kernel and is woken directly by Notify.
type Notifier struct {
	gen     atomic.Uint32
	waiters atomic.Int32
	parker
}

// Token returns the current generation.
func (n *Notifier) Token() uint32 {
	return n.gen.Load()
}

// Waiters returns the number of goroutines currently parked.
func (n *Notifier) Waiters() int {
	return int(n.waiters.Load())
}

// Wait blocks until a Notify happens after token was taken.
// Returns ErrInterrupted if a signal cut the wait short; callers that only
// care about the wake-up may simply wait again.
func (n *Notifier) Wait(token uint32) error {
	return n.wait(token, 0)
}

// WaitNext blocks until the next Notify.
func (n *Notifier) WaitNext() error {
	return n.wait(n.Token(), 0)
}

// WaitTimeout is Wait bounded by d. Returns ErrTimeout if no Notify arrived.
func (n *Notifier) WaitTimeout(token uint32, d time.Duration) error {
	if d <= 0 {
		if n.gen.Load() != token {
			return nil
		}
		return ErrTimeout
	}
	return n.wait(token, d)
}

func (n *Notifier) wait(token uint32, d time.Duration) error {
	var deadline time.Time
	if d > 0 {
		deadline = time.Now().Add(d)
	}

	n.waiters.Add(1)
	defer n.waiters.Add(-1)

	for n.gen.Load() == token {
		var remaining time.Duration
		if d > 0 {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return ErrTimeout
			}
		}
		if err := n.park(&n.gen, token, remaining); err != nil {
			return err
		}
	}
	return nil
}

// Notify wakes every parked waiter. The wake syscall is skipped when nobody
// is parked, which keeps Notify cheap on the push path.
func (n *Notifier) Notify() error {
	n.gen.Add(1)
	if n.waiters.Load() == 0 {
		return nil
	}
	return n.wake(&n.gen)
}
