package rtring

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNotifierStaleTokenReturnsAtOnce(t *testing.T) {
	var n Notifier
	token := n.Token()
	if err := n.Notify(); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := n.Wait(token); err != nil {
		t.Fatalf("expected a stale token to return at once, got %v", err)
	}
}

func TestNotifierTimeout(t *testing.T) {
	var n Notifier
	start := time.Now()
	err := n.WaitTimeout(n.Token(), 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("returned after %v, before the deadline", elapsed)
	}
	if n.Waiters() != 0 {
		t.Fatalf("expected no waiters after the timeout, got %d", n.Waiters())
	}

	if err := n.WaitTimeout(n.Token(), 0); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout for a zero timeout, got %v", err)
	}
	token := n.Token()
	n.Notify()
	if err := n.WaitTimeout(token, 0); err != nil {
		t.Fatalf("expected a stale token to succeed with a zero timeout, got %v", err)
	}
}

func TestNotifierWakesOne(t *testing.T) {
	var n Notifier
	token := n.Token()
	done := make(chan error, 1)
	go func() {
		done <- n.Wait(token)
	}()

	waitForWaiters(t, &n, 1)
	if err := n.Notify(); err != nil {
		t.Fatalf("notify: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter was not woken")
	}
}

// Every waiter parks, a single Notify wakes all of them, and the cycle
// repeats without anyone being left behind.
func TestNotifierManyWaiters(t *testing.T) {
	const (
		waiters = 16
		rounds  = 50
	)
	var (
		n     Notifier
		woken atomic.Int32
		wg    sync.WaitGroup
	)

	for r := 0; r < rounds; r++ {
		token := n.Token()
		woken.Store(0)
		wg.Add(waiters)
		for w := 0; w < waiters; w++ {
			go func() {
				defer wg.Done()
				for {
					err := n.Wait(token)
					if errors.Is(err, ErrInterrupted) {
						continue
					}
					if err != nil {
						t.Errorf("wait: %v", err)
					}
					woken.Add(1)
					return
				}
			}()
		}

		waitForWaiters(t, &n, waiters)
		if err := n.Notify(); err != nil {
			t.Fatalf("notify: %v", err)
		}
		wg.Wait()
		if got := woken.Load(); got != waiters {
			t.Fatalf("round %d: %d of %d waiters woke", r, got, waiters)
		}
	}
}

// A Notify landing between Token and Wait must not be lost.
func TestNotifierNoLostWakeup(t *testing.T) {
	var n Notifier
	var ready atomic.Bool
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if ready.Load() {
				n.Notify()
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		token := n.Token()
		ready.Store(true)
		if err := n.WaitTimeout(token, time.Second); err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		ready.Store(false)
	}
}

func TestOSErrorUnwrap(t *testing.T) {
	cause := errors.New("EINVAL")
	err := error(&OSError{Op: "futex_wait", Errno: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("expected OSError to unwrap to its errno")
	}
	if err.Error() != "futex_wait failed: EINVAL" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func waitForWaiters(t *testing.T, n *Notifier, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for n.Waiters() < want {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d waiters parked", n.Waiters(), want)
		}
		time.Sleep(time.Millisecond)
	}
}
