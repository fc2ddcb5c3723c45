//go:build linux

package rtring

import (
	"math"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex operations, process private.
const (
	futexWaitPrivate = 128 // FUTEX_WAIT | FUTEX_PRIVATE_FLAG
	futexWakePrivate = 129 // FUTEX_WAKE | FUTEX_PRIVATE_FLAG
)

// parker needs no state on Linux: the generation word is the futex.
type parker struct{}

// park sleeps while word == val. A zero timeout waits forever.
// Spurious wake-ups return nil; the caller re-checks the word.
// atomic.Uint32 is a bare uint32 in memory, so its address is the futex word.
func (parker) park(word *atomic.Uint32, val uint32, timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout > 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(word)),
		futexWaitPrivate,
		uintptr(val),
		uintptr(unsafe.Pointer(ts)),
		0,
		0,
	)
	switch errno {
	case 0, unix.EAGAIN:
		// woken, or the word changed before we got to sleep
		return nil
	case unix.EINTR:
		return ErrInterrupted
	case unix.ETIMEDOUT:
		return ErrTimeout
	default:
		return &OSError{Op: "futex_wait", Errno: errno}
	}
}

// wake wakes every thread sleeping on word.
func (parker) wake(word *atomic.Uint32) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(word)),
		futexWakePrivate,
		uintptr(math.MaxInt32),
		0,
		0,
		0,
	)
	if errno != 0 {
		return &OSError{Op: "futex_wake", Errno: errno}
	}
	return nil
}
