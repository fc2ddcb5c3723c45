package rtring

import (
	"errors"
	"math/bits"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/aradilov/rtring/internal/fatal"
)

// Broadcast is the shared storage of a broadcast queue: a ring of cells and
// the single write cursor all producers race on.
//
// Most code should hold a Client, which adds a private read cursor. Broadcast
// itself is safe for concurrent use by any number of goroutines.
type Broadcast[T any] struct {
	_        cpu.CacheLinePad
	mask     uint64
	size     uint64
	cells    []cell[T]
	_        cpu.CacheLinePad
	cursor   atomic.Uint64 // next index to claim; starts at size, so the first write is cell 0, epoch size
	_        cpu.CacheLinePad
	notifier Notifier
	_        cpu.CacheLinePad
	stats    counters
}

// NewBroadcast allocates a ring of requested cells rounded up to a power of two.
// Panics if requested is 0 or larger than 2^62, or if T is not copyable by value.
func NewBroadcast[T any](requested uint64) *Broadcast[T] {
	if requested == 0 {
		panic("capacity must be > 0")
	}
	if requested > maxSize {
		panic("capacity must be <= 2^62")
	}
	mustBeCopyable[T]()

	size := roundUpPow2(requested)
	q := &Broadcast[T]{
		mask:  size - 1,
		size:  size,
		cells: make([]cell[T], size),
	}
	q.cursor.Store(size)
	return q
}

// roundUpPow2 returns the smallest power of two >= u. u must be in [1, 2^63].
func roundUpPow2(u uint64) uint64 {
	if u <= 1 {
		return 1
	}
	return 1 << bits.Len64(u-1)
}

// Size returns the number of cells. History is readable this far back.
func (q *Broadcast[T]) Size() uint64 {
	return q.size
}

// Cursor returns the next index a producer will claim.
func (q *Broadcast[T]) Cursor() uint64 {
	return q.cursor.Load()
}

// Notifier returns the notifier signalled after every completed write.
func (q *Broadcast[T]) Notifier() *Notifier {
	return &q.notifier
}

func (q *Broadcast[T]) epoch(idx uint64) uint64 {
	return idx &^ q.mask
}

// Push writes v at the next index and wakes blocked readers. Never blocks on
// readers; it may spin briefly if another producer still holds the cell from
// the previous lap.
func (q *Broadcast[T]) Push(v T) {
	idx := q.claim()
	q.cells[idx&q.mask].write(v, q.epoch(idx), q.size)
	if err := q.notifier.Notify(); err != nil {
		fatal.Die("broadcast queue: notify after write %d: %v", idx, err)
	}
}

// claim reserves the next global index.
func (q *Broadcast[T]) claim() uint64 {
	var spins uint32
	idx := q.cursor.Load()
	for !q.cursor.CompareAndSwap(idx, idx+1) {
		atomic.AddUint64(&q.stats.claimRetries, 1)
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
		idx = q.cursor.Load()
	}
	return idx
}

// Read returns the value written at idx if it is still in the ring and
// completely written. Otherwise it returns the cell state that was observed
// instead: an older epoch means idx has not been written yet, a newer one means
// it was overwritten, and the in-progress bit means a write is under way.
func (q *Broadcast[T]) Read(idx uint64) (T, uint64, bool) {
	return q.cells[idx&q.mask].load(q.epoch(idx))
}

// written reports whether anything has been pushed yet.
func (q *Broadcast[T]) written() bool {
	return q.cursor.Load() != q.size
}

// TryReadLatest reads the most recently claimed write. Returns false if that
// write has not completed or nothing has been written.
func (q *Broadcast[T]) TryReadLatest() (T, bool) {
	v, _, ok := q.tryLatest()
	return v, ok
}

func (q *Broadcast[T]) tryLatest() (T, uint64, bool) {
	var zero T
	top := q.cursor.Load()
	if top == q.size {
		return zero, 0, false
	}
	idx := top - 1
	v, _, ok := q.Read(idx)
	return v, idx, ok
}

// latest walks back from the newest claimed index to the newest completed
// write. It looks back at most one lap, then re-samples the cursor.
// Returns false only if nothing has been written.
func (q *Broadcast[T]) latest() (T, uint64, bool) {
	var zero T
	for {
		top := q.cursor.Load()
		if top == q.size {
			return zero, 0, false
		}
		floor := q.size
		if top-q.size > q.size {
			floor = top - q.size
		}
		for idx := top - 1; ; idx-- {
			if v, _, ok := q.Read(idx); ok {
				return v, idx, true
			}
			if idx == floor {
				break
			}
		}
		// every cell of the last lap is mid-write or was overwritten while we looked
		runtime.Gosched()
	}
}

// ReadLatest returns the newest completed write, walking back past writes
// that are still in progress. Blocks until the first write if the queue is empty.
func (q *Broadcast[T]) ReadLatest() T {
	v, _ := q.readLatest()
	return v
}

func (q *Broadcast[T]) readLatest() (T, uint64) {
	for {
		token := q.notifier.Token()
		if v, idx, ok := q.latest(); ok {
			return v, idx
		}
		q.park(token)
	}
}

// ReadLatestBlocking selects the most recently claimed write and waits for it
// to complete. It does not chase writes claimed after the call. If the chosen
// write is overwritten while waiting, the newest claimed write is chosen again.
func (q *Broadcast[T]) ReadLatestBlocking() T {
	v, _ := q.readLatestBlocking()
	return v
}

func (q *Broadcast[T]) readLatestBlocking() (T, uint64) {
	for {
		token := q.notifier.Token()
		if q.written() {
			break
		}
		q.park(token)
	}
	idx := q.cursor.Load() - 1
	for {
		token := q.notifier.Token()
		v, state, ok := q.Read(idx)
		if ok {
			return v, idx
		}
		if state&^inProgress > q.epoch(idx) {
			idx = q.cursor.Load() - 1
			continue
		}
		q.park(token)
	}
}

// park sleeps until any write completes after token was taken.
// Signal interruptions return early; the caller re-checks and parks again.
func (q *Broadcast[T]) park(token uint32) {
	atomic.AddUint64(&q.stats.parks, 1)
	err := q.notifier.Wait(token)
	if err == nil || errors.Is(err, ErrInterrupted) {
		return
	}
	fatal.Die("broadcast queue: wait for write: %v", err)
}
