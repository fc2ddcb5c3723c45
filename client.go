package rtring

import "sync/atomic"

// Client is a streaming reader and writer of a shared Broadcast.
//
// Each Client owns a read cursor. Use Clone to create another reader/writer
// of the same queue; the clone starts reading where the original was at the
// time of the clone and the two move independently from then on.
//
// A Client must not be used from more than one goroutine at a time. Give each
// goroutine its own clone; clones are cheap.
type Client[T any] struct {
	q      *Broadcast[T]
	toRead uint64
	// lastSeen is the newest index this client has returned a value for.
	// Indexes below the ring size are never written, so 0 means none.
	lastSeen uint64
}

// NewQueue creates a queue of at least requested cells and returns a client
// to it. The size is rounded up to a power of two. The first write made
// after this call is the first value the client reads.
func NewQueue[T any](requested uint64) *Client[T] {
	return NewBroadcast[T](requested).Client()
}

// Client returns a new client whose next read is the next write.
func (q *Broadcast[T]) Client() *Client[T] {
	c := &Client[T]{q: q}
	c.Forget()
	return c
}

// Clone returns an independent client positioned where c is now.
func (c *Client[T]) Clone() *Client[T] {
	cc := *c
	return &cc
}

// Queue returns the shared storage behind c.
func (c *Client[T]) Queue() *Broadcast[T] {
	return c.q
}

// Size returns the size of the ring. History is readable this far back.
func (c *Client[T]) Size() uint64 {
	return c.q.size
}

// Push appends v to the queue. Never blocks.
func (c *Client[T]) Push(v T) {
	c.q.Push(v)
}

// Position returns the index the next Next call will try to read.
func (c *Client[T]) Position() uint64 {
	return c.toRead
}

// Lag returns how many claimed writes this client has not read yet,
// including ones it can no longer catch.
func (c *Client[T]) Lag() uint64 {
	cur := c.q.cursor.Load()
	if cur <= c.toRead {
		return 0
	}
	return cur - c.toRead
}

// LastSeen returns the index of the newest value this client has read.
func (c *Client[T]) LastSeen() (uint64, bool) {
	return c.lastSeen, c.lastSeen != 0
}

// fresh reports whether idx is newer than anything this client has read or
// skipped past by moving its cursor.
func (c *Client[T]) fresh(idx uint64) bool {
	return idx > max(c.lastSeen, c.toRead-1)
}

func (c *Client[T]) seen(idx uint64) {
	if idx > c.lastSeen {
		c.lastSeen = idx
	}
}

// setCursor moves the read cursor, never below the first index ever written.
func (c *Client[T]) setCursor(idx uint64) {
	if idx < c.q.size {
		idx = c.q.size
	}
	c.toRead = idx
}

// CatchUp moves the cursor to the oldest data still in the ring, plus margin
// to leave room for writes landing from behind before the next read. Next
// uses this internally when it has been lapped.
func (c *Client[T]) CatchUp(margin uint64) {
	c.setCursor(c.q.cursor.Load() - c.q.size + margin)
}

// Reset moves the cursor to the most recent write. This guarantees at least
// one valid read provided the goroutine is not preempted.
func (c *Client[T]) Reset() {
	c.setCursor(c.q.cursor.Load() - 1)
}

// Forget moves the cursor past everything written so far; the next read is
// the next write.
func (c *Client[T]) Forget() {
	c.setCursor(c.q.cursor.Load())
}

// Skip advances the cursor n elements, faster than calling Next n times.
func (c *Client[T]) Skip(n uint64) {
	c.toRead += n
}

// Next returns the next value if it is still in the ring.
//
// If the writers have lapped this client, the cursor jumps to the oldest data
// still in the ring, skipping what was overwritten. When the writers keep
// overtaking during the jump, the margin ahead of the oldest data doubles
// (1, 2, 4, ...) until a read lands or the margin exceeds the ring size. The
// latter should not happen under reasonable scheduling and is reported as no
// data rather than a panic.
//
// Returns false if the next value has not been written, is being written, or
// catching up failed.
func (c *Client[T]) Next() (T, bool) {
	var zero T
	size := c.q.size
	margin := uint64(1)
	for {
		v, state, ok := c.q.Read(c.toRead)
		if ok {
			c.seen(c.toRead)
			c.toRead++
			return v, true
		}
		if state&inProgress != 0 || state <= c.q.epoch(c.toRead) {
			// reading ahead of the writers, or racing the write of this index
			return zero, false
		}
		if margin > size {
			atomic.AddUint64(&c.q.stats.backoffExhausted, 1)
			return zero, false
		}
		if margin == 1 {
			atomic.AddUint64(&c.q.stats.lapped, 1)
		}
		// a ring of one cell has no room for a margin
		c.CatchUp(min(margin, size-1))
		margin *= 2
	}
}

// NextBlocking is Next, but sleeps until a new value has been written when
// everything has been read.
func (c *Client[T]) NextBlocking() T {
	for {
		token := c.q.notifier.Token()
		if v, ok := c.Next(); ok {
			return v
		}
		c.q.park(token)
	}
}

// Latest returns the latest complete write.
//
// A writer may be preempted before completing its write; Latest then walks
// back to the newest write that did complete. Blocks until the first write
// if the queue is still empty.
func (c *Client[T]) Latest() T {
	v, idx := c.q.readLatest()
	c.seen(idx)
	return v
}

// Another waits for a write newer than anything this client has read, or
// placed its cursor past, and returns the latest complete one. Newer means a
// later index; the value may well be equal to the previous one. A new client
// waits for the next write. Meant for periodic consumers that must only react
// to fresh data.
func (c *Client[T]) Another() T {
	for {
		token := c.q.notifier.Token()
		if v, idx, ok := c.q.latest(); ok && c.fresh(idx) {
			c.seen(idx)
			return v
		}
		c.q.park(token)
	}
}

// LatestWrite selects the most recently claimed write (a producer has won the
// index but not necessarily finished writing) and waits for it to complete.
// Prefer Latest.
func (c *Client[T]) LatestWrite() T {
	v, idx := c.q.readLatestBlocking()
	c.seen(idx)
	return v
}

// TryLatestWrite selects the most recently claimed write and returns false if
// it has not completed yet, or if nothing has been written.
func (c *Client[T]) TryLatestWrite() (T, bool) {
	v, idx, ok := c.q.tryLatest()
	if ok {
		c.seen(idx)
	}
	return v, ok
}
