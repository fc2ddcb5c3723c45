// Package rtring is a lock-free multi-producer/multi-consumer broadcast queue
// backed by a ring buffer.
//
// Broadcast means every reader reads every write it has not been lapped past.
// Writers never block and are free to overwrite data that some or all readers
// have yet to consume, so readers are not guaranteed to see every write. This
// makes the queue unfit for anything resembling a task queue: use a channel
// for that.
//
// # Layout
//
// Storage is one fixed allocation of N cells, N being the requested capacity
// rounded up to a power of two. A single write cursor shared by all producers
// counts up forever. Index i lives in cell i&(N-1) and belongs to epoch
// i&^(N-1). Each cell carries its epoch, plus a write-in-progress bit, packed
// into one atomic word.
//
// # Writes
//
// Writes are a four step process. Writers race for the next index with a CAS
// on the cursor. The winner claims its cell by moving the cell epoch from the
// previous lap to (epoch | in-progress), copies the payload in, then publishes
// the final epoch with a release store. Readers never see a half written
// payload, even when the payload is wider than an atomic word.
//
// # Reads
//
// A reader compares the cell epoch against the epoch its index expects, copies
// the payload, and compares again. Any mismatch invalidates the read. Each
// reader owns a private cursor (see Client), so one slow reader never slows a
// writer or another reader.
//
// # Element types
//
// Cells are copied by value without a lock, so element types must not contain
// pointers, slices, maps, strings, channels, funcs or interfaces. This is
// checked once at construction and violations panic.
//
// # Limits
//
// Epochs occupy 63 bits. After roughly 2^63 writes they collide with the
// in-progress bit; at a billion writes per second that is centuries away and
// is not defended against. The claim protocol assumes no producer is preempted
// between winning its index and finishing its write for a full lap of the ring;
// size the ring generously relative to expected preemption windows. Builds
// with the rtdebug tag assert this.
package rtring

// inProgress marks a cell whose payload is being written.
const inProgress uint64 = 1 << 63

// maxSize keeps the first epoch (equal to the size) and every later cursor value
// clear of the in-progress bit for a practical number of laps.
const maxSize uint64 = 1 << 62

const goschedEvery = 64 // reduce runtime.Gosched() frequency in hot loops
