package rtring

import "sync/atomic"

// counters are updated off the fast path only: a CAS lost to another
// producer, a reader lapped by the writers, a park on the notifier.
type counters struct {
	claimRetries     uint64
	lapped           uint64
	backoffExhausted uint64
	parks            uint64
}

// Stats is a snapshot of queue activity.
type Stats struct {
	// Writes is the number of indexes claimed by producers.
	Writes uint64
	// ClaimRetries counts cursor CAS attempts lost to a concurrent producer.
	ClaimRetries uint64
	// Lapped counts readers fast-forwarded because writers overwrote their position.
	Lapped uint64
	// BackoffExhausted counts Next calls that gave up catching up.
	// Should stay zero under reasonable scheduling.
	BackoffExhausted uint64
	// Parks counts times a blocking reader slept on the notifier.
	Parks uint64
	// Waiters is the number of readers parked right now.
	Waiters int
}

// Stats retrieves the current statistics of the queue.
func (q *Broadcast[T]) Stats() Stats {
	return Stats{
		Writes:           q.cursor.Load() - q.size,
		ClaimRetries:     atomic.LoadUint64(&q.stats.claimRetries),
		Lapped:           atomic.LoadUint64(&q.stats.lapped),
		BackoffExhausted: atomic.LoadUint64(&q.stats.backoffExhausted),
		Parks:            atomic.LoadUint64(&q.stats.parks),
		Waiters:          q.notifier.Waiters(),
	}
}
