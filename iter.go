package rtring

import "iter"

// All returns a blocking iterator over the stream. Each step is NextBlocking,
// so the loop never ends on its own; break out of it.
func (c *Client[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			if !yield(c.NextBlocking()) {
				return
			}
		}
	}
}

// Available returns an iterator over the values that can be read right now.
// It stops at the first Next that reports no data; a later call may yield more.
func (c *Client[T]) Available() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := c.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Nth skips n values and returns the one after them, like Next.
func (c *Client[T]) Nth(n uint64) (T, bool) {
	c.Skip(n)
	return c.Next()
}
