//go:build !linux

package rtring

import (
	"sync"
	"sync/atomic"
	"time"
)

// parker emulates futex wait/wake with a channel that is closed and replaced
// on every wake.
type parker struct {
	mu sync.Mutex
	ch chan struct{}
}

func (p *parker) current() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		p.ch = make(chan struct{})
	}
	return p.ch
}

func (p *parker) park(word *atomic.Uint32, val uint32, timeout time.Duration) error {
	ch := p.current()
	if word.Load() != val {
		return nil
	}
	if timeout <= 0 {
		<-ch
		return nil
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return nil
	case <-t.C:
		return ErrTimeout
	}
}

func (p *parker) wake(*atomic.Uint32) error {
	p.mu.Lock()
	if p.ch != nil {
		close(p.ch)
		p.ch = nil
	}
	p.mu.Unlock()
	return nil
}
