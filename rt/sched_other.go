//go:build !linux

package rt

import "os"

type hostSystem struct{}

func (hostSystem) getrlimit(resource) (uint64, uint64, error) { return 0, 0, ErrUnsupported }

func (hostSystem) setrlimit(resource, uint64, uint64) error { return ErrUnsupported }

func (hostSystem) mlockall() error { return ErrUnsupported }

func (hostSystem) setFIFO(int) error { return ErrUnsupported }

func (hostSystem) setAffinity(int) error { return ErrUnsupported }

func (hostSystem) gettid() int { return os.Getpid() }

// CurrentScheduling is only implemented on Linux.
func CurrentScheduling() (Scheduling, error) {
	return Scheduling{}, ErrUnsupported
}

// PinnedCPU is only implemented on Linux.
func PinnedCPU() (int, bool, error) {
	return 0, false, ErrUnsupported
}
