//go:build linux

package rt

import "golang.org/x/sys/unix"

type hostSystem struct{}

func (res resource) id() int {
	switch res {
	case rlimitCore:
		return unix.RLIMIT_CORE
	case rlimitMemlock:
		return unix.RLIMIT_MEMLOCK
	case rlimitRTPrio:
		return unix.RLIMIT_RTPRIO
	case rlimitRTTime:
		return unix.RLIMIT_RTTIME
	}
	return -1
}

func (hostSystem) getrlimit(res resource) (uint64, uint64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(res.id(), &lim); err != nil {
		return 0, 0, err
	}
	return lim.Cur, lim.Max, nil
}

func (hostSystem) setrlimit(res resource, soft, hard uint64) error {
	return unix.Setrlimit(res.id(), &unix.Rlimit{Cur: soft, Max: hard})
}

func (hostSystem) mlockall() error {
	return unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE)
}

// setFIFO uses sched_setattr rather than sched_setscheduler so the reset on
// fork flag can be set: Go creates new threads from whichever thread needs
// one, and a worker thread must never inherit RT priority by accident.
func (hostSystem) setFIFO(priority int) error {
	return unix.SchedSetAttr(0, &unix.SchedAttr{
		Policy:   unix.SCHED_FIFO,
		Flags:    unix.SCHED_FLAG_RESET_ON_FORK,
		Priority: uint32(priority),
	}, 0)
}

func (hostSystem) setAffinity(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}

func (hostSystem) gettid() int {
	return unix.Gettid()
}

// CurrentScheduling reports the policy and priority of the calling thread.
// Lock the goroutine to its thread first or the answer may be about another one.
func CurrentScheduling() (Scheduling, error) {
	attr, err := unix.SchedGetAttr(0, 0)
	if err != nil {
		return Scheduling{}, err
	}
	return Scheduling{
		Policy:      Policy(attr.Policy),
		Priority:    int(attr.Priority),
		ResetOnFork: attr.Flags&unix.SCHED_FLAG_RESET_ON_FORK != 0,
	}, nil
}

// PinnedCPU returns the CPU the calling thread is pinned to, or false if its
// affinity mask allows more than one.
func PinnedCPU() (int, bool, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return 0, false, err
	}
	if set.Count() != 1 {
		return 0, false, nil
	}
	for cpu := 0; cpu < cpuSetSize; cpu++ {
		if set.IsSet(cpu) {
			return cpu, true, nil
		}
	}
	return 0, false, nil
}

// cpuSetSize is CPU_SETSIZE.
const cpuSetSize = 1024
