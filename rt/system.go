package rt

import "fmt"

// system is the set of OS calls the runtime makes. hostSystem is the real
// one; tests substitute a recorder.
type system interface {
	getrlimit(res resource) (soft, hard uint64, err error)
	setrlimit(res resource, soft, hard uint64) error
	mlockall() error
	// setFIFO and setAffinity apply to the calling thread only.
	setFIFO(priority int) error
	setAffinity(cpu int) error
	gettid() int
}

type resource int

const (
	rlimitCore resource = iota
	rlimitMemlock
	rlimitRTPrio
	rlimitRTTime
)

func (r resource) String() string {
	switch r {
	case rlimitCore:
		return "RLIMIT_CORE"
	case rlimitMemlock:
		return "RLIMIT_MEMLOCK"
	case rlimitRTPrio:
		return "RLIMIT_RTPRIO"
	case rlimitRTTime:
		return "RLIMIT_RTTIME"
	}
	return fmt.Sprintf("resource(%d)", int(r))
}

// unlimited is RLIM_INFINITY.
const unlimited = ^uint64(0)

// Policy is a thread scheduling policy.
type Policy uint32

// Linux scheduling policies.
const (
	PolicyOther    Policy = 0
	PolicyFIFO     Policy = 1
	PolicyRR       Policy = 2
	PolicyBatch    Policy = 3
	PolicyIdle     Policy = 5
	PolicyDeadline Policy = 6
)

func (p Policy) String() string {
	switch p {
	case PolicyOther:
		return "SCHED_OTHER"
	case PolicyFIFO:
		return "SCHED_FIFO"
	case PolicyRR:
		return "SCHED_RR"
	case PolicyBatch:
		return "SCHED_BATCH"
	case PolicyIdle:
		return "SCHED_IDLE"
	case PolicyDeadline:
		return "SCHED_DEADLINE"
	}
	return fmt.Sprintf("policy(%d)", uint32(p))
}

// Scheduling describes how the calling thread is scheduled.
type Scheduling struct {
	Policy   Policy
	Priority int
	// ResetOnFork means threads created from this one start with normal scheduling.
	ResetOnFork bool
}
