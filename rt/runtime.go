package rt

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/aradilov/rtring"
	"github.com/aradilov/rtring/internal/fatal"
)

// ErrUnsupported is returned by OS calls on platforms without RT scheduling.
var ErrUnsupported = errors.New("real-time scheduling not supported on this platform")

// Runtime is the process-wide real-time context. Create one at process start
// and pass it to everything that configures RT threads or shares named queues.
type Runtime struct {
	cfg    Config
	id     uuid.UUID
	log    *slog.Logger
	sys    system
	die    func(err error, format string, args ...any)
	queues *rtring.Registry

	once sync.Once
	// reserve is prefaulted heap kept alive for the life of the runtime.
	reserve []byte
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.log = l
	}
}

// WithRegistry shares an existing queue registry instead of creating one.
func WithRegistry(reg *rtring.Registry) Option {
	return func(r *Runtime) {
		r.queues = reg
	}
}

func withSystem(s system) Option {
	return func(r *Runtime) {
		r.sys = s
	}
}

func withDie(die func(err error, format string, args ...any)) Option {
	return func(r *Runtime) {
		r.die = die
	}
}

// New applies defaults to cfg, validates it and returns a runtime. Nothing
// is changed in the process until ProcessInit or a thread init runs.
func New(cfg Config, opts ...Option) (*Runtime, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runtime{
		cfg: cfg,
		id:  uuid.New(),
		sys: hostSystem{},
		die: fatal.DieErrno,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.queues == nil {
		r.queues = rtring.NewRegistry()
	}
	r.log = r.log.With("run_id", r.id.String())
	return r, nil
}

// ID identifies this run in logs.
func (r *Runtime) ID() uuid.UUID { return r.id }

// Config returns the effective config, defaults included.
func (r *Runtime) Config() Config { return r.cfg }

// Registry returns the named queue registry.
func (r *Runtime) Registry() *rtring.Registry { return r.queues }

// Logger returns the runtime logger.
func (r *Runtime) Logger() *slog.Logger { return r.log }

// Spec returns the configured scheduling of the named thread, or a zero
// offset with no pinning when the config does not mention it.
func (r *Runtime) Spec(name string) ThreadSpec {
	return r.cfg.Threads[name]
}

// Queue returns a client of the named queue, sized from the config queues
// section or DefaultQueueSize.
func Queue[T any](r *Runtime, name string) *rtring.Client[T] {
	size, ok := r.cfg.Queues[name]
	if !ok {
		size = DefaultQueueSize
	}
	return rtring.Open[T](r.queues, name, size)
}

// ProcessInit performs process-wide setup once: unlimited core dumps, the
// RT CPU time budget, the RT priority ceiling, and, if enabled, locked and
// prefaulted memory. Later calls do nothing. Do not run it concurrently with
// allocation-heavy code; it is meant to run before the control loops start.
//
// Any failure terminates the process.
func (r *Runtime) ProcessInit() {
	r.once.Do(func() {
		name := r.threadName()
		r.setSoftRlimit(name, rlimitCore, unlimited)
		r.setSoftRlimit(name, rlimitRTTime, uint64(r.cfg.RTTimeBudget.Microseconds()))
		r.setSoftRlimit(name, rlimitRTPrio, uint64(r.cfg.PriorityCeiling))
		if *r.cfg.LockMemory {
			r.lockMemory(name)
		}
		r.log.Info("process rt init done",
			"rt_time_budget", r.cfg.RTTimeBudget,
			"priority_ceiling", r.cfg.PriorityCeiling,
			"lock_memory", *r.cfg.LockMemory)
	})
}

func (r *Runtime) lockMemory(name string) {
	r.setSoftRlimit(name, rlimitMemlock, unlimited)
	if err := r.sys.mlockall(); err != nil {
		r.fail(name, "mlockall(MCL_CURRENT|MCL_FUTURE)", err)
	}
	touchStack(r.cfg.StackPrefault / pageSize)
	r.reserve = make([]byte, r.cfg.HeapReserve)
	for i := 0; i < len(r.reserve); i += pageSize {
		r.reserve[i] = 2
	}
}

// ThreadInitRT locks the calling goroutine to its OS thread for good, runs
// ProcessInit, and moves the thread to SCHED_FIFO at BasePriority+offset.
// Threads created from it afterwards start with normal scheduling.
//
// Any failure terminates the process.
func (r *Runtime) ThreadInitRT(offset int) {
	runtime.LockOSThread()
	r.threadInit(r.threadName(), ThreadSpec{Priority: offset})
}

// PinCurrentThread locks the calling goroutine to its OS thread and pins
// that thread to one logical CPU. Any failure terminates the process.
func (r *Runtime) PinCurrentThread(cpu int) {
	runtime.LockOSThread()
	r.pin(r.threadName(), cpu)
}

// Go runs fn on a fresh goroutine locked to its own thread and scheduled per
// spec. The thread exits with fn instead of returning to the Go scheduler.
// The returned channel is closed when fn returns.
func (r *Runtime) Go(name string, spec ThreadSpec, fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		// no UnlockOSThread: the thread dies with the goroutine
		runtime.LockOSThread()
		defer close(done)
		r.threadInit(name, spec)
		fn()
	}()
	return done
}

// threadInit expects the goroutine to be locked to its thread already.
func (r *Runtime) threadInit(name string, spec ThreadSpec) {
	r.ProcessInit()
	if spec.CPU != nil {
		r.pin(name, *spec.CPU)
	}
	prio := r.cfg.BasePriority + spec.Priority
	if err := r.sys.setFIFO(prio); err != nil {
		r.fail(name, fmt.Sprintf("sched_setattr(SCHED_FIFO, %d)", prio), err)
	}
	r.log.Debug("thread rt init done", "thread", name, "priority", prio)
}

func (r *Runtime) pin(name string, cpu int) {
	if err := r.sys.setAffinity(cpu); err != nil {
		r.fail(name, fmt.Sprintf("sched_setaffinity(%d)", cpu), err)
	}
}

// setSoftRlimit raises the hard limit too when soft exceeds it, which needs
// CAP_SYS_RESOURCE.
func (r *Runtime) setSoftRlimit(name string, res resource, soft uint64) {
	_, hard, err := r.sys.getrlimit(res)
	if err != nil {
		r.fail(name, fmt.Sprintf("getrlimit(%s)", res), err)
	}
	if err := r.sys.setrlimit(res, soft, max(hard, soft)); err != nil {
		r.fail(name, fmt.Sprintf("setrlimit(%s, %d)", res, soft), err)
	}
}

func (r *Runtime) threadName() string {
	return fmt.Sprintf("tid-%d", r.sys.gettid())
}

// fail logs the failed call and terminates the process.
func (r *Runtime) fail(thread, call string, err error) {
	r.log.Error("rt init failed", "thread", thread, "call", call, "err", err)
	r.die(err, "thread %s: %s failed", thread, call)
}

const pageSize = 4096

//go:noinline
func touchStack(pages int) byte {
	var page [pageSize]byte
	for i := range page {
		page[i] = 2
	}
	if pages <= 1 {
		return page[0]
	}
	return page[pageSize-1] + touchStack(pages-1)
}
