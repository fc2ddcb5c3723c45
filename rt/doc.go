// Package rt puts a process and selected threads under real-time scheduling
// so that control loops blocking on rtring queues wake with bounded latency.
//
// # Process setup
//
// Runtime.ProcessInit runs once per Runtime:
//   - unlimited core dump size
//   - an RLIMIT_RTTIME budget, after which a thread that never blocks loses
//     RT scheduling (a guard against runaway loops locking up the machine)
//   - an RLIMIT_RTPRIO ceiling
//   - mlockall(MCL_CURRENT|MCL_FUTURE), with stack and a heap reserve touched
//     up front, so the hot path starts out free of page faults
//
// Go has no equivalent of glibc's M_TRIM_THRESHOLD. The heap reserve stays
// resident because the Runtime keeps it alive, but the Go scavenger still
// returns other freed spans to the OS, and touching them again faults. Keep
// allocation off the hot path.
//
// # Thread setup
//
// Go schedules goroutines over a pool of OS threads, so a goroutine has to be
// locked to its thread before anything thread-scoped means something.
// ThreadInitRT and Go lock the goroutine for good, optionally pin the thread
// to a CPU, and switch it to SCHED_FIFO at Config.BasePriority plus a
// per-thread offset. The reset-on-fork flag is set, so threads the Go runtime
// later creates from an RT thread start out with normal scheduling.
//
// # Failures
//
// Every failed OS call is fatal: the runtime logs the thread, the call and
// the error code, writes a crash dump and exits the process. The requested
// guarantees cannot be granted after the fact.
//
// # Example
//
//	cfg, err := rt.LoadConfig("robot.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	runtime, err := rt.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	runtime.ProcessInit()
//
//	state := rt.Queue[DriveState](runtime, "drivetrain_state")
//	runtime.Go("drivetrain", runtime.Spec("drivetrain"), func() {
//		for {
//			state.Push(step())
//		}
//	})
package rt
