// Command rtdemo runs a control loop that broadcasts its state every tick to
// a controller, a logger and a telemetry poller, each reading at its own pace,
// and reports what every reader saw.
//
// Usage:
//
//	go run ./cmd/rtdemo -n 4000 -rate 250us
//	sudo go run ./cmd/rtdemo -rt -config robot.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/aradilov/rtring"
	"github.com/aradilov/rtring/rt"
)

// State is what the control loop publishes every tick.
type State struct {
	Seq   uint64
	Stamp int64 // unix nanos at push
}

const queueName = "control_state"

type reader struct {
	name    string
	read    func(c *rtring.Client[State]) State
	seen    uint64
	skipped uint64
	maxLat  time.Duration
	sumLat  time.Duration
	inOrder bool
}

func main() {
	configPath := flag.String("config", "", "YAML rt config file")
	writes := flag.Int("n", 4000, "number of states to publish")
	size := flag.Uint64("size", 100, "requested queue size")
	rate := flag.Duration("rate", 250*time.Microsecond, "control loop period")
	useRT := flag.Bool("rt", false, "run threads under SCHED_FIFO (needs CAP_SYS_NICE)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var cfg rt.Config
	if *configPath != "" {
		var err error
		if cfg, err = rt.LoadConfig(*configPath); err != nil {
			logger.Error("load config", "err", err)
			os.Exit(2)
		}
	}
	if !*useRT {
		lock := false
		cfg.LockMemory = &lock
	}
	if _, ok := cfg.Queues[queueName]; !ok {
		if cfg.Queues == nil {
			cfg.Queues = make(map[string]uint64)
		}
		cfg.Queues[queueName] = *size
	}

	r, err := rt.New(cfg, rt.WithLogger(logger))
	if err != nil {
		logger.Error("rt config", "err", err)
		os.Exit(2)
	}
	if *useRT {
		r.ProcessInit()
	}

	spawn := func(name string, fn func()) <-chan struct{} {
		if *useRT {
			return r.Go(name, r.Spec(name), fn)
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			fn()
		}()
		return done
	}

	n := uint64(*writes)
	readers := []*reader{
		{name: "controller", read: (*rtring.Client[State]).Another},
		{name: "logger", read: (*rtring.Client[State]).NextBlocking},
		{name: "telemetry", read: func(c *rtring.Client[State]) State {
			time.Sleep(time.Millisecond)
			return c.Latest()
		}},
	}

	// Clients are taken before the producer starts so nobody misses the first write.
	var wg sync.WaitGroup
	for _, rd := range readers {
		c := rt.Queue[State](r, queueName)
		wg.Add(1)
		done := spawn(rd.name, func() { rd.run(c, n) })
		go func() {
			<-done
			wg.Done()
		}()
	}

	producer := rt.Queue[State](r, queueName)
	fmt.Printf("Publishing %d states every %v (queue size %d)\n", n, *rate, producer.Size())
	fmt.Printf("Architecture: %s/%s, real-time: %v\n", runtime.GOOS, runtime.GOARCH, *useRT)
	fmt.Println("─────────────────────────────────────────────────")

	start := time.Now()
	<-spawn("control", func() {
		ticker := time.NewTicker(*rate)
		defer ticker.Stop()
		for seq := uint64(0); seq < n; seq++ {
			<-ticker.C
			producer.Push(State{Seq: seq, Stamp: time.Now().UnixNano()})
		}
		// readers stop at the first Seq >= n
		producer.Push(State{Seq: n, Stamp: time.Now().UnixNano()})
	})
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("\nResults (%v):\n", elapsed)
	ok := true
	for _, rd := range readers {
		mean := time.Duration(0)
		if rd.seen > 0 {
			mean = rd.sumLat / time.Duration(rd.seen)
		}
		fmt.Printf("  %-12s %8d seen  %8d skipped  mean %10v  max %10v  ordered %v\n",
			rd.name, rd.seen, rd.skipped, mean, rd.maxLat, rd.inOrder)
		ok = ok && rd.inOrder
	}

	st := producer.Queue().Stats()
	fmt.Printf("\nQueue: %d writes, %d claim retries, %d laps, %d backoff exhaustions, %d parks\n",
		st.Writes, st.ClaimRetries, st.Lapped, st.BackoffExhausted, st.Parks)

	if !ok {
		os.Exit(1)
	}
}

// run reads until the closing state and checks that sequence numbers only
// ever go up. The telemetry poller may see the same state twice.
func (rd *reader) run(c *rtring.Client[State], n uint64) {
	rd.inOrder = true
	var last State
	first := true
	for {
		s := rd.read(c)
		if s.Seq >= n {
			return
		}
		lat := time.Since(time.Unix(0, s.Stamp))
		if !first {
			switch {
			case s.Seq < last.Seq:
				rd.inOrder = false
			case s.Seq == last.Seq:
				continue
			case s.Seq > last.Seq+1:
				rd.skipped += s.Seq - last.Seq - 1
			}
		}
		first = false
		last = s
		rd.seen++
		rd.sumLat += lat
		rd.maxLat = max(rd.maxLat, lat)
	}
}
