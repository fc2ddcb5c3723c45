package rt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrBadConfig wraps every configuration validation failure.
var ErrBadConfig = errors.New("invalid rt config")

// Defaults applied by New to zero fields.
const (
	DefaultBasePriority    = 30
	DefaultPriorityCeiling = 40
	DefaultRTTimeBudget    = 3 * time.Second
	DefaultStackPrefault   = 32 * 1024
	DefaultHeapReserve     = 512 * 1024
	DefaultQueueSize       = 128
)

// Config configures a Runtime.
type Config struct {
	// BasePriority is the SCHED_FIFO priority that thread offsets are relative to.
	BasePriority int `yaml:"base_priority"`
	// PriorityCeiling is the RLIMIT_RTPRIO soft limit.
	PriorityCeiling int `yaml:"priority_ceiling"`
	// RTTimeBudget is the RLIMIT_RTTIME soft limit: CPU time an RT thread may
	// use without blocking before the kernel stops it. A safety valve for a
	// runaway loop, not a tuning knob.
	RTTimeBudget time.Duration `yaml:"rt_time_budget"`
	// LockMemory runs mlockall and prefaults stack and heap during ProcessInit.
	LockMemory *bool `yaml:"lock_memory"`
	// StackPrefault is how many bytes of stack ProcessInit touches.
	StackPrefault int `yaml:"stack_prefault"`
	// HeapReserve is how many bytes of heap ProcessInit touches and keeps alive.
	HeapReserve int `yaml:"heap_reserve"`
	// Threads maps thread names to their scheduling.
	Threads map[string]ThreadSpec `yaml:"threads"`
	// Queues maps queue names to their requested sizes.
	Queues map[string]uint64 `yaml:"queues"`
}

// ThreadSpec is the scheduling of one named thread.
type ThreadSpec struct {
	// Priority is relative to Config.BasePriority.
	Priority int `yaml:"priority"`
	// CPU pins the thread to a logical CPU. Nil leaves affinity alone.
	CPU *int `yaml:"cpu"`
}

// LoadConfig reads a YAML config file. Defaults are applied by New.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read rt config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML config. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	return cfg, nil
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.BasePriority == 0 {
		c.BasePriority = DefaultBasePriority
	}
	if c.PriorityCeiling == 0 {
		c.PriorityCeiling = DefaultPriorityCeiling
	}
	if c.RTTimeBudget == 0 {
		c.RTTimeBudget = DefaultRTTimeBudget
	}
	if c.LockMemory == nil {
		lock := true
		c.LockMemory = &lock
	}
	if c.StackPrefault == 0 {
		c.StackPrefault = DefaultStackPrefault
	}
	if c.HeapReserve == 0 {
		c.HeapReserve = DefaultHeapReserve
	}
	return c
}

// Validate checks a config after defaults have been applied.
func (c Config) Validate() error {
	if c.PriorityCeiling < 1 || c.PriorityCeiling > 99 {
		return fmt.Errorf("%w: priority_ceiling %d not in [1, 99]", ErrBadConfig, c.PriorityCeiling)
	}
	if c.BasePriority < 1 || c.BasePriority > c.PriorityCeiling {
		return fmt.Errorf("%w: base_priority %d not in [1, %d]", ErrBadConfig, c.BasePriority, c.PriorityCeiling)
	}
	if c.RTTimeBudget <= 0 {
		return fmt.Errorf("%w: rt_time_budget must be positive", ErrBadConfig)
	}
	if c.StackPrefault < 0 || c.HeapReserve < 0 {
		return fmt.Errorf("%w: prefault sizes must not be negative", ErrBadConfig)
	}
	for name, t := range c.Threads {
		if p := c.BasePriority + t.Priority; p < 1 || p > c.PriorityCeiling {
			return fmt.Errorf("%w: thread %q priority %d not in [1, %d]", ErrBadConfig, name, p, c.PriorityCeiling)
		}
		if t.CPU != nil && *t.CPU < 0 {
			return fmt.Errorf("%w: thread %q cpu %d is negative", ErrBadConfig, name, *t.CPU)
		}
	}
	for name, size := range c.Queues {
		if size == 0 {
			return fmt.Errorf("%w: queue %q size must be positive", ErrBadConfig, name)
		}
	}
	return nil
}
