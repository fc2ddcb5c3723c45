package rt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
base_priority: 20
priority_ceiling: 45
rt_time_budget: 500ms
lock_memory: false
threads:
  drivetrain:
    priority: 10
    cpu: 2
  logger:
    priority: -5
queues:
  drivetrain_state: 100
  vision_targets: 16
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.BasePriority != 20 || cfg.PriorityCeiling != 45 {
		t.Fatalf("unexpected priorities %+v", cfg)
	}
	if cfg.RTTimeBudget != 500*time.Millisecond {
		t.Fatalf("expected 500ms budget, got %v", cfg.RTTimeBudget)
	}
	if cfg.LockMemory == nil || *cfg.LockMemory {
		t.Fatalf("expected lock_memory false, got %v", cfg.LockMemory)
	}
	dt := cfg.Threads["drivetrain"]
	if dt.Priority != 10 || dt.CPU == nil || *dt.CPU != 2 {
		t.Fatalf("unexpected drivetrain spec %+v", dt)
	}
	if lg := cfg.Threads["logger"]; lg.Priority != -5 || lg.CPU != nil {
		t.Fatalf("unexpected logger spec %+v", lg)
	}
	if cfg.Queues["drivetrain_state"] != 100 || cfg.Queues["vision_targets"] != 16 {
		t.Fatalf("unexpected queues %v", cfg.Queues)
	}
	if err := cfg.withDefaults().Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg = cfg.withDefaults()
	if cfg.BasePriority != DefaultBasePriority || cfg.PriorityCeiling != DefaultPriorityCeiling {
		t.Fatalf("unexpected priority defaults %+v", cfg)
	}
	if cfg.RTTimeBudget != DefaultRTTimeBudget {
		t.Fatalf("expected %v budget, got %v", DefaultRTTimeBudget, cfg.RTTimeBudget)
	}
	if !*cfg.LockMemory {
		t.Fatalf("expected memory locking on by default")
	}
	if cfg.StackPrefault != DefaultStackPrefault || cfg.HeapReserve != DefaultHeapReserve {
		t.Fatalf("unexpected prefault defaults %+v", cfg)
	}
}

func TestParseConfigUnknownKey(t *testing.T) {
	_, err := ParseConfig([]byte("base_priority: 20\nbase_prio: 30\n"))
	if !errors.Is(err, ErrBadConfig) {
		t.Fatalf("expected ErrBadConfig for an unknown key, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasePriority != 20 {
		t.Fatalf("expected base priority 20, got %d", cfg.BasePriority)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cpu := -1
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"defaults", Config{}, true},
		{"ceiling too high", Config{PriorityCeiling: 100}, false},
		{"base above ceiling", Config{BasePriority: 50, PriorityCeiling: 40}, false},
		{"negative budget", Config{RTTimeBudget: -time.Second}, false},
		{"negative reserve", Config{HeapReserve: -1}, false},
		{"thread above ceiling", Config{Threads: map[string]ThreadSpec{"a": {Priority: 11}}}, false},
		{"thread at ceiling", Config{Threads: map[string]ThreadSpec{"a": {Priority: 10}}}, true},
		{"thread below one", Config{Threads: map[string]ThreadSpec{"a": {Priority: -30}}}, false},
		{"negative cpu", Config{Threads: map[string]ThreadSpec{"a": {CPU: &cpu}}}, false},
		{"empty queue", Config{Queues: map[string]uint64{"q": 0}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.withDefaults().Validate()
			if tt.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrBadConfig) {
				t.Fatalf("expected ErrBadConfig, got %v", err)
			}
		})
	}
}
