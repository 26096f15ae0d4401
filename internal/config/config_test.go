package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreCoherent(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Thresholds.MaxUtilization != 90 || cfg.Thresholds.MinSkillMatch != 60 {
		t.Errorf("thresholds = %+v", cfg.Thresholds)
	}

	sum := cfg.Composite.SkillMatch + cfg.Composite.Availability + cfg.Composite.Performance +
		cfg.Composite.Workload + cfg.Composite.Preference
	if sum != 1 {
		t.Errorf("composite weights sum to %v, want 1", sum)
	}
	sum = cfg.Risk.ResourceConstraints + cfg.Risk.DependencyComplexity + cfg.Risk.SkillGaps +
		cfg.Risk.WorkloadImbalance + cfg.Risk.ExternalDependencies + cfg.Risk.HistoricalPattern
	if sum != 1 {
		t.Errorf("risk weights sum to %v, want 1", sum)
	}

	if cfg.Cache.TTL <= 0 || cfg.Events.DebounceWindow <= 0 || cfg.Optimizer.Budget <= 0 {
		t.Error("time-based defaults must be positive")
	}
}

func TestLoadMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != Default().Server.Port {
		t.Error("empty path should yield defaults")
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9090
thresholds:
  max_utilization: 85
optimizer:
  pool_size: 8
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want override 9090", cfg.Server.Port)
	}
	if cfg.Thresholds.MaxUtilization != 85 {
		t.Errorf("max utilization = %v, want override 85", cfg.Thresholds.MaxUtilization)
	}
	if cfg.Optimizer.PoolSize != 8 {
		t.Errorf("pool size = %d, want override 8", cfg.Optimizer.PoolSize)
	}
	// Untouched keys keep their defaults.
	if cfg.Thresholds.MinSkillMatch != 60 {
		t.Errorf("min skill match = %v, want default 60", cfg.Thresholds.MinSkillMatch)
	}
}

func TestLoadUnreadableFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
