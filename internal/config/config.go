// Package config holds the explicit engine configuration. Every tunable the
// scheduling core consumes lives here; there is no hidden global state. The
// numeric weight defaults are documented operating points, not calibrated
// business rules.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PriorityWeights are the per-feature weights of the priority scorer's
// linear model, applied to z-normalized features before the sigmoid.
type PriorityWeights struct {
	DaysUntilDeadline  float64 `yaml:"days_until_deadline"`
	DaysSinceCreation  float64 `yaml:"days_since_creation"`
	BusinessHours      float64 `yaml:"business_hours"`
	Complexity         float64 `yaml:"complexity"`
	CategoryWeight     float64 `yaml:"category_weight"`
	DependencyCount    float64 `yaml:"dependency_count"`
	DependentCount     float64 `yaml:"dependent_count"`
	EstimatedHours     float64 `yaml:"estimated_hours"`
	BusinessValue      float64 `yaml:"business_value"`
	RiskLevel          float64 `yaml:"risk_level"`
	Compliance         float64 `yaml:"compliance"`
	ClientTier         float64 `yaml:"client_tier"`
	AssigneeWorkload   float64 `yaml:"assignee_workload"`
	SkillMatch         float64 `yaml:"skill_match"`
	HistoricalPerf     float64 `yaml:"historical_performance"`
	TeamCapacity       float64 `yaml:"team_capacity"`
	AvgCompletionHours float64 `yaml:"avg_completion_hours"`
	SuccessRate        float64 `yaml:"success_rate"`
	ReworkRate         float64 `yaml:"rework_rate"`
	Bias               float64 `yaml:"bias"`
}

// RiskWeights blend the six bottleneck component scores into the overall
// delay probability. They should sum to 1.
type RiskWeights struct {
	ResourceConstraints  float64 `yaml:"resource_constraints"`
	DependencyComplexity float64 `yaml:"dependency_complexity"`
	SkillGaps            float64 `yaml:"skill_gaps"`
	WorkloadImbalance    float64 `yaml:"workload_imbalance"`
	ExternalDependencies float64 `yaml:"external_dependencies"`
	HistoricalPattern    float64 `yaml:"historical_pattern"`
}

// CompositeWeights blend the candidate-ranking terms shared by the optimizer
// and the routing recommender. They should sum to 1.
type CompositeWeights struct {
	SkillMatch   float64 `yaml:"skill_match"`
	Availability float64 `yaml:"availability"`
	Performance  float64 `yaml:"performance"`
	Workload     float64 `yaml:"workload"`
	Preference   float64 `yaml:"preference"`
}

// Thresholds are the feasibility and confidence cutoffs.
type Thresholds struct {
	MaxUtilization float64 `yaml:"max_utilization"` // percent; candidates above are infeasible
	MinSkillMatch  float64 `yaml:"min_skill_match"` // percent
	BaseConfidence float64 `yaml:"base_confidence"` // 0-1 starting point for scorer confidence
}

// GeneticParams tune the genetic strategy.
type GeneticParams struct {
	PopulationSize       int     `yaml:"population_size"`
	Generations          int     `yaml:"generations"`
	MutationRate         float64 `yaml:"mutation_rate"`
	TournamentSize       int     `yaml:"tournament_size"`
	ConvergenceThreshold float64 `yaml:"convergence_threshold"`
	Seed                 int64   `yaml:"seed"` // 0 means time-seeded
}

// AnnealingParams tune the simulated-annealing strategy.
type AnnealingParams struct {
	InitialTemperature float64 `yaml:"initial_temperature"`
	CoolingRate        float64 `yaml:"cooling_rate"` // geometric factor per step
	TemperatureFloor   float64 `yaml:"temperature_floor"`
	MaxIterations      int     `yaml:"max_iterations"`
	Seed               int64   `yaml:"seed"`
}

// LearningParams bound the scorer's online weight updates.
type LearningParams struct {
	LearningRate  float64 `yaml:"learning_rate"`
	MaxIterations int     `yaml:"max_iterations"`
	HoldoutRatio  float64 `yaml:"holdout_ratio"`
	MaxExamples   int     `yaml:"max_examples"`
}

// Config is the root configuration, loadable from YAML.
type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Priority   PriorityWeights  `yaml:"priority_weights"`
	Risk       RiskWeights      `yaml:"risk_weights"`
	Composite  CompositeWeights `yaml:"composite_weights"`
	Thresholds Thresholds       `yaml:"thresholds"`
	Genetic    GeneticParams    `yaml:"genetic"`
	Annealing  AnnealingParams  `yaml:"annealing"`
	Learning   LearningParams   `yaml:"learning"`

	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Events struct {
		DebounceWindow time.Duration `yaml:"debounce_window"`
		QueueSize      int           `yaml:"queue_size"`
	} `yaml:"events"`

	Optimizer struct {
		PoolSize int           `yaml:"pool_size"`
		Budget   time.Duration `yaml:"budget"` // hard wall-clock budget per run
	} `yaml:"optimizer"`

	Leveling struct {
		DefaultCapacity float64 `yaml:"default_capacity"` // units per resource when unmodeled
	} `yaml:"leveling"`
}

// Default returns the documented default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	cfg.Metrics.Enabled = true

	cfg.Priority = PriorityWeights{
		DaysUntilDeadline:  -0.9, // closer deadline -> higher score
		DaysSinceCreation:  0.15,
		BusinessHours:      0.05,
		Complexity:         0.25,
		CategoryWeight:     0.20,
		DependencyCount:    0.10,
		DependentCount:     0.30,
		EstimatedHours:     0.10,
		BusinessValue:      0.45,
		RiskLevel:          0.35,
		Compliance:         0.50,
		ClientTier:         0.25,
		AssigneeWorkload:   0.15,
		SkillMatch:         -0.10, // poor match raises urgency of re-planning, not priority
		HistoricalPerf:     0.10,
		TeamCapacity:       -0.10,
		AvgCompletionHours: 0.10,
		SuccessRate:        -0.15,
		ReworkRate:         0.20,
		Bias:               0.0,
	}
	cfg.Risk = RiskWeights{
		ResourceConstraints:  0.20,
		DependencyComplexity: 0.20,
		SkillGaps:            0.20,
		WorkloadImbalance:    0.15,
		ExternalDependencies: 0.10,
		HistoricalPattern:    0.15,
	}
	cfg.Composite = CompositeWeights{
		SkillMatch:   0.35,
		Availability: 0.20,
		Performance:  0.20,
		Workload:     0.15,
		Preference:   0.10,
	}
	cfg.Thresholds = Thresholds{
		MaxUtilization: 90,
		MinSkillMatch:  60,
		BaseConfidence: 0.80,
	}
	cfg.Genetic = GeneticParams{
		PopulationSize:       50,
		Generations:          100,
		MutationRate:         0.10,
		TournamentSize:       3,
		ConvergenceThreshold: 0.01,
	}
	cfg.Annealing = AnnealingParams{
		InitialTemperature: 100,
		CoolingRate:        0.95,
		TemperatureFloor:   0.1,
		MaxIterations:      10000,
	}
	cfg.Learning = LearningParams{
		LearningRate:  0.01,
		MaxIterations: 50,
		HoldoutRatio:  0.2,
		MaxExamples:   500,
	}
	cfg.Cache.TTL = 90 * time.Minute
	cfg.Events.DebounceWindow = 2 * time.Second
	cfg.Events.QueueSize = 256
	cfg.Optimizer.PoolSize = 4
	cfg.Optimizer.Budget = 30 * time.Second
	cfg.Leveling.DefaultCapacity = 1
	return cfg
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
