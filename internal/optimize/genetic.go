package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/models"
)

// Genetic evolves a population of full assignments. A genome maps each task
// index to a worker index (-1 for unassigned). Genomes are treated as
// immutable: crossover and mutation always produce fresh copies, and the RNG
// is seeded explicitly so runs are reproducible.
type Genetic struct {
	weights config.CompositeWeights
	params  config.GeneticParams
	logger  *slog.Logger
}

func NewGenetic(weights config.CompositeWeights, params config.GeneticParams, logger *slog.Logger) *Genetic {
	return &Genetic{weights: weights, params: params, logger: logger}
}

func (s *Genetic) Name() string { return StrategyGenetic }

// runState is the precomputed scoring context one evolution run reads.
type runState struct {
	tasks   []*models.Task
	workers []*models.WorkerProfile
	scores  [][]float64 // [task][worker] composite score
	terms   [][]Terms
	demand  []float64 // capacity demand per task
	skillOK [][]bool
	cons    Constraints
}

func newRunState(tasks []*models.Task, workers []*models.WorkerProfile, weights config.CompositeWeights, cons Constraints) *runState {
	st := &runState{
		tasks:   tasks,
		workers: workers,
		scores:  make([][]float64, len(tasks)),
		terms:   make([][]Terms, len(tasks)),
		demand:  make([]float64, len(tasks)),
		skillOK: make([][]bool, len(tasks)),
		cons:    cons,
	}
	for i, task := range tasks {
		st.scores[i] = make([]float64, len(workers))
		st.terms[i] = make([]Terms, len(workers))
		st.skillOK[i] = make([]bool, len(workers))
		st.demand[i] = CapacityDemand(task)
		for j, w := range workers {
			score, t := Composite(task, w, weights, cons.Now)
			st.scores[i][j] = score
			st.terms[i][j] = t
			st.skillOK[i][j] = t.SkillMatch >= cons.MinSkillMatch
		}
	}
	return st
}

// fitness is the aggregate composite score minus penalties for constraint
// violations: overloaded workers, skill-infeasible placements, and
// unassigned tasks.
func (st *runState) fitness(genome []int) float64 {
	var score float64
	load := make([]float64, len(st.workers))
	for i, w := range st.workers {
		load[i] = w.CapacityUtilization
	}
	for i, j := range genome {
		if j < 0 {
			score -= 100
			continue
		}
		score += st.scores[i][j]
		if !st.skillOK[i][j] {
			score -= 50
		}
		load[j] += st.demand[i]
	}
	for j := range st.workers {
		if over := load[j] - st.cons.MaxUtilization; over > 0 {
			score -= over * 5
		}
	}
	return score
}

func (s *Genetic) rng() *rand.Rand {
	seed := s.params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func (s *Genetic) Optimize(ctx context.Context, tasks []*models.Task, workers []*models.WorkerProfile, cons Constraints) (*models.OptimizationResult, error) {
	if len(tasks) == 0 {
		return nil, &models.ValidationError{Field: "tasks", Reason: "task set is empty"}
	}
	sorted := sortTasks(tasks)
	st := newRunState(sorted, workers, s.weights, cons)
	rng := s.rng()

	popSize := s.params.PopulationSize
	if popSize < 2 {
		popSize = 2
	}
	pop := make([][]int, popSize)
	for p := range pop {
		pop[p] = randomGenome(rng, len(sorted), len(workers))
	}

	best := pop[0]
	bestFit := st.fitness(best)
	partial := false
	generations := 0

	for gen := 0; gen < s.params.Generations; gen++ {
		if ctx.Err() != nil {
			partial = true
			break
		}
		generations = gen + 1

		fits := make([]float64, len(pop))
		var sum float64
		for p, g := range pop {
			fits[p] = st.fitness(g)
			sum += fits[p]
			if fits[p] > bestFit {
				bestFit = fits[p]
				best = g
			}
		}
		avg := sum / float64(len(pop))
		if bestFit != 0 && math.Abs(bestFit-avg)/math.Abs(bestFit) < s.params.ConvergenceThreshold {
			break
		}

		next := make([][]int, 0, len(pop))
		next = append(next, best) // elitism
		for len(next) < len(pop) {
			a := tournament(rng, pop, fits, s.params.TournamentSize)
			b := tournament(rng, pop, fits, s.params.TournamentSize)
			child := crossover(rng, a, b)
			child = mutate(rng, child, len(workers), s.params.MutationRate)
			next = append(next, child)
		}
		pop = next
	}

	if s.logger != nil {
		s.logger.Debug("genetic run finished", "generations", generations, "best_fitness", bestFit, "partial", partial)
	}
	return decode(s.Name(), st, best, generations, partial), nil
}

func randomGenome(rng *rand.Rand, tasks, workers int) []int {
	g := make([]int, tasks)
	for i := range g {
		if workers == 0 {
			g[i] = -1
			continue
		}
		g[i] = rng.Intn(workers)
	}
	return g
}

// tournament picks the fittest of k random genomes.
func tournament(rng *rand.Rand, pop [][]int, fits []float64, k int) []int {
	if k < 2 {
		k = 2
	}
	best := rng.Intn(len(pop))
	for i := 1; i < k; i++ {
		c := rng.Intn(len(pop))
		if fits[c] > fits[best] {
			best = c
		}
	}
	return pop[best]
}

// crossover splices a and b at a single random point into a new genome.
func crossover(rng *rand.Rand, a, b []int) []int {
	child := make([]int, len(a))
	point := rng.Intn(len(a))
	copy(child, a[:point])
	copy(child[point:], b[point:])
	return child
}

// mutate reassigns each gene with the given probability, returning a copy.
func mutate(rng *rand.Rand, g []int, workers int, rate float64) []int {
	out := make([]int, len(g))
	copy(out, g)
	for i := range out {
		if workers > 0 && rng.Float64() < rate {
			out[i] = rng.Intn(workers)
		}
	}
	return out
}

// decode converts the best genome into the shared result shape, surfacing
// constraint violations as warnings and unassigned entries.
func decode(strategy string, st *runState, genome []int, iterations int, partial bool) *models.OptimizationResult {
	var (
		assignments []models.Assignment
		terms       []Terms
		unassigned  []models.UnassignedTask
		warnings    []models.Warning
	)
	load := make([]float64, len(st.workers))
	for j, w := range st.workers {
		load[j] = w.CapacityUtilization
	}

	for i, j := range genome {
		task := st.tasks[i]
		if j < 0 || !st.skillOK[i][j] {
			unassigned = append(unassigned, models.UnassignedTask{
				TaskID: task.ID,
				Reason: "no feasible placement survived optimization",
			})
			warnings = append(warnings, models.Warning{
				Code:    models.WarnNoFeasibleAssignment,
				Message: "no feasible candidate for task",
				TaskIDs: []string{task.ID.String()},
			})
			continue
		}
		load[j] += st.demand[i]
		if load[j] > st.cons.MaxUtilization {
			warnings = append(warnings, models.Warning{
				Code: models.WarnOverload,
				Message: fmt.Sprintf("assignment pushes worker %s to %.0f%% utilization, above the %.0f%% ceiling",
					st.workers[j].ID, load[j], st.cons.MaxUtilization),
				TaskIDs: []string{task.ID.String()},
			})
		}
		score := st.scores[i][j]
		t := st.terms[i][j]
		assignments = append(assignments, models.Assignment{
			TaskID:     task.ID,
			WorkerID:   st.workers[j].ID,
			Score:      score,
			Confidence: confidenceFor(score),
			Reasoning:  reasoning(t),
			Impact:     assignmentImpact(score, t),
		})
		terms = append(terms, t)
	}
	return buildResult(strategy, st.tasks, st.workers, assignments, terms, unassigned, warnings, iterations, partial, st.cons.Now)
}
