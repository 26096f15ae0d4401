package optimize

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/taskloom/backend/internal/config"
	"github.com/taskloom/backend/internal/models"
)

// Annealing refines the greedy solution by simulated annealing: neighbors
// reassign one task, improving moves are always taken, worsening moves are
// taken with probability exp(delta/temperature), and the temperature cools
// geometrically until it hits the floor or the iteration cap.
type Annealing struct {
	weights config.CompositeWeights
	params  config.AnnealingParams
	seeder  *Greedy
	logger  *slog.Logger
}

func NewAnnealing(weights config.CompositeWeights, params config.AnnealingParams, seeder *Greedy, logger *slog.Logger) *Annealing {
	return &Annealing{weights: weights, params: params, seeder: seeder, logger: logger}
}

func (s *Annealing) Name() string { return StrategyAnnealing }

func (s *Annealing) Optimize(ctx context.Context, tasks []*models.Task, workers []*models.WorkerProfile, cons Constraints) (*models.OptimizationResult, error) {
	if len(tasks) == 0 {
		return nil, &models.ValidationError{Field: "tasks", Reason: "task set is empty"}
	}
	sorted := sortTasks(tasks)
	st := newRunState(sorted, workers, s.weights, cons)

	// Seed from greedy so annealing starts near a reasonable solution.
	seedRes, err := s.seeder.Optimize(ctx, tasks, workers, cons)
	if err != nil {
		return nil, err
	}
	current := genomeFromResult(st, seedRes)
	currentFit := st.fitness(current)
	best := current
	bestFit := currentFit

	seed := s.params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	temp := s.params.InitialTemperature
	partial := false
	iterations := 0

	for iter := 0; iter < s.params.MaxIterations && temp > s.params.TemperatureFloor; iter++ {
		if iter%64 == 0 && ctx.Err() != nil {
			partial = true
			break
		}
		iterations = iter + 1

		neighbor := neighborOf(rng, current, len(workers))
		fit := st.fitness(neighbor)
		delta := fit - currentFit
		if delta >= 0 || rng.Float64() < math.Exp(delta/temp) {
			current = neighbor
			currentFit = fit
			if fit > bestFit {
				best = neighbor
				bestFit = fit
			}
		}
		temp *= s.params.CoolingRate
	}

	if s.logger != nil {
		s.logger.Debug("annealing run finished", "iterations", iterations, "best_fitness", bestFit, "final_temperature", temp, "partial", partial)
	}
	return decode(s.Name(), st, best, iterations, partial), nil
}

// genomeFromResult reconstructs a genome from a prior strategy's result.
// Tasks the seeder left unassigned stay -1.
func genomeFromResult(st *runState, res *models.OptimizationResult) []int {
	workerIdx := make(map[string]int, len(st.workers))
	for j, w := range st.workers {
		workerIdx[w.ID.String()] = j
	}
	byTask := make(map[string]int, len(res.Assignments))
	for _, a := range res.Assignments {
		if j, ok := workerIdx[a.WorkerID.String()]; ok {
			byTask[a.TaskID.String()] = j
		}
	}
	genome := make([]int, len(st.tasks))
	for i, task := range st.tasks {
		if j, ok := byTask[task.ID.String()]; ok {
			genome[i] = j
		} else {
			genome[i] = -1
		}
	}
	return genome
}

// neighborOf reassigns one random task to a random worker, returning a copy.
func neighborOf(rng *rand.Rand, genome []int, workers int) []int {
	out := make([]int, len(genome))
	copy(out, genome)
	if len(out) == 0 || workers == 0 {
		return out
	}
	out[rng.Intn(len(out))] = rng.Intn(workers)
	return out
}
