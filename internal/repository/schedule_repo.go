package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskloom/backend/internal/models"
)

// ScheduleRepo persists orchestration results per project as JSONB
// snapshots; only the latest snapshot per project is kept.
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

func (r *ScheduleRepo) Save(ctx context.Context, projectID uuid.UUID, res *models.OrchestrationResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO schedules (project_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (project_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
	`, projectID, payload)
	return err
}

func (r *ScheduleRepo) Get(ctx context.Context, projectID uuid.UUID) (*models.OrchestrationResult, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM schedules WHERE project_id = $1`, projectID).Scan(&payload)
	if err != nil {
		return nil, err
	}
	var res models.OrchestrationResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("unmarshal schedule: %w", err)
	}
	return &res, nil
}

// Store bundles the task, dependency, and schedule repositories into the
// coordinator's persistence collaborator.
type Store struct {
	Tasks        *TaskRepo
	Dependencies *DependencyRepo
	Schedules    *ScheduleRepo
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Tasks:        NewTaskRepo(pool),
		Dependencies: NewDependencyRepo(pool),
		Schedules:    NewScheduleRepo(pool),
	}
}

func (s *Store) SaveTask(ctx context.Context, t *models.Task) error {
	return s.Tasks.Save(ctx, t)
}

func (s *Store) SaveSchedule(ctx context.Context, projectID uuid.UUID, res *models.OrchestrationResult) error {
	return s.Schedules.Save(ctx, projectID, res)
}

func (s *Store) ReplaceDependencies(ctx context.Context, projectID uuid.UUID, deps []*models.Dependency) error {
	return s.Dependencies.Replace(ctx, projectID, deps)
}
