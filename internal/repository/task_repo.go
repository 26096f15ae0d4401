package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskloom/backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Save upserts the task. Resources are stored as JSONB, dependency ids as a
// uuid array.
func (r *TaskRepo) Save(ctx context.Context, t *models.Task) error {
	resources, err := json.Marshal(t.Resources)
	if err != nil {
		return fmt.Errorf("marshal resources: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO tasks (id, project_id, title, category, complexity, priority, status, estimated_hours, due_date, compliance_required, external_dependency, client_tier, depends_on, assigned_worker_id, resources)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, category = EXCLUDED.category, complexity = EXCLUDED.complexity,
			priority = EXCLUDED.priority, status = EXCLUDED.status, estimated_hours = EXCLUDED.estimated_hours,
			due_date = EXCLUDED.due_date, compliance_required = EXCLUDED.compliance_required,
			external_dependency = EXCLUDED.external_dependency, client_tier = EXCLUDED.client_tier,
			depends_on = EXCLUDED.depends_on, assigned_worker_id = EXCLUDED.assigned_worker_id,
			resources = EXCLUDED.resources, updated_at = now()
	`, t.ID, t.ProjectID, t.Title, t.Category, t.Complexity, t.Priority, t.Status, t.EstimatedHours,
		t.DueDate, t.ComplianceRequired, t.ExternalDependency, t.ClientTier, t.DependsOn, t.AssignedWorkerID, resources)
	return err
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, project_id, title, category, complexity, priority, status, estimated_hours, due_date, compliance_required, external_dependency, client_tier, depends_on, assigned_worker_id, resources, created_at, updated_at
		FROM tasks WHERE id = $1
	`, id)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	return t, err
}

func (r *TaskRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, title, category, complexity, priority, status, estimated_hours, due_date, compliance_required, external_dependency, client_tier, depends_on, assigned_worker_id, resources, created_at, updated_at
		FROM tasks WHERE project_id = $1 ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var resources []byte
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Category, &t.Complexity, &t.Priority, &t.Status,
		&t.EstimatedHours, &t.DueDate, &t.ComplianceRequired, &t.ExternalDependency, &t.ClientTier,
		&t.DependsOn, &t.AssignedWorkerID, &resources, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if len(resources) > 0 {
		if err := json.Unmarshal(resources, &t.Resources); err != nil {
			return nil, fmt.Errorf("unmarshal resources: %w", err)
		}
	}
	return &t, nil
}
