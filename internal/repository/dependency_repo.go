package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskloom/backend/internal/models"
)

type DependencyRepo struct {
	pool *pgxpool.Pool
}

func NewDependencyRepo(pool *pgxpool.Pool) *DependencyRepo {
	return &DependencyRepo{pool: pool}
}

func (r *DependencyRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Dependency, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.prerequisite_id, d.dependent_id, d.kind
		FROM dependencies d
		JOIN tasks t ON t.id = d.dependent_id
		WHERE t.project_id = $1
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Dependency
	for rows.Next() {
		var d models.Dependency
		if err := rows.Scan(&d.PrerequisiteID, &d.DependentID, &d.Kind); err != nil {
			return nil, err
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

// Replace swaps the dependency set for one project atomically.
func (r *DependencyRepo) Replace(ctx context.Context, projectID uuid.UUID, deps []*models.Dependency) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM dependencies WHERE dependent_id IN (SELECT id FROM tasks WHERE project_id = $1)
	`, projectID); err != nil {
		return err
	}
	for _, d := range deps {
		if _, err := tx.Exec(ctx, `
			INSERT INTO dependencies (prerequisite_id, dependent_id, kind) VALUES ($1, $2, $3)
		`, d.PrerequisiteID, d.DependentID, d.Kind); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
