package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskloom/backend/internal/models"
)

// WorkerRepo is the client of the worker-directory collaborator's mirror
// table. It satisfies the coordinator's Directory interface.
type WorkerRepo struct {
	pool *pgxpool.Pool
}

func NewWorkerRepo(pool *pgxpool.Pool) *WorkerRepo {
	return &WorkerRepo{pool: pool}
}

func (r *WorkerRepo) ListWorkers(ctx context.Context) ([]*models.WorkerProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, role, skills, capacity_utilization, optimal_capacity, availability, performance, preferences, updated_at
		FROM worker_profiles ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.WorkerProfile
	for rows.Next() {
		var w models.WorkerProfile
		var skills, availability, performance, preferences []byte
		if err := rows.Scan(&w.ID, &w.Name, &w.Role, &skills, &w.CapacityUtilization, &w.OptimalCapacity,
			&availability, &performance, &preferences, &w.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalInto(skills, &w.Skills); err != nil {
			return nil, fmt.Errorf("worker %s skills: %w", w.ID, err)
		}
		if err := unmarshalInto(availability, &w.Availability); err != nil {
			return nil, fmt.Errorf("worker %s availability: %w", w.ID, err)
		}
		if err := unmarshalInto(performance, &w.Performance); err != nil {
			return nil, fmt.Errorf("worker %s performance: %w", w.ID, err)
		}
		if err := unmarshalInto(preferences, &w.Preferences); err != nil {
			return nil, fmt.Errorf("worker %s preferences: %w", w.ID, err)
		}
		list = append(list, &w)
	}
	return list, rows.Err()
}

// Save upserts a worker profile snapshot from the directory collaborator.
func (r *WorkerRepo) Save(ctx context.Context, w *models.WorkerProfile) error {
	skills, err := json.Marshal(w.Skills)
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	availability, err := json.Marshal(w.Availability)
	if err != nil {
		return fmt.Errorf("marshal availability: %w", err)
	}
	performance, err := json.Marshal(w.Performance)
	if err != nil {
		return fmt.Errorf("marshal performance: %w", err)
	}
	preferences, err := json.Marshal(w.Preferences)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO worker_profiles (id, name, role, skills, capacity_utilization, optimal_capacity, availability, performance, preferences)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, role = EXCLUDED.role, skills = EXCLUDED.skills,
			capacity_utilization = EXCLUDED.capacity_utilization, optimal_capacity = EXCLUDED.optimal_capacity,
			availability = EXCLUDED.availability, performance = EXCLUDED.performance,
			preferences = EXCLUDED.preferences, updated_at = now()
	`, w.ID, w.Name, w.Role, skills, w.CapacityUtilization, w.OptimalCapacity, availability, performance, preferences)
	return err
}

func unmarshalInto(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
