package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskloom/backend/internal/models"
	"github.com/taskloom/backend/internal/optimize"
	"github.com/taskloom/backend/internal/orchestrator"
	"github.com/taskloom/backend/internal/risk"
	"github.com/taskloom/backend/internal/scoring"
)

// Coordinator is the subset of the orchestration engine the handlers call.
type Coordinator interface {
	Orchestrate(ctx context.Context, projectID uuid.UUID, tasks []*models.Task, deps []*models.Dependency, opts orchestrator.Options) (*models.OrchestrationResult, error)
	UpdateTaskStatus(ctx context.Context, projectID, taskID uuid.UUID, newStatus string, metadata map[string]any) (*models.StatusUpdateResult, error)
	ScorePriority(task *models.Task, sctx *scoring.Context) *models.PriorityScore
	PredictBottleneck(task *models.Task, rctx *risk.Context) *models.BottleneckPrediction
	OptimizeAssignments(ctx context.Context, tasks []*models.Task, strategyName string, now time.Time) (*models.OptimizationResult, error)
	RecommendRouting(ctx context.Context, task *models.Task, now time.Time) (*models.RoutingRecommendation, error)
}

// OrchestrationHandler serves the /v1 scheduling and assignment endpoints.
type OrchestrationHandler struct {
	Engine Coordinator
	Logger *slog.Logger
}

// --- POST /v1/orchestrate ---

type orchestrateRequest struct {
	ProjectID    string               `json:"project_id"`
	Tasks        []*models.Task       `json:"tasks"`
	Dependencies []*models.Dependency `json:"dependencies"`
	Now          *time.Time           `json:"now,omitempty"`
	Capacities   map[string]float64   `json:"capacities,omitempty"`
}

// Orchestrate handles POST /v1/orchestrate: build the dependency graph,
// schedule the critical path, and return the per-task timeline.
func (h *OrchestrationHandler) Orchestrate(w http.ResponseWriter, r *http.Request) {
	var req orchestrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		http.Error(w, `{"error":"invalid project_id"}`, http.StatusBadRequest)
		return
	}
	if len(req.Tasks) == 0 {
		http.Error(w, `{"error":"tasks are required"}`, http.StatusBadRequest)
		return
	}

	opts := orchestrator.Options{Capacities: req.Capacities}
	if req.Now != nil {
		opts.Now = *req.Now
	}

	res, err := h.Engine.Orchestrate(r.Context(), projectID, req.Tasks, req.Dependencies, opts)
	if err != nil {
		h.writeEngineError(w, "orchestrate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- POST /v1/tasks/{id}/status ---

type statusUpdateRequest struct {
	ProjectID string         `json:"project_id"`
	Status    string         `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UpdateStatus handles POST /v1/tasks/{id}/status. Repeating the current
// status is a no-op success, so webhook retries stay harmless.
func (h *OrchestrationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractTaskID(r)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		http.Error(w, `{"error":"invalid project_id"}`, http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, `{"error":"status is required"}`, http.StatusBadRequest)
		return
	}

	res, err := h.Engine.UpdateTaskStatus(r.Context(), projectID, taskID, req.Status, req.Metadata)
	if err != nil {
		h.writeEngineError(w, "update status", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- POST /v1/score ---

type scoreRequest struct {
	Task            *models.Task            `json:"task"`
	Now             *time.Time              `json:"now,omitempty"`
	BusinessValue   float64                 `json:"business_value,omitempty"`
	RiskProbability float64                 `json:"risk_probability,omitempty"`
	CategoryWeights map[string]float64      `json:"category_weights,omitempty"`
	Assignee        *models.WorkerProfile   `json:"assignee,omitempty"`
	Team            []*models.WorkerProfile `json:"team,omitempty"`
}

// Score handles POST /v1/score.
func (h *OrchestrationHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Task == nil {
		http.Error(w, `{"error":"task is required"}`, http.StatusBadRequest)
		return
	}
	if err := req.Task.Validate(); err != nil {
		h.writeEngineError(w, "score", err)
		return
	}

	sctx := &scoring.Context{
		Assignee:        req.Assignee,
		Team:            req.Team,
		BusinessValue:   req.BusinessValue,
		RiskProbability: req.RiskProbability,
		CategoryWeights: req.CategoryWeights,
	}
	if req.Now != nil {
		sctx.Now = *req.Now
	}

	writeJSON(w, http.StatusOK, h.Engine.ScorePriority(req.Task, sctx))
}

// --- POST /v1/bottleneck ---

type bottleneckRequest struct {
	Task     *models.Task            `json:"task"`
	Assignee *models.WorkerProfile   `json:"assignee,omitempty"`
	Team     []*models.WorkerProfile `json:"team,omitempty"`
}

// Bottleneck handles POST /v1/bottleneck.
func (h *OrchestrationHandler) Bottleneck(w http.ResponseWriter, r *http.Request) {
	var req bottleneckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Task == nil {
		http.Error(w, `{"error":"task is required"}`, http.StatusBadRequest)
		return
	}
	if err := req.Task.Validate(); err != nil {
		h.writeEngineError(w, "bottleneck", err)
		return
	}

	rctx := &risk.Context{Assignee: req.Assignee, Team: req.Team}
	writeJSON(w, http.StatusOK, h.Engine.PredictBottleneck(req.Task, rctx))
}

// --- POST /v1/optimize ---

type optimizeRequest struct {
	Tasks    []*models.Task `json:"tasks"`
	Strategy string         `json:"strategy,omitempty"`
	Now      *time.Time     `json:"now,omitempty"`
}

// Optimize handles POST /v1/optimize. A partial result from a timed-out
// strategy still returns 200 with partial=true and a timeout warning.
func (h *OrchestrationHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if len(req.Tasks) == 0 {
		http.Error(w, `{"error":"tasks are required"}`, http.StatusBadRequest)
		return
	}

	now := time.Now()
	if req.Now != nil {
		now = *req.Now
	}

	res, err := h.Engine.OptimizeAssignments(r.Context(), req.Tasks, req.Strategy, now)
	if err != nil {
		h.writeEngineError(w, "optimize", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- POST /v1/route ---

type routeRequest struct {
	Task *models.Task `json:"task"`
	Now  *time.Time   `json:"now,omitempty"`
}

// Route handles POST /v1/route.
func (h *OrchestrationHandler) Route(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Task == nil {
		http.Error(w, `{"error":"task is required"}`, http.StatusBadRequest)
		return
	}

	now := time.Now()
	if req.Now != nil {
		now = *req.Now
	}

	res, err := h.Engine.RecommendRouting(r.Context(), req.Task, now)
	if err != nil {
		h.writeEngineError(w, "route", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- GET /v1/health ---

// Health reports process liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

// writeEngineError maps the engine error taxonomy onto HTTP statuses.
func (h *OrchestrationHandler) writeEngineError(w http.ResponseWriter, op string, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, optimize.ErrUnknownStrategy):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.Logger.Error(op, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

// extractTaskID parses the task UUID from the URL path.
// Supports paths like /v1/tasks/{id}/status.
func extractTaskID(r *http.Request) (uuid.UUID, bool) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/tasks/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
