package graph

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/taskloom/backend/internal/models"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func makeTask(title string, deps ...uuid.UUID) *models.Task {
	return &models.Task{
		ID:             uuid.New(),
		Title:          title,
		Status:         models.TaskStatusPending,
		EstimatedHours: 8,
		DependsOn:      deps,
	}
}

// ---------------------------------------------------------------------------
// 1. TestBuildLinearChain
// ---------------------------------------------------------------------------

func TestBuildLinearChain(t *testing.T) {
	a := makeTask("a")
	b := makeTask("b", a.ID)
	c := makeTask("c", b.ID)

	g, err := NewBuilder().Build([]*models.Task{a, b, c}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(g.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(g.Nodes))
	}
	if len(g.Cycles) != 0 {
		t.Fatalf("expected no cycles, got %d", len(g.Cycles))
	}

	bn := g.Nodes[b.ID]
	if len(bn.Dependencies) != 1 || bn.Dependencies[0].Task.ID != a.ID {
		t.Fatal("b should depend on a")
	}
	if len(bn.Dependents) != 1 || bn.Dependents[0].Task.ID != c.ID {
		t.Fatal("c should depend on b")
	}

	order := g.TopoOrder()
	pos := make(map[uuid.UUID]int, len(order))
	for i, n := range order {
		pos[n.Task.ID] = i
	}
	if !(pos[a.ID] < pos[b.ID] && pos[b.ID] < pos[c.ID]) {
		t.Fatalf("topological order violated: %v", pos)
	}
}

// ---------------------------------------------------------------------------
// 2. TestBuildRejectsBadInput
// ---------------------------------------------------------------------------

func TestBuildRejectsBadInput(t *testing.T) {
	b := NewBuilder()

	if _, err := b.Build(nil, nil); err == nil {
		t.Fatal("expected error for empty task set")
	}

	self := makeTask("self")
	self.DependsOn = []uuid.UUID{self.ID}
	var verr *models.ValidationError
	if _, err := b.Build([]*models.Task{self}, nil); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for self-dependency, got %v", err)
	}

	a := makeTask("a")
	dup := *a
	if _, err := b.Build([]*models.Task{a, &dup}, nil); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for duplicate id, got %v", err)
	}

	orphan := makeTask("orphan", uuid.New())
	if _, err := b.Build([]*models.Task{orphan}, nil); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown prerequisite, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// 3. TestDuplicateEdgesCollapse
// ---------------------------------------------------------------------------

func TestDuplicateEdgesCollapse(t *testing.T) {
	a := makeTask("a")
	b := makeTask("b", a.ID)

	// The same edge again through the explicit dependency list.
	deps := []*models.Dependency{
		{PrerequisiteID: a.ID, DependentID: b.ID, Kind: models.DependencyHard},
	}

	g, err := NewBuilder().Build([]*models.Task{a, b}, deps)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Nodes[b.ID].Dependencies) != 1 {
		t.Fatalf("duplicate edge should collapse, got %d dependencies", len(g.Nodes[b.ID].Dependencies))
	}
}

// ---------------------------------------------------------------------------
// 4. TestSoftDependenciesStayAdvisory
// ---------------------------------------------------------------------------

func TestSoftDependenciesStayAdvisory(t *testing.T) {
	a := makeTask("a")
	b := makeTask("b")

	deps := []*models.Dependency{
		{PrerequisiteID: a.ID, DependentID: b.ID, Kind: models.DependencySoft},
	}

	g, err := NewBuilder().Build([]*models.Task{a, b}, deps)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	bn := g.Nodes[b.ID]
	if len(bn.Dependencies) != 0 {
		t.Fatal("soft edge must not create a hard dependency")
	}
	if len(bn.SoftDeps) != 1 || bn.SoftDeps[0].Task.ID != a.ID {
		t.Fatal("soft edge should be recorded on the dependent")
	}
}

// ---------------------------------------------------------------------------
// 5. TestCycleDetection
// ---------------------------------------------------------------------------

func TestCycleDetection(t *testing.T) {
	a := makeTask("a")
	b := makeTask("b", a.ID)
	c := makeTask("c", b.ID)
	a.DependsOn = []uuid.UUID{c.ID} // close the loop
	outside := makeTask("outside")

	g, err := NewBuilder().Build([]*models.Task{a, b, c, outside}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(g.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(g.Cycles))
	}
	if len(g.Cycles[0]) != 3 {
		t.Fatalf("expected 3 tasks in the cycle, got %d", len(g.Cycles[0]))
	}
	for _, id := range []uuid.UUID{a.ID, b.ID, c.ID} {
		if !g.Nodes[id].InCycle {
			t.Fatalf("task %s should be flagged as cyclic", id)
		}
	}
	if g.Nodes[outside.ID].InCycle {
		t.Fatal("outside task must not be flagged as cyclic")
	}

	warnings := g.CycleWarnings()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if warnings[0].Code != models.WarnCycleDetected {
		t.Fatalf("unexpected warning code %s", warnings[0].Code)
	}
	if len(warnings[0].TaskIDs) != 3 {
		t.Fatalf("warning should name the 3 cyclic tasks, got %v", warnings[0].TaskIDs)
	}

	// Cyclic nodes still appear in the traversal order, after the acyclic ones.
	order := g.TopoOrder()
	if len(order) != 4 {
		t.Fatalf("expected all 4 nodes in order, got %d", len(order))
	}
	if order[0].Task.ID != outside.ID {
		t.Fatal("the acyclic node should sort before the cyclic ones")
	}
}

// ---------------------------------------------------------------------------
// 6. TestCycleDetectionDeepChain
// ---------------------------------------------------------------------------

// A dependency chain far deeper than any realistic project must still build
// and flag its closing cycle; the walk may not grow with chain length.
func TestCycleDetectionDeepChain(t *testing.T) {
	const depth = 50_000
	tasks := make([]*models.Task, depth)
	tasks[0] = makeTask("t0")
	for i := 1; i < depth; i++ {
		tasks[i] = makeTask("t", tasks[i-1].ID)
	}
	tasks[0].DependsOn = []uuid.UUID{tasks[depth-1].ID} // close the loop

	g, err := NewBuilder().Build(tasks, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(g.Cycles))
	}
	if len(g.Cycles[0]) != depth {
		t.Fatalf("expected the full chain in the cycle, got %d nodes", len(g.Cycles[0]))
	}
	for _, task := range tasks {
		if !g.Nodes[task.ID].InCycle {
			t.Fatalf("task %s should be flagged as cyclic", task.ID)
		}
	}
}
