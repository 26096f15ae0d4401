package models

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{TaskStatusPending, TaskStatusAssigned, true},
		{TaskStatusPending, TaskStatusCancelled, true},
		{TaskStatusPending, TaskStatusCompleted, false},
		{TaskStatusPending, TaskStatusInProgress, false},
		{TaskStatusAssigned, TaskStatusInProgress, true},
		{TaskStatusAssigned, TaskStatusBlocked, true},
		{TaskStatusInProgress, TaskStatusCompleted, true},
		{TaskStatusInProgress, TaskStatusPending, false},
		{TaskStatusBlocked, TaskStatusInProgress, true},
		{TaskStatusBlocked, TaskStatusCompleted, false},
		{TaskStatusCompleted, TaskStatusInProgress, false},
		{TaskStatusCancelled, TaskStatusPending, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []string{TaskStatusCompleted, TaskStatusCancelled} {
		if !IsTerminalStatus(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []string{TaskStatusPending, TaskStatusAssigned, TaskStatusInProgress, TaskStatusBlocked} {
		if IsTerminalStatus(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestTaskValidate(t *testing.T) {
	var verr *ValidationError

	missing := &Task{Title: "no id"}
	if err := missing.Validate(); !errors.As(err, &verr) || verr.Field != "id" {
		t.Errorf("missing id: got %v", err)
	}

	negative := &Task{ID: uuid.New(), EstimatedHours: -4}
	if err := negative.Validate(); !errors.As(err, &verr) || verr.Field != "estimated_hours" {
		t.Errorf("negative duration: got %v", err)
	}

	badStatus := &Task{ID: uuid.New(), Status: "paused"}
	if err := badStatus.Validate(); !errors.As(err, &verr) || verr.Field != "status" {
		t.Errorf("unknown status: got %v", err)
	}

	ok := &Task{ID: uuid.New(), Status: TaskStatusPending, EstimatedHours: 8,
		Resources: []ResourceRequirement{{Resource: "dba", Units: 1}}}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid task rejected: %v", err)
	}
}

func TestDependencyValidate(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	var verr *ValidationError

	self := &Dependency{PrerequisiteID: a, DependentID: a}
	if err := self.Validate(); !errors.As(err, &verr) {
		t.Errorf("self edge: got %v", err)
	}

	badKind := &Dependency{PrerequisiteID: a, DependentID: b, Kind: "optional"}
	if err := badKind.Validate(); !errors.As(err, &verr) || verr.Field != "kind" {
		t.Errorf("unknown kind: got %v", err)
	}

	implicit := &Dependency{PrerequisiteID: a, DependentID: b}
	if err := implicit.Validate(); err != nil {
		t.Errorf("unspecified kind rejected: %v", err)
	}
	if !implicit.IsHard() {
		t.Error("unspecified kind should default to hard")
	}
	soft := &Dependency{PrerequisiteID: a, DependentID: b, Kind: DependencySoft}
	if soft.IsHard() {
		t.Error("soft edge reported hard")
	}
}

func TestScaleMappings(t *testing.T) {
	if ComplexityScore(ComplexityExpert) != 4 || ComplexityScore("unheard-of") != 2 {
		t.Error("complexity scale broken")
	}
	if PriorityRank(PriorityCritical) != 4 || PriorityRank("") != 2 {
		t.Error("priority scale broken")
	}
}
