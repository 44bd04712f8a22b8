package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joshharrison/planloom/internal/graph"
)

func testGraph(t *testing.T) *graph.TaskGraph {
	t.Helper()
	g, err := graph.FromTasks(
		&graph.Task{ID: "TASK-1"},
		&graph.Task{ID: "TASK-2", Dependencies: []string{"TASK-1"}},
		&graph.Task{ID: "TASK-10", Dependencies: []string{"TASK-2"}},
		&graph.Task{ID: "T001", Dependencies: []string{"TASK-1", "TASK-2"}},
	)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func TestApplyFilter(t *testing.T) {
	g := testGraph(t)

	got, err := applyFilter(g, "TASK-1*, T0??")
	if err != nil {
		t.Fatalf("applyFilter: %v", err)
	}
	if diff := cmp.Diff([]string{"TASK-1", "TASK-10", "T001"}, got.IDs()); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if deps := got.Tasks["TASK-10"].Dependencies; len(deps) != 0 {
		t.Errorf("expected dropped deps, got %v", deps)
	}

	for _, bad := range []string{"", " , ", "TASK-["} {
		if _, err := applyFilter(g, bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestBlockedBy(t *testing.T) {
	g := testGraph(t)
	completed := []string{"TASK-1"}
	ready := g.NextWave(completed)

	want := map[string][]string{
		"TASK-10": {"TASK-2"},
		"T001":    {"TASK-2"},
	}
	if diff := cmp.Diff(want, blockedBy(g, completed, ready)); diff != "" {
		t.Errorf("blocked mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckKnown(t *testing.T) {
	g := testGraph(t)
	if err := checkKnown(g, []string{"TASK-1", "T001"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := checkKnown(g, []string{"TASK-1", "TASK-99", "X"})
	if err == nil || err.Error() != "unknown task(s): TASK-99, X" {
		t.Errorf("unexpected error: %v", err)
	}
}
