package graph

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustGraph(t *testing.T, tasks ...*Task) *TaskGraph {
	t.Helper()
	g, err := FromTasks(tasks...)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func TestAdd_PreservesInsertionOrder(t *testing.T) {
	g := mustGraph(t,
		&Task{ID: "TASK-003"},
		&Task{ID: "TASK-001"},
		&Task{ID: "TASK-002"},
	)

	if diff := cmp.Diff([]string{"TASK-003", "TASK-001", "TASK-002"}, g.IDs()); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}
	if g.TaskCount() != 3 {
		t.Errorf("expected 3 tasks, got %d", g.TaskCount())
	}
}

func TestAdd_Duplicate(t *testing.T) {
	g := mustGraph(t, &Task{ID: "T001", Name: "first"})
	if err := g.Add(&Task{ID: "T001", Name: "second"}); err == nil {
		t.Fatal("expected duplicate id error")
	}
	if g.Tasks["T001"].Name != "first" {
		t.Errorf("duplicate add must not replace the original task")
	}
	if g.TaskCount() != 1 {
		t.Errorf("expected 1 task, got %d", g.TaskCount())
	}
}

func TestAdd_CopiesTask(t *testing.T) {
	deps := []string{"T001"}
	src := &Task{ID: "T002", Dependencies: deps, EstimatedMinutes: -5}
	g := mustGraph(t, &Task{ID: "T001"}, src)

	deps[0] = "T999"
	src.Name = "mutated"

	got := g.Tasks["T002"]
	if got.Dependencies[0] != "T001" {
		t.Errorf("dependencies leaked caller mutation: %v", got.Dependencies)
	}
	if got.Name != "" {
		t.Errorf("name leaked caller mutation: %q", got.Name)
	}
	if got.EstimatedMinutes != 0 {
		t.Errorf("negative estimate should clamp to 0, got %d", got.EstimatedMinutes)
	}
}

func TestDependentsAndRoots(t *testing.T) {
	// A -> B, A -> C, B -> D, C -> D (edges point at dependents)
	g := mustGraph(t,
		&Task{ID: "a"},
		&Task{ID: "b", Dependencies: []string{"a"}},
		&Task{ID: "c", Dependencies: []string{"a"}},
		&Task{ID: "d", Dependencies: []string{"b", "c"}},
	)

	if diff := cmp.Diff([]string{"b", "c"}, g.Dependents("a")); diff != "" {
		t.Errorf("Dependents(a) mismatch (-want +got):\n%s", diff)
	}
	if got := g.Dependents("d"); len(got) != 0 {
		t.Errorf("expected d to have no dependents, got %v", got)
	}
	if diff := cmp.Diff([]string{"a"}, g.Roots()); diff != "" {
		t.Errorf("Roots() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter(t *testing.T) {
	g := mustGraph(t,
		&Task{ID: "a", EstimatedMinutes: 30},
		&Task{ID: "b", Dependencies: []string{"a"}, EstimatedMinutes: 90},
		&Task{ID: "c", Dependencies: []string{"b"}, EstimatedMinutes: 30},
	)

	filtered := g.Filter(func(t *Task) bool { return t.EstimatedMinutes < 60 })

	if filtered.TaskCount() != 2 {
		t.Fatalf("expected 2 tasks after filter, got %d", filtered.TaskCount())
	}
	if filtered.Has("b") {
		t.Error("task b should have been filtered out")
	}
	if deps := filtered.Tasks["c"].Dependencies; len(deps) != 0 {
		t.Errorf("expected dangling dependency to be dropped, got %v", deps)
	}
	if deps := g.Tasks["c"].Dependencies; len(deps) != 1 {
		t.Errorf("filter must not mutate the source graph, got %v", deps)
	}
}

func TestValidate_Valid(t *testing.T) {
	g := mustGraph(t,
		&Task{ID: "TASK-001"},
		&Task{ID: "TASK-002"},
		&Task{ID: "TASK-003", Dependencies: []string{"TASK-001", "TASK-002"}},
	)

	res := g.Validate()
	if !res.Valid {
		t.Fatalf("expected valid graph, got errors %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Errorf("expected no errors, got %v", res.Errors)
	}
}

func TestValidate_MissingReference(t *testing.T) {
	g := mustGraph(t,
		&Task{ID: "TASK-001"},
		&Task{ID: "TASK-002", Dependencies: []string{"TASK-999"}},
	)

	res := g.Validate()
	if res.Valid {
		t.Fatal("expected invalid graph")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", res.Errors)
	}
	msg := res.Errors[0]
	if !strings.Contains(msg, "TASK-002") || !strings.Contains(msg, "TASK-999") || !strings.Contains(msg, "non-existent") {
		t.Errorf("unexpected error text: %q", msg)
	}
	if g.Has("TASK-999") {
		t.Error("missing reference must not be added as a task")
	}
}

func TestValidate_MutualCycle(t *testing.T) {
	g := mustGraph(t,
		&Task{ID: "TASK-001", Dependencies: []string{"TASK-002"}},
		&Task{ID: "TASK-002", Dependencies: []string{"TASK-001"}},
	)

	res := g.Validate()
	if res.Valid {
		t.Fatal("expected invalid graph")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly one cycle error, got %v", res.Errors)
	}
	if !strings.Contains(res.Errors[0], "circular dependency") {
		t.Errorf("expected circular dependency error, got %q", res.Errors[0])
	}
	if !strings.Contains(res.Errors[0], "TASK-001 -> TASK-002 -> TASK-001") {
		t.Errorf("expected cycle path in error, got %q", res.Errors[0])
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	g := mustGraph(t,
		&Task{ID: "a", Dependencies: []string{"a"}},
		&Task{ID: "b", Dependencies: []string{"ghost"}},
		&Task{ID: "c", Dependencies: []string{"d"}},
		&Task{ID: "d", Dependencies: []string{"c", "phantom"}},
	)

	res := g.Validate()
	if res.Valid {
		t.Fatal("expected invalid graph")
	}
	// two missing references + two disjoint cycles
	if len(res.Errors) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(res.Errors), res.Errors)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	g := mustGraph(t,
		&Task{ID: "a", Dependencies: []string{"b"}},
		&Task{ID: "b", Dependencies: []string{"a", "zzz"}},
	)

	first := g.Validate()
	second := g.Validate()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Validate is not idempotent (-first +second):\n%s", diff)
	}
}

func TestDetectCycle_NoCycle(t *testing.T) {
	g := mustGraph(t,
		&Task{ID: "a"},
		&Task{ID: "b", Dependencies: []string{"a"}},
	)

	cycle := g.DetectCycle()
	if cycle == nil || len(cycle) != 0 {
		t.Errorf("expected empty cycle, got %v", cycle)
	}
}

func TestDetectCycle_WithCycle(t *testing.T) {
	// a needs b, b needs c, c needs a
	g := mustGraph(t,
		&Task{ID: "a", Dependencies: []string{"b"}},
		&Task{ID: "b", Dependencies: []string{"c"}},
		&Task{ID: "c", Dependencies: []string{"a"}},
	)

	if diff := cmp.Diff([]string{"a", "b", "c"}, g.DetectCycle()); diff != "" {
		t.Errorf("DetectCycle() mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectCycle_SelfLoop(t *testing.T) {
	g := mustGraph(t,
		&Task{ID: "x"},
		&Task{ID: "T001", Dependencies: []string{"T001"}},
	)

	if diff := cmp.Diff([]string{"T001"}, g.DetectCycle()); diff != "" {
		t.Errorf("DetectCycle() mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectCycle_SuffixOfStack(t *testing.T) {
	// entry -> a -> b -> c -> a: the cycle excludes the entry node.
	g := mustGraph(t,
		&Task{ID: "entry", Dependencies: []string{"a"}},
		&Task{ID: "a", Dependencies: []string{"b"}},
		&Task{ID: "b", Dependencies: []string{"c"}},
		&Task{ID: "c", Dependencies: []string{"a"}},
	)

	if diff := cmp.Diff([]string{"a", "b", "c"}, g.DetectCycle()); diff != "" {
		t.Errorf("DetectCycle() mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectCycles_IgnoresUnknownIDs(t *testing.T) {
	g := mustGraph(t, &Task{ID: "a", Dependencies: []string{"missing"}})
	if cycles := g.DetectCycles(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestFormatCycle(t *testing.T) {
	if got := FormatCycle([]string{"a", "b"}); got != "a -> b -> a" {
		t.Errorf("unexpected format %q", got)
	}
	if got := FormatCycle([]string{"a"}); got != "a -> a" {
		t.Errorf("unexpected self-loop format %q", got)
	}
	if got := FormatCycle(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
