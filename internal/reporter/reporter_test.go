package reporter

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"

	"github.com/joshharrison/planloom/internal/cpm"
	"github.com/joshharrison/planloom/internal/graph"
	"github.com/joshharrison/planloom/internal/planner"
	"github.com/joshharrison/planloom/internal/state"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func buildGraph(t *testing.T, tasks ...*graph.Task) *graph.TaskGraph {
	t.Helper()
	g, err := graph.FromTasks(tasks...)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func sampleGraph(t *testing.T) *graph.TaskGraph {
	t.Helper()
	return buildGraph(t,
		&graph.Task{ID: "TASK-001", Name: "Set up db", EstimatedMinutes: 120},
		&graph.Task{ID: "TASK-002", Name: "API", EstimatedMinutes: 90},
		&graph.Task{ID: "TASK-003", Name: "Frontend", Dependencies: []string{"TASK-001", "TASK-002"}, EstimatedMinutes: 45},
	)
}

func TestGenerateExecutionPlan(t *testing.T) {
	want := `Execution Plan
==============
Tasks: 3
Waves: 2

Wave 1 (2 tasks, 120m):
  - TASK-001: Set up db (120m)
  - TASK-002: API (90m)

Wave 2 (1 task, 45m):
  - TASK-003: Frontend (45m)

Critical path: TASK-001 -> TASK-003 (165m)

Time estimates:
  Sequential: 255m
  Parallel:   165m
  Saved:      90m (35.3%)

Parallelization score: 25.0/100 (mostly sequential)
`
	got := GenerateExecutionPlan(sampleGraph(t))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateExecutionPlan_Deterministic(t *testing.T) {
	g := sampleGraph(t)
	if GenerateExecutionPlan(g) != GenerateExecutionPlan(g) {
		t.Error("expected identical output for the same graph")
	}
}

func TestGenerateExecutionPlan_NoEstimates(t *testing.T) {
	g := buildGraph(t,
		&graph.Task{ID: "T001"},
		&graph.Task{ID: "T002", Name: "Second", Dependencies: []string{"T001"}},
	)
	out := GenerateExecutionPlan(g)
	for _, want := range []string{"  - T001 (0m)", "  - T002: Second (0m)", "Sequential: 0m", "Saved:      0m (0.0%)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestGenerateExecutionPlan_Cycle(t *testing.T) {
	g := buildGraph(t,
		&graph.Task{ID: "TASK-001", Dependencies: []string{"TASK-002"}},
		&graph.Task{ID: "TASK-002", Dependencies: []string{"TASK-001"}},
	)
	out := GenerateExecutionPlan(g)
	if !strings.Contains(out, "circular dependency detected: TASK-001 -> TASK-002 -> TASK-001") {
		t.Errorf("expected cycle error in:\n%s", out)
	}
	if strings.Contains(out, "Wave 1") {
		t.Errorf("invalid graph must not render waves:\n%s", out)
	}
}

func TestGenerateExecutionPlan_MissingDependency(t *testing.T) {
	g := buildGraph(t, &graph.Task{ID: "TASK-002", Dependencies: []string{"TASK-999"}})
	out := GenerateExecutionPlan(g)
	if !strings.Contains(out, "task TASK-002 references non-existent task TASK-999") {
		t.Errorf("expected missing reference in:\n%s", out)
	}
}

func TestGenerateExecutionPlan_Empty(t *testing.T) {
	out := GenerateExecutionPlan(graph.New())
	for _, want := range []string{"Tasks: 0", "Waves: 0", "Critical path: none", "Parallelization score: 0.0/100"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func makePlan(t *testing.T) *planner.ExecutionPlan {
	t.Helper()
	plan, err := planner.Generate(sampleGraph(t), planner.PlanConfig{Source: "PLAN.md"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return plan
}

func makeState(t *testing.T, done ...string) *state.Progress {
	t.Helper()
	st, err := state.Open(t.TempDir(), "PLAN.md")
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	st.MarkComplete(done...)
	return st
}

func TestPrintStatus(t *testing.T) {
	rpt := New(makePlan(t), makeState(t, "TASK-001"))

	var buf bytes.Buffer
	rpt.PrintStatus(&buf)

	output := buf.String()
	for _, want := range []string{
		"Planloom",
		"Wave 1/2",
		"1 of 3 tasks complete",
		"Next: TASK-002",
		"WAVE 1 (partial)",
		"WAVE 2 (blocked)",
		"Set up db",
		"⚡",
		"[~2h15m remaining]",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestPrintStatus_TruncatesByRune(t *testing.T) {
	g := buildGraph(t, &graph.Task{ID: "TASK-001", Name: strings.Repeat("é", 50)})
	plan, err := planner.Generate(g, planner.PlanConfig{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var buf bytes.Buffer
	New(plan, nil).PrintStatus(&buf)

	out := buf.String()
	if !utf8.ValidString(out) {
		t.Errorf("status output is not valid UTF-8:\n%q", out)
	}
	if !strings.Contains(out, strings.Repeat("é", 37)+"...") {
		t.Errorf("expected title cut to 37 runes:\n%s", out)
	}
}

func TestStatusProgression(t *testing.T) {
	plan := makePlan(t)

	cases := []struct {
		done []string
		next []string
	}{
		{nil, []string{"TASK-001", "TASK-002"}},
		{[]string{"TASK-001"}, []string{"TASK-002"}},
		{[]string{"TASK-001", "TASK-002"}, []string{"TASK-003"}},
		{[]string{"TASK-001", "TASK-002", "TASK-003"}, []string{}},
	}
	for _, tc := range cases {
		rpt := New(plan, makeState(t, tc.done...))
		if diff := cmp.Diff(tc.next, rpt.Next()); diff != "" {
			t.Errorf("done=%v: next mismatch (-want +got):\n%s", tc.done, diff)
		}
	}
}

func TestNilProgress(t *testing.T) {
	rpt := New(makePlan(t), nil)
	if diff := cmp.Diff([]string{"TASK-001", "TASK-002"}, rpt.Next()); diff != "" {
		t.Errorf("next mismatch (-want +got):\n%s", diff)
	}
	if got := rpt.waveStatus(rpt.Plan.Waves[0]); got != "ready" {
		t.Errorf("expected wave 1 ready, got %s", got)
	}
}

func TestJSON(t *testing.T) {
	plan := makePlan(t)
	rpt := New(plan, makeState(t, "TASK-001", "TASK-002"))

	data, err := rpt.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out struct {
		PlanID           string   `json:"plan_id"`
		Completed        int      `json:"completed"`
		CurrentWave      int      `json:"current_wave"`
		RemainingMinutes int      `json:"remaining_minutes"`
		Next             []string `json:"next"`
		Tasks            []struct {
			TaskID string `json:"task_id"`
			Status string `json:"status"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.PlanID != plan.ID {
		t.Errorf("expected plan id %s, got %s", plan.ID, out.PlanID)
	}
	if out.Completed != 2 || out.CurrentWave != 1 || out.RemainingMinutes != 45 {
		t.Errorf("unexpected summary %+v", out)
	}
	if diff := cmp.Diff([]string{"TASK-003"}, out.Next); diff != "" {
		t.Errorf("next mismatch (-want +got):\n%s", diff)
	}
	if len(out.Tasks) != 3 || out.Tasks[2].Status != StatusReady {
		t.Errorf("unexpected tasks %+v", out.Tasks)
	}
}

func TestWritePlan(t *testing.T) {
	var buf bytes.Buffer
	WritePlan(&buf, makePlan(t))

	out := buf.String()
	for _, want := range []string{
		"Planloom Execution Plan",
		"Source:    PLAN.md",
		"TASK-001 → TASK-003",
		"4h15m sequential, 2h45m parallel, 1h30m saved (35.3%)",
		"Score:     25.0/100",
		"Wave 2 (1 tasks, 45m, after wave 1)",
		"⚡ critical",
		"slack 30m",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestWriteASCII(t *testing.T) {
	var buf bytes.Buffer
	WriteASCII(&buf, makePlan(t))

	out := buf.String()
	if !strings.Contains(out, "[TASK-001] Set up db") {
		t.Errorf("expected task line in:\n%s", out)
	}
	if strings.Count(out, "└──→ TASK-003") != 2 {
		t.Errorf("expected two edges into TASK-003:\n%s", out)
	}
}

func TestWriteDOT(t *testing.T) {
	g := buildGraph(t,
		&graph.Task{ID: "a", Name: `say "hi"`, EstimatedMinutes: 10},
		&graph.Task{ID: "b", Dependencies: []string{"a"}, EstimatedMinutes: 5},
		&graph.Task{ID: "c", EstimatedMinutes: 1},
	)
	result, err := cpm.Analyze(g)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var buf bytes.Buffer
	WriteDOT(&buf, g, result)

	out := buf.String()
	for _, want := range []string{
		"digraph planloom {",
		`"a" [label="a\nsay \"hi\"\n10m", style="rounded,bold", color=red];`,
		`"c" [label="c\n1m"];`,
		`"a" -> "b" [color=red, penwidth=2];`,
		`{ rank=source; "a"; "c"; }`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestToGraph(t *testing.T) {
	plan := makePlan(t)
	g := ToGraph(plan, makeState(t, "TASK-002"))

	if len(g.Nodes) != 3 || len(g.Edges) != 2 {
		t.Fatalf("expected 3 nodes and 2 edges, got %d and %d", len(g.Nodes), len(g.Edges))
	}
	statuses := map[string]string{}
	for _, n := range g.Nodes {
		statuses[n.ID] = n.Status
	}
	want := map[string]string{"TASK-001": "ready", "TASK-002": "completed", "TASK-003": "blocked"}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]GraphEdge{{From: "TASK-001", To: "TASK-003"}, {From: "TASK-002", To: "TASK-003"}}, g.Edges); diff != "" {
		t.Errorf("edge mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := WriteGraphJSON(&buf, plan, nil); err != nil {
		t.Fatalf("WriteGraphJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"metadata"`) {
		t.Errorf("expected metadata in JSON:\n%s", buf.String())
	}
}
