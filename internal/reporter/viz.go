package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joshharrison/planloom/internal/cpm"
	"github.com/joshharrison/planloom/internal/graph"
	"github.com/joshharrison/planloom/internal/planner"
	"github.com/joshharrison/planloom/internal/state"
	"github.com/joshharrison/planloom/internal/ui"
)

// WriteASCII prints the plan as waves with an arrow to every dependent task.
func WriteASCII(w io.Writer, plan *planner.ExecutionPlan) {
	fmt.Fprintf(w, "🔗 %s\n", ui.BoldCyan("Task Dependency Graph"))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════"))
	fmt.Fprintln(w)

	for _, wave := range plan.Waves {
		fmt.Fprintf(w, "%s 🌊 Wave %d %s\n", ui.Cyan("──"), wave.Index+1, ui.Cyan("──────────────────────────────"))
		for _, t := range wave.Tasks {
			crit := " "
			if t.IsCritical {
				crit = ui.BoldYellow("⚡")
			}
			fmt.Fprintf(w, "  %s [%s] %s\n", crit, ui.BoldMagenta(t.TaskID), t.Title)

			for _, next := range plan.Deps.Successors[t.TaskID] {
				fmt.Fprintf(w, "      %s %s\n", ui.Dim("└──→"), ui.Magenta(next))
			}
		}
		fmt.Fprintln(w)
	}
}

// WriteDOT writes g as a Graphviz digraph with edges pointing from a
// dependency to its dependent. Critical tasks and edges are drawn in red.
func WriteDOT(w io.Writer, g *graph.TaskGraph, result *cpm.CPMResult) {
	critical := func(id string) bool {
		ts, ok := result.Tasks[id]
		return ok && ts.IsCritical
	}

	fmt.Fprintln(w, "digraph planloom {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, style=rounded];")
	fmt.Fprintln(w)

	for _, t := range g.List() {
		label := dotEscape(t.ID)
		if t.Name != "" {
			label += `\n` + dotEscape(t.Name)
		}
		label += fmt.Sprintf(`\n%dm`, t.EstimatedMinutes)
		attrs := fmt.Sprintf(`label="%s"`, label)
		if critical(t.ID) {
			attrs += `, style="rounded,bold", color=red`
		}
		fmt.Fprintf(w, "  %q [%s];\n", t.ID, attrs)
	}

	// Tasks with no dependencies start the drawing.
	if roots := g.Roots(); len(roots) > 0 {
		quoted := make([]string, len(roots))
		for i, id := range roots {
			quoted[i] = fmt.Sprintf("%q", id)
		}
		fmt.Fprintf(w, "  { rank=source; %s; }\n", strings.Join(quoted, "; "))
	}

	fmt.Fprintln(w)

	for _, t := range g.List() {
		for _, dep := range t.Dependencies {
			style := ""
			if critical(dep) && critical(t.ID) && result.Tasks[dep].EF == result.Tasks[t.ID].ES {
				style = ` [color=red, penwidth=2]`
			}
			fmt.Fprintf(w, "  %q -> %q%s;\n", dep, t.ID, style)
		}
	}

	fmt.Fprintln(w, "}")
}

func dotEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// GraphNode is one task in the node/edge export.
type GraphNode struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Status           string `json:"status"`
	IsCritical       bool   `json:"is_critical"`
	WaveIndex        int    `json:"wave_index"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

// GraphEdge points from a dependency to its dependent.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type GraphMetadata struct {
	ID         string  `json:"id"`
	CreatedAt  string  `json:"created_at"`
	TotalTasks int     `json:"total_tasks"`
	TotalWaves int     `json:"total_waves"`
	Score      float64 `json:"parallelization_score"`
}

// Graph is a flat node/edge view of a plan for external graph viewers.
type Graph struct {
	Nodes        []GraphNode   `json:"nodes"`
	Edges        []GraphEdge   `json:"edges"`
	CriticalPath []string      `json:"critical_path"`
	Metadata     GraphMetadata `json:"metadata"`
}

// ToGraph flattens plan into nodes and edges, in wave order. Node status
// comes from progress when it is non-nil.
func ToGraph(plan *planner.ExecutionPlan, progress *state.Progress) *Graph {
	r := &Reporter{Plan: plan, State: progress}
	nodes := make([]GraphNode, 0, plan.TotalTasks)
	edges := []GraphEdge{}
	for _, wave := range plan.Waves {
		for _, t := range wave.Tasks {
			nodes = append(nodes, GraphNode{
				ID:               t.TaskID,
				Title:            t.Title,
				Status:           r.taskStatus(t.TaskID),
				IsCritical:       t.IsCritical,
				WaveIndex:        t.WaveIndex,
				EstimatedMinutes: t.EstimatedMinutes,
			})
			for _, pred := range plan.Deps.Predecessors[t.TaskID] {
				edges = append(edges, GraphEdge{From: pred, To: t.TaskID})
			}
		}
	}

	return &Graph{
		Nodes:        nodes,
		Edges:        edges,
		CriticalPath: plan.CriticalPath,
		Metadata: GraphMetadata{
			ID:         plan.ID,
			CreatedAt:  plan.CreatedAt.Format(time.RFC3339),
			TotalTasks: plan.TotalTasks,
			TotalWaves: plan.TotalWaves,
			Score:      plan.Score,
		},
	}
}

// WriteGraphJSON writes ToGraph(plan, progress) as indented JSON.
func WriteGraphJSON(w io.Writer, plan *planner.ExecutionPlan, progress *state.Progress) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ToGraph(plan, progress))
}
