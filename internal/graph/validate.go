package graph

import (
	"fmt"
	"strings"
)

// Validate checks referential integrity and acyclicity. It always returns a
// report and never fails; Valid is true iff Errors is empty.
func (g *TaskGraph) Validate() ValidationResult {
	errs := []string{}
	for _, id := range g.Order {
		for _, dep := range g.Tasks[id].Dependencies {
			if !g.Has(dep) {
				errs = append(errs, fmt.Sprintf("task %s references non-existent task %s", id, dep))
			}
		}
	}
	for _, cycle := range g.DetectCycles() {
		errs = append(errs, "circular dependency detected: "+FormatCycle(cycle))
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// DetectCycle returns the first cycle found, or an empty slice if the graph
// is acyclic.
func (g *TaskGraph) DetectCycle() []string {
	cycles := g.DetectCycles()
	if len(cycles) == 0 {
		return []string{}
	}
	return cycles[0]
}

// DetectCycles returns every cycle discovered by a depth-first walk over
// dependency edges. Uses DFS with coloring: white (unvisited), gray (on the
// recursion stack), black (done). Each cycle is the stack suffix from the
// repeated node to the current node, in traversal order. Edges to unknown
// ids are skipped.
func (g *TaskGraph) DetectCycles() [][]string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int, len(g.Order))
	var stack []string
	var cycles [][]string

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		stack = append(stack, node)
		for _, next := range g.Tasks[node].Dependencies {
			if !g.Has(next) {
				continue
			}
			switch color[next] {
			case gray:
				start := len(stack) - 1
				for stack[start] != next {
					start--
				}
				cycles = append(cycles, append([]string(nil), stack[start:]...))
			case white:
				dfs(next)
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
	}

	for _, id := range g.Order {
		if color[id] == white {
			dfs(id)
		}
	}
	return cycles
}

// FormatCycle renders a cycle as "A -> B -> A".
func FormatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	return strings.Join(append(append([]string(nil), cycle...), cycle[0]), " -> ")
}
