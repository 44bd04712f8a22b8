package graph

import (
	"fmt"
)

// New returns an empty TaskGraph.
func New() *TaskGraph {
	return &TaskGraph{Tasks: make(map[string]*Task)}
}

// FromTasks builds a graph from tasks in the given order. A duplicate id is
// an error.
func FromTasks(tasks ...*Task) (*TaskGraph, error) {
	g := New()
	for _, t := range tasks {
		if err := g.Add(t); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Add inserts a task at the end of the declaration order. The task is copied
// so later mutation by the caller does not leak into the graph.
func (g *TaskGraph) Add(t *Task) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("add task: empty task id")
	}
	if _, ok := g.Tasks[t.ID]; ok {
		return fmt.Errorf("add task: duplicate task id %s", t.ID)
	}
	if g.Tasks == nil {
		g.Tasks = make(map[string]*Task)
	}
	cp := *t
	cp.Dependencies = append([]string(nil), t.Dependencies...)
	if cp.EstimatedMinutes < 0 {
		cp.EstimatedMinutes = 0
	}
	g.Tasks[cp.ID] = &cp
	g.Order = append(g.Order, cp.ID)
	return nil
}

// Get returns the task with the given id.
func (g *TaskGraph) Get(id string) (*Task, bool) {
	t, ok := g.Tasks[id]
	return t, ok
}

// Has reports whether id is declared in the graph.
func (g *TaskGraph) Has(id string) bool {
	_, ok := g.Tasks[id]
	return ok
}

// IDs returns task ids in insertion order.
func (g *TaskGraph) IDs() []string {
	return append([]string(nil), g.Order...)
}

// List returns the tasks in insertion order.
func (g *TaskGraph) List() []*Task {
	out := make([]*Task, 0, len(g.Order))
	for _, id := range g.Order {
		out = append(out, g.Tasks[id])
	}
	return out
}

// TaskCount returns the number of tasks in the graph.
func (g *TaskGraph) TaskCount() int {
	return len(g.Order)
}

// Dependents returns the declared tasks that list id as a dependency, in
// insertion order.
func (g *TaskGraph) Dependents(id string) []string {
	var out []string
	for _, tid := range g.Order {
		for _, dep := range g.Tasks[tid].Dependencies {
			if dep == id {
				out = append(out, tid)
				break
			}
		}
	}
	return out
}

// Roots returns tasks with no dependencies.
func (g *TaskGraph) Roots() []string {
	var out []string
	for _, id := range g.Order {
		if len(g.Tasks[id].Dependencies) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Filter returns a new TaskGraph containing only tasks matching the predicate.
// Dependencies on filtered-out tasks are dropped.
func (g *TaskGraph) Filter(pred func(*Task) bool) *TaskGraph {
	kept := make(map[string]bool)
	for _, t := range g.List() {
		if pred(t) {
			kept[t.ID] = true
		}
	}
	out := New()
	for _, t := range g.List() {
		if !kept[t.ID] {
			continue
		}
		cp := *t
		cp.Dependencies = nil
		for _, dep := range t.Dependencies {
			if kept[dep] {
				cp.Dependencies = append(cp.Dependencies, dep)
			}
		}
		// ids are unique in g, so Add cannot fail.
		_ = out.Add(&cp)
	}
	return out
}
