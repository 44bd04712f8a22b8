package cpm

import (
	"fmt"

	"github.com/joshharrison/planloom/internal/graph"
)

// TopologicalSort partitions the graph into waves. Each wave holds every
// unscheduled task whose dependencies all sit in earlier waves, in the
// graph's insertion order. It fails on unknown dependency ids and on cycles;
// callers that want a report instead should use graph.Validate.
func TopologicalSort(g *graph.TaskGraph) ([][]string, error) {
	var missing []string
	for _, t := range g.List() {
		for _, dep := range t.Dependencies {
			if !g.Has(dep) {
				missing = append(missing, fmt.Sprintf("%s -> %s", t.ID, dep))
			}
		}
	}
	if len(missing) > 0 {
		return nil, missingError(missing)
	}

	waves := [][]string{}
	scheduled := make(map[string]bool, g.TaskCount())
	for len(scheduled) < g.TaskCount() {
		var ready []string
		for _, t := range g.List() {
			if scheduled[t.ID] {
				continue
			}
			if allScheduled(t.Dependencies, scheduled) {
				ready = append(ready, t.ID)
			}
		}
		if len(ready) == 0 {
			// Everything left waits on something unscheduled.
			return nil, cycleError(g.DetectCycle())
		}
		for _, id := range ready {
			scheduled[id] = true
		}
		waves = append(waves, ready)
	}
	return waves, nil
}

func allScheduled(deps []string, scheduled map[string]bool) bool {
	for _, dep := range deps {
		if !scheduled[dep] {
			return false
		}
	}
	return true
}

// Analyze performs critical path method analysis on a task graph using each
// task's estimated minutes as its duration.
func Analyze(g *graph.TaskGraph) (*CPMResult, error) {
	waves, err := TopologicalSort(g)
	if err != nil {
		return nil, err
	}

	result := &CPMResult{
		Tasks: make(map[string]*TaskSchedule, g.TaskCount()),
	}
	for i, wave := range waves {
		for _, id := range wave {
			result.TopoOrder = append(result.TopoOrder, id)
			result.Tasks[id] = &TaskSchedule{
				TaskID:   id,
				Duration: g.Tasks[id].EstimatedMinutes,
				Wave:     i,
			}
		}
	}

	// Forward pass: ES = max(EF of all dependencies)
	for _, id := range result.TopoOrder {
		ts := result.Tasks[id]
		for _, dep := range g.Tasks[id].Dependencies {
			if ef := result.Tasks[dep].EF; ef > ts.ES {
				ts.ES = ef
			}
		}
		ts.EF = ts.ES + ts.Duration
		if ts.EF > result.TotalDuration {
			result.TotalDuration = ts.EF
		}
	}

	// Backward pass in reverse topological order: LF = min(LS of dependents)
	successors := make(map[string][]string, g.TaskCount())
	for _, t := range g.List() {
		for _, dep := range t.Dependencies {
			successors[dep] = append(successors[dep], t.ID)
		}
	}
	for i := len(result.TopoOrder) - 1; i >= 0; i-- {
		id := result.TopoOrder[i]
		ts := result.Tasks[id]
		ts.LF = result.TotalDuration
		for _, succ := range successors[id] {
			if ls := result.Tasks[succ].LS; ls < ts.LF {
				ts.LF = ls
			}
		}
		ts.LS = ts.LF - ts.Duration
		ts.Slack = ts.LS - ts.ES
		ts.IsCritical = ts.Slack == 0
	}

	result.CriticalPath = criticalChain(g, result)

	result.Waves = make([]Wave, len(waves))
	for i, ids := range waves {
		w := Wave{Index: i, TaskIDs: ids}
		for _, id := range ids {
			if result.Tasks[id].IsCritical {
				w.IsCritical = true
				break
			}
		}
		result.Waves[i] = w
	}

	return result, nil
}

// criticalChain walks back from the deepest critical task that finishes at
// TotalDuration, following critical dependencies whose finish equals the
// current task's start.
func criticalChain(g *graph.TaskGraph, result *CPMResult) []string {
	var end *TaskSchedule
	for _, id := range result.TopoOrder {
		ts := result.Tasks[id]
		if !ts.IsCritical || ts.EF != result.TotalDuration {
			continue
		}
		if end == nil || ts.Wave > end.Wave {
			end = ts
		}
	}
	if end == nil {
		return nil
	}

	chain := []string{end.TaskID}
	cur := end
	for {
		var prev *TaskSchedule
		for _, dep := range g.Tasks[cur.TaskID].Dependencies {
			ds := result.Tasks[dep]
			if !ds.IsCritical || ds.EF != cur.ES {
				continue
			}
			if prev == nil || ds.Wave > prev.Wave {
				prev = ds
			}
		}
		if prev == nil {
			break
		}
		chain = append(chain, prev.TaskID)
		cur = prev
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
