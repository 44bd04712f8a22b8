// Package metrics quantifies how much concurrency a task graph offers and
// how much wall-clock time wave-parallel execution saves over running every
// task back to back.
package metrics

import (
	"math"

	"github.com/joshharrison/planloom/internal/cpm"
	"github.com/joshharrison/planloom/internal/graph"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Savings compares sequential and wave-parallel durations, in minutes.
type Savings struct {
	Sequential int     `json:"sequential"`
	Parallel   int     `json:"parallel"`
	Saved      int     `json:"saved"`
	Percentage float64 `json:"percentage"`
}

// ParallelizationScore rates the graph in [0,100]. With N tasks in W waves
// the average wave width is N/W, and the score interpolates linearly between
// a single chain (W = N, width 1) and a single wave (W = 1, width N):
//
//	score = 100 * (N/W - 1) / (N - 1)
//
// Empty graphs and single-task graphs score 0.
func ParallelizationScore(g *graph.TaskGraph) (float64, error) {
	waves, err := cpm.TopologicalSort(g)
	if err != nil {
		return 0, err
	}
	return ScoreWaves(g.TaskCount(), len(waves)), nil
}

// ScoreWaves applies the score curve to a precomputed partition.
func ScoreWaves(tasks, waves int) float64 {
	if tasks <= 1 || waves <= 0 {
		return MinScore
	}
	avgWidth := float64(tasks) / float64(waves)
	score := MaxScore * (avgWidth - 1) / float64(tasks-1)
	return math.Max(MinScore, math.Min(MaxScore, score))
}

// TimeSavings computes the sequential duration (sum of all estimates) and
// the parallel duration (sum over waves of each wave's slowest task).
func TimeSavings(g *graph.TaskGraph) (Savings, error) {
	waves, err := cpm.TopologicalSort(g)
	if err != nil {
		return Savings{}, err
	}
	return SavingsForWaves(g, waves), nil
}

// SavingsForWaves computes Savings for a partition produced by
// cpm.TopologicalSort on the same graph.
func SavingsForWaves(g *graph.TaskGraph, waves [][]string) Savings {
	var s Savings
	for _, wave := range waves {
		slowest := 0
		for _, id := range wave {
			mins := g.Tasks[id].EstimatedMinutes
			s.Sequential += mins
			if mins > slowest {
				slowest = mins
			}
		}
		s.Parallel += slowest
	}
	s.Saved = s.Sequential - s.Parallel
	if s.Sequential > 0 {
		s.Percentage = float64(s.Saved) / float64(s.Sequential) * 100
	}
	return s
}

// Grade maps a score onto a coarse label for display.
func Grade(score float64) string {
	switch {
	case score >= 75:
		return "highly parallel"
	case score >= 40:
		return "moderately parallel"
	case score > 0:
		return "mostly sequential"
	default:
		return "sequential"
	}
}
