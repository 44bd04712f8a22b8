package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/joshharrison/planloom/internal/cpm"
	"github.com/joshharrison/planloom/internal/graph"
	"github.com/joshharrison/planloom/internal/metrics"
	"github.com/joshharrison/planloom/internal/planner"
	"github.com/joshharrison/planloom/internal/ui"
)

// GenerateExecutionPlan renders a plain-text report of g: counts, waves with
// per-task estimates, critical path, time savings and parallelization score.
// Graphs that fail validation get the validator's errors instead of waves.
// The output is deterministic and carries no color codes.
func GenerateExecutionPlan(g *graph.TaskGraph) string {
	var b strings.Builder

	b.WriteString("Execution Plan\n")
	b.WriteString("==============\n")
	fmt.Fprintf(&b, "Tasks: %d\n", g.TaskCount())

	if v := g.Validate(); !v.Valid {
		b.WriteString("\nCannot schedule: the dependency graph is invalid.\n")
		for _, e := range v.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
		return b.String()
	}

	result, err := cpm.Analyze(g)
	if err != nil {
		fmt.Fprintf(&b, "\nCannot schedule: %v\n", err)
		return b.String()
	}
	fmt.Fprintf(&b, "Waves: %d\n", len(result.Waves))

	waveIDs := make([][]string, len(result.Waves))
	for i, wave := range result.Waves {
		waveIDs[i] = wave.TaskIDs
		slowest := 0
		for _, id := range wave.TaskIDs {
			if m := g.Tasks[id].EstimatedMinutes; m > slowest {
				slowest = m
			}
		}
		fmt.Fprintf(&b, "\nWave %d (%s, %dm):\n", wave.Index+1, plural(len(wave.TaskIDs), "task"), slowest)
		for _, id := range wave.TaskIDs {
			t := g.Tasks[id]
			label := t.ID
			if t.Name != "" {
				label += ": " + t.Name
			}
			fmt.Fprintf(&b, "  - %s (%dm)\n", label, t.EstimatedMinutes)
		}
	}

	b.WriteString("\n")
	if len(result.CriticalPath) > 0 {
		fmt.Fprintf(&b, "Critical path: %s (%dm)\n", strings.Join(result.CriticalPath, " -> "), result.TotalDuration)
	} else {
		b.WriteString("Critical path: none\n")
	}

	s := metrics.SavingsForWaves(g, waveIDs)
	b.WriteString("\nTime estimates:\n")
	fmt.Fprintf(&b, "  Sequential: %dm\n", s.Sequential)
	fmt.Fprintf(&b, "  Parallel:   %dm\n", s.Parallel)
	fmt.Fprintf(&b, "  Saved:      %dm (%.1f%%)\n", s.Saved, s.Percentage)

	score := metrics.ScoreWaves(g.TaskCount(), len(waveIDs))
	fmt.Fprintf(&b, "\nParallelization score: %.1f/100 (%s)\n", score, metrics.Grade(score))
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// WritePlan writes a colored overview of plan for the terminal.
func WritePlan(w io.Writer, plan *planner.ExecutionPlan) {
	maxWaveWidth := 0
	for _, wave := range plan.Waves {
		if len(wave.Tasks) > maxWaveWidth {
			maxWaveWidth = len(wave.Tasks)
		}
	}

	fmt.Fprintf(w, "🎯 %s %s\n", ui.BoldCyan("Planloom Execution Plan"), ui.Dim(plan.ID))
	fmt.Fprintln(w, ui.Cyan("═══════════════════════════"))
	fmt.Fprintln(w)
	if plan.Config.Source != "" {
		fmt.Fprintf(w, "Source:    %s\n", plan.Config.Source)
	}
	fmt.Fprintf(w, "Tasks:     %s\n", ui.Bold(plan.TotalTasks))
	if len(plan.CriticalPath) > 0 {
		fmt.Fprintf(w, "⚡ Critical path: %s (%d tasks, %s)\n",
			ui.BoldYellow(strings.Join(plan.CriticalPath, " → ")), len(plan.CriticalPath), ui.Minutes(plan.CriticalMinutes))
	}
	fmt.Fprintf(w, "Waves:     %s (%d tasks in widest wave)\n", ui.Bold(plan.TotalWaves), maxWaveWidth)
	fmt.Fprintf(w, "Time:      %s sequential, %s parallel, %s saved (%.1f%%)\n",
		ui.Minutes(plan.Savings.Sequential), ui.Minutes(plan.Savings.Parallel),
		ui.BoldGreen(ui.Minutes(plan.Savings.Saved)), plan.Savings.Percentage)
	fmt.Fprintf(w, "Score:     %s %s\n", ui.Bold(fmt.Sprintf("%.1f/100", plan.Score)), ui.Dim(metrics.Grade(plan.Score)))
	fmt.Fprintln(w)

	for _, wave := range plan.Waves {
		depStr := ui.Dim("independent")
		if wave.Index > 0 {
			depStr = ui.Dim(fmt.Sprintf("after wave %d", wave.Index))
		}
		fmt.Fprintf(w, "🌊 %s %d (%d tasks, %s, %s):\n", ui.BoldWhite("Wave"), wave.Index+1, len(wave.Tasks), ui.Minutes(wave.Minutes), depStr)
		for _, t := range wave.Tasks {
			crit := ""
			if t.IsCritical {
				crit = "  " + ui.BoldYellow("⚡ critical")
			} else if t.Slack > 0 {
				crit = "  " + ui.Dim(fmt.Sprintf("slack %s", ui.Minutes(t.Slack)))
			}
			fmt.Fprintf(w, "  %s  %s %s%s\n", ui.BoldMagenta(t.TaskID), t.Title, ui.Dim("("+ui.Minutes(t.EstimatedMinutes)+")"), crit)
		}
		fmt.Fprintln(w)
	}
}
