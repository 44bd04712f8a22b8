// Package reporter renders execution plans and completion progress for
// terminals, Graphviz and machine consumers.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/joshharrison/planloom/internal/planner"
	"github.com/joshharrison/planloom/internal/state"
	"github.com/joshharrison/planloom/internal/ui"
)

// Task statuses derived from completion state.
const (
	StatusCompleted = "completed"
	StatusReady     = "ready"
	StatusBlocked   = "blocked"
)

// Reporter provides status display for a plan against recorded progress.
type Reporter struct {
	Plan  *planner.ExecutionPlan
	State *state.Progress
}

// New creates a new Reporter. A nil progress means nothing is complete.
func New(plan *planner.ExecutionPlan, st *state.Progress) *Reporter {
	return &Reporter{Plan: plan, State: st}
}

func (r *Reporter) isComplete(id string) bool {
	return r.State != nil && r.State.IsComplete(id)
}

func (r *Reporter) taskStatus(id string) string {
	if r.isComplete(id) {
		return StatusCompleted
	}
	for _, pred := range r.Plan.Deps.Predecessors[id] {
		if !r.isComplete(pred) {
			return StatusBlocked
		}
	}
	return StatusReady
}

// waveStatus is done when every task is complete, partial when some are,
// ready when any task can start and blocked otherwise.
func (r *Reporter) waveStatus(wave planner.ExecutionWave) string {
	done, ready := 0, 0
	for _, t := range wave.Tasks {
		switch r.taskStatus(t.TaskID) {
		case StatusCompleted:
			done++
		case StatusReady:
			ready++
		}
	}
	switch {
	case done == len(wave.Tasks):
		return "done"
	case done > 0:
		return "partial"
	case ready > 0:
		return "ready"
	default:
		return "blocked"
	}
}

// computeCurrentWave returns the index of the first wave that has incomplete
// tasks, or the last wave index if all waves are done.
func (r *Reporter) computeCurrentWave() int {
	for _, wave := range r.Plan.Waves {
		for _, task := range wave.Tasks {
			if !r.isComplete(task.TaskID) {
				return wave.Index
			}
		}
	}
	if len(r.Plan.Waves) > 0 {
		return r.Plan.Waves[len(r.Plan.Waves)-1].Index
	}
	return 0
}

// Next returns every incomplete task whose dependencies are all complete,
// in plan order.
func (r *Reporter) Next() []string {
	next := []string{}
	for _, wave := range r.Plan.Waves {
		for _, t := range wave.Tasks {
			if r.taskStatus(t.TaskID) == StatusReady {
				next = append(next, t.TaskID)
			}
		}
	}
	return next
}

// counts returns the number of completed plan tasks and the estimated
// minutes left if the remaining waves run in parallel.
func (r *Reporter) counts() (completed, remaining int) {
	for _, wave := range r.Plan.Waves {
		slowest := 0
		for _, t := range wave.Tasks {
			if r.isComplete(t.TaskID) {
				completed++
				continue
			}
			if t.EstimatedMinutes > slowest {
				slowest = t.EstimatedMinutes
			}
		}
		remaining += slowest
	}
	return completed, remaining
}

// PrintStatus writes a terminal-friendly status table.
func (r *Reporter) PrintStatus(w io.Writer) {
	completed, remaining := r.counts()
	currentWave := r.computeCurrentWave()

	fmt.Fprintf(w, "%s — %s %d/%d — %d of %d tasks complete",
		ui.BoldCyan("🧵 Planloom"),
		ui.Bold("Wave"),
		currentWave+1, r.Plan.TotalWaves, completed, r.Plan.TotalTasks)
	fmt.Fprintf(w, " %s\n", ui.Dim(fmt.Sprintf("[~%s remaining]", ui.Minutes(remaining))))
	if next := r.Next(); len(next) > 0 {
		fmt.Fprintf(w, "Next: %s\n", ui.BoldMagenta(strings.Join(next, ", ")))
	}
	fmt.Fprintln(w)

	for _, wave := range r.Plan.Waves {
		fmt.Fprintf(w, "  🌊 %s %d (%s)\n", ui.BoldWhite("WAVE"), wave.Index+1, ui.WaveStatus(r.waveStatus(wave)))

		for _, task := range wave.Tasks {
			r.printTask(w, task)
		}
		fmt.Fprintln(w)
	}
}

func (r *Reporter) printTask(w io.Writer, task planner.PlannedTask) {
	icon := ui.StatusIcon(r.taskStatus(task.TaskID))

	critical := " "
	if task.IsCritical {
		critical = ui.BoldYellow("⚡")
	}

	title := task.Title
	if r := []rune(title); len(r) > 40 {
		title = string(r[:37]) + "..."
	}

	taskID := ui.BoldMagenta(task.TaskID)

	fmt.Fprintf(w, "    %s %-8s %-40s %s  %s\n", icon, taskID, title, critical, ui.Dim(ui.Minutes(task.EstimatedMinutes)))
}

// JSON returns machine-readable status.
func (r *Reporter) JSON() ([]byte, error) {
	type taskStatus struct {
		TaskID     string `json:"task_id"`
		Title      string `json:"title"`
		Status     string `json:"status"`
		IsCritical bool   `json:"is_critical"`
		Wave       int    `json:"wave"`
	}

	type output struct {
		PlanID           string       `json:"plan_id"`
		Source           string       `json:"source"`
		CurrentWave      int          `json:"current_wave"`
		TotalWaves       int          `json:"total_waves"`
		TotalTasks       int          `json:"total_tasks"`
		Completed        int          `json:"completed"`
		RemainingMinutes int          `json:"remaining_minutes"`
		Next             []string     `json:"next"`
		Tasks            []taskStatus `json:"tasks"`
	}

	completed, remaining := r.counts()
	o := output{
		PlanID:           r.Plan.ID,
		Source:           r.Plan.Config.Source,
		CurrentWave:      r.computeCurrentWave(),
		TotalWaves:       r.Plan.TotalWaves,
		TotalTasks:       r.Plan.TotalTasks,
		Completed:        completed,
		RemainingMinutes: remaining,
		Next:             r.Next(),
		Tasks:            []taskStatus{},
	}

	for _, wave := range r.Plan.Waves {
		for _, task := range wave.Tasks {
			o.Tasks = append(o.Tasks, taskStatus{
				TaskID:     task.TaskID,
				Title:      task.Title,
				IsCritical: task.IsCritical,
				Wave:       wave.Index,
				Status:     r.taskStatus(task.TaskID),
			})
		}
	}

	return json.MarshalIndent(o, "", "  ")
}
