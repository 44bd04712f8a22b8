package planner

import (
	"time"

	"github.com/joshharrison/planloom/internal/metrics"
)

// TaskDeps holds per-task predecessor and successor lists for dependency tracking.
type TaskDeps struct {
	Predecessors map[string][]string `json:"predecessors"`
	Successors   map[string][]string `json:"successors"`
}

// ExecutionPlan is the complete schedule handed to an orchestrator.
type ExecutionPlan struct {
	ID              string                  `json:"id"`
	CreatedAt       time.Time               `json:"created_at"`
	TotalTasks      int                     `json:"total_tasks"`
	TotalWaves      int                     `json:"total_waves"`
	CriticalPath    []string                `json:"critical_path"`
	CriticalMinutes int                     `json:"critical_minutes"`
	Score           float64                 `json:"parallelization_score"`
	Savings         metrics.Savings         `json:"time_savings"`
	Waves           []ExecutionWave         `json:"waves"`
	Tasks           map[string]*PlannedTask `json:"tasks"`
	Deps            TaskDeps                `json:"deps"`
	Config          PlanConfig              `json:"config"`
}

// ExecutionWave is a group of tasks that may run in parallel.
type ExecutionWave struct {
	Index     int           `json:"index"`
	Tasks     []PlannedTask `json:"tasks"`
	DependsOn []int         `json:"depends_on"`
	Minutes   int           `json:"minutes"` // slowest member
}

// PlannedTask is a single scheduled task.
type PlannedTask struct {
	TaskID           string   `json:"task_id"`
	Title            string   `json:"title"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	DependsOn        []string `json:"depends_on,omitempty"`
	IsCritical       bool     `json:"is_critical"`
	EarliestStart    int      `json:"earliest_start"`
	Slack            int      `json:"slack"`
	Prompt           string   `json:"prompt"`
	WaveIndex        int      `json:"wave_index"`
}

// PlanConfig holds the inputs that shaped a plan.
type PlanConfig struct {
	Source             string `json:"source"`
	StateDir           string `json:"state_dir"`
	PromptTemplatePath string `json:"prompt_template_path,omitempty"`
}
