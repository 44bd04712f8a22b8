// Package planner turns a validated task graph into an ExecutionPlan: waves,
// critical path, metrics and a rendered brief per task.
package planner

import (
	"fmt"
	"strings"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/joshharrison/planloom/internal/cpm"
	"github.com/joshharrison/planloom/internal/graph"
	"github.com/joshharrison/planloom/internal/metrics"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 8
)

// NewPlanID returns a short random identifier of the form plan-<id>.
func NewPlanID() (string, error) {
	id, err := nanoid.Generate(idAlphabet, idLength)
	if err != nil {
		return "", fmt.Errorf("generate plan id: %w", err)
	}
	return "plan-" + id, nil
}

// Generate validates g, runs the critical path analysis and assembles the
// plan. An invalid graph is an error carrying every validator message.
func Generate(g *graph.TaskGraph, config PlanConfig) (*ExecutionPlan, error) {
	if config.StateDir == "" {
		config.StateDir = ".planloom"
	}

	if v := g.Validate(); !v.Valid {
		return nil, fmt.Errorf("invalid task graph: %s", strings.Join(v.Errors, "; "))
	}
	cpmResult, err := cpm.Analyze(g)
	if err != nil {
		return nil, err
	}

	id, err := NewPlanID()
	if err != nil {
		return nil, err
	}

	waveIDs := make([][]string, len(cpmResult.Waves))
	for i, w := range cpmResult.Waves {
		waveIDs[i] = w.TaskIDs
	}

	plan := &ExecutionPlan{
		ID:              id,
		CreatedAt:       time.Now(),
		TotalTasks:      g.TaskCount(),
		TotalWaves:      len(cpmResult.Waves),
		CriticalPath:    cpmResult.CriticalPath,
		CriticalMinutes: cpmResult.TotalDuration,
		Score:           metrics.ScoreWaves(g.TaskCount(), len(waveIDs)),
		Savings:         metrics.SavingsForWaves(g, waveIDs),
		Waves:           []ExecutionWave{},
		Tasks:           make(map[string]*PlannedTask, g.TaskCount()),
		Deps: TaskDeps{
			Predecessors: make(map[string][]string, g.TaskCount()),
			Successors:   make(map[string][]string, g.TaskCount()),
		},
		Config: config,
	}

	for _, t := range g.List() {
		plan.Deps.Predecessors[t.ID] = append([]string{}, t.Dependencies...)
		plan.Deps.Successors[t.ID] = append([]string{}, g.Dependents(t.ID)...)
	}

	for _, wave := range cpmResult.Waves {
		ew := ExecutionWave{
			Index: wave.Index,
		}

		// Each wave depends on all previous waves
		if wave.Index > 0 {
			ew.DependsOn = []int{wave.Index - 1}
		}

		for _, taskID := range wave.TaskIDs {
			task := g.Tasks[taskID]
			schedule := cpmResult.Tasks[taskID]

			promptData := PromptData{
				TaskID:           taskID,
				Title:            task.Name,
				Source:           config.Source,
				EstimatedMinutes: task.EstimatedMinutes,
				DependsOn:        task.Dependencies,
				WaveIndex:        wave.Index,
				WaveNumber:       wave.Index + 1,
				WaveSize:         len(wave.TaskIDs),
				IsCritical:       schedule.IsCritical,
				Slack:            schedule.Slack,
			}
			if promptData.Source == "" {
				promptData.Source = "the plan"
			}

			prompt, err := RenderPrompt(promptData, config.PromptTemplatePath)
			if err != nil {
				return nil, fmt.Errorf("render prompt for task %s: %w", taskID, err)
			}

			pt := PlannedTask{
				TaskID:           taskID,
				Title:            task.Name,
				EstimatedMinutes: task.EstimatedMinutes,
				DependsOn:        task.Dependencies,
				IsCritical:       schedule.IsCritical,
				EarliestStart:    schedule.ES,
				Slack:            schedule.Slack,
				Prompt:           prompt,
				WaveIndex:        wave.Index,
			}
			if task.EstimatedMinutes > ew.Minutes {
				ew.Minutes = task.EstimatedMinutes
			}
			ew.Tasks = append(ew.Tasks, pt)
		}

		plan.Waves = append(plan.Waves, ew)
	}

	for i := range plan.Waves {
		for j := range plan.Waves[i].Tasks {
			pt := &plan.Waves[i].Tasks[j]
			plan.Tasks[pt.TaskID] = pt
		}
	}

	return plan, nil
}
