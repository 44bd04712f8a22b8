package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joshharrison/planloom/internal/claude"
	"github.com/joshharrison/planloom/internal/config"
	"github.com/joshharrison/planloom/internal/cpm"
	"github.com/joshharrison/planloom/internal/graph"
	"github.com/joshharrison/planloom/internal/logging"
	"github.com/joshharrison/planloom/internal/metrics"
	"github.com/joshharrison/planloom/internal/parser"
	"github.com/joshharrison/planloom/internal/planner"
	"github.com/joshharrison/planloom/internal/reporter"
	"github.com/joshharrison/planloom/internal/state"
	"github.com/joshharrison/planloom/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagDir       string
	flagPlanFile  string
	flagLogLevel  string
	flagLogFormat string
	flagJSON      bool
	flagNoColor   bool
	flagOutput    string
	flagFilter    string
	flagFormat    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "planloom",
		Short: "Schedule plan tasks into parallel execution waves",
		Long: `Planloom reads the tasks declared in an implementation plan, validates their
dependencies, groups them into waves that can run in parallel and tracks
which wave is ready next as tasks are completed.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Configure(flagNoColor)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "C", ".", "Project directory containing .planloom.yaml")
	rootCmd.PersistentFlags().StringVarP(&flagPlanFile, "plan", "p", "", "Plan file (default: plan_file from config, PLAN.md)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(wavesCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(nextCmd())
	rootCmd.AddCommand(completeCmd())
	rootCmd.AddCommand(reopenCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(vizCmd())
	rootCmd.AddCommand(inferDepsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// project bundles what every command needs: config, logger and the parsed
// task graph.
type project struct {
	cfg    *config.Config
	log    *slog.Logger
	source string
	graph  *graph.TaskGraph
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flagDir)
	if err != nil {
		return nil, nil, err
	}
	level, format := cfg.Log.Level, cfg.Log.Format
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	if flagLogFormat != "" {
		format = flagLogFormat
	}
	return cfg, logging.New(level, format, os.Stderr), nil
}

// loadProject reads config and parses the plan file.
func loadProject() (*project, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	planPath := cfg.PlanPath()
	if flagPlanFile != "" {
		planPath = flagPlanFile
	}
	data, err := os.ReadFile(planPath)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	p, err := parser.New(cfg.ParserGrammar())
	if err != nil {
		return nil, fmt.Errorf("plan grammar: %w", err)
	}
	p.Logger = log

	g := p.Parse(string(data))
	log.Debug("parsed plan", "path", planPath, "tasks", g.TaskCount())

	if flagFilter != "" {
		g, err = applyFilter(g, flagFilter)
		if err != nil {
			return nil, fmt.Errorf("apply filter: %w", err)
		}
		log.Debug("filtered tasks", "filter", flagFilter, "tasks", g.TaskCount())
	}

	return &project{cfg: cfg, log: log, source: filepath.Base(planPath), graph: g}, nil
}

// buildPlan is shared logic for the plan, status and viz commands.
func (p *project) buildPlan() (*planner.ExecutionPlan, error) {
	plan, err := planner.Generate(p.graph, planner.PlanConfig{
		Source:             p.source,
		StateDir:           p.cfg.StatePath(),
		PromptTemplatePath: p.cfg.Resolve(p.cfg.PromptTemplate),
	})
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}
	p.log.Debug("generated plan", "plan_id", plan.ID, "waves", plan.TotalWaves)
	return plan, nil
}

func (p *project) openState() (*state.Progress, error) {
	return state.Open(p.cfg.StatePath(), p.source)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default .planloom.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := config.WriteDefault(flagDir)
			if err != nil {
				return err
			}
			ui.PrintLogo(os.Stdout)
			fmt.Printf("📝 Wrote %s\n", ui.Bold(cfgPath))
			return nil
		},
	}
}

func planCmd() *cobra.Command {
	var flagPlain bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the execution plan for the plan file",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}

			if flagPlain {
				fmt.Print(reporter.GenerateExecutionPlan(p.graph))
				return nil
			}

			plan, err := p.buildPlan()
			if err != nil {
				if !flagJSON {
					fmt.Print(reporter.GenerateExecutionPlan(p.graph))
				}
				return err
			}

			if flagJSON {
				return outputJSON(plan)
			}

			if flagOutput != "" {
				data, err := json.MarshalIndent(plan, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(flagOutput, data, 0644); err != nil {
					return err
				}
				fmt.Printf("💾 Wrote plan %s to %s\n", ui.Dim(plan.ID), ui.Bold(flagOutput))
				return nil
			}

			reporter.WritePlan(os.Stdout, plan)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagPlain, "plain", false, "Uncolored text report (also printed for invalid graphs)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write plan JSON to file")
	cmd.Flags().StringVar(&flagFilter, "filter", "", "Only schedule tasks whose id matches a glob (e.g. TASK-1*)")

	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the plan for missing dependencies and cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}

			res := p.graph.Validate()
			if flagJSON {
				if err := outputJSON(res); err != nil {
					return err
				}
			} else if res.Valid {
				fmt.Printf("%s %d tasks, no problems found\n", ui.Green("✅"), p.graph.TaskCount())
			} else {
				fmt.Printf("%s %s\n", ui.Red("❌"), ui.BoldRed(fmt.Sprintf("%d problem(s) found:", len(res.Errors))))
				for _, e := range res.Errors {
					fmt.Printf("  %s %s\n", ui.Red("•"), e)
				}
			}

			if !res.Valid {
				return fmt.Errorf("invalid task graph")
			}
			return nil
		},
	}
}

func wavesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "waves",
		Short: "Print the tasks of each parallel wave",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}

			waves, err := cpm.TopologicalSort(p.graph)
			if err != nil {
				return err
			}
			if flagJSON {
				return outputJSON(waves)
			}
			for i, wave := range waves {
				fmt.Printf("🌊 %s %d: %s\n", ui.BoldWhite("Wave"), i+1, ui.BoldMagenta(strings.Join(wave, ", ")))
			}
			return nil
		},
	}
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Report the parallelization score and estimated time savings",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}

			score, err := metrics.ParallelizationScore(p.graph)
			if err != nil {
				return err
			}
			savings, err := metrics.TimeSavings(p.graph)
			if err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(struct {
					Score   float64         `json:"parallelization_score"`
					Grade   string          `json:"grade"`
					Savings metrics.Savings `json:"time_savings"`
				}{score, metrics.Grade(score), savings})
			}

			fmt.Printf("📊 %s %.1f/100 (%s)\n", ui.Bold("Parallelization score:"), score, metrics.Grade(score))
			fmt.Printf("⏱️  %s sequential, %s parallel, %s saved (%.1f%%)\n",
				ui.Minutes(savings.Sequential), ui.Minutes(savings.Parallel),
				ui.BoldGreen(ui.Minutes(savings.Saved)), savings.Percentage)
			return nil
		},
	}
}

func nextCmd() *cobra.Command {
	var (
		flagCompleted []string
		flagFromJSON  string
		flagPath      string
	)

	cmd := &cobra.Command{
		Use:   "next",
		Short: "List the tasks that can start now",
		Long: `Lists every task whose dependencies are complete. Completed ids come from
--completed, from another tool's JSON via --from-json and --path, or from the
progress recorded with "planloom complete".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}

			var completed []string
			switch {
			case len(flagCompleted) > 0:
				completed = flagCompleted
			case flagFromJSON != "":
				data, err := os.ReadFile(flagFromJSON)
				if err != nil {
					return fmt.Errorf("read from-json: %w", err)
				}
				completed, err = state.CompletedFromJSON(data, flagPath)
				if err != nil {
					return err
				}
			default:
				st, err := p.openState()
				if err != nil {
					return err
				}
				completed = st.Completed()
			}

			ready := p.graph.NextWave(completed)
			blocked := blockedBy(p.graph, completed, ready)

			if flagJSON {
				return outputJSON(struct {
					Completed []string            `json:"completed"`
					Ready     []string            `json:"ready"`
					Blocked   map[string][]string `json:"blocked"`
				}{completed, ready, blocked})
			}

			if len(ready) == 0 {
				if len(blocked) == 0 {
					fmt.Printf("🏁 %s\n", ui.BoldGreen("All tasks complete."))
				} else {
					fmt.Printf("⚠️  %s\n", ui.Yellow("Nothing is ready; remaining tasks wait on missing or cyclic dependencies."))
				}
				return nil
			}

			fmt.Printf("🎯 %s %s\n", ui.Bold("Ready:"), ui.BoldMagenta(strings.Join(ready, ", ")))
			for _, id := range p.graph.IDs() {
				if deps, ok := blocked[id]; ok {
					fmt.Printf("  %s %s waits on %s\n", ui.StatusIcon(reporter.StatusBlocked), id, ui.Dim(strings.Join(deps, ", ")))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&flagCompleted, "completed", nil, "Completed task ids (comma-separated)")
	cmd.Flags().StringVar(&flagFromJSON, "from-json", "", "Read completed ids from a JSON file")
	cmd.Flags().StringVar(&flagPath, "path", "completed", "gjson path to the completed ids in --from-json")

	return cmd
}

// blockedBy maps every task that is neither complete nor ready to its
// outstanding dependencies.
func blockedBy(g *graph.TaskGraph, completed, ready []string) map[string][]string {
	skip := make(map[string]bool, len(completed)+len(ready))
	for _, id := range completed {
		skip[id] = true
	}
	for _, id := range ready {
		skip[id] = true
	}
	blocked := make(map[string][]string)
	for _, id := range g.IDs() {
		if skip[id] {
			continue
		}
		blocked[id] = g.Blockers(id, completed)
	}
	return blocked
}

func completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task-id>...",
		Short: "Record tasks as complete",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			if err := checkKnown(p.graph, args); err != nil {
				return err
			}

			st, err := p.openState()
			if err != nil {
				return err
			}
			added := st.MarkComplete(args...)
			if err := st.Save(); err != nil {
				return err
			}
			p.log.Info("marked complete", "tasks", args, "new", added)

			ready := p.graph.NextWave(st.Completed())
			if flagJSON {
				return outputJSON(struct {
					Completed []string `json:"completed"`
					Ready     []string `json:"ready"`
				}{st.Completed(), ready})
			}

			fmt.Printf("%s Marked %s complete\n", ui.Green("✅"), ui.BoldMagenta(strings.Join(args, ", ")))
			if len(ready) == 0 {
				fmt.Printf("🏁 %s\n", ui.BoldGreen("Nothing left to start."))
				return nil
			}
			fmt.Printf("🎯 %s %s\n", ui.Bold("Ready:"), ui.BoldMagenta(strings.Join(ready, ", ")))
			return nil
		},
	}
}

func reopenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <task-id>...",
		Short: "Remove tasks from the completed set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}

			st, err := p.openState()
			if err != nil {
				return err
			}
			removed := st.Unmark(args...)
			if removed == 0 {
				fmt.Println(ui.Dim("No matching completed tasks."))
				return nil
			}
			if err := st.Save(); err != nil {
				return err
			}
			fmt.Printf("↩️  Reopened %d task(s)\n", removed)
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget all recorded progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			dir := cfg.StatePath()
			if !state.Exists(dir) {
				fmt.Println(ui.Dim("No recorded progress."))
				return nil
			}
			if err := state.Reset(dir); err != nil {
				return fmt.Errorf("reset state: %w", err)
			}
			fmt.Printf("🧹 Removed %s\n", ui.Bold(state.Path(dir)))
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show wave progress for the plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			plan, err := p.buildPlan()
			if err != nil {
				return err
			}
			st, err := p.openState()
			if err != nil {
				return err
			}

			rpt := reporter.New(plan, st)
			if flagJSON {
				data, err := rpt.JSON()
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			rpt.PrintStatus(os.Stdout)
			return nil
		},
	}
}

func vizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Print the task DAG as ASCII, Graphviz DOT or graph JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}

			switch flagFormat {
			case "dot":
				result, err := cpm.Analyze(p.graph)
				if err != nil {
					return err
				}
				reporter.WriteDOT(os.Stdout, p.graph, result)
				return nil
			case "json":
				plan, err := p.buildPlan()
				if err != nil {
					return err
				}
				st, err := p.openState()
				if err != nil {
					return err
				}
				return reporter.WriteGraphJSON(os.Stdout, plan, st)
			case "ascii":
				plan, err := p.buildPlan()
				if err != nil {
					return err
				}
				reporter.WriteASCII(os.Stdout, plan)
				return nil
			default:
				return fmt.Errorf("unsupported format: %s (use ascii, dot or json)", flagFormat)
			}
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "ascii", "Output format (ascii, dot, json)")
	cmd.Flags().StringVar(&flagFilter, "filter", "", "Only include tasks whose id matches a glob")

	return cmd
}

func inferDepsCmd() *cobra.Command {
	var (
		flagModel    string
		flagFromFile string
		flagPreview  bool
	)

	cmd := &cobra.Command{
		Use:   "infer-deps",
		Short: "Use Claude to infer missing task dependencies",
		Long: `Sends the plan's tasks to Claude and proposes dependency edges the plan does
not declare. Edges that reference unknown tasks, repeat a declared dependency
or would close a cycle are skipped. Nothing is written back to the plan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			if p.graph.TaskCount() == 0 {
				return fmt.Errorf("no tasks found in plan")
			}
			if cycle := p.graph.DetectCycle(); len(cycle) > 0 {
				return fmt.Errorf("plan already has a cycle: %s", graph.FormatCycle(cycle))
			}

			var result *claude.InferDepsResult
			if flagFromFile != "" {
				data, err := os.ReadFile(flagFromFile)
				if err != nil {
					return fmt.Errorf("read from-file: %w", err)
				}
				result, err = claude.ParseResult(string(data))
				if err != nil {
					return fmt.Errorf("parse from-file: %w", err)
				}
				if !flagJSON {
					fmt.Printf("📂 Loaded %s edges from %s\n", ui.Bold(len(result.Edges)), ui.Dim(flagFromFile))
				}
			} else {
				summaries := claude.Summaries(p.graph)
				if !flagJSON {
					fmt.Printf("🔍 Sending %s tasks to Claude for dependency inference...\n", ui.Bold(len(summaries)))
				}

				model := flagModel
				if model == "" {
					model = p.cfg.Claude.Model
				}
				client, err := claude.NewClient("", model)
				if err != nil {
					return err
				}

				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				result, err = client.InferDeps(ctx, summaries)
				if err != nil {
					return fmt.Errorf("infer deps: %w", err)
				}
			}

			accepted, skipped := claude.FilterEdges(p.graph, result.Edges)
			for _, s := range skipped {
				p.log.Info("skipped inferred edge", "blocked", s.Edge.BlockedID, "blocker", s.Edge.BlockerID, "reason", s.Reason)
			}

			out := struct {
				Edges   []claude.DepEdge     `json:"edges"`
				Skipped []claude.SkippedEdge `json:"skipped"`
				Summary string               `json:"summary"`
			}{
				Edges:   accepted,
				Skipped: skipped,
				Summary: result.Summary,
			}
			if flagOutput != "" {
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(flagOutput, data, 0644); err != nil {
					return err
				}
			}
			if flagJSON {
				return outputJSON(out)
			}

			for _, s := range skipped {
				fmt.Printf("  %s %s\n", ui.Yellow("⏭️  SKIP:"), s.Reason)
			}
			fmt.Printf("\n🔗 Inferred %s dependencies (%d proposed, %d after validation):\n\n",
				ui.Bold(len(accepted)), len(result.Edges), len(accepted))
			for _, e := range accepted {
				fmt.Printf("  %s %s blocked by %s  %s\n", ui.Cyan("→"), ui.BoldMagenta(e.BlockedID), ui.BoldMagenta(e.BlockerID), ui.Dim(e.Reason))
			}
			if result.Summary != "" {
				fmt.Printf("\n💡 %s %s\n", ui.BoldWhite("Summary:"), result.Summary)
			}
			if flagOutput != "" {
				fmt.Printf("\n💾 Wrote %d edges to %s\n", len(accepted), flagOutput)
			}

			if flagPreview {
				fmt.Println()
				fmt.Print(reporter.GenerateExecutionPlan(claude.Apply(p.graph, accepted)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagModel, "model", "", "Claude model to use (default: claude.model from config, else Sonnet)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Save accepted edges as JSON")
	cmd.Flags().StringVar(&flagFromFile, "from-file", "", "Load inferred deps from a JSON file instead of calling Claude")
	cmd.Flags().BoolVar(&flagPreview, "preview", false, "Print the execution plan with the accepted edges applied")

	return cmd
}

func outputJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// applyFilter keeps the tasks whose id matches any of the comma-separated
// glob patterns.
func applyFilter(g *graph.TaskGraph, filter string) (*graph.TaskGraph, error) {
	var patterns []string
	for _, pat := range strings.Split(filter, ",") {
		pat = strings.TrimSpace(pat)
		if pat == "" {
			continue
		}
		if _, err := path.Match(pat, ""); err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pat, err)
		}
		patterns = append(patterns, pat)
	}
	if len(patterns) == 0 {
		return nil, errors.New("empty filter")
	}
	return g.Filter(func(t *graph.Task) bool {
		for _, pat := range patterns {
			if ok, _ := path.Match(pat, t.ID); ok {
				return true
			}
		}
		return false
	}), nil
}

// checkKnown rejects ids that are not declared in the plan.
func checkKnown(g *graph.TaskGraph, ids []string) error {
	var unknown []string
	for _, id := range ids {
		if !g.Has(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown task(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}
