// Package claude asks Claude to propose dependency edges for tasks whose
// plan leaves them unstated, and filters the proposals against the graph.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joshharrison/planloom/internal/graph"
)

// DefaultModel is used when no model is configured.
const DefaultModel = anthropic.Model("claude-sonnet-4-5")

// TaskSummary is the minimal task info sent to Claude for dependency inference.
type TaskSummary struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	EstimatedMinutes int      `json:"estimated_minutes,omitempty"`
	Dependencies     []string `json:"dependencies,omitempty"`
}

// Summaries builds the inference input from g in insertion order.
func Summaries(g *graph.TaskGraph) []TaskSummary {
	out := make([]TaskSummary, 0, g.TaskCount())
	for _, t := range g.List() {
		out = append(out, TaskSummary{
			ID:               t.ID,
			Title:            t.Name,
			EstimatedMinutes: t.EstimatedMinutes,
			Dependencies:     t.Dependencies,
		})
	}
	return out
}

// DepEdge is a single inferred dependency.
type DepEdge struct {
	BlockedID string `json:"blocked_id"` // task that is blocked
	BlockerID string `json:"blocker_id"` // task that must finish first
	Reason    string `json:"reason"`
}

// InferDepsResult holds the full response from Claude.
type InferDepsResult struct {
	Edges   []DepEdge `json:"edges"`
	Summary string    `json:"summary"`
}

// Client wraps the Anthropic SDK for Claude API calls.
type Client struct {
	inner anthropic.Client
	model anthropic.Model
}

// NewClient creates a Claude client. apiKey defaults to ANTHROPIC_API_KEY env.
// model defaults to DefaultModel.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	inner := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	m := DefaultModel
	if model != "" {
		m = anthropic.Model(model)
	}

	return &Client{inner: inner, model: m}, nil
}

const inferDepsPrompt = `You are an expert software project manager. Given the tasks of an implementation plan, infer the dependency edges the plan is missing.

Rules:
- Each task lists the dependencies it already declares. Do not repeat them.
- Only add a dependency when there is a strong causal reason (task B cannot start until task A is complete).
- Prefer fewer edges — do not add transitive or speculative dependencies.
- Keep independent work independent so it can run in parallel waves.
- Do not create cycles.
- Only use task IDs from the provided list.
- A task cannot depend on itself.

Return your answer as JSON with this exact structure:
{
  "edges": [
    {"blocked_id": "<task that is blocked>", "blocker_id": "<task that must finish first>", "reason": "<short explanation>"}
  ],
  "summary": "<one paragraph summary of the dependency structure>"
}

Return ONLY the JSON object. No markdown fences, no commentary outside the JSON.

Here are the tasks:
`

// buildPrompt constructs the full prompt for dependency inference.
func buildPrompt(tasks []TaskSummary) (string, error) {
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal tasks: %w", err)
	}
	return inferDepsPrompt + string(data), nil
}

// InferDeps calls the Claude API to infer task dependencies.
func (c *Client) InferDeps(ctx context.Context, tasks []TaskSummary) (*InferDepsResult, error) {
	prompt, err := buildPrompt(tasks)
	if err != nil {
		return nil, err
	}

	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(4096),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return ParseResult(text)
}

// ParseResult decodes a model reply, tolerating markdown fences.
func ParseResult(text string) (*InferDepsResult, error) {
	text = stripJSONFences(text)

	var result InferDepsResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse claude response: %w\nraw: %s", err, text)
	}
	return &result, nil
}

// stripJSONFences removes markdown code fences that Claude sometimes adds.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	// Remove ```json ... ``` or ``` ... ```
	if strings.HasPrefix(s, "```") {
		// Strip opening fence line
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		// Strip closing fence
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// SkippedEdge is a proposal FilterEdges rejected.
type SkippedEdge struct {
	Edge   DepEdge `json:"edge"`
	Reason string  `json:"reason"`
}

// FilterEdges accepts proposals greedily in order. An edge is skipped when
// either id is unknown, it is a self-dependency, it is already declared, or
// adding it to the graph (with previously accepted edges) would close a
// cycle. g must be acyclic and is not modified.
func FilterEdges(g *graph.TaskGraph, edges []DepEdge) (accepted []DepEdge, skipped []SkippedEdge) {
	work := graph.New()
	for _, t := range g.List() {
		_ = work.Add(t) // Add copies, g stays untouched

	}

	skip := func(e DepEdge, format string, args ...any) {
		skipped = append(skipped, SkippedEdge{Edge: e, Reason: fmt.Sprintf(format, args...)})
	}

	for _, e := range edges {
		blocked, ok := work.Get(e.BlockedID)
		if !ok {
			skip(e, "unknown blocked_id %s", e.BlockedID)
			continue
		}
		if !work.Has(e.BlockerID) {
			skip(e, "unknown blocker_id %s", e.BlockerID)
			continue
		}
		if e.BlockedID == e.BlockerID {
			skip(e, "self-dep %s", e.BlockedID)
			continue
		}
		if contains(blocked.Dependencies, e.BlockerID) {
			skip(e, "already declared")
			continue
		}

		blocked.Dependencies = append(blocked.Dependencies, e.BlockerID)
		if cycle := work.DetectCycle(); len(cycle) > 0 {
			blocked.Dependencies = blocked.Dependencies[:len(blocked.Dependencies)-1]
			skip(e, "would create cycle %s", graph.FormatCycle(cycle))
			continue
		}
		accepted = append(accepted, e)
	}
	return accepted, skipped
}

// Apply returns a copy of g with the edges added as dependencies.
func Apply(g *graph.TaskGraph, edges []DepEdge) *graph.TaskGraph {
	out := graph.New()
	for _, t := range g.List() {
		cp := *t
		for _, e := range edges {
			if e.BlockedID == t.ID && !contains(cp.Dependencies, e.BlockerID) {
				cp.Dependencies = append(append([]string(nil), cp.Dependencies...), e.BlockerID)
			}
		}
		_ = out.Add(&cp)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
