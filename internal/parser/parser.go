// Package parser extracts a task graph from a loosely structured plan
// document. Extraction is best effort: malformed or missing fields fall back
// to defaults and never fail the parse.
package parser

import (
	"io"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/joshharrison/planloom/internal/graph"
)

// durationRe captures a number and its unit. The number must not follow a
// digit or dot, so ".5 hours" is read whole rather than as "5 hours".
var durationRe = regexp.MustCompile(`(?i)(?:^|[^\d.])(\d*\.?\d+)\s*(hours|hour|hrs|hr|h|minutes|minute|mins|min|m)\b`)

// Parser turns plan text into a graph according to its Grammar.
type Parser struct {
	Grammar Grammar
	// Logger receives warnings about skipped declarations. Nil discards.
	Logger *slog.Logger

	c *compiled
}

// New compiles the grammar and returns a ready parser.
func New(g Grammar) (*Parser, error) {
	c, err := g.compile()
	if err != nil {
		return nil, err
	}
	return &Parser{Grammar: g, c: c}, nil
}

var defaultParser = mustNew(DefaultGrammar())

func mustNew(g Grammar) *Parser {
	p, err := New(g)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseDependencyGraph parses text with the default grammar.
func ParseDependencyGraph(text string) *graph.TaskGraph {
	return defaultParser.Parse(text)
}

type block struct {
	task     *graph.Task
	haveDeps bool
	haveEst  bool
}

// Parse returns every task declared in text, in document order. Text with
// no task headings yields an empty graph.
func (p *Parser) Parse(text string) *graph.TaskGraph {
	log := p.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.c == nil {
		c, err := p.Grammar.compile()
		if err != nil {
			log.Warn("invalid grammar, falling back to default", "err", err)
			c = defaultParser.c
		}
		p.c = c
	}

	g := graph.New()
	var cur *block
	flush := func() {
		if cur == nil {
			return
		}
		if err := g.Add(cur.task); err != nil {
			log.Warn("skipping task declaration", "id", cur.task.ID, "err", err)
		}
		cur = nil
	}

	inFence := false
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for n, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if id, title, ok := p.c.heading(line); ok {
			flush()
			cur = &block{task: &graph.Task{ID: id, Name: title}}
			log.Debug("task heading", "id", id, "line", n+1)
			continue
		}
		if cur == nil {
			continue
		}

		if !cur.haveDeps {
			if v, ok := fieldValue(p.c.deps, line); ok {
				cur.task.Dependencies = p.parseDependencies(v)
				cur.haveDeps = true
				continue
			}
		}
		if !cur.haveEst {
			if v, ok := fieldValue(p.c.estimate, line); ok {
				cur.task.EstimatedMinutes = ParseEstimate(v)
				cur.haveEst = true
				if cur.task.EstimatedMinutes == 0 && strings.TrimSpace(v) != "" {
					log.Debug("unrecognized estimate", "id", cur.task.ID, "value", v)
				}
			}
		}
	}
	flush()
	return g
}

// parseDependencies splits a field value into ids. Parenthetical notes,
// surrounding whitespace and backticks are dropped, as are repeats.
func (p *Parser) parseDependencies(value string) []string {
	value = strings.Trim(strings.TrimSpace(value), "*_")
	if p.isNone(value) {
		return nil
	}

	value = stripNotes(value)
	var deps []string
	seen := make(map[string]bool)
	for _, item := range strings.Split(value, ",") {
		id := strings.Trim(strings.TrimSpace(item), "`*_")
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		deps = append(deps, id)
	}
	return deps
}

// stripNotes drops parenthesized text, nested or not. An unclosed "(" drops
// the rest of the value and a stray ")" is dropped on its own.
func stripNotes(value string) string {
	var b strings.Builder
	depth := 0
	for _, r := range value {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (p *Parser) isNone(value string) bool {
	v := strings.TrimSpace(stripNotes(value))
	v = strings.TrimRight(strings.Trim(v, "`"), ".")
	if v == "" {
		return true
	}
	for _, none := range p.c.noneValues {
		if strings.EqualFold(v, none) {
			return true
		}
	}
	return false
}

// ParseEstimate converts values like "2 hours", "1.5h", "45 min" or
// "1 hour 30 minutes" to whole minutes, rounding down. Every amount in the
// value is added up. Anything unrecognized is 0.
func ParseEstimate(value string) int {
	total := 0.0
	for _, m := range durationRe.FindAllStringSubmatch(value, -1) {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "hours", "hour", "hrs", "hr", "h":
			n *= 60
		}
		total += n
	}
	// Nudge past float error so 1.15 hours is 69, not 68.
	return int(math.Floor(total + 1e-9))
}
