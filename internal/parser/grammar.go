package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// IDPlaceholder is substituted with the grammar's IDPattern inside heading
// patterns.
const IDPlaceholder = "{{id}}"

// Grammar describes how task declarations appear in a plan document. Every
// format variant lives here so the graph algorithms never see raw text.
type Grammar struct {
	// IDPattern matches a bare task identifier.
	IDPattern string `yaml:"id_pattern,omitempty"`
	// Headings are regexes tried in order against each line. Each must
	// contain a named group "id" and may contain a named group "title".
	Headings []string `yaml:"headings,omitempty"`
	// DependencyLabels and EstimateLabels are field names, matched
	// case-insensitively with optional bold markers and list bullets.
	DependencyLabels []string `yaml:"dependency_labels,omitempty"`
	EstimateLabels   []string `yaml:"estimate_labels,omitempty"`
	// NoneValues mean "no dependencies" when they are the whole field value.
	NoneValues []string `yaml:"none_values,omitempty"`
}

// DefaultGrammar recognizes headings such as
//
//	## TASK-001: Set up database
//	### Task T004: Wire the API
//
// with ids T\d{3} or TASK-<n>[.<n>...].
func DefaultGrammar() Grammar {
	return Grammar{
		IDPattern: `T\d{3}|TASK-\d+(?:\.\d+)*`,
		Headings: []string{
			`^\s*#{1,6}\s+(?:(?i:task)\s+)?(?P<id>{{id}})(?:\s*[:\-]\s*(?P<title>.*?))?\s*#*\s*$`,
		},
		DependencyLabels: []string{"Dependencies", "Depends On"},
		EstimateLabels:   []string{"Estimated Time", "Estimate"},
		NoneValues:       []string{"None", "N/A"},
	}
}

// Merge returns g with every non-empty field of override applied on top.
func (g Grammar) Merge(override Grammar) Grammar {
	if override.IDPattern != "" {
		g.IDPattern = override.IDPattern
	}
	if len(override.Headings) > 0 {
		g.Headings = override.Headings
	}
	if len(override.DependencyLabels) > 0 {
		g.DependencyLabels = override.DependencyLabels
	}
	if len(override.EstimateLabels) > 0 {
		g.EstimateLabels = override.EstimateLabels
	}
	if len(override.NoneValues) > 0 {
		g.NoneValues = override.NoneValues
	}
	return g
}

// compiled is a Grammar turned into matchers.
type compiled struct {
	headings   []*regexp.Regexp
	deps       *regexp.Regexp
	estimate   *regexp.Regexp
	noneValues []string
}

// Compile checks that the grammar is usable: the id pattern and every
// heading compile, every heading captures "id", and both label lists are
// non-empty.
func (g Grammar) Compile() error {
	_, err := g.compile()
	return err
}

func (g Grammar) compile() (*compiled, error) {
	if strings.TrimSpace(g.IDPattern) == "" {
		return nil, fmt.Errorf("grammar: id pattern is empty")
	}
	if _, err := regexp.Compile(g.IDPattern); err != nil {
		return nil, fmt.Errorf("grammar: id pattern: %w", err)
	}
	if len(g.Headings) == 0 {
		return nil, fmt.Errorf("grammar: no heading patterns")
	}

	c := &compiled{noneValues: g.NoneValues}
	for i, h := range g.Headings {
		expanded := strings.ReplaceAll(h, IDPlaceholder, "(?:"+g.IDPattern+")")
		re, err := regexp.Compile(expanded)
		if err != nil {
			return nil, fmt.Errorf("grammar: heading %d: %w", i, err)
		}
		if re.SubexpIndex("id") < 0 {
			return nil, fmt.Errorf("grammar: heading %d has no (?P<id>...) group", i)
		}
		c.headings = append(c.headings, re)
	}

	var err error
	if c.deps, err = fieldPattern("dependency", g.DependencyLabels); err != nil {
		return nil, err
	}
	if c.estimate, err = fieldPattern("estimate", g.EstimateLabels); err != nil {
		return nil, err
	}
	return c, nil
}

// fieldPattern builds a matcher for lines like
//
//	**Dependencies**: TASK-001
//	- **Estimated Time:** 2 hours
//	depends on: T002
func fieldPattern(kind string, labels []string) (*regexp.Regexp, error) {
	var quoted []string
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(l), " ", `\s+`))
		}
	}
	if len(quoted) == 0 {
		return nil, fmt.Errorf("grammar: no %s labels", kind)
	}
	const bold = `(?:\*\*|__)?`
	pattern := `^\s*(?:[-*+]\s+)?` + bold + `(?i:` + strings.Join(quoted, "|") + `)` +
		bold + `\s*:\s*` + bold + `\s*(?P<value>.*?)\s*$`
	return regexp.Compile(pattern)
}

// heading reports whether line declares a task.
func (c *compiled) heading(line string) (id, title string, ok bool) {
	for _, re := range c.headings {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id = strings.TrimSpace(m[re.SubexpIndex("id")])
		if id == "" {
			continue
		}
		if ti := re.SubexpIndex("title"); ti >= 0 {
			title = strings.TrimSpace(m[ti])
		}
		return id, title, true
	}
	return "", "", false
}

func fieldValue(re *regexp.Regexp, line string) (string, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[re.SubexpIndex("value")], true
}
