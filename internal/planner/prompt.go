package planner

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

const defaultPromptTemplate = `You are working on task {{.TaskID}}: {{.Title}}

## Scope
- Estimated time: {{.EstimatedMinutes}}m
{{- if .DependsOn}}
- Builds on: {{join .DependsOn ", "}} (already complete)
{{- else}}
- No upstream tasks
{{- end}}

## Instructions
1. Implement the task as described in {{.Source}}
2. Write or update tests as needed
3. Run existing tests to ensure nothing breaks
4. When done, run: planloom complete {{.TaskID}}

## Context
- This task is part of wave {{.WaveNumber}} ({{.WaveSize}} tasks in parallel)
{{- if .IsCritical}}
- This task is on the CRITICAL PATH and directly affects total project duration
{{- else}}
- Slack: {{.Slack}}m before it delays the plan
{{- end}}
`

// PromptData holds the data used to render a prompt template.
type PromptData struct {
	TaskID           string
	Title            string
	Source           string
	EstimatedMinutes int
	DependsOn        []string
	WaveIndex        int // 0-based
	WaveNumber       int // 1-based, for display
	WaveSize         int
	IsCritical       bool
	Slack            int
}

var promptFuncs = template.FuncMap{"join": strings.Join}

// RenderPrompt renders a prompt for a task using either a custom template file or the default.
func RenderPrompt(data PromptData, templatePath string) (string, error) {
	tmplStr := defaultPromptTemplate
	if templatePath != "" {
		content, err := os.ReadFile(templatePath)
		if err != nil {
			return "", err
		}
		tmplStr = string(content)
	}

	tmpl, err := template.New("prompt").Funcs(promptFuncs).Parse(tmplStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
