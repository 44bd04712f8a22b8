package cpm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joshharrison/planloom/internal/graph"
)

var (
	ErrCycle             = errors.New("dependency cycle detected")
	ErrMissingDependency = errors.New("dependency references non-existent task")
)

// GraphError describes why a graph could not be scheduled.
type GraphError struct {
	Kind  error
	Msg   string
	Cycle []string // set when Kind is ErrCycle
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func cycleError(cycle []string) error {
	msg := ""
	if len(cycle) > 0 {
		msg = graph.FormatCycle(cycle)
	}
	return &GraphError{Kind: ErrCycle, Msg: msg, Cycle: cycle}
}

func missingError(refs []string) error {
	return &GraphError{Kind: ErrMissingDependency, Msg: strings.Join(refs, ", ")}
}
