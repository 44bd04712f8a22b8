package graph

// Task represents a single task declared in an implementation plan.
type Task struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Dependencies     []string `json:"dependencies"`      // ids that must complete first, in declared order
	EstimatedMinutes int      `json:"estimated_minutes"` // 0 when unspecified
}

// TaskGraph is an id-keyed set of tasks that remembers declaration order.
// Dependency edges point from a task to the tasks it requires.
type TaskGraph struct {
	Tasks map[string]*Task
	Order []string // task ids in insertion order
}

// ValidationResult is the report produced by Validate.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
