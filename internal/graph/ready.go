package graph

// NextWave returns every task not in completed whose dependencies are all in
// completed, in insertion order. It keeps no state: callers track completion
// and ask again after each wave finishes.
func (g *TaskGraph) NextWave(completed []string) []string {
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}

	ready := []string{}
	for _, id := range g.Order {
		if done[id] {
			continue
		}
		blocked := false
		for _, dep := range g.Tasks[id].Dependencies {
			if !done[dep] {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, id)
		}
	}
	return ready
}

// Blockers returns the dependencies of id that are not yet in completed.
func (g *TaskGraph) Blockers(id string, completed []string) []string {
	t, ok := g.Tasks[id]
	if !ok {
		return nil
	}
	done := make(map[string]bool, len(completed))
	for _, c := range completed {
		done[c] = true
	}
	var out []string
	for _, dep := range t.Dependencies {
		if !done[dep] {
			out = append(out, dep)
		}
	}
	return out
}
