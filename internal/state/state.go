// Package state persists which tasks an orchestrator has reported complete,
// so the next-wave query can be answered across invocations.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

const stateFile = "state.json"

// Progress is the persistent completion record for one plan file.
type Progress struct {
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
	Done      []string  `json:"completed"`

	mu   sync.Mutex `json:"-"`
	path string     `json:"-"`
}

// Path returns the state file location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, stateFile)
}

// Open loads the progress stored in dir, or returns an empty, unsaved
// record when there is none yet.
func Open(dir, source string) (*Progress, error) {
	p, err := Load(dir)
	if errors.Is(err, os.ErrNotExist) {
		return &Progress{Source: source, Done: []string{}, path: Path(dir)}, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Source == "" {
		p.Source = source
	}
	return p, nil
}

// Load reads existing progress from dir.
func Load(dir string) (*Progress, error) {
	path := Path(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	p.path = path
	p.Done = dedupe(p.Done)
	return &p, nil
}

// Exists checks if a state file exists in dir.
func Exists(dir string) bool {
	_, err := os.Stat(Path(dir))
	return err == nil
}

// Save persists the progress, creating the state directory if needed.
func (p *Progress) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.path == "" {
		return fmt.Errorf("save state: no path, use Open or Load")
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	p.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(p.path, data, 0644)
}

// MarkComplete records ids as complete and returns how many were new.
func (p *Progress) MarkComplete(ids ...string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	added := 0
	for _, id := range ids {
		if id == "" || contains(p.Done, id) {
			continue
		}
		p.Done = append(p.Done, id)
		added++
	}
	return added
}

// Unmark removes ids from the completed set and returns how many were present.
func (p *Progress) Unmark(ids ...string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := p.Done[:0]
	for _, id := range p.Done {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	removed := len(p.Done) - len(kept)
	p.Done = kept
	return removed
}

// Completed returns a copy of the completed ids in the order they were marked.
func (p *Progress) Completed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.Done...)
}

// IsComplete reports whether id has been marked complete.
func (p *Progress) IsComplete(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return contains(p.Done, id)
}

// Reset deletes the state file. The state directory itself is removed only
// when nothing else lives in it, since state_dir may point at a shared
// directory.
func Reset(dir string) error {
	if err := os.Remove(Path(dir)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove state: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state dir: %w", err)
	}
	if len(entries) > 0 || filepath.Clean(dir) == "." {
		return nil
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove state dir: %w", err)
	}
	return nil
}

// CompletedFromJSON extracts completed task ids from another tool's JSON
// document. path is a gjson path that must resolve to a string or an array
// of strings, e.g. "tasks.#(status==\"done\")#.id".
func CompletedFromJSON(data []byte, path string) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("completed ids: invalid JSON")
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return nil, fmt.Errorf("completed ids: path %q not found", path)
	}

	if res.IsObject() {
		return nil, fmt.Errorf("completed ids: path %q yields an object", path)
	}
	var ids []string
	if !res.IsArray() {
		if id := res.String(); id != "" {
			ids = append(ids, id)
		}
		return ids, nil
	}
	for _, v := range res.Array() {
		if v.IsObject() || v.IsArray() {
			return nil, fmt.Errorf("completed ids: path %q yields non-scalar values", path)
		}
		if id := v.String(); id != "" {
			ids = append(ids, id)
		}
	}
	return dedupe(ids), nil
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
