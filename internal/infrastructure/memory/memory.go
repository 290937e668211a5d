// Package memory persists what the agent learned across runs: where named
// elements live, which actions failed, which succeeded. The planner folds
// its hints into the prompt so later runs start smarter.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"droid-agent/internal/application/port/output"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	maxFailures  = 50
	maxSuccesses = 100
)

type elementLocation struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Context string `json:"context,omitempty"`
	Seen    string `json:"seen"`
}

type actionRecord struct {
	Action  string `json:"action"`
	Context string `json:"context,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Seen    string `json:"seen"`
}

type state struct {
	ElementLocations  map[string]elementLocation `json:"element_locations"`
	FailedActions     []actionRecord             `json:"failed_actions"`
	SuccessfulActions []actionRecord             `json:"successful_actions"`
}

var _ output.MemoryPort = (*FileStore)(nil)

// FileStore is a JSON-file backed memory. Every mutation is written through
// immediately; losing memory on a crash costs learned hints, not correctness.
type FileStore struct {
	mu     sync.Mutex
	path   string
	state  state
	logger output.LoggerPort
}

func Open(path string, logger output.LoggerPort) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		logger: logger,
		state: state{
			ElementLocations: make(map[string]elementLocation),
		},
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("open memory file: %w", err)
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		// A corrupt memory file is not worth failing a run over.
		logger.Warn("Memory file unreadable, starting fresh", "path", path, "error", err)
		s.state = state{ElementLocations: make(map[string]elementLocation)}
		return s, nil
	}
	if s.state.ElementLocations == nil {
		s.state.ElementLocations = make(map[string]elementLocation)
	}
	return s, nil
}

func (s *FileStore) RememberElement(name string, x, y int, context string) {
	key := normalizeKey(name)
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ElementLocations[key] = elementLocation{
		X: x, Y: y,
		Context: truncate(context, 120),
		Seen:    time.Now().Format(time.RFC3339),
	}
	s.flush()
}

func (s *FileStore) RememberFailure(action, context, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.FailedActions = append(s.state.FailedActions, actionRecord{
		Action:  truncate(action, 200),
		Context: truncate(context, 120),
		Reason:  truncate(reason, 200),
		Seen:    time.Now().Format(time.RFC3339),
	})
	if len(s.state.FailedActions) > maxFailures {
		s.state.FailedActions = s.state.FailedActions[len(s.state.FailedActions)-maxFailures:]
	}

	// A failure around a remembered element usually means the UI moved;
	// forget locations the failing action mentions so they get relearned.
	lowered := strings.ToLower(action + " " + reason)
	for key := range s.state.ElementLocations {
		if strings.Contains(lowered, key) {
			delete(s.state.ElementLocations, key)
		}
	}
	s.flush()
}

func (s *FileStore) RememberSuccess(action, context string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SuccessfulActions = append(s.state.SuccessfulActions, actionRecord{
		Action:  truncate(action, 200),
		Context: truncate(context, 120),
		Seen:    time.Now().Format(time.RFC3339),
	})
	if len(s.state.SuccessfulActions) > maxSuccesses {
		s.state.SuccessfulActions = s.state.SuccessfulActions[len(s.state.SuccessfulActions)-maxSuccesses:]
	}
	s.flush()
}

// Hints renders the memory as prompt text. Element locations come first,
// then recent failures as warnings.
func (s *FileStore) Hints() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder

	if len(s.state.ElementLocations) > 0 {
		b.WriteString("Known element locations:\n")
		for name, loc := range s.state.ElementLocations {
			fmt.Fprintf(&b, "- %q at (%d, %d)\n", name, loc.X, loc.Y)
		}
	}

	if n := len(s.state.FailedActions); n > 0 {
		start := n - 5
		if start < 0 {
			start = 0
		}
		b.WriteString("Recently failed approaches, avoid repeating them:\n")
		for _, rec := range s.state.FailedActions[start:] {
			fmt.Fprintf(&b, "- %s", rec.Action)
			if rec.Reason != "" && rec.Reason != rec.Action {
				fmt.Fprintf(&b, " (%s)", rec.Reason)
			}
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// Lookup returns a remembered location by name, matching the same way the
// planner labels elements: exact first, then substring either way.
func (s *FileStore) Lookup(name string) (x, y int, ok bool) {
	key := normalizeKey(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	if loc, found := s.state.ElementLocations[key]; found {
		return loc.X, loc.Y, true
	}
	for stored, loc := range s.state.ElementLocations {
		if strings.Contains(stored, key) || strings.Contains(key, stored) {
			return loc.X, loc.Y, true
		}
	}
	return 0, 0, false
}

func (s *FileStore) flush() {
	data, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		s.logger.Error("Marshal memory state failed", "error", err)
		return
	}
	if dir := filepath.Dir(s.path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Error("Write memory file failed", "path", s.path, "error", err)
	}
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
