// Package kv holds the flat key-value state shared with external tooling:
// per-source/per-job kill switches, ingestion cursors and last-run stats.
// The orchestrator reads switches as a snapshot at invocation start and
// writes cursors incrementally during a run.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store is the flat KV capability. Implemented on Redis and in memory.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

const (
	switchPrefix = "switch:"
	cursorPrefix = "cursor:"
	statsPrefix  = "stats:"
)

// Switches is an immutable snapshot of kill-switch state taken at the start
// of a run. Absent keys default to enabled.
type Switches struct {
	disabled map[string]bool
}

// Enabled reports whether the given source or job name is enabled.
func (s Switches) Enabled(name string) bool {
	return !s.disabled[name]
}

// RunState wraps cursor and stats persistence for one (job, source) pair.
type RunState struct {
	store Store
}

// NewRunState creates run-state persistence on top of a Store.
func NewRunState(store Store) *RunState {
	return &RunState{store: store}
}

// SnapshotSwitches reads the kill-switch flags for the given names once.
// A flag value of "off", "false" or "0" disables the name.
func (r *RunState) SnapshotSwitches(ctx context.Context, names []string) (Switches, error) {
	disabled := make(map[string]bool, len(names))
	for _, name := range names {
		v, ok, err := r.store.Get(ctx, switchPrefix+name)
		if err != nil {
			return Switches{}, fmt.Errorf("read switch %s: %w", name, err)
		}
		if ok && (v == "off" || v == "false" || v == "0") {
			disabled[name] = true
		}
	}
	return Switches{disabled: disabled}, nil
}

// Cursor returns the persisted cursor for (job, source), empty if none.
func (r *RunState) Cursor(ctx context.Context, job, source string) (string, error) {
	v, _, err := r.store.Get(ctx, cursorKey(job, source))
	if err != nil {
		return "", fmt.Errorf("read cursor %s/%s: %w", job, source, err)
	}
	return v, nil
}

// SaveCursor persists the cursor for (job, source). Called after every batch
// so a crash mid-run never forces a source to restart from scratch.
func (r *RunState) SaveCursor(ctx context.Context, job, source, cursor string) error {
	if err := r.store.Set(ctx, cursorKey(job, source), cursor); err != nil {
		return fmt.Errorf("save cursor %s/%s: %w", job, source, err)
	}
	return nil
}

// SourceStats is the last-run stats blob dashboards consume.
type SourceStats struct {
	Seen      int       `json:"seen"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Invalid   int       `json:"invalid"`
	Errors    int       `json:"errors"`
	Skipped   bool      `json:"skipped,omitempty"`
	LastRunAt time.Time `json:"last_run_at"`
}

// SaveStats records the last-run stats for (job, source).
func (r *RunState) SaveStats(ctx context.Context, job, source string, stats SourceStats) error {
	blob, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats %s/%s: %w", job, source, err)
	}
	if err := r.store.Set(ctx, statsPrefix+job+":"+source, string(blob)); err != nil {
		return fmt.Errorf("save stats %s/%s: %w", job, source, err)
	}
	return nil
}

func cursorKey(job, source string) string {
	return cursorPrefix + job + ":" + source
}
