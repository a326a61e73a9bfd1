// Package wsconfig holds per-workspace named configuration sections. Each
// section is an open-ended JSON record owned by one business feature (the
// "activity" section holds its minimum-rank threshold, for example).
package wsconfig

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidInput = errors.New("wsconfig: invalid input")

// Store persists config sections keyed by (workspace group id, name).
// Get returns found=false when the section was never written.
type Store interface {
	Get(ctx context.Context, workspaceGroupID int64, name string) (map[string]any, bool, error)
	Set(ctx context.Context, workspaceGroupID int64, name string, value map[string]any) error
}

// Engine reads and merge-writes config sections.
type Engine struct {
	store Store
}

// NewEngine constructs an Engine.
func NewEngine(store Store) (*Engine, error) {
	if store == nil {
		return nil, errors.New("wsconfig: store is required")
	}
	return &Engine{store: store}, nil
}

// Get returns the named section for the workspace, or an empty record when
// the section was never written.
func (e *Engine) Get(ctx context.Context, name string, workspaceGroupID int64) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" || workspaceGroupID <= 0 {
		return nil, fmt.Errorf("%w: section name and workspace id are required", ErrInvalidInput)
	}
	value, found, err := e.store.Get(ctx, workspaceGroupID, name)
	if err != nil {
		return nil, err
	}
	if !found || value == nil {
		return map[string]any{}, nil
	}
	return value, nil
}

// Set performs a read-merge-write: the partial record is shallow-merged over
// the current section field by field, so callers that omit a field preserve
// its previous value. Concurrent writers to the same section race at field
// granularity; last merge-write wins per field. That weak consistency is the
// documented policy, not an oversight.
func (e *Engine) Set(ctx context.Context, name string, partial map[string]any, workspaceGroupID int64) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" || workspaceGroupID <= 0 {
		return nil, fmt.Errorf("%w: section name and workspace id are required", ErrInvalidInput)
	}
	current, found, err := e.store.Get(ctx, workspaceGroupID, name)
	if err != nil {
		return nil, err
	}
	if !found || current == nil {
		current = map[string]any{}
	}
	merged := make(map[string]any, len(current)+len(partial))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	if err := e.store.Set(ctx, workspaceGroupID, name, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
