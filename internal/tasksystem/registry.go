// Package tasksystem implements the Task System: the atomic-template
// registry, dispatch precedence for atomic execution, context resolution,
// similarity ranking, and the metacircular associative-matching bridge
// consumed by the Memory System.
package tasksystem

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

// ProgrammaticExecutor is a native, LLM-free function registered under a
// "name:subtype" key ("programmatic executor"): aider:automatic,
// shell:run, git:status and similar reliable wrappers around external
// tools.
type ProgrammaticExecutor func(ctx context.Context, inputs map[string]any, services SharedServices) (ports.TaskResult, error)

// SharedServices is what a ProgrammaticExecutor is given beyond its inputs
// — currently just a file reader, since the shipped executors wrap direct
// tools rather than LLM calls.
type SharedServices struct {
	ReadFile func(ctx context.Context, path string) (string, error)
}

// registry is the authoritative atomic-template store, with a bounded LRU
// read-cache in front of it. The map is the single source of truth; the
// cache only exists because registration happens once at startup, so
// invalidating it on every registration carries no consistency risk.
type registry struct {
	mu sync.RWMutex
	byName map[string]*ports.AtomicTemplate
	byAlias map[string]*ports.AtomicTemplate
	insertionOrder []*ports.AtomicTemplate
	cache *lru.Cache[string, *ports.AtomicTemplate]
	programmatic map[string]ProgrammaticExecutor
}

func newRegistry() *registry {
	cache, _ := lru.New[string, *ports.AtomicTemplate](256)
	return &registry{
		byName: map[string]*ports.AtomicTemplate{},
		byAlias: map[string]*ports.AtomicTemplate{},
		cache: cache,
		programmatic: map[string]ProgrammaticExecutor{},
	}
}

// register validates and stores t ("Registration"). Template names
// and type:subtype aliases must each be unique across all registrations
// (Invariants).
func (r *registry) register(t *ports.AtomicTemplate) error {
	if t.Name == "" {
		return taskerrors.NewTaskFailure(ports.ReasonMissingInput, "template registration requires a name", nil)
	}
	if t.Type == "" {
		return taskerrors.NewTaskFailure(ports.ReasonMissingInput, "template registration requires a type", map[string]any{"name": t.Name})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[t.Name]; exists {
		return taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "duplicate template name: "+t.Name, map[string]any{"name": t.Name})
	}
	alias := t.Alias()
	if t.Subtype != "" {
		if _, exists := r.byAlias[alias]; exists {
			return taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "duplicate template alias: "+alias, map[string]any{"alias": alias})
		}
	}

	r.byName[t.Name] = t
	if t.Subtype != "" {
		r.byAlias[alias] = t
	}
	r.insertionOrder = append(r.insertionOrder, t)
	r.cache.Purge()
	return nil
}

func (r *registry) registerProgrammatic(key string, fn ProgrammaticExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programmatic[key] = fn
}

func (r *registry) findProgrammatic(key string) (ProgrammaticExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.programmatic[key]
	return fn, ok
}

// find looks up a template by name, then by type:subtype alias, consulting
// the LRU cache first.
func (r *registry) find(identifier string) (*ports.AtomicTemplate, bool) {
	if t, ok := r.cache.Get(identifier); ok {
		return t, true
	}

	r.mu.RLock()
	t, ok := r.byName[identifier]
	if !ok {
		t, ok = r.byAlias[identifier]
	}
	r.mu.RUnlock()

	if ok {
		r.cache.Add(identifier, t)
	}
	return t, ok
}

// all returns every registered atomic template, in registration order
// (used by similarity ranking's insertion-order tie-break).
func (r *registry) all() []*ports.AtomicTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ports.AtomicTemplate, 0, len(r.byName))
	for _, t := range r.insertionOrder {
		out = append(out, t)
	}
	return out
}
