// Package memory implements the Memory System: the process-wide
// GlobalIndex and the get_relevant_context_for retrieval contract, which
// delegates entirely to the Task System's metacircular associative-matching
// call. This package performs no file I/O for content — only paths and
// metadata ever cross its boundary.
package memory

import (
	"context"
	"sync"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

// AtomicCaller is the subset of the Task System the Memory System needs:
// the ability to run the associative_matching template through the same
// substrate every other atomic task runs through (metacircular
// property).
type AtomicCaller interface {
	GenerateContextForMemorySystem(ctx context.Context, input ports.ContextGenerationInput, index ports.GlobalIndex) (ports.AssociativeMatchResult, error)
}

// System holds the GlobalIndex under a single-writer/many-reader discipline
// ("Shared resources": readable concurrently, mutated only in bulk,
// appears atomic to readers via pointer swap).
type System struct {
	mu sync.RWMutex
	index ports.GlobalIndex
	taskSys AtomicCaller
}

// New constructs a Memory System backed by taskSys for retrieval.
func New(taskSys AtomicCaller) *System {
	return &System{index: ports.GlobalIndex{}, taskSys: taskSys}
}

// GetGlobalIndex returns the current index snapshot.
func (s *System) GetGlobalIndex() ports.GlobalIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(ports.GlobalIndex, len(s.index))
	for k, v := range s.index {
		snapshot[k] = v
	}
	return snapshot
}

// UpdateGlobalIndex atomically swaps in a new index ("bulk" write).
func (s *System) UpdateGlobalIndex(index ports.GlobalIndex) {
	snapshot := make(ports.GlobalIndex, len(index))
	for k, v := range index {
		snapshot[k] = v
	}
	s.mu.Lock()
	s.index = snapshot
	s.mu.Unlock()
}

// IndexGitRepository is delegated to an external indexer; the indexer's
// result replaces the whole index via UpdateGlobalIndex, preserving the
// single-writer discipline.
func (s *System) IndexGitRepository(ctx context.Context, path string, indexer func(ctx context.Context, path string) (ports.GlobalIndex, error)) error {
	if indexer == nil {
		return taskerrors.NewTaskFailure(ports.ReasonToolError, "no git-repository indexer configured", nil)
	}
	index, err := indexer(ctx, path)
	if err != nil {
		return err
	}
	s.UpdateGlobalIndex(index)
	return nil
}

// GetRelevantContextFor implements the retrieval contract: delegate
// entirely to the Task System's metacircular associative-matching call. On
// any failure, return an empty result and signal context_retrieval_failure
// to the caller. Input with neither a query nor template-description fields
// is INVALID_INPUT.
func (s *System) GetRelevantContextFor(ctx context.Context, input ports.ContextGenerationInput) (ports.AssociativeMatchResult, error) {
	if input.Empty() {
		return ports.AssociativeMatchResult{}, taskerrors.NewTaskFailure(ports.ReasonInvalidInput, "context generation input requires a query or template description fields", nil)
	}

	result, err := s.taskSys.GenerateContextForMemorySystem(ctx, input, s.GetGlobalIndex())
	if err != nil {
		return ports.AssociativeMatchResult{}, taskerrors.NewTaskFailure(ports.ReasonContextRetrievalFailure, "context retrieval failed: "+err.Error(), nil)
	}
	return result, nil
}
