package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

type stubAtomicCaller struct {
	result ports.AssociativeMatchResult
	err    error
	index  ports.GlobalIndex
}

func (s *stubAtomicCaller) GenerateContextForMemorySystem(ctx context.Context, input ports.ContextGenerationInput, index ports.GlobalIndex) (ports.AssociativeMatchResult, error) {
	s.index = index
	if s.err != nil {
		return ports.AssociativeMatchResult{}, s.err
	}
	return s.result, nil
}

func TestGetRelevantContextForRejectsEmptyInput(t *testing.T) {
	sys := New(&stubAtomicCaller{})
	_, err := sys.GetRelevantContextFor(context.Background(), ports.ContextGenerationInput{})
	require.Error(t, err)
	tf, ok := taskerrors.AsTaskFailure(err)
	require.True(t, ok)
	require.Equal(t, ports.ReasonInvalidInput, tf.Reason)
}

func TestGetRelevantContextForDelegatesToAtomicCaller(t *testing.T) {
	caller := &stubAtomicCaller{result: ports.AssociativeMatchResult{Matches: []ports.Match{{Path: "auth.py", Score: 0.8}}}}
	sys := New(caller)
	sys.UpdateGlobalIndex(ports.GlobalIndex{"auth.py": "handles login"})

	result, err := sys.GetRelevantContextFor(context.Background(), ports.ContextGenerationInput{Query: "authentication"})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	require.Equal(t, "auth.py", result.Matches[0].Path)
	require.Equal(t, "handles login", caller.index["auth.py"])
}

func TestGetRelevantContextForWrapsCallerError(t *testing.T) {
	caller := &stubAtomicCaller{err: taskerrors.NewTaskFailure(ports.ReasonProviderError, "boom", nil)}
	sys := New(caller)

	_, err := sys.GetRelevantContextFor(context.Background(), ports.ContextGenerationInput{Query: "x"})
	require.Error(t, err)
	tf, ok := taskerrors.AsTaskFailure(err)
	require.True(t, ok)
	require.Equal(t, ports.ReasonContextRetrievalFailure, tf.Reason)
}

func TestUpdateGlobalIndexSnapshotsDefensively(t *testing.T) {
	sys := New(&stubAtomicCaller{})

	src := ports.GlobalIndex{"a.go": "package a"}
	sys.UpdateGlobalIndex(src)
	src["a.go"] = "mutated after update"

	require.Equal(t, "package a", sys.GetGlobalIndex()["a.go"])

	got := sys.GetGlobalIndex()
	got["a.go"] = "mutated after read"
	require.Equal(t, "package a", sys.GetGlobalIndex()["a.go"])
}

func TestIndexGitRepositoryDelegatesAndReplaces(t *testing.T) {
	sys := New(&stubAtomicCaller{})
	sys.UpdateGlobalIndex(ports.GlobalIndex{"existing.go": "old"})

	err := sys.IndexGitRepository(context.Background(), "/repo", func(ctx context.Context, path string) (ports.GlobalIndex, error) {
		require.Equal(t, "/repo", path)
		return ports.GlobalIndex{"new.go": "new file"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, ports.GlobalIndex{"new.go": "new file"}, sys.GetGlobalIndex())
}

func TestIndexGitRepositoryRequiresIndexer(t *testing.T) {
	sys := New(&stubAtomicCaller{})
	err := sys.IndexGitRepository(context.Background(), "/repo", nil)
	require.Error(t, err)
	tf, ok := taskerrors.AsTaskFailure(err)
	require.True(t, ok)
	require.Equal(t, ports.ReasonToolError, tf.Reason)
}
