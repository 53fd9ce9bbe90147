package tasksystem

import (
	"context"
	"fmt"
	"strings"

	"github.com/nullstream/taskrt/internal/ports"
)

// ContextProvider is the subset of the Memory System the Task System needs
// to resolve fresh context for an atomic dispatch ("Context resolution
// precedence").
type ContextProvider interface {
	GetRelevantContextFor(ctx context.Context, input ports.ContextGenerationInput) (ports.AssociativeMatchResult, error)
}

// FileReader reads file content by path, used to assemble the final
// context string once relevant paths are known.
type FileReader interface {
	ReadFile(ctx context.Context, path string) (string, error)
}

// effectiveContext is the resolved, request/template/default-merged
// context policy for one atomic dispatch.
type effectiveContext struct {
	inheritContext string
	accumulateData bool
	freshContext string
	filePaths []string // explicit paths, always unioned with any retrieved ones
}

// resolveEffectiveContext applies three-tier precedence: request
// override wins, then the template's own declaration, then the system
// default for atomic tasks.
func resolveEffectiveContext(tmpl *ports.AtomicTemplate, req ports.SubtaskRequest) effectiveContext {
	eff := effectiveContext{
		inheritContext: ports.DefaultContextManagement().InheritContext,
		accumulateData: ports.DefaultContextManagement().AccumulateData,
		freshContext: ports.DefaultContextManagement().FreshContext,
	}
	if tmpl.ContextManagement != nil {
		eff.inheritContext = tmpl.ContextManagement.InheritContext
		eff.accumulateData = tmpl.ContextManagement.AccumulateData
		eff.freshContext = tmpl.ContextManagement.FreshContext
	}
	if o := req.ContextManagement; o != nil {
		if o.InheritContext != nil {
			eff.inheritContext = *o.InheritContext
		}
		if o.AccumulateData != nil {
			eff.accumulateData = *o.AccumulateData
		}
		if o.FreshContext != nil {
			eff.freshContext = *o.FreshContext
		}
	}

	// file_paths: explicit request paths always union-merged (Open
	// Questions resolution), on top of any the template itself declares.
	eff.filePaths = append(eff.filePaths, tmpl.FilePaths...)
	eff.filePaths = append(eff.filePaths, req.FilePaths...)
	return eff
}

// assembleContext resolves fresh context (if required), unions it with any
// explicit file paths, reads file contents, and concatenates them into the
// final context string with path-labelled delimiters.
func (ts *TaskSystem) assembleContext(ctx context.Context, tmpl *ports.AtomicTemplate, req ports.SubtaskRequest, eff effectiveContext) (string, []string, error) {
	paths := append([]string{}, eff.filePaths...)

	if eff.freshContext == "enabled" && ts.context != nil {
		input := ports.ContextGenerationInput{
			TemplateDescription: tmpl.Description,
			TemplateType: string(tmpl.Type),
			TemplateSubtype: tmpl.Subtype,
			Inputs: req.Inputs,
		}
		result, err := ts.context.GetRelevantContextFor(ctx, input)
		if err != nil {
			return "", nil, err
		}
		for _, m := range result.Matches {
			paths = append(paths, m.Path)
		}
	}

	paths = dedupe(paths)
	if ts.files == nil || len(paths) == 0 {
		return "", paths, nil
	}

	var sb strings.Builder
	for _, p := range paths {
		content, err := ts.files.ReadFile(ctx, p)
		if err != nil {
			return "", nil, err
		}
		fmt.Fprintf(&sb, "--- %s ---\n%s\n", p, content)
	}
	return sb.String(), paths, nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
