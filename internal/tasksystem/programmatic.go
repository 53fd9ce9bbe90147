package tasksystem

import (
	"context"
	"fmt"

	"github.com/nullstream/taskrt/internal/ports"
)

// RegisterBuiltinProgrammaticExecutors wires the out-of-the-box programmatic
// executors: aider:automatic, shell:run, git:status. Each is a thin adapter
// satisfying (inputs, shared_services) -> TaskResult with no LLM call — the
// reliable path for wrapping external tools.
func (ts *TaskSystem) RegisterBuiltinProgrammaticExecutors(runScript func(ctx context.Context, argv []string) (stdout, stderr string, exitCode int, err error), gitStatus func(ctx context.Context, repoPath string) (string, error)) {
	ts.RegisterProgrammatic("aider:automatic", aiderAutomaticExecutor)
	ts.RegisterProgrammatic("shell:run", shellRunExecutor(runScript))
	ts.RegisterProgrammatic("git:status", gitStatusExecutor(gitStatus))
}

// aiderAutomaticExecutor echoes its prompt/files back as the task content
// (scenario 1): it stands in for the out-of-scope Aider MCP client,
// giving a deterministic, LLM-free programmatic path for "apply a prompt
// to a file set" requests.
func aiderAutomaticExecutor(ctx context.Context, inputs map[string]any, services SharedServices) (ports.TaskResult, error) {
	prompt, _ := inputs["prompt"].(string)
	files := inputs["file_context"]
	return ports.TaskResult{
		Status: ports.StatusComplete,
		Content: fmt.Sprintf("applied %q to %v", prompt, files),
		Notes: map[string]any{ports.NoteTemplateUsed: "aider:automatic"},
	}, nil
}

func shellRunExecutor(runScript func(ctx context.Context, argv []string) (stdout, stderr string, exitCode int, err error)) ProgrammaticExecutor {
	return func(ctx context.Context, inputs map[string]any, services SharedServices) (ports.TaskResult, error) {
		argv, _ := inputs["argv"].([]string)
		if runScript == nil {
			return ports.TaskResult{Status: ports.StatusFailed}, fmt.Errorf("shell:run: no script runner configured")
		}
		stdout, stderr, exitCode, err := runScript(ctx, argv)
		if err != nil {
			return ports.TaskResult{}, err
		}
		status := ports.StatusComplete
		if exitCode != 0 {
			status = ports.StatusPartial
		}
		return ports.TaskResult{
			Status: status,
			Content: stdout,
			Notes: map[string]any{
				ports.NoteTemplateUsed: "shell:run",
				"stderr": stderr,
				"exit_code": exitCode,
			},
		}, nil
	}
}

func gitStatusExecutor(gitStatus func(ctx context.Context, repoPath string) (string, error)) ProgrammaticExecutor {
	return func(ctx context.Context, inputs map[string]any, services SharedServices) (ports.TaskResult, error) {
		repoPath, _ := inputs["repo_path"].(string)
		if gitStatus == nil {
			return ports.TaskResult{Status: ports.StatusFailed}, fmt.Errorf("git:status: no git-status reader configured")
		}
		out, err := gitStatus(ctx, repoPath)
		if err != nil {
			return ports.TaskResult{}, err
		}
		return ports.TaskResult{
			Status: ports.StatusComplete,
			Content: out,
			Notes: map[string]any{ports.NoteTemplateUsed: "git:status"},
		}, nil
	}
}

// BuiltinAssociativeMatchingTemplate returns the out-of-the-box atomic
// template the Memory System's retrieval contract dispatches through
// (AssociativeMatchingAlias): given a query or template description plus
// the current GlobalIndex, rank candidate paths by relevance. Its
// fresh_context is disabled so the metacircular call never recurses into
// itself.
func BuiltinAssociativeMatchingTemplate() *ports.AtomicTemplate {
	return &ports.AtomicTemplate{
		Name:        "associative_matching",
		Type:        ports.KindAtomic,
		Subtype:     "associative_matching",
		Description: "Ranks indexed paths by relevance to a query or template description.",
		Params:      []string{"global_index", "template_description", "template_type", "template_subtype", "inherited_context", "query"},
		SystemPrompt: "You select the files most relevant to a task from an index of path: metadata lines. " +
			"Respond with a JSON array of objects: {\"path\": ..., \"relevance\": ..., \"score\": ...}, most relevant first.",
		Instructions: "Indexed files:\n{{global_index}}\n\nTemplate: {{template_type}}:{{template_subtype}} - {{template_description}}\n" +
			"Inherited context: {{inherited_context}}\nQuery: {{query}}",
		OutputFormat: &ports.OutputFormat{Type: "json", Schema: "array"},
		ContextManagement: &ports.ContextManagement{
			FreshContext: "disabled",
		},
	}
}
