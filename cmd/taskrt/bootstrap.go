package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nullstream/taskrt/internal/config"
	"github.com/nullstream/taskrt/internal/dispatcher"
	"github.com/nullstream/taskrt/internal/executor"
	"github.com/nullstream/taskrt/internal/handler"
	"github.com/nullstream/taskrt/internal/llmprovider"
	"github.com/nullstream/taskrt/internal/logging"
	"github.com/nullstream/taskrt/internal/memory"
	"github.com/nullstream/taskrt/internal/ports"
	"github.com/nullstream/taskrt/internal/sexpr"
	"github.com/nullstream/taskrt/internal/tasksystem"
	"github.com/nullstream/taskrt/internal/toolsbuiltin"
)

// runtime bundles every substrate component buildRuntime wires together, so
// the CLI and the daemon can each pick the pieces they drive directly
// without re-running the wiring themselves.
type runtime struct {
	cfg        config.Config
	logger     logging.Logger
	provider   *llmprovider.MockProvider
	taskSystem *tasksystem.TaskSystem
	memory     *memory.System
	dispatcher *dispatcher.Dispatcher
	session    *handler.Session
}

// buildRuntime constructs the full dependency graph: config, logging, the
// model provider, the Task System and Memory System (resolving their
// circular dependency via SetContextProvider), the evaluator, the
// top-level Handler session, and the Dispatcher that fronts all three
// entry paths. workDir sandboxes every filesystem-touching tool and
// programmatic executor.
func buildRuntime(cfg config.Config, workDir string) (*runtime, error) {
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	provider := llmprovider.NewMockProvider(cfg.DefaultModel, 128000)
	provider.AddScenario("Indexed files:", ports.CompletionResponse{
		Content:    "[]",
		StopReason: "stop",
	})

	readFileTool := &toolsbuiltin.ReadFileTool{Root: workDir}
	editFileTool := &toolsbuiltin.EditFileTool{Root: workDir}
	runScriptTool := &toolsbuiltin.RunScriptTool{Dir: workDir}

	var session *handler.Session
	handlerFactory := func() executor.HandlerInvoker { return session }

	ts := tasksystem.New(nil, readFileTool, handlerFactory)
	mem := memory.New(ts)
	ts.SetContextProvider(mem)

	if err := ts.RegisterTemplate(tasksystem.BuiltinAssociativeMatchingTemplate()); err != nil {
		return nil, fmt.Errorf("bootstrap: registering associative_matching template: %w", err)
	}
	ts.RegisterBuiltinProgrammaticExecutors(runScriptTool.Run, toolsbuiltin.GitStatus)

	if templatesDir := filepath.Join(workDir, ".taskrt", "templates"); dirExists(templatesDir) {
		templates, err := tasksystem.LoadTemplateDir(templatesDir)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: loading templates from %s: %w", templatesDir, err)
		}
		for _, tmpl := range templates {
			if err := ts.RegisterTemplate(tmpl); err != nil {
				return nil, fmt.Errorf("bootstrap: registering template %s: %w", tmpl.Name, err)
			}
		}
	}

	session = handler.NewSession(handler.Config{
		Provider:            provider,
		Model:               cfg.DefaultModel,
		BasePrompt:          basePrompt,
		MaxTurns:            cfg.MaxTurns,
		MaxToolCallsPerTurn: cfg.MaxToolCallsPerTurn,
		MaxContextFraction:  cfg.MaxContextWindowFraction,
		Logger:              logger.With("component", "handler"),
	})
	session.RegisterDirectTool(readFileTool.Definition(), readFileTool.Execute)
	session.RegisterDirectTool(editFileTool.Definition(), editFileTool.Execute)
	session.RegisterDirectTool(runScriptTool.Definition(), runScriptTool.Execute)
	listPathsTool := &toolsbuiltin.ListPathsTool{Index: mem}
	session.RegisterDirectTool(listPathsTool.Definition(), listPathsTool.Execute)
	getContextTool := &toolsbuiltin.GetContextTool{Memory: mem}
	session.RegisterDirectTool(getContextTool.Definition(), getContextTool.Execute)

	evaluator := sexpr.NewEvaluator(mem)
	disp := dispatcher.New(evaluator, ts, session, session)

	if err := indexWorkDir(context.Background(), mem, workDir); err != nil {
		logger.Warn("initial workspace indexing failed", "err", err)
	}

	return &runtime{
		cfg:        cfg,
		logger:     logger,
		provider:   provider,
		taskSystem: ts,
		memory:     mem,
		dispatcher: disp,
		session:    session,
	}, nil
}

// basePrompt is the outermost layer of every Handler session's system
// prompt, beneath any template-specific prompt and file context.
const basePrompt = "You are the task-orchestration runtime's assistant. Use the tools available to you to inspect and modify the workspace, and prefer the narrowest tool that gets the job done."

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// indexWorkDir walks workDir and seeds the Memory System's GlobalIndex with
// a one-line metadata tag per file, so list_paths and associative_matching
// have something to rank before any explicit git indexing runs.
func indexWorkDir(ctx context.Context, mem *memory.System, workDir string) error {
	index := ports.GlobalIndex{}
	err := filepath.Walk(workDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" || info.Name() == ".taskrt" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(workDir, path)
		if relErr != nil {
			rel = path
		}
		index[rel] = fmt.Sprintf("%d bytes", info.Size())
		return nil
	})
	if err != nil {
		return fmt.Errorf("bootstrap: indexing %s: %w", workDir, err)
	}
	mem.UpdateGlobalIndex(index)
	return nil
}
