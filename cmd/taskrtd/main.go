// Command taskrtd hosts the substrate behind internal/apiserver as a
// standalone daemon: no REPL, no cobra subcommands, just config in and an
// HTTP/WebSocket surface listening on cfg.APIAddr.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nullstream/taskrt/internal/apiserver"
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

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	workDir := flag.String("workdir", ".", "sandbox root for file tools and programmatic executors")
	addr := flag.String("addr", "", "listen address (overrides the configured api_addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "taskrtd: loading config:", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	provider := llmprovider.NewMockProvider(cfg.DefaultModel, 128000)
	provider.AddScenario("Indexed files:", ports.CompletionResponse{Content: "[]", StopReason: "stop"})

	readFileTool := &toolsbuiltin.ReadFileTool{Root: *workDir}
	runScriptTool := &toolsbuiltin.RunScriptTool{Dir: *workDir}

	var session *handler.Session
	ts := tasksystem.New(nil, readFileTool, func() executor.HandlerInvoker { return session })
	mem := memory.New(ts)
	ts.SetContextProvider(mem)

	if err := ts.RegisterTemplate(tasksystem.BuiltinAssociativeMatchingTemplate()); err != nil {
		fmt.Fprintln(os.Stderr, "taskrtd: registering associative_matching template:", err)
		os.Exit(1)
	}
	ts.RegisterBuiltinProgrammaticExecutors(runScriptTool.Run, toolsbuiltin.GitStatus)

	if templatesDir := filepath.Join(*workDir, ".taskrt", "templates"); dirIsReadable(templatesDir) {
		templates, err := tasksystem.LoadTemplateDir(templatesDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "taskrtd: loading templates:", err)
			os.Exit(1)
		}
		for _, tmpl := range templates {
			if err := ts.RegisterTemplate(tmpl); err != nil {
				fmt.Fprintln(os.Stderr, "taskrtd: registering template", tmpl.Name, ":", err)
				os.Exit(1)
			}
		}
	}

	session = handler.NewSession(handler.Config{
		Provider:            provider,
		Model:               cfg.DefaultModel,
		BasePrompt:          "You are the task-orchestration runtime's assistant, reachable here over HTTP and WebSocket.",
		MaxTurns:            cfg.MaxTurns,
		MaxToolCallsPerTurn: cfg.MaxToolCallsPerTurn,
		MaxContextFraction:  cfg.MaxContextWindowFraction,
		Logger:              logger.With("component", "handler"),
	})
	session.RegisterDirectTool(readFileTool.Definition(), readFileTool.Execute)
	listPathsTool := &toolsbuiltin.ListPathsTool{Index: mem}
	session.RegisterDirectTool(listPathsTool.Definition(), listPathsTool.Execute)
	getContextTool := &toolsbuiltin.GetContextTool{Memory: mem}
	session.RegisterDirectTool(getContextTool.Definition(), getContextTool.Execute)

	evaluator := sexpr.NewEvaluator(mem)
	disp := dispatcher.New(evaluator, ts, session, session)

	srv := apiserver.New(apiserver.Config{
		Dispatcher: disp,
		Logger:     logger,
		StageSource: func() apiserver.StageSession {
			return session
		},
	})

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = cfg.APIAddr
	}
	httpServer := &http.Server{Addr: listenAddr, Handler: srv.Handler()}

	go func() {
		logger.Info("listening", "addr", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	session.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}

func dirIsReadable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

