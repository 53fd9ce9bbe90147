package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	taskerrors "github.com/nullstream/taskrt/internal/errors"
	"github.com/nullstream/taskrt/internal/ports"
)

// Exit codes mirror the TaskResult status a single-prompt invocation
// settles on: success, a declared task failure, or a resource budget
// exceeded before the result was ever produced.
const (
	exitComplete           = 0
	exitTaskFailure        = 1
	exitResourceExhaustion = 2
)

// runSinglePrompt dispatches one line of input non-interactively and prints
// its result, returning the process exit code the caller should use.
func runSinglePrompt(rt *runtime, prompt string) int {
	ctx := context.Background()
	result, err := rt.dispatcher.Dispatch(ctx, prompt)
	if err != nil {
		taskerrors.LogDispatchError(rt.logger, "dispatch failed", err)
		result = taskerrors.ToTaskResult(err)
	}
	return printResult(result)
}

// runSinglePromptTemplate invokes a named atomic template directly through
// the Task System (bypassing chat and the evaluator), prints its result,
// and always returns nil: a failed result is printed, not turned into an
// error.
func runSinglePromptTemplate(rt *runtime, name string, inputs map[string]any) error {
	ctx := context.Background()
	result, err := rt.taskSystem.ExecuteAtomicTemplate(ctx, ports.SubtaskRequest{Name: name, Inputs: inputs})
	if err != nil {
		taskerrors.LogDispatchError(rt.logger, "dispatch failed", err)
		result = taskerrors.ToTaskResult(err)
	}
	printResult(result)
	return nil
}

// runREPL runs a readline-backed interactive loop over rt.dispatcher until
// the user exits (Ctrl+D, Ctrl+C on an empty line, or "exit"/"quit").
func runREPL(rt *runtime) error {
	homeDir, _ := os.UserHomeDir()
	historyFile := filepath.Join(homeDir, ".taskrt_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          bold("taskrt> "),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		UniqueEditLine:  true,
		Stdin:           readline.NewCancelableStdin(os.Stdin),
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("repl: initializing readline: %w", err)
	}
	defer rl.Close()

	md, err := newMarkdownRenderer()
	if err != nil {
		md = nil
	}

	fmt.Println(bold("taskrt") + " - LLM task-orchestration runtime")
	fmt.Println("Type a chat message, " + gray("/task name key=value ...") + ", or " + gray("(sexpr ...)") + ". Ctrl+D to exit.")
	fmt.Println()

	ctx := context.Background()
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		result, dispatchErr := rt.dispatcher.Dispatch(ctx, line)
		if dispatchErr != nil {
			taskerrors.LogDispatchError(rt.logger, "dispatch failed", dispatchErr)
			result = taskerrors.ToTaskResult(dispatchErr)
		}
		printResultToREPL(result, md)
	}

	fmt.Println(gray("goodbye"))
	return nil
}

func printResult(result ports.TaskResult) int {
	switch result.Status {
	case ports.StatusFailed:
		fmt.Fprintln(os.Stderr, formatTaskError(result.Notes))
		if errInfo, ok := result.Notes[ports.NoteError].(map[string]any); ok {
			if kind, _ := errInfo["kind"].(string); kind == "RESOURCE_EXHAUSTION" {
				return exitResourceExhaustion
			}
		}
		return exitTaskFailure
	default:
		fmt.Println(result.Content)
		return exitComplete
	}
}

func printResultToREPL(result ports.TaskResult, md *markdownRenderer) {
	if result.Status == ports.StatusFailed {
		fmt.Println(formatTaskError(result.Notes))
		return
	}
	content := result.Content
	if md != nil {
		content = md.render(content)
	}
	fmt.Println(content)
}
