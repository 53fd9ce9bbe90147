package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/nullstream/taskrt/internal/config"
)

var (
	flagConfigPath string
	flagWorkDir    string
	flagModel      string
	flagLogLevel   string
)

// NewRootCommand builds the taskrt root command: no arguments drops into
// the REPL, one argument runs it as a single prompt, and a handful of
// subcommands expose the substrate's other entry points directly.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskrt [prompt]",
		Short: "LLM task-orchestration runtime",
		Long: fmt.Sprintf(`%s

A substrate for composing atomic LLM-backed tasks: a Handler session runs
the tool-calling loop, a Task System resolves named templates, a Memory
System answers associative-context queries, and a small s-expression
evaluator composes them by hand when a chat turn is not the right shape.

%s
  taskrt                          interactive REPL
  taskrt "summarize this repo"    single prompt, then exit
  taskrt templates                pick a registered template interactively
  taskrt serve                    run the HTTP/WebSocket daemon in-process`,
			bold("taskrt"), bold("EXAMPLES:")),
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrapFromFlags()
			if err != nil {
				return err
			}
			defer rt.session.Close()

			if len(args) > 0 {
				os.Exit(runSinglePrompt(rt, strings.Join(args, " ")))
			}
			return runREPL(rt)
		},
	}

	root.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVarP(&flagWorkDir, "workdir", "w", ".", "sandbox root for file tools and programmatic executors")
	root.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "override the configured default model")
	root.PersistentFlags().StringVarP(&flagLogLevel, "log-level", "l", "", "override the configured log level")

	root.AddCommand(newTemplatesCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())

	return root
}

// bootstrapFromFlags resolves Config from the layered defaults/file/env
// precedence, applies any CLI flag overrides, and builds the runtime.
func bootstrapFromFlags() (*runtime, error) {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return nil, err
	}
	cfg = cfg.Override(func(c *config.Config) {
		if flagModel != "" {
			c.DefaultModel = flagModel
		}
		if flagLogLevel != "" {
			c.LogLevel = flagLogLevel
		}
	})

	workDir := flagWorkDir
	if workDir == "" {
		workDir = "."
	}
	rt, err := buildRuntime(cfg, workDir)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// newTemplatesCommand lets the operator browse and invoke a registered
// atomic template interactively, instead of hand-typing a `/task` line.
func newTemplatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "pick a registered atomic template and run it",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrapFromFlags()
			if err != nil {
				return err
			}
			defer rt.session.Close()

			templates := rt.taskSystem.Templates()
			if len(templates) == 0 {
				fmt.Println(gray("no templates registered"))
				return nil
			}
			labels := make([]string, len(templates))
			for i, t := range templates {
				labels[i] = fmt.Sprintf("%s (%s) - %s", t.Name, t.Alias(), t.Description)
			}

			idx, _, err := (&promptui.Select{
				Label: "Select a template to run",
				Items: labels,
			}).Run()
			if err != nil {
				if err == promptui.ErrInterrupt || err == promptui.ErrEOF {
					return nil
				}
				return err
			}

			tmpl := templates[idx]
			inputs := make(map[string]any, len(tmpl.Params))
			for _, param := range tmpl.Params {
				prompt := promptui.Prompt{Label: param}
				value, err := prompt.Run()
				if err != nil {
					if err == promptui.ErrInterrupt || err == promptui.ErrEOF {
						return nil
					}
					return err
				}
				inputs[param] = value
			}

			return runSinglePromptTemplate(rt, tmpl.Name, inputs)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the runtime version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"
