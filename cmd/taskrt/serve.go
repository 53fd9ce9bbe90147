package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/nullstream/taskrt/internal/apiserver"
)

// newServeCommand runs the same runtime the REPL drives behind
// internal/apiserver's HTTP/WebSocket surface, in-process. taskrtd is the
// dedicated daemon entry point for this; this subcommand exists so a
// developer never has to leave the single `taskrt` binary to exercise the
// API locally.
func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP/WebSocket API in-process",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrapFromFlags()
			if err != nil {
				return err
			}
			defer rt.session.Close()

			if addr == "" {
				addr = rt.cfg.APIAddr
			}

			srv := apiserver.New(apiserver.Config{
				Dispatcher: rt.dispatcher,
				Logger:     rt.logger,
				StageSource: func() apiserver.StageSession {
					return rt.session
				},
			})

			fmt.Println(bold("taskrt serve") + " listening on " + green(addr))
			return http.ListenAndServe(addr, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the configured api_addr)")
	return cmd
}
