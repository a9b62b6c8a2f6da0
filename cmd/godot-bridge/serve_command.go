package main

import (
	"context"
	stderrors "errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/godot-bridge-go/internal/tools"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var noEvents bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: "Run a Model Context Protocol server on stdin/stdout whose tools drive the Godot editor.\n" +
			"The editor connection is established in the background and re-established when it drops.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			log := ctx.logger(cmd)

			conn, err := ctx.newConnection(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			server := tools.NewServer(conn, &tools.Options{
				Logger:        log,
				Name:          cfg.Server.Name,
				Version:       version,
				ForwardEvents: cfg.Server.ForwardEvents && !noEvents,
			})

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			g, gctx := errgroup.WithContext(runCtx)

			g.Go(func() error {
				defer cancel()
				return server.Run(gctx, &mcp.StdioTransport{})
			})

			g.Go(func() error {
				if err := conn.ConnectWithRetry(gctx); err != nil && gctx.Err() == nil {
					// Tool calls still connect on demand.
					log.Warn("Editor not reachable", "url", conn.Status().URL, "error", err)
				}
				return nil
			})

			err = g.Wait()
			if stderrors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&noEvents, "no-events", false, "Do not forward editor events to MCP clients")
	return cmd
}
