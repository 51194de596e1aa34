package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/jlrickert/cli-toolkit/mylog"
	"github.com/spf13/cobra"

	"github.com/jlrickert/textpix/pkg/api"
	"github.com/jlrickert/textpix/pkg/mcpserver"
	"github.com/jlrickert/textpix/pkg/store"
)

func NewServeCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the JSON API and image files over HTTP",
		Long: `Serve the JSON API under /api and the image files under the URL prefix.

With --watch the record listing is cached and refreshed whenever the data
directory changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			lg := mylog.LoggerFromContext(ctx)
			cfg := deps.Config

			var wg sync.WaitGroup
			if cfg.Watch {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := deps.Store.Watch(ctx, nil)
					if errors.Is(err, store.ErrWatchUnsupported) {
						lg.Warn("store_watch_unavailable", "error", err)
					} else if err != nil {
						lg.Error("store_watch_failed", "error", err)
					}
				}()
			}

			srv := api.New(ctx, deps.Service, api.Options{
				StaticDir:   cfg.DataDir,
				URLPrefix:   cfg.URLPrefix,
				CORSOrigins: cfg.CORSOrigins,
			})
			err := srv.ListenAndServe(ctx, cfg.Addr)
			cancel()
			wg.Wait()
			return err
		},
	}

	cmd.Flags().String("addr", ":8080", "address to listen on")
	cmd.Flags().Bool("watch", false, "cache listings and watch the data directory for changes")

	return cmd
}

func NewMCPCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "serve the image tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcpserver.Run(cmd.Context(), deps.Service, Version)
		},
	}
}
