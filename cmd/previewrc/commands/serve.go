package commands

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/previewrc/cmd/previewrc/opts"
	"github.com/walteh/previewrc/pkg/host/stdio"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// NewServeCmd creates a new serve command
func NewServeCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON-lines preview protocol on stdin and stdout",
		Long: `Serve reads one JSON request per line from stdin and writes editor commands
and replies to stdout. It stops when stdin is closed.

Requests:
  {"id":1,"type":"previewDiff","filePath":"src/a.ts","inputValue":"foo($A)","rewrite":"bar($A)"}
  {"type":"openFile","filePath":"src/a.ts","locationsToSelect":{"start":{"line":0,"column":0},"end":{"line":0,"column":3}}}
  {"id":2,"type":"provideContent","uri":"preview:/ws/src/a.ts"}
  {"type":"didClose","uri":"preview:/ws/src/a.ts"}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := zerolog.Ctx(ctx)

			opts.UserLogger.Header("serving " + opts.Workspace.Root())

			host := stdio.NewHost(cmd.OutOrStdout())
			server := stdio.NewServer(host, opts.Controller(host), opts.Provider, opts.Hook)

			g, gctx := errgroup.WithContext(ctx)
			serveCtx, stop := context.WithCancel(gctx)
			defer stop()

			if opts.Watcher != nil {
				g.Go(func() error {
					return opts.Watcher.Run(serveCtx)
				})
			}
			g.Go(func() error {
				defer stop()
				logger.Debug().Str("workspace", opts.Workspace.Root()).Msg("serving")
				return server.Serve(serveCtx, cmd.InOrStdin())
			})

			if err := g.Wait(); err != nil {
				return errors.Errorf("serving: %w", err)
			}
			return nil
		},
	}

	return cmd
}
