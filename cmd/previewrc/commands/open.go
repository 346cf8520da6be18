package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/previewrc/cmd/previewrc/opts"
	"github.com/walteh/previewrc/pkg/host/terminal"
	"github.com/walteh/previewrc/pkg/session"
)

// NewOpenCmd creates a new open command
func NewOpenCmd(opts *opts.RootOpts) *cobra.Command {
	var selection string

	cmd := &cobra.Command{
		Use:   "open <file>",
		Short: "Print a workspace file, optionally only a selected range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sel, err := parseSelection(selection)
			if err != nil {
				return err
			}

			host := terminal.New(cmd.OutOrStdout(), opts.Workspace, opts.Provider, opts.Hook, opts.Config.Diff.ContextLines)
			defer host.Close(ctx)

			return opts.Controller(host).OpenFile(ctx, session.OpenFileRequest{
				FilePath:  args[0],
				Selection: sel,
			})
		},
	}

	cmd.Flags().StringVar(&selection, "select", "", "range to print, as line:col-line:col")

	return cmd
}
