package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/previewrc/cmd/previewrc/opts"
	"github.com/walteh/previewrc/pkg/host/terminal"
	"github.com/walteh/previewrc/pkg/log"
	"github.com/walteh/previewrc/pkg/session"
	"gitlab.com/tozd/go/errors"
)

// NewDiffCmd creates a new diff command
func NewDiffCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		pattern   string
		rewrite   string
		lang      string
		selection string
	)

	cmd := &cobra.Command{
		Use:   "diff <file>",
		Short: "Show the result of a rewrite as a diff",
		Long: `Diff runs the matcher on one workspace file and prints the rewritten file
as a diff against the original. The file on disk is not modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sel, err := parseSelection(selection)
			if err != nil {
				return err
			}

			host := terminal.New(cmd.OutOrStdout(), opts.Workspace, opts.Provider, opts.Hook, opts.Config.Diff.ContextLines)
			defer host.Close(ctx)

			s, err := opts.Controller(host).PreviewDiff(ctx, session.Request{
				FilePath:  args[0],
				Pattern:   pattern,
				Rewrite:   rewrite,
				Lang:      lang,
				Selection: sel,
			})
			if s == nil {
				if err != nil {
					return errors.Errorf("previewing %s: %w", args[0], err)
				}
				opts.UserLogger.Warningf("%s is not part of the workspace, nothing to preview", args[0])
				return nil
			}

			op := log.PreviewOperation{Path: args[0], State: s.State.String(), Failed: err != nil}
			if s.Stitch != nil {
				op.Applied = s.Stitch.Applied
				op.Dropped = len(s.Stitch.Dropped)
				op.Invalid = len(s.Stitch.Invalid)
			} else if err == nil {
				op.FromCache = true
			}
			opts.UserLogger.LogPreview(op)

			if err != nil {
				return errors.Errorf("previewing %s: %w", args[0], err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "pattern to search for")
	cmd.Flags().StringVarP(&rewrite, "rewrite", "r", "", "rewrite applied to every match")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "language of the file (default from config)")
	cmd.Flags().StringVar(&selection, "select", "", "range to reveal in the preview, as line:col-line:col")
	_ = cmd.MarkFlagRequired("pattern")

	return cmd
}

func parseSelection(raw string) (*session.Range, error) {
	if raw == "" {
		return nil, nil
	}
	r, err := session.ParseRange(raw)
	if err != nil {
		return nil, errors.Errorf("parsing --select: %w", err)
	}
	return &r, nil
}
