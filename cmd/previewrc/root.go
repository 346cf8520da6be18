package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/previewrc/cmd/previewrc/commands"
	"github.com/walteh/previewrc/cmd/previewrc/opts"
	"github.com/walteh/previewrc/pkg/config"
	"github.com/walteh/previewrc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile string
	debugLog   bool
	literal    bool
)

func newRootCmd() *cobra.Command {
	rootOpts := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "previewrc",
		Short: "Preview structural search and replace before applying it",
		Long: `previewrc runs an ast-grep pattern and rewrite against a file and shows
the rewritten file next to the original, without touching the file on disk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			logger := setupLogging(cmd.ErrOrStderr())
			ctx := logger.WithContext(cmd.Context())
			cmd.SetContext(ctx)

			return initRootOpts(cmd, rootOpts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.Close()
		},
	}

	addRootFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewDiffCmd(rootOpts),
		commands.NewOpenCmd(rootOpts),
		commands.NewServeCmd(rootOpts),
		newVersionCmd(),
	)

	return rootCmd
}

// initRootOpts loads the config and wires the shared components
func initRootOpts(cmd *cobra.Command, rootOpts *opts.RootOpts) error {
	ctx := cmd.Context()

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.Load(ctx, configFile)
	} else {
		cfg, err = config.Discover(ctx, ".")
	}
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	rootOpts.UserLogger = log.New(cmd.ErrOrStderr(), *zerolog.Ctx(ctx))

	if err := rootOpts.Init(ctx, cfg, literal); err != nil {
		return errors.Errorf("initializing: %w", err)
	}
	return nil
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: discover .previewrc.* in the current directory)")
	cmd.PersistentFlags().BoolVarP(&debugLog, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&literal, "literal", false, "match the pattern as a fixed string instead of running ast-grep")
}

// setupLogging configures zerolog based on flags; logs go to stderr so stdout stays free for output
func setupLogging(out io.Writer) *zerolog.Logger {
	if debugLog {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	return &logger
}
