package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/apidocs/internal/app"
	"github.com/dshills/apidocs/internal/config"
	"github.com/dshills/apidocs/internal/logger"
)

// BuildInfo is stamped into the binary via ldflags
type BuildInfo struct {
	Version   string
	BuildTime string
}

// options holds state shared by every command
type options struct {
	cfgFile string
	verbose bool
	build   BuildInfo

	cfg *config.Config
}

// NewRootCommand builds the apidocs command tree
func NewRootCommand(build BuildInfo) *cobra.Command {
	opts := &options{build: build}

	root := &cobra.Command{
		Use:   "apidocs",
		Short: "Track when API classes and members appeared and disappeared across releases",
		Long: `apidocs reads one API document per library release, infers the release
that introduced and the release that removed every class, event, method and
namespace, and offers fuzzy search over the documented entries. The index is
available from the command line, over an HTTP JSON API and as MCP tools.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			opts.cfg = cfg
			logger.SetVerbose(opts.verbose || cfg.Verbose)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", config.DefaultPath, "config file path")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newInitCommand(opts),
		newIndexCommand(opts),
		newLifespanCommand(opts),
		newReleasesCommand(opts),
		newClassesCommand(opts),
		newSearchCommand(opts),
		newStatusCommand(opts),
		newServeCommand(opts),
		newMCPCommand(opts),
		newVersionCommand(opts),
	)

	return root
}

// Execute runs the root command
func Execute(ctx context.Context, build BuildInfo) error {
	return NewRootCommand(build).ExecuteContext(ctx)
}

// openApp opens the application for the loaded configuration
func (o *options) openApp(ctx context.Context) (*app.App, error) {
	return app.Open(ctx, o.cfg)
}
