package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dshills/apidocs/internal/app"
	"github.com/dshills/apidocs/internal/indexer"
)

func newIndexCommand(opts *options) *cobra.Command {
	var (
		dir        string
		pattern    string
		workers    int
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Parse the release documents and rebuild the index",
		Long: `Parses every release document under the releases directory, computes the
lifespan of every class and member, builds the search indexes and stores the
result. Documents are grouped by the first path segment without its .md
suffix, so both v1.2.0.md and v1.2.0/*.md describe release v1.2.0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers > 0 {
				opts.cfg.Workers = workers
			}

			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var bar *progressbar.ProgressBar
			progress := func(p indexer.Progress) {
				if bar == nil {
					bar = progressbar.NewOptions(p.Total,
						progressbar.OptionSetWriter(cmd.ErrOrStderr()),
						progressbar.OptionSetDescription("Parsing releases"),
						progressbar.OptionSetWidth(40),
						progressbar.OptionShowCount(),
						progressbar.OptionClearOnFinish(),
					)
				}
				bar.Describe(p.Release)
				_ = bar.Set(p.Done)
			}
			if noProgress || os.Getenv("CI") != "" {
				progress = nil
			}

			stats, err := a.Index(cmd.Context(), app.IndexOptions{
				Dir:      dir,
				Pattern:  pattern,
				Progress: progress,
			})
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed %d releases (%s .. %s) in %v\n",
				stats.ReleasesIndexed, stats.OldestRelease, stats.NewestRelease, stats.Duration.Round(time.Millisecond))
			fmt.Fprintf(out, "  files:   %d\n", stats.FilesParsed)
			fmt.Fprintf(out, "  classes: %d\n", stats.Classes)
			fmt.Fprintf(out, "  members: %d\n", stats.Members)
			if stats.ReleasesSkipped > 0 {
				fmt.Fprintf(out, "Skipped %d:\n", stats.ReleasesSkipped)
				for _, msg := range stats.ErrorMessages {
					fmt.Fprintf(out, "  %s\n", msg)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "releases directory (default: releases_dir from config)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "doublestar glob selecting release documents (default: release_pattern from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent release parsers (default: number of CPUs)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")

	return cmd
}
