package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/apidocs/internal/app"
	"github.com/dshills/apidocs/internal/render"
	"github.com/dshills/apidocs/internal/searcher"
	"github.com/dshills/apidocs/internal/storage"
	"github.com/dshills/apidocs/pkg/types"
)

// ErrNotIndexed is returned by query commands before the first index run
var ErrNotIndexed = errors.New("nothing indexed yet, run 'apidocs index' first")

// newestRelease returns the newest stored release
func newestRelease(ctx context.Context, a *app.App) (string, error) {
	status, err := a.Storage.GetStatus(ctx)
	if err != nil {
		return "", err
	}
	if status.ReleasesCount == 0 {
		return "", ErrNotIndexed
	}
	return status.NewestRelease, nil
}

func formatLifespan(l types.Lifespan) string {
	if l.Removed() {
		return fmt.Sprintf("since %s, removed in %s", l.Since, l.Until)
	}
	return "since " + l.Since
}

func newLifespanCommand(opts *options) *cobra.Command {
	var (
		release string
		history bool
	)

	cmd := &cobra.Command{
		Use:   "lifespan <class> [<kind> <name>]",
		Short: "Show when a class or member was introduced and removed",
		Example: `  apidocs lifespan Page
  apidocs lifespan Page method waitForTimeout --release v1.10.0
  apidocs lifespan Page event close --history`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 3 {
				return fmt.Errorf("expected <class> or <class> <kind> <name>, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			class := args[0]
			kind, name := types.KindClass, ""
			if len(args) == 3 {
				kind, err = types.ParseKind(args[1])
				if err != nil {
					return err
				}
				if !kind.IsMember() {
					return fmt.Errorf("%w: %s is not a member kind", types.ErrUnknownKind, kind)
				}
				name = args[2]
			}

			out := cmd.OutOrStdout()
			if history {
				return printHistory(out, a, class, kind, name)
			}

			if release == "" {
				if release, err = newestRelease(ctx, a); err != nil {
					return err
				}
			}

			if kind == types.KindClass {
				return printClassLifespan(ctx, out, a, release, class)
			}

			l, err := a.Storage.GetSymbolLifespan(ctx, release, class, kind, name)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%s %s.%s is not documented in release %s", kind, class, name, release)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s.%s (%s): %s\n", kind, class, name, release, formatLifespan(l))
			return nil
		},
	}

	cmd.Flags().StringVar(&release, "release", "", "release to look the symbol up in (default: newest)")
	cmd.Flags().BoolVar(&history, "history", false, "show the lifespan seen from every release containing the symbol")

	return cmd
}

func printClassLifespan(ctx context.Context, out io.Writer, a *app.App, release, class string) error {
	cl, err := a.Storage.GetClassLifespan(ctx, release, class)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("class %s is not documented in release %s", class, release)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "class %s (%s): %s\n", class, release, formatLifespan(cl.Class()))

	members, err := a.Storage.ListMembers(ctx, release, class)
	if err != nil {
		return err
	}
	for _, m := range members {
		fmt.Fprintf(out, "  %-9s %-32s %s\n", m.Kind, m.Name, formatLifespan(m.Lifespan()))
	}
	return nil
}

func printHistory(out io.Writer, a *app.App, class string, kind types.EntryKind, name string) error {
	catalog := a.Indexer.Catalog()
	if catalog == nil {
		return ErrNotIndexed
	}
	occurrences := catalog.Lifespans().History(class, kind, name)
	if len(occurrences) == 0 {
		return fmt.Errorf("%s %s %s is not documented in any release", kind, class, name)
	}
	for _, o := range occurrences {
		fmt.Fprintf(out, "%-12s %s\n", o.Release, formatLifespan(o.Lifespan))
	}
	return nil
}

func newReleasesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "releases",
		Short: "List indexed releases, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			releases, err := a.Storage.ListReleases(cmd.Context())
			if err != nil {
				return err
			}
			if len(releases) == 0 {
				return ErrNotIndexed
			}

			out := cmd.OutOrStdout()
			for _, r := range releases {
				fmt.Fprintf(out, "%-12s %4d classes\n", r.Name, r.ClassCount)
			}
			return nil
		},
	}
}

func newClassesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classes [release]",
		Short: "List the classes documented in a release",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var release string
			if len(args) == 1 {
				release = args[0]
			} else if release, err = newestRelease(ctx, a); err != nil {
				return err
			}

			if _, err := a.Storage.GetRelease(ctx, release); err != nil {
				return err
			}
			classes, err := a.Storage.ListClasses(ctx, release)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range classes {
				fmt.Fprintf(out, "%-32s %s\n", c.Name, formatLifespan(types.Lifespan{Since: c.Since, Until: c.Until}))
			}
			return nil
		},
	}
}

func newSearchCommand(opts *options) *cobra.Command {
	var (
		release string
		limit   int
		kinds   []string
		plain   bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Fuzzy-search the entries documented in a release",
		Example: `  apidocs search pgoto
  apidocs search click --kind method --release v1.2.0`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			catalog := a.Indexer.Catalog()
			if catalog == nil {
				return ErrNotIndexed
			}
			if release == "" {
				release = catalog.Releases()[0]
			}
			if limit == 0 {
				limit = opts.cfg.Search.Limit
			}

			req := searcher.Request{Release: release, Limit: limit}
			if len(args) == 1 {
				req.Query = args[0]
			}
			for _, k := range kinds {
				kind, err := types.ParseKind(strings.TrimSpace(k))
				if err != nil {
					return err
				}
				req.Kinds = append(req.Kinds, kind)
			}

			resp, err := a.Searcher.Search(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeSearchJSON(out, resp)
			}

			theme := render.DefaultTheme()
			for _, r := range resp.Results {
				nodes, err := r.Title()
				if err != nil {
					return err
				}
				title := render.Plain(nodes)
				if !plain {
					title = theme.ANSI(nodes)
				}
				fmt.Fprintf(out, "%-9s %s\n", r.Item.Kind, title)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d matches in %s (%v)\n",
				len(resp.Results), resp.TotalMatches, resp.Release, resp.Duration.Round(time.Microsecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&release, "release", "", "release to search (default: newest)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (default: search.limit from config)")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "restrict results to these kinds (class, event, method, namespace)")
	cmd.Flags().BoolVar(&plain, "plain", false, "print without terminal styling")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON including the render plan")

	return cmd
}

type jsonResult struct {
	searcher.Result
	Nodes []render.Node `json:"nodes"`
}

func writeSearchJSON(out io.Writer, resp *searcher.Response) error {
	results := make([]jsonResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		nodes, err := r.Title()
		if err != nil {
			return err
		}
		results = append(results, jsonResult{Result: r, Nodes: nodes})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"release":       resp.Release,
		"query":         resp.Query,
		"total_matches": resp.TotalMatches,
		"results":       results,
	})
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := a.Storage.GetStatus(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database:  %s (schema %s, %s, %.2f MB)\n",
				opts.cfg.DBPath, status.Health.SchemaVersion, status.Health.BuildMode, status.IndexSizeMB)
			if status.ReleasesCount == 0 {
				fmt.Fprintln(out, "Nothing indexed yet.")
				return nil
			}
			fmt.Fprintf(out, "Releases:  %d (%s .. %s)\n", status.ReleasesCount, status.OldestRelease, status.NewestRelease)
			fmt.Fprintf(out, "Classes:   %d\n", status.ClassesCount)
			fmt.Fprintf(out, "Members:   %d\n", status.MembersCount)
			if status.LastRun != nil {
				fmt.Fprintf(out, "Last run:  %s (%v)\n", status.LastRun.CreatedAt.Format(time.RFC3339), status.LastRun.Duration)
			}
			return nil
		},
	}
}
