package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/apidocs/internal/app"
	"github.com/dshills/apidocs/internal/httpapi"
	"github.com/dshills/apidocs/internal/mcp"
	"github.com/dshills/apidocs/internal/storage"
)

// shutdownTimeout bounds graceful HTTP shutdown
const shutdownTimeout = 10 * time.Second

// reindexOnStart rebuilds the index when requested or when nothing is stored yet
func reindexOnStart(ctx context.Context, a *app.App, force bool) {
	if !force && a.Indexer.Catalog() != nil {
		return
	}
	stats, err := a.Index(ctx, app.IndexOptions{})
	if err != nil {
		log.Printf("Initial indexing failed: %v", err)
		return
	}
	log.Printf("Indexed %d releases (%s .. %s)", stats.ReleasesIndexed, stats.OldestRelease, stats.NewestRelease)
}

func newServeCommand(opts *options) *cobra.Command {
	var (
		addr    string
		reindex bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index as an HTTP JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.HTTP.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			reindexOnStart(ctx, a, reindex)

			srv := httpapi.New(a)
			errChan := make(chan error, 1)
			go func() {
				errChan <- srv.Start()
			}()

			select {
			case <-ctx.Done():
				log.Println("Shutting down gracefully...")
			case err := <-errChan:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			log.Println("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: http.addr from config)")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "rebuild the index before serving")

	return cmd
}

func newMCPCommand(opts *options) *cobra.Command {
	var reindex bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long:  `Starts a Model Context Protocol server on stdio exposing the index_releases, symbol_lifespan, search_api and get_status tools.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout is reserved for the MCP protocol
			log.SetOutput(os.Stderr)
			log.Printf("apidocs MCP server %s starting...", opts.build.Version)
			log.Printf("Build Mode: %s, Driver: %s", storage.BuildMode, storage.DriverName)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			reindexOnStart(ctx, a, reindex)

			log.Println("MCP server ready, listening on stdio...")
			err = mcp.NewServer(a).Serve(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Println("Server stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&reindex, "reindex", false, "rebuild the index before serving")

	return cmd
}
