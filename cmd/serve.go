package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docnav/internal/config"
	"github.com/ziadkadry99/docnav/internal/docset"
	"github.com/ziadkadry99/docnav/internal/session"
	"github.com/ziadkadry99/docnav/internal/site"
	"github.com/ziadkadry99/docnav/internal/watch"
)

var (
	servePort    int
	serveOpen    bool
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the doc set with the search and navigation API",
	Long: `Starts an HTTP server that serves the Doxygen HTML files together with the
session API (search, content navigation, tree clicks, sync toggle) and a
websocket stream that pushes results refined by late shard arrivals.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		logger := commandLogger(true)
		opts, err := sessionOptions(cfg, logger)
		if err != nil {
			return err
		}
		mgr := session.NewManager(store, opts)
		defer mgr.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Watch && !serveNoWatch && cfg.Source == config.SourceDir {
			w, err := watch.New(watch.Config{
				Dir:     cfg.DocsDir,
				IsShard: store.IsShard,
				Offer: func(rel string) {
					logger.Printf("docnav: shard %s changed", rel)
					mgr.OfferShard(ctx, docset.ShardLabel(rel))
				},
				Logger: logger,
			})
			if err != nil {
				return err
			}
			go w.Run(ctx)
		}

		srv := site.New(site.Config{
			Port:     cfg.Server.Port,
			DocsDir:  cfg.DocsDir,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, mgr)

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "docnav %s\n", Version)
		fmt.Fprintf(os.Stderr, "  Docs: %s\n", cfg.DocsDir)
		fmt.Fprintf(os.Stderr, "  Source: %s\n", cfg.Source)
		fmt.Fprintf(os.Stderr, "  Search: %s routing, %s keys\n", cfg.Search.Routing, cfg.Search.Normalization)
		fmt.Println("Press Ctrl+C to stop.")

		if err := srv.Start(serveOpen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP port (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "open the doc set in the default browser")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not watch the docs directory for new shards")
	rootCmd.AddCommand(serveCmd)
}
