package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ziadkadry99/docnav/internal/config"
	"github.com/ziadkadry99/docnav/internal/db"
	"github.com/ziadkadry99/docnav/internal/docset"
	"github.com/ziadkadry99/docnav/internal/panelsync"
	"github.com/ziadkadry99/docnav/internal/search"
	"github.com/ziadkadry99/docnav/internal/session"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docnav init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openStore opens the doc set the config points at. The returned close
// function releases the database for sqlite sources.
func openStore(cfg *config.Config) (*docset.Store, func() error, error) {
	opts := docset.Options{Shards: cfg.Search.Shards, Exclude: cfg.Search.Exclude}

	switch cfg.Source {
	case config.SourceSQLite:
		if _, err := os.Stat(cfg.Database); err != nil {
			return nil, nil, fmt.Errorf("doc set database %s: %w\nRun `docnav import` first", cfg.Database, err)
		}
		database, err := db.Open(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return docset.NewStore(docset.NewSQLSource(database), opts), database.Close, nil
	default:
		if _, err := os.Stat(cfg.DocsDir); err != nil {
			return nil, nil, fmt.Errorf("docs directory: %w", err)
		}
		return docset.NewStore(docset.DirSource(cfg.DocsDir), opts), func() error { return nil }, nil
	}
}

// sessionOptions turns the config into session options.
func sessionOptions(cfg *config.Config, logger *log.Logger) (session.Options, error) {
	norm, err := search.NewNormalizer(string(cfg.Search.Normalization))
	if err != nil {
		return session.Options{}, err
	}
	router, err := search.NewRouter(string(cfg.Search.Routing))
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Normalizer: norm,
		Router:     router,
		Labels: panelsync.Labels{
			Enabled:  cfg.Sync.EnabledLabel,
			Disabled: cfg.Sync.DisabledLabel,
		},
		PageFallback: cfg.Sync.PageFallback,
		Logger:       logger,
	}, nil
}

// commandLogger logs to stderr, or nowhere for one-shot commands unless
// --verbose is set.
func commandLogger(always bool) *log.Logger {
	if always || verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}
