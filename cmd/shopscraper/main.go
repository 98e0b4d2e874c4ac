package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/shopgrid/scraper/internal/browser"
	"github.com/shopgrid/scraper/internal/config"
	"github.com/shopgrid/scraper/internal/database"
	"github.com/shopgrid/scraper/internal/events"
	"github.com/shopgrid/scraper/internal/logger"
	"github.com/shopgrid/scraper/internal/parser"
	"github.com/shopgrid/scraper/internal/scraper"
	"github.com/shopgrid/scraper/internal/storage"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "shopscraper",
	Short: "Filtered shopping results scraper",
	Long: `shopscraper loads a shopping search, applies the requested filters one
page load at a time, and returns the result cards enriched with their
outbound product link and image.

Examples:
  # Run the HTTP API
  shopscraper serve

  # Scrape once and write product-data.json
  shopscraper scrape --query "men's sandals" --filter Bata --filter 9`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, scrapeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)
	return cfg, log, nil
}

// app holds the scraper and the result sinks enabled by config.
type app struct {
	scraper *scraper.Scraper
	runs    *database.RunRepository
	results *storage.FileStore
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	a := &app{}

	p, err := parser.NewShoppingParser(cfg.Scraper.BaseURL, log)
	if err != nil {
		return nil, err
	}
	launch, err := browser.NewLauncher(cfg.BrowserOptions(), log)
	if err != nil {
		return nil, err
	}

	var sinks []scraper.ResultSink

	if cfg.Storage.Enabled {
		fs, err := storage.NewFileStore(cfg.Storage.OutputFile)
		if err != nil {
			return nil, err
		}
		a.results = fs
		sinks = append(sinks, fs)
	}

	if cfg.Database.Enabled {
		db, err := database.New(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		repo := database.NewRunRepository(db, log)
		if err := repo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.runs = repo
		sinks = append(sinks, repo)
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			a.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		sinks = append(sinks, events.NewPublisher(client, cfg.Redis.Stream, log))
	}

	a.scraper = scraper.New(launch, p, cfg.ScraperOptions(), log, sinks...)
	return a, nil
}
