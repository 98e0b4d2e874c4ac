package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shopgrid/scraper/internal/catalog"
	"github.com/shopgrid/scraper/internal/scraper"
)

var errBlocked = errors.New("scrape blocked")

var (
	scrapeQuery   string
	scrapeFilters []string
	scrapeMax     int
	scrapeOutput  string
	scrapePrint   bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run a single scrape and write the result file",
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeQuery, "query", "", "search query (required)")
	scrapeCmd.Flags().StringArrayVar(&scrapeFilters, "filter", nil, "filter option name, repeatable, applied in order")
	scrapeCmd.Flags().IntVar(&scrapeMax, "max-products", 0, "number of products to enrich (default from config)")
	scrapeCmd.Flags().StringVar(&scrapeOutput, "output", "", "result file (default from config)")
	scrapeCmd.Flags().BoolVar(&scrapePrint, "print", false, "also print the products to stdout")
	_ = scrapeCmd.MarkFlagRequired("query")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if scrapeOutput != "" {
		cfg.Storage.Enabled = true
		cfg.Storage.OutputFile = scrapeOutput
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c, err := catalog.Load(cfg.Scraper.FiltersFile); err == nil {
		if unknown := c.Unknown(scrapeFilters); len(unknown) > 0 {
			log.Warn("filters not listed in catalog", "filters", unknown, "catalog", cfg.Scraper.FiltersFile)
		}
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", "error", err)
		return err
	}
	defer a.Close()

	run, err := a.scraper.Scrape(ctx, scraper.Request{
		BaseQuery:   scrapeQuery,
		Filters:     scrapeFilters,
		MaxProducts: scrapeMax,
	})
	if err != nil {
		log.Error("scrape failed", "error", err)
		return err
	}
	if run.Blocked() {
		return fmt.Errorf("%w: %s", errBlocked, run.Reason)
	}

	if scrapePrint {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		if err := enc.Encode(run.Products); err != nil {
			return err
		}
	}

	log.Info("scraped products",
		"count", len(run.Products),
		"enriched", run.EnrichedCount(),
		"final_url", run.FinalURL,
		"output", cfg.Storage.OutputFile,
	)
	return nil
}
