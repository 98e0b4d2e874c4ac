package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopgrid/scraper/internal/browser"
	"github.com/shopgrid/scraper/internal/models"
	"github.com/shopgrid/scraper/internal/parser"
)

var (
	// ErrBlocked means the results page never showed its filter panel; the
	// site is presumed to have served a block or an unrecognized page.
	ErrBlocked = errors.New("results page blocked or unrecognized")
)

const (
	DefaultSearchEndpoint = "https://www.google.com/search?tbm=shop&q="
	DefaultMaxProducts    = 10
)

type Options struct {
	SearchEndpoint string
	// PanelTimeout bounds the wait for the filter panel heading.
	PanelTimeout time.Duration
	// DetailTimeout bounds the wait for an opened result's detail panel.
	DetailTimeout time.Duration
	// SettleDelay is slept after dismissing each detail panel.
	SettleDelay time.Duration
	MaxProducts int
}

func DefaultOptions() Options {
	return Options{
		SearchEndpoint: DefaultSearchEndpoint,
		PanelTimeout:   5 * time.Second,
		DetailTimeout:  5 * time.Second,
		SettleDelay:    time.Second,
		MaxProducts:    DefaultMaxProducts,
	}
}

// ResultSink receives every finished run. Sink failures are logged and never
// fail the scrape.
type ResultSink interface {
	Name() string
	SaveRun(ctx context.Context, run *models.ScrapeRun) error
}

// Request is one scrape invocation. MaxProducts <= 0 selects the default.
type Request struct {
	BaseQuery   string
	Filters     []string
	MaxProducts int
}

type Scraper struct {
	launch    browser.Launcher
	parser    parser.Parser
	navigator *Navigator
	enricher  *Enricher
	sinks     []ResultSink
	opts      Options
	logger    *slog.Logger
}

func New(launch browser.Launcher, p parser.Parser, opts Options, logger *slog.Logger, sinks ...ResultSink) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxProducts <= 0 {
		opts.MaxProducts = DefaultMaxProducts
	}

	return &Scraper{
		launch:    launch,
		parser:    p,
		navigator: NewNavigator(p, opts, logger),
		enricher:  NewEnricher(p, opts, logger),
		sinks:     sinks,
		opts:      opts,
		logger:    logger.With("component", "scraper"),
	}
}

// Scrape opens a dedicated browser session, applies the filters, extracts the
// grid and enriches it. The session is closed on every return path. A blocked
// page is reported through the run's status, not as an error.
func (s *Scraper) Scrape(ctx context.Context, req Request) (*models.ScrapeRun, error) {
	maxProducts := req.MaxProducts
	if maxProducts <= 0 {
		maxProducts = s.opts.MaxProducts
	}

	run := models.NewScrapeRun(req.BaseQuery, req.Filters)
	logger := s.logger.With("run_id", run.ID.String(), "query", req.BaseQuery)
	logger.Info("starting scrape", "filters", req.Filters, "max_products", maxProducts)

	session, err := s.launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("failed to close browser session", "error", err)
		}
	}()

	if err := s.collect(ctx, session, run, maxProducts); err != nil {
		if !errors.Is(err, ErrBlocked) {
			return nil, err
		}
		logger.Error("scrape blocked", "error", err)
		run.Status = models.StatusBlocked
		run.Reason = err.Error()
	}
	run.CompletedAt = time.Now()

	s.deliver(ctx, run)

	logger.Info("scrape finished",
		"status", run.Status,
		"products", len(run.Products),
		"enriched", run.EnrichedCount(),
		"duration", run.CompletedAt.Sub(run.StartedAt),
	)
	return run, nil
}

func (s *Scraper) collect(ctx context.Context, session browser.Session, run *models.ScrapeRun, maxProducts int) error {
	finalURL, err := s.navigator.ApplyFilters(ctx, session, run.Query, run.Filters)
	if err != nil {
		return err
	}
	run.FinalURL = finalURL

	html, err := session.Content(ctx)
	if err != nil {
		return fmt.Errorf("failed to read results page: %w", err)
	}

	records, err := s.parser.ExtractGrid(html)
	if err != nil {
		return fmt.Errorf("failed to extract results grid: %w", err)
	}

	run.Products = s.enricher.Enrich(ctx, session, records, maxProducts)
	run.Status = models.StatusOK
	if len(run.Products) == 0 {
		run.Status = models.StatusEmpty
	}
	return nil
}

func (s *Scraper) deliver(ctx context.Context, run *models.ScrapeRun) {
	for _, sink := range s.sinks {
		if err := sink.SaveRun(ctx, run); err != nil {
			s.logger.Error("result sink failed", "sink", sink.Name(), "run_id", run.ID.String(), "error", err)
		}
	}
}
