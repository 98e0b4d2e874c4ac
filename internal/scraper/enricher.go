package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopgrid/scraper/internal/browser"
	"github.com/shopgrid/scraper/internal/models"
	"github.com/shopgrid/scraper/internal/parser"
)

// Enricher opens each result's detail panel to recover the outbound link and
// image. Records are matched to on-screen cards by position.
type Enricher struct {
	parser  parser.Parser
	timeout time.Duration
	settle  time.Duration
	logger  *slog.Logger
}

func NewEnricher(p parser.Parser, opts Options, logger *slog.Logger) *Enricher {
	timeout := opts.DetailTimeout
	if timeout <= 0 {
		timeout = DefaultOptions().DetailTimeout
	}
	settle := opts.SettleDelay
	if settle < 0 {
		settle = 0
	}

	return &Enricher{
		parser:  p,
		timeout: timeout,
		settle:  settle,
		logger:  logger.With("component", "enricher"),
	}
}

// Enrich fills ProductLink and ImageURL of the first maxProducts records in
// place and returns the records truncated to maxProducts. Order and length
// up to that bound are preserved; per-item failures leave the fields nil.
func (e *Enricher) Enrich(ctx context.Context, s browser.Session, records []*models.ProductRecord, maxProducts int) []*models.ProductRecord {
	if maxProducts < 0 {
		maxProducts = 0
	}

	cards, err := s.Count(ctx, parser.ClickableCardSelector)
	if err != nil {
		e.logger.Warn("failed to locate clickable cards", "error", err)
		cards = 0
	}
	if cards != len(records) {
		e.logger.Warn("card count differs from extracted records", "cards", cards, "records", len(records))
	}

	limit := min(len(records), cards, maxProducts)
	e.logger.Info("enriching products", "count", limit)

	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			e.logger.Warn("enrichment interrupted", "index", i, "error", ctx.Err())
			break
		}

		if err := e.enrichOne(ctx, s, i, records[i]); err != nil {
			e.logger.Warn("failed to enrich product", "index", i, "title", records[i].Title, "error", err)
		} else {
			e.logger.Debug("enriched product", "index", i, "title", records[i].Title)
		}

		if err := s.PressKey(ctx, browser.KeyEscape); err != nil {
			e.logger.Debug("failed to dismiss detail panel", "index", i, "error", err)
		}
		e.pause(ctx)
	}

	if len(records) > maxProducts {
		records = records[:maxProducts]
	}
	return records
}

func (e *Enricher) enrichOne(ctx context.Context, s browser.Session, i int, record *models.ProductRecord) error {
	if err := s.ClickNth(ctx, parser.ClickableCardSelector, i); err != nil {
		return err
	}
	if err := browser.WaitForSelector(ctx, s, parser.DetailPanelSelector, e.timeout); err != nil {
		return err
	}

	html, err := s.OuterHTML(ctx, parser.DetailPanelSelector)
	if err != nil {
		return err
	}
	detail, err := e.parser.ParseDetail(html)
	if err != nil {
		return fmt.Errorf("failed to parse detail panel: %w", err)
	}

	record.ProductLink = &detail.ProductLink
	record.ImageURL = &detail.ImageURL
	return nil
}

func (e *Enricher) pause(ctx context.Context) {
	if e.settle == 0 {
		return
	}
	t := time.NewTimer(e.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
