package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/shopgrid/scraper/internal/browser"
	"github.com/shopgrid/scraper/internal/parser"
)

// Navigator applies filters one full navigation at a time. The panel is
// re-parsed after every load because the options on offer depend on the
// filters already applied.
type Navigator struct {
	parser   parser.Parser
	endpoint string
	timeout  time.Duration
	logger   *slog.Logger
}

func NewNavigator(p parser.Parser, opts Options, logger *slog.Logger) *Navigator {
	endpoint := opts.SearchEndpoint
	if endpoint == "" {
		endpoint = DefaultSearchEndpoint
	}
	timeout := opts.PanelTimeout
	if timeout <= 0 {
		timeout = DefaultOptions().PanelTimeout
	}

	return &Navigator{
		parser:   p,
		endpoint: endpoint,
		timeout:  timeout,
		logger:   logger.With("component", "navigator"),
	}
}

func (n *Navigator) SearchURL(query string) string {
	return n.endpoint + url.QueryEscape(query)
}

// ApplyFilters loads the search for query and applies each named filter in
// order. Unknown names are skipped. Returns the final page URL, or an error
// wrapping ErrBlocked when the filter panel never appears.
func (n *Navigator) ApplyFilters(ctx context.Context, s browser.Session, query string, names []string) (string, error) {
	initial := n.SearchURL(query)
	n.logger.Info("loading search", "url", initial)
	if err := s.Navigate(ctx, initial); err != nil {
		return "", fmt.Errorf("failed to load search page: %w", err)
	}

	for i, name := range names {
		n.logger.Info("applying filter", "filter", name, "position", i+1, "total", len(names))

		if err := browser.WaitForSelector(ctx, s, parser.RefineHeadingXPath, n.timeout); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: filter panel missing before %q: %v", ErrBlocked, name, err)
		}

		html, err := s.Content(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to read page for filter %q: %w", name, err)
		}
		panel, err := n.parser.ParseFilters(html)
		if err != nil {
			return "", fmt.Errorf("failed to parse filters: %w", err)
		}

		if panel.Empty() {
			n.logger.Warn("filter panel has no groups", "filter", name)
		} else {
			n.logger.Debug("parsed filter panel", "groups", len(panel.Groups), "selected", panel.Selected())
		}

		target, ok := panel.LookupTarget(name)
		if !ok {
			n.logger.Warn("filter not found, skipping", "filter", name, "groups", len(panel.Groups))
			continue
		}
		if err := s.Navigate(ctx, target); err != nil {
			return "", fmt.Errorf("failed to apply filter %q: %w", name, err)
		}
	}

	finalURL, err := s.CurrentURL(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read final URL: %w", err)
	}
	n.logger.Info("filters applied", "url", finalURL)
	return finalURL, nil
}
