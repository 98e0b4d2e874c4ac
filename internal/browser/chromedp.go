package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// ChromeSession drives a single Chrome tab through the DevTools protocol.
type ChromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      *slog.Logger
}

var chromeKeys = map[string]string{
	KeyEscape: kb.Escape,
	"Enter":   kb.Enter,
}

func NewChrome(opts *Options, logger *slog.Logger) (*ChromeSession, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", opts.Locale),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.ProxyServer != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.ProxyServer))
	}
	for _, res := range opts.BlockResources {
		if res == "image" {
			allocOpts = append(allocOpts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions().Timeout
	}

	s := &ChromeSession{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		timeout:     timeout,
		logger:      logger.With("component", "browser", "driver", DriverChromedp),
	}
	s.logger.Debug("browser session opened", "headless", opts.Headless)
	return s, nil
}

// run executes actions on the tab, bounded by the session timeout and
// cancelled together with the caller's ctx.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *ChromeSession) nodes(ctx context.Context, selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	return nodes, nil
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *ChromeSession) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := s.run(ctx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return location, nil
}

func (s *ChromeSession) Content(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return html, nil
}

func (s *ChromeSession) Count(ctx context.Context, selector string) (int, error) {
	nodes, err := s.nodes(ctx, selector)
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (s *ChromeSession) ClickNth(ctx context.Context, selector string, index int) error {
	nodes, err := s.nodes(ctx, selector)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(nodes) {
		return fmt.Errorf("%w: %s[%d] of %d", ErrNoElement, selector, index, len(nodes))
	}
	if err := s.run(ctx, chromedp.MouseClickNode(nodes[index])); err != nil {
		return fmt.Errorf("failed to click %s[%d]: %w", selector, index, err)
	}
	return nil
}

func (s *ChromeSession) OuterHTML(ctx context.Context, selector string) (string, error) {
	nodes, err := s.nodes(ctx, selector)
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoElement, selector)
	}

	var html string
	ids := []cdp.NodeID{nodes[0].NodeID}
	if err := s.run(ctx, chromedp.OuterHTML(ids, &html, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", selector, err)
	}
	return html, nil
}

func (s *ChromeSession) PressKey(ctx context.Context, key string) error {
	k, ok := chromeKeys[key]
	if !ok {
		if len(key) != 1 {
			return fmt.Errorf("unsupported key %q", key)
		}
		k = strings.ToLower(key)
	}
	return s.run(ctx, chromedp.KeyEvent(k))
}

func (s *ChromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()
	if err != nil {
		return fmt.Errorf("failed to close chrome: %w", err)
	}
	s.logger.Debug("browser session closed")
	return nil
}
