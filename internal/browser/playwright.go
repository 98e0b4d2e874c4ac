package browser

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightSession drives a single Chromium page through playwright-go.
type PlaywrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	logger  *slog.Logger
}

func NewPlaywright(opts *Options, logger *slog.Logger) (*PlaywrightSession, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-gpu",
			"--disable-extensions",
			"--disable-plugins-discovery",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
			"--user-agent=" + opts.UserAgent,
		},
	}
	if opts.ExecPath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecPath)
	}
	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	headers := make(map[string]string, len(opts.ExtraHeaders)+1)
	for k, v := range opts.ExtraHeaders {
		headers[k] = v
	}
	if opts.AcceptLanguage != "" {
		headers["Accept-Language"] = opts.AcceptLanguage
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: headers,
	}

	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	s := &PlaywrightSession{
		pw:      pw,
		browser: browser,
		context: bctx,
		logger:  logger.With("component", "browser", "driver", DriverPlaywright),
	}

	if len(opts.BlockResources) > 0 {
		blocked := opts.BlockResources
		err := bctx.Route("**/*", func(route playwright.Route) {
			if slices.Contains(blocked, route.Request().ResourceType()) {
				_ = route.Abort()
				return
			}
			_ = route.Continue()
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to install resource filter: %w", err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
	s.page = page

	s.logger.Debug("browser session opened", "headless", opts.Headless)
	return s, nil
}

func (s *PlaywrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *PlaywrightSession) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.URL(), nil
}

func (s *PlaywrightSession) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return content, nil
}

func (s *PlaywrightSession) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.page.Locator(selector).Count()
}

func (s *PlaywrightSession) ClickNth(ctx context.Context, selector string, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	el := s.page.Locator(selector).Nth(index)
	if err := el.Click(); err != nil {
		return fmt.Errorf("failed to click %s[%d]: %w", selector, index, err)
	}
	return nil
}

func (s *PlaywrightSession) OuterHTML(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	el := s.page.Locator(selector).First()
	count, err := el.Count()
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoElement, selector)
	}
	html, err := el.Evaluate("el => el.outerHTML", nil)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", selector, err)
	}
	str, ok := html.(string)
	if !ok {
		return "", fmt.Errorf("unexpected outerHTML type %T", html)
	}
	return str, nil
}

func (s *PlaywrightSession) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.page.Keyboard().Press(key)
}

func (s *PlaywrightSession) Close() error {
	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	s.logger.Debug("browser session closed")
	return nil
}
