package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"
)

// KeyEscape dismisses overlays such as an opened result panel.
const KeyEscape = "Escape"

var ErrNoElement = errors.New("element not found")

// Session is one exclusively owned browser tab. Selectors starting with "//"
// are XPath, everything else is CSS.
type Session interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	Count(ctx context.Context, selector string) (int, error)
	ClickNth(ctx context.Context, selector string, index int) error
	OuterHTML(ctx context.Context, selector string) (string, error)
	PressKey(ctx context.Context, key string) error
	Close() error
}

// Launcher starts a fresh browser session.
type Launcher func(ctx context.Context) (Session, error)

type Options struct {
	Driver         string
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	ExecPath       string
	// BlockResources lists resource types (image, stylesheet, font, media)
	// that are not downloaded. Attributes such as img src stay readable.
	BlockResources []string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Driver:         DriverPlaywright,
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-US,en;q=0.9",
		TimezoneID:     "UTC",
		Locale:         "en-US",
		BlockResources: []string{"image", "stylesheet"},
		ExtraHeaders: map[string]string{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"DNT":    "1",
		},
	}
}

// NewLauncher returns a Launcher for the driver named in opts.
func NewLauncher(opts *Options, logger *slog.Logger) (Launcher, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Driver {
	case "", DriverPlaywright:
		return func(ctx context.Context) (Session, error) {
			return NewPlaywright(opts, logger)
		}, nil
	case DriverChromedp:
		return func(ctx context.Context) (Session, error) {
			return NewChrome(opts, logger)
		}, nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", opts.Driver)
	}
}
