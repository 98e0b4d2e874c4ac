package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopgrid/scraper/internal/browser"
	"github.com/shopgrid/scraper/internal/parser"
	"github.com/stretchr/testify/require"
)

// fakeSession is a scripted browser tab: pages by URL, a number of clickable
// cards, and the detail panel each card opens.
type fakeSession struct {
	pages       map[string]string
	current     string
	navigations []string

	cards     int
	details   map[int]string
	failClick map[int]bool
	open      int

	clicks  []int
	escapes int
	closed  bool

	navigateErr error
	contentErr  error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:     make(map[string]string),
		details:   make(map[int]string),
		failClick: make(map[int]bool),
		open:      -1,
	}
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.navigations = append(f.navigations, url)
	if f.navigateErr != nil {
		return f.navigateErr
	}
	f.current = url
	return nil
}

func (f *fakeSession) CurrentURL(ctx context.Context) (string, error) {
	return f.current, nil
}

func (f *fakeSession) Content(ctx context.Context) (string, error) {
	if f.contentErr != nil {
		return "", f.contentErr
	}
	return f.pages[f.current], nil
}

func (f *fakeSession) Count(ctx context.Context, selector string) (int, error) {
	switch selector {
	case parser.RefineHeadingXPath:
		if strings.Contains(f.pages[f.current], "<h3>Refine results</h3>") {
			return 1, nil
		}
		return 0, nil
	case parser.ClickableCardSelector:
		return f.cards, nil
	case parser.DetailPanelSelector:
		if f.open >= 0 && f.details[f.open] != "" {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("unexpected selector %q", selector)
}

func (f *fakeSession) ClickNth(ctx context.Context, selector string, index int) error {
	f.clicks = append(f.clicks, index)
	if f.failClick[index] {
		return errors.New("element is not attached to the DOM")
	}
	f.open = index
	return nil
}

func (f *fakeSession) OuterHTML(ctx context.Context, selector string) (string, error) {
	if f.open < 0 || f.details[f.open] == "" {
		return "", browser.ErrNoElement
	}
	return f.details[f.open], nil
}

func (f *fakeSession) PressKey(ctx context.Context, key string) error {
	if key == browser.KeyEscape {
		f.escapes++
		f.open = -1
	}
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.PanelTimeout = 20 * time.Millisecond
	opts.DetailTimeout = 20 * time.Millisecond
	opts.SettleDelay = 0
	return opts
}

func testParser(t *testing.T) *parser.ShoppingParser {
	t.Helper()
	p, err := parser.NewShoppingParser("", slog.Default())
	require.NoError(t, err)
	return p
}

type option struct {
	group, name, href string
}

func panelPage(options ...option) string {
	var b strings.Builder
	b.WriteString(`<html><body><div role="navigation"><h3>Refine results</h3>`)
	var groups []string
	byGroup := make(map[string][]option)
	for _, o := range options {
		if _, ok := byGroup[o.group]; !ok {
			groups = append(groups, o.group)
		}
		byGroup[o.group] = append(byGroup[o.group], o)
	}
	for _, g := range groups {
		fmt.Fprintf(&b, `<g-accordion-expander><span role="heading">%s</span><ul jsname="CbM3zb">`, g)
		for _, o := range byGroup[g] {
			fmt.Fprintf(&b, `<li><a href="%s"><div class="IFgTAb" title="%s" aria-label="%s"></div></a></li>`, o.href, o.name, o.name)
		}
		b.WriteString(`</ul></g-accordion-expander>`)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func gridPage(n int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div role="navigation"><h3>Refine results</h3></div><ul>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<li class="YBo8bb"><div role="link"><div class="gkQHve">item-%d</div><span class="lmQWe">₹%d</span><span class="WJMUdc">seller-%d</span></div></li>`, i, 100+i, i)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func detailPanel(i int) string {
	return fmt.Sprintf(`<div class="zxYWDc"><a class="uchJRc" href="https://shop.example.com/p/%d">Visit site</a><img class="KfAt4d" src="https://img.example.com/%d.jpg"></div>`, i, i)
}
