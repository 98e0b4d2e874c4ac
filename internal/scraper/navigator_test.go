package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchURL(t *testing.T) {
	n := NewNavigator(testParser(t), testOptions(), slog.Default())

	got := n.SearchURL("men's brown open toe sandals")
	assert.Equal(t, "https://www.google.com/search?tbm=shop&q=men%27s+brown+open+toe+sandals", got)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "men's brown open toe sandals", u.Query().Get("q"))
	assert.Equal(t, "shop", u.Query().Get("tbm"))
}

func TestApplyFiltersEmptyListReturnsSearchURL(t *testing.T) {
	n := NewNavigator(testParser(t), testOptions(), slog.Default())
	s := newFakeSession()

	final, err := n.ApplyFilters(context.Background(), s, "sandals", nil)
	require.NoError(t, err)

	assert.Equal(t, n.SearchURL("sandals"), final)
	assert.Equal(t, []string{n.SearchURL("sandals")}, s.navigations)
}

func TestApplyFiltersSkipsUnknownName(t *testing.T) {
	n := NewNavigator(testParser(t), testOptions(), slog.Default())
	s := newFakeSession()

	start := n.SearchURL("sandals")
	s.pages[start] = panelPage(
		option{group: "Brand", name: "Bata", href: "/search?q=sandals+bata"},
		option{group: "Brand", name: "Puma", href: "/search?q=sandals+puma"},
	)
	bata := "https://www.google.com/search?q=sandals+bata"
	s.pages[bata] = panelPage(
		option{group: "Size", name: "9", href: "/search?q=sandals+bata+size9"},
	)

	final, err := n.ApplyFilters(context.Background(), s, "sandals", []string{"NoSuchFilter", "Bata"})
	require.NoError(t, err)

	assert.Equal(t, bata, final)
	assert.Equal(t, []string{start, bata}, s.navigations)
}

func TestApplyFiltersRederivesPanelAfterEachNavigation(t *testing.T) {
	n := NewNavigator(testParser(t), testOptions(), slog.Default())
	s := newFakeSession()

	start := n.SearchURL("sandals")
	s.pages[start] = panelPage(
		option{group: "Brand", name: "Bata", href: "/shop/bata"},
	)
	s.pages["https://www.google.com/shop/bata"] = panelPage(
		option{group: "Size", name: "9", href: "/shop/bata/9"},
	)
	s.pages["https://www.google.com/shop/bata/9"] = panelPage()

	final, err := n.ApplyFilters(context.Background(), s, "sandals", []string{"Bata", "9"})
	require.NoError(t, err)

	assert.Equal(t, "https://www.google.com/shop/bata/9", final)
	assert.Len(t, s.navigations, 3)
}

func TestApplyFiltersCaseSensitive(t *testing.T) {
	n := NewNavigator(testParser(t), testOptions(), slog.Default())
	s := newFakeSession()

	start := n.SearchURL("sandals")
	s.pages[start] = panelPage(option{group: "Brand", name: "Bata", href: "/shop/bata"})

	final, err := n.ApplyFilters(context.Background(), s, "sandals", []string{"bata"})
	require.NoError(t, err)
	assert.Equal(t, start, final)
}

func TestApplyFiltersBlocked(t *testing.T) {
	n := NewNavigator(testParser(t), testOptions(), slog.Default())
	s := newFakeSession()
	s.pages[n.SearchURL("sandals")] = `<html><body><p>Our systems have detected unusual traffic</p></body></html>`

	_, err := n.ApplyFilters(context.Background(), s, "sandals", []string{"Bata"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Contains(t, err.Error(), "Bata")
}
