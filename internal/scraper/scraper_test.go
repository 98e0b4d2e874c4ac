package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/shopgrid/scraper/internal/browser"
	"github.com/shopgrid/scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Name() string {
	return "mock"
}

func (m *MockSink) SaveRun(ctx context.Context, run *models.ScrapeRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func launcherFor(s *fakeSession) browser.Launcher {
	return func(ctx context.Context) (browser.Session, error) {
		return s, nil
	}
}

func TestScrapeAppliesFiltersAndEnriches(t *testing.T) {
	p := testParser(t)
	s := newFakeSession()

	start := DefaultSearchEndpoint + "sandals"
	filtered := "https://www.google.com/shop/bata"
	s.pages[start] = panelPage(option{group: "Brand", name: "Bata", href: "/shop/bata"})
	s.pages[filtered] = gridPage(12)
	s.cards = 12
	for i := 0; i < 12; i++ {
		s.details[i] = detailPanel(i)
	}

	sink := new(MockSink)
	sink.On("SaveRun", mock.Anything, mock.AnythingOfType("*models.ScrapeRun")).Return(nil)

	sc := New(launcherFor(s), p, testOptions(), slog.Default(), sink)
	run, err := sc.Scrape(context.Background(), Request{
		BaseQuery:   "sandals",
		Filters:     []string{"Bata"},
		MaxProducts: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusOK, run.Status)
	assert.Equal(t, filtered, run.FinalURL)
	require.Len(t, run.Products, 5)
	assert.Equal(t, "item-0", run.Products[0].Title)
	assert.Equal(t, 5, run.EnrichedCount())
	assert.False(t, run.CompletedAt.Before(run.StartedAt))
	assert.True(t, s.closed)
	sink.AssertExpectations(t)
}

func TestScrapeDefaultMaxProducts(t *testing.T) {
	s := newFakeSession()
	s.pages[DefaultSearchEndpoint+"sandals"] = gridPage(15)
	s.cards = 15
	for i := 0; i < 15; i++ {
		s.details[i] = detailPanel(i)
	}

	sc := New(launcherFor(s), testParser(t), testOptions(), slog.Default())
	run, err := sc.Scrape(context.Background(), Request{BaseQuery: "sandals"})
	require.NoError(t, err)

	require.Len(t, run.Products, DefaultMaxProducts)
	for i, r := range run.Products {
		assert.Equal(t, fmt.Sprintf("item-%d", i), r.Title)
	}
}

func TestScrapeBlocked(t *testing.T) {
	s := newFakeSession()
	s.pages[DefaultSearchEndpoint+"sandals"] = `<html><body>unusual traffic</body></html>`

	sink := new(MockSink)
	sink.On("SaveRun", mock.Anything, mock.MatchedBy(func(run *models.ScrapeRun) bool {
		return run.Blocked()
	})).Return(nil)

	sc := New(launcherFor(s), testParser(t), testOptions(), slog.Default(), sink)
	run, err := sc.Scrape(context.Background(), Request{BaseQuery: "sandals", Filters: []string{"Bata"}})
	require.NoError(t, err)

	assert.Equal(t, models.StatusBlocked, run.Status)
	assert.NotEmpty(t, run.Reason)
	assert.Empty(t, run.Products)
	assert.True(t, s.closed)
	sink.AssertExpectations(t)
}

func TestScrapeEmptyGrid(t *testing.T) {
	s := newFakeSession()
	s.pages[DefaultSearchEndpoint+"sandals"] = gridPage(0)

	sc := New(launcherFor(s), testParser(t), testOptions(), slog.Default())
	run, err := sc.Scrape(context.Background(), Request{BaseQuery: "sandals"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusEmpty, run.Status)
	assert.NotNil(t, run.Products)
	assert.Empty(t, run.Products)
}

func TestScrapeLaunchFailure(t *testing.T) {
	launch := func(ctx context.Context) (browser.Session, error) {
		return nil, errors.New("browser binary not found")
	}

	sc := New(launch, testParser(t), testOptions(), slog.Default())
	_, err := sc.Scrape(context.Background(), Request{BaseQuery: "sandals"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser binary not found")
}

func TestScrapeSessionErrorClosesBrowser(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *fakeSession)
		want  string
	}{
		{
			name:  "navigate fails",
			setup: func(s *fakeSession) { s.navigateErr = errors.New("net::ERR_CONNECTION_RESET") },
			want:  "failed to load search page",
		},
		{
			name: "content fails",
			setup: func(s *fakeSession) {
				s.pages[DefaultSearchEndpoint+"sandals"] = gridPage(3)
				s.contentErr = errors.New("target closed")
			},
			want: "failed to read results page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeSession()
			tt.setup(s)
			sink := new(MockSink)

			sc := New(launcherFor(s), testParser(t), testOptions(), slog.Default(), sink)
			run, err := sc.Scrape(context.Background(), Request{BaseQuery: "sandals"})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.False(t, errors.Is(err, ErrBlocked))
			assert.Nil(t, run)
			assert.True(t, s.closed)
			sink.AssertNotCalled(t, "SaveRun", mock.Anything, mock.Anything)
		})
	}
}

func TestScrapeSinkErrorDoesNotFail(t *testing.T) {
	s := newFakeSession()
	s.pages[DefaultSearchEndpoint+"sandals"] = gridPage(1)
	s.cards = 1
	s.details[0] = detailPanel(0)

	failing := new(MockSink)
	failing.On("SaveRun", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	ok := new(MockSink)
	ok.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	sc := New(launcherFor(s), testParser(t), testOptions(), slog.Default(), failing, ok)
	run, err := sc.Scrape(context.Background(), Request{BaseQuery: "sandals"})
	require.NoError(t, err)

	assert.Len(t, run.Products, 1)
	failing.AssertExpectations(t)
	ok.AssertExpectations(t)
}
