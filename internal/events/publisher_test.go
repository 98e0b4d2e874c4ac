package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shopgrid/scraper/internal/models"
)

// MockRedisClient is a mock for Redis client
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func finishedRun() *models.ScrapeRun {
	run := models.NewScrapeRun("sandals", []string{"Bata", "9"})
	run.Status = models.StatusOK
	run.FinalURL = "https://www.google.com/shop/bata/9"
	link, img := "https://shop.example.com/p/1", "https://img.example.com/1.jpg"
	run.Products = []*models.ProductRecord{
		{Title: "a", PriceCurrent: "1", Seller: "s", ProductLink: &link, ImageURL: &img},
		{Title: "b", PriceCurrent: "2", Seller: "s"},
	}
	run.CompletedAt = run.StartedAt.Add(1500 * time.Millisecond)
	return run
}

func TestPublishRunCompleted(t *testing.T) {
	ctx := context.Background()
	run := finishedRun()

	t.Run("publishes summary to stream", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			if args.Stream != DefaultStream {
				return false
			}
			if args.Values.(map[string]interface{})["event_type"] != "SCRAPE_COMPLETED" {
				return false
			}
			var payload ScrapeCompletedPayload
			data := args.Values.(map[string]interface{})["data"].(string)
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				return false
			}
			return payload.RunID == run.ID.String() &&
				payload.ProductCount == 2 &&
				payload.EnrichedCount == 1 &&
				payload.DurationMS == 1500 &&
				payload.Status == "ok"
		})).Return(nil)

		p := NewPublisher(mockRedis, "", slog.Default())
		id, err := p.PublishRunCompleted(ctx, run)
		require.NoError(t, err)
		assert.Equal(t, "1234567890-0", id)

		mockRedis.AssertExpectations(t)
	})

	t.Run("redis failure is returned", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		mockRedis.On("XAdd", ctx, mock.Anything).Return(errors.New("connection refused"))

		p := NewPublisher(mockRedis, "stream:custom", slog.Default())
		err := p.SaveRun(ctx, run)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")

		mockRedis.AssertExpectations(t)
	})
}

func TestNewScrapeCompletedPayloadBlocked(t *testing.T) {
	run := models.NewScrapeRun("sandals", nil)
	run.Status = models.StatusBlocked
	run.Reason = "results page blocked or unrecognized"

	payload := NewScrapeCompletedPayload(run)
	assert.Equal(t, "blocked", payload.Status)
	assert.Equal(t, run.Reason, payload.Reason)
	assert.NotNil(t, payload.Filters)
	assert.Zero(t, payload.ProductCount)
	assert.Equal(t, "shopscraper", payload.Source)
	assert.NotEmpty(t, payload.EventID)
}
