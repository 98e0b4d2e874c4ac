package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shopgrid/scraper/internal/models"
)

type EventType string

const (
	// EventTypeScrapeCompleted is published once per finished scrape,
	// blocked runs included.
	EventTypeScrapeCompleted EventType = "SCRAPE_COMPLETED"

	DefaultStream = "stream:scrape_runs"
	eventSource   = "shopscraper"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// ScrapeCompletedPayload summarizes a run for downstream consumers. Product
// records are not included; consumers read them from run history.
type ScrapeCompletedPayload struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	RunID         string    `json:"run_id"`
	BaseQuery     string    `json:"base_query"`
	Filters       []string  `json:"filters"`
	FinalURL      string    `json:"final_url"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	ProductCount  int       `json:"product_count"`
	EnrichedCount int       `json:"enriched_count"`
	DurationMS    int64     `json:"duration_ms"`
	Source        string    `json:"source"`
}

type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

func (p *Publisher) Name() string {
	return "redis"
}

func (p *Publisher) SaveRun(ctx context.Context, run *models.ScrapeRun) error {
	_, err := p.PublishRunCompleted(ctx, run)
	return err
}

// PublishRunCompleted appends a SCRAPE_COMPLETED entry to the stream and
// returns the entry ID assigned by Redis.
func (p *Publisher) PublishRunCompleted(ctx context.Context, run *models.ScrapeRun) (string, error) {
	payload := NewScrapeCompletedPayload(run)

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":         string(data),
			"type":         payload.EventType,
			"event_type":   payload.EventType,
			"timestamp":    fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
			"original_id":  payload.EventID,
			"aggregate_id": payload.RunID,
			"status":       payload.Status,
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("published event",
		"event_type", payload.EventType,
		"run_id", payload.RunID,
		"stream", p.stream,
		"entry_id", id,
	)
	return id, nil
}

func NewScrapeCompletedPayload(run *models.ScrapeRun) *ScrapeCompletedPayload {
	completed := run.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}
	filters := run.Filters
	if filters == nil {
		filters = []string{}
	}

	return &ScrapeCompletedPayload{
		EventID:       uuid.New().String(),
		EventType:     string(EventTypeScrapeCompleted),
		Timestamp:     completed,
		RunID:         run.ID.String(),
		BaseQuery:     run.Query,
		Filters:       filters,
		FinalURL:      run.FinalURL,
		Status:        string(run.Status),
		Reason:        run.Reason,
		ProductCount:  len(run.Products),
		EnrichedCount: run.EnrichedCount(),
		DurationMS:    completed.Sub(run.StartedAt).Milliseconds(),
		Source:        eventSource,
	}
}
