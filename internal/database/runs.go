package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shopgrid/scraper/internal/models"
)

//go:embed schema.sql
var schema string

const (
	insertRunSQL = `
		INSERT INTO scrape_runs (
			id, base_query, filters, final_url, status, reason,
			product_count, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)`

	insertProductSQL = `
		INSERT INTO scrape_products (
			run_id, position, title, price_current, price_original, seller,
			rating_score, review_count, product_link, image_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	recentRunsSQL = `
		SELECT id, base_query, filters, final_url, status, COALESCE(reason, ''),
			started_at, completed_at
		FROM scrape_runs
		ORDER BY started_at DESC
		LIMIT $1`

	getRunSQL = `
		SELECT id, base_query, filters, final_url, status, COALESCE(reason, ''),
			started_at, completed_at
		FROM scrape_runs
		WHERE id = $1`

	runProductsSQL = `
		SELECT title, price_current, price_original, seller, rating_score,
			review_count, product_link, image_url
		FROM scrape_products
		WHERE run_id = $1
		ORDER BY position ASC`
)

// RunRepository keeps the history of scrape runs and the products each
// returned.
type RunRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewRunRepository(db *DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger.With("component", "run_repository"),
	}
}

// EnsureSchema creates the run tables when they do not exist yet.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *RunRepository) Name() string {
	return "postgres"
}

// SaveRun stores the run and its products in one transaction.
func (r *RunRepository) SaveRun(ctx context.Context, run *models.ScrapeRun) error {
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertRunSQL, runArgs(run)...); err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		if len(run.Products) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, p := range run.Products {
			batch.Queue(insertProductSQL, productArgs(run, i, p)...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert products: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug("saved run", "run_id", run.ID.String(), "products", len(run.Products))
	return nil
}

// RecentRuns returns the latest runs, newest first, without their products.
func (r *RunRepository) RecentRuns(ctx context.Context, limit int) ([]*models.ScrapeRun, error) {
	rows, err := r.db.pool.Query(ctx, recentRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.ScrapeRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run with its products, or nil if no run has that ID.
func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.ScrapeRun, error) {
	run, err := scanRun(r.db.pool.QueryRow(ctx, getRunSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := r.LoadProducts(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// LoadProducts fills run.Products in their original order.
func (r *RunRepository) LoadProducts(ctx context.Context, run *models.ScrapeRun) error {
	rows, err := r.db.pool.Query(ctx, runProductsSQL, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.ProductRecord, 0)
	for rows.Next() {
		p := &models.ProductRecord{}
		if err := rows.Scan(
			&p.Title, &p.PriceCurrent, &p.PriceOriginal, &p.Seller, &p.RatingScore,
			&p.ReviewCount, &p.ProductLink, &p.ImageURL,
		); err != nil {
			return fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read products: %w", err)
	}

	run.Products = products
	return nil
}

func scanRun(row pgx.Row) (*models.ScrapeRun, error) {
	run := &models.ScrapeRun{}
	var status string
	if err := row.Scan(
		&run.ID, &run.Query, &run.Filters, &run.FinalURL, &status,
		&run.Reason, &run.StartedAt, &run.CompletedAt,
	); err != nil {
		return nil, err
	}
	run.Status = models.ScrapeStatus(status)
	return run, nil
}

func runArgs(run *models.ScrapeRun) []any {
	filters := run.Filters
	if filters == nil {
		filters = []string{}
	}
	return []any{
		run.ID, run.Query, filters, run.FinalURL, string(run.Status), run.Reason,
		len(run.Products), run.StartedAt, run.CompletedAt,
	}
}

func productArgs(run *models.ScrapeRun, position int, p *models.ProductRecord) []any {
	return []any{
		run.ID, position, p.Title, p.PriceCurrent, p.PriceOriginal, p.Seller,
		p.RatingScore, p.ReviewCount, p.ProductLink, p.ImageURL,
	}
}
