package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductRecord is one result card. ProductLink and ImageURL stay nil until
// the enrichment pass fills them.
type ProductRecord struct {
	Title         string  `json:"title"`
	PriceCurrent  string  `json:"price_current"`
	PriceOriginal *string `json:"price_original"`
	Seller        string  `json:"seller"`
	RatingScore   *string `json:"rating_score"`
	ReviewCount   *string `json:"review_count"`
	ProductLink   *string `json:"product_link"`
	ImageURL      *string `json:"image_url"`
}

// Enriched reports whether the detail pass has written both dynamic fields.
func (p *ProductRecord) Enriched() bool {
	return p.ProductLink != nil && p.ImageURL != nil
}

type ScrapeStatus string

const (
	StatusOK      ScrapeStatus = "ok"
	StatusEmpty   ScrapeStatus = "empty"
	StatusBlocked ScrapeStatus = "blocked"
)

// ScrapeRun is the outcome of a single scrape request.
type ScrapeRun struct {
	ID          uuid.UUID        `json:"id"`
	Query       string           `json:"base_query"`
	Filters     []string         `json:"filters"`
	FinalURL    string           `json:"final_url"`
	Status      ScrapeStatus     `json:"status"`
	Reason      string           `json:"reason,omitempty"`
	Products    []*ProductRecord `json:"products"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

func NewScrapeRun(query string, filters []string) *ScrapeRun {
	return &ScrapeRun{
		ID:        uuid.New(),
		Query:     query,
		Filters:   filters,
		Products:  make([]*ProductRecord, 0),
		StartedAt: time.Now(),
	}
}

// Blocked reports whether the run stopped because the results page never
// showed its filter panel.
func (r *ScrapeRun) Blocked() bool {
	return r.Status == StatusBlocked
}

func (r *ScrapeRun) EnrichedCount() int {
	n := 0
	for _, p := range r.Products {
		if p.Enriched() {
			n++
		}
	}
	return n
}

