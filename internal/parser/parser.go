package parser

import (
	"github.com/shopgrid/scraper/internal/models"
)

type Parser interface {
	ParseFilters(html string) (*models.FilterPanel, error)
	ExtractGrid(html string) ([]*models.ProductRecord, error)
	ParseDetail(html string) (*Detail, error)
}

// Detail carries the fields only present in an opened result panel.
// Missing elements leave the corresponding field empty.
type Detail struct {
	ProductLink string
	ImageURL    string
}
