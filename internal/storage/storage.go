package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopgrid/scraper/internal/models"
)

// FileStore writes the products of the latest run to a single JSON file.
// Blocked runs are counted but never overwrite the file.
type FileStore struct {
	mu       sync.RWMutex
	filename string
	stats    map[models.ScrapeStatus]int
}

func NewFileStore(filename string) (*FileStore, error) {
	if filename == "" {
		return nil, fmt.Errorf("output filename is required")
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	return &FileStore{
		filename: filename,
		stats:    make(map[models.ScrapeStatus]int),
	}, nil
}

func (fs *FileStore) Name() string {
	return "file"
}

func (fs *FileStore) SaveRun(ctx context.Context, run *models.ScrapeRun) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.stats[run.Status]++
	if run.Blocked() {
		return nil
	}

	products := run.Products
	if products == nil {
		products = []*models.ProductRecord{}
	}
	return fs.save(products)
}

// Load returns the products last written to the file.
func (fs *FileStore) Load() ([]*models.ProductRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.filename)
	if err != nil {
		return nil, err
	}

	var products []*models.ProductRecord
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", fs.filename, err)
	}
	return products, nil
}

func (fs *FileStore) GetStats() map[string]int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	stats := make(map[string]int, len(fs.stats)+1)
	total := 0
	for status, n := range fs.stats {
		stats[string(status)] = n
		total += n
	}
	stats["total"] = total
	return stats
}

func (fs *FileStore) save(products []*models.ProductRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(products); err != nil {
		return fmt.Errorf("failed to encode products: %w", err)
	}

	// Write to temp file first for atomicity
	tmpFile := fs.filename + ".tmp"
	if err := os.WriteFile(tmpFile, buf.Bytes(), 0o644); err != nil {
		return err
	}

	return os.Rename(tmpFile, fs.filename)
}
