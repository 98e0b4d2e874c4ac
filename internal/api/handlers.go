package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/shopgrid/scraper/internal/catalog"
	"github.com/shopgrid/scraper/internal/models"
	"github.com/shopgrid/scraper/internal/ratelimit"
	"github.com/shopgrid/scraper/internal/scraper"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// Scraper runs one scrape to completion.
type Scraper interface {
	Scrape(ctx context.Context, req scraper.Request) (*models.ScrapeRun, error)
}

// RunStore reads run history. GetRun returns nil for an unknown ID.
type RunStore interface {
	RecentRuns(ctx context.Context, limit int) ([]*models.ScrapeRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (*models.ScrapeRun, error)
}

// ResultStore exposes the latest result file and run counts by status.
type ResultStore interface {
	Load() ([]*models.ProductRecord, error)
	GetStats() map[string]int
}

type Handlers struct {
	scraper     Scraper
	gate        *ratelimit.Gate
	runs        RunStore
	results     ResultStore
	filtersFile string
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewHandlers wires the API. runs and results may be nil when run history or
// the result file is disabled.
func NewHandlers(s Scraper, gate *ratelimit.Gate, runs RunStore, results ResultStore, filtersFile string, logger *slog.Logger) *Handlers {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handlers{
		scraper:     s,
		gate:        gate,
		runs:        runs,
		results:     results,
		filtersFile: filtersFile,
		validate:    v,
		logger:      logger.With("component", "api"),
	}
}

// ScrapeRequest is the body of POST /scrape. Both keys must be present;
// base_query may be empty and filters may be an empty list.
type ScrapeRequest struct {
	BaseQuery   *string  `json:"base_query" validate:"required"`
	Filters     []string `json:"filters" validate:"required"`
	MaxProducts int      `json:"max_products" validate:"omitempty,min=1,max=50"`
}

// Scrape handles POST /scrape and responds with the product records.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	release, err := h.gate.Enter(r.Context())
	if err != nil {
		if errors.Is(err, ratelimit.ErrThrottled) {
			h.respondError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		h.respondError(w, http.StatusServiceUnavailable, "no browser slot available")
		return
	}
	defer release()

	run, err := h.scraper.Scrape(r.Context(), scraper.Request{
		BaseQuery:   *req.BaseQuery,
		Filters:     req.Filters,
		MaxProducts: req.MaxProducts,
	})
	if err != nil {
		h.logger.Error("scrape failed", "error", err, "query", *req.BaseQuery)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run.Blocked() {
		h.respondError(w, http.StatusInternalServerError, run.Reason)
		return
	}

	products := run.Products
	if products == nil {
		products = []*models.ProductRecord{}
	}
	h.respondJSON(w, http.StatusOK, products)
}

// Filters handles GET /filters by serving the filter catalog file as stored.
func (h *Handlers) Filters(w http.ResponseWriter, r *http.Request) {
	raw, err := catalog.ReadRaw(h.filtersFile)
	if err != nil {
		h.logger.Error("failed to load filter catalog", "error", err, "path", h.filtersFile)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, raw)
}

// Runs handles GET /runs?limit=N.
func (h *Handlers) Runs(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.respondError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	limit := defaultRunsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxRunsLimit {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxRunsLimit))
			return
		}
		limit = n
	}

	runs, err := h.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	h.respondJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /runs/{runID} and includes the run's products.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.respondError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get run", "error", err, "run_id", id.String())
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	h.respondJSON(w, http.StatusOK, run)
}

// Products handles GET /products with the contents of the latest result file.
func (h *Handlers) Products(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		h.respondError(w, http.StatusNotFound, "result file is disabled")
		return
	}

	products, err := h.results.Load()
	if errors.Is(err, fs.ErrNotExist) {
		h.respondError(w, http.StatusNotFound, "no results yet")
		return
	}
	if err != nil {
		h.logger.Error("failed to load results", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load results")
		return
	}
	if products == nil {
		products = []*models.ProductRecord{}
	}
	h.respondJSON(w, http.StatusOK, products)
}

// GetStats handles statistics retrieval
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		h.respondError(w, http.StatusNotFound, "result file is disabled")
		return
	}
	h.respondJSON(w, http.StatusOK, h.results.GetStats())
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"max_concurrent": h.gate.MaxConcurrent(),
		"run_history":    h.runs != nil,
		"result_file":    h.results != nil,
	})
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "missing base_query or filters in request"
	case "min", "max":
		return fmt.Sprintf("%s must be between 1 and 50", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
