// Package api exposes the product-tracking and price-history HTTP endpoints.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fluxmon/fluxmon/internal/storage"
)

// Enqueuer submits a scrape job. *queue.Producer satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, productID uint) (string, error)
}

// TrackRequest is the payload for tracking a new product.
type TrackRequest struct {
	URL           string  `json:"url" binding:"required,url"`
	Name          *string `json:"name"`
	PriceSelector *string `json:"price_selector"`
}

// TrackResponse acknowledges a tracked product. JobID identifies the
// fire-and-forget initial scrape; callers poll price history for results.
type TrackResponse struct {
	ProductID uint   `json:"product_id"`
	JobID     string `json:"job_id,omitempty"`
}

// PricePoint is a single entry in a product's price history.
type PricePoint struct {
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceHistoryResponse is a product's price history, ascending by
// observation timestamp.
type PriceHistoryResponse struct {
	ProductID uint         `json:"product_id"`
	Prices    []PricePoint `json:"prices"`
}

// Handler serves the tracking API.
type Handler struct {
	repo   storage.Repository
	jobs   Enqueuer
	logger *logrus.Logger
}

// NewHandler creates a Handler.
func NewHandler(repo storage.Repository, jobs Enqueuer, logger *logrus.Logger) *Handler {
	return &Handler{repo: repo, jobs: jobs, logger: logger}
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Track creates a tracked product (or returns the existing one for an
// already-tracked URL) and dispatches its first scrape job.
func (h *Handler) Track(c *gin.Context) {
	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := &storage.Product{
		Name:          req.Name,
		URL:           req.URL,
		PriceSelector: req.PriceSelector,
	}
	if err := h.repo.CreateProduct(c.Request.Context(), product); err != nil {
		h.logger.WithError(err).Error("create product")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create product"})
		return
	}

	// Fire-and-forget: the caller only ever gets a job id back. Terminal
	// scrape failures surface in logs and queue status, never here.
	jobID, err := h.jobs.Enqueue(c.Request.Context(), product.ID)
	if err != nil {
		h.logger.WithError(err).WithField("product_id", product.ID).Error("enqueue initial job")
	}

	h.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"job_id":     jobID,
		"url":        product.URL,
	}).Info("product tracked")

	c.JSON(http.StatusCreated, TrackResponse{ProductID: product.ID, JobID: jobID})
}

// Prices returns a product's full price history.
func (h *Handler) Prices(c *gin.Context) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	productID := uint(id64)

	ctx := c.Request.Context()
	if _, err := h.repo.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.logger.WithError(err).Error("load product")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}

	rows, err := h.repo.ListObservations(ctx, productID)
	if err != nil {
		h.logger.WithError(err).Error("list observations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load price history"})
		return
	}

	prices := make([]PricePoint, 0, len(rows))
	for _, row := range rows {
		prices = append(prices, PricePoint{
			Price:     row.Price,
			Currency:  row.Currency,
			Timestamp: row.Timestamp,
		})
	}

	c.JSON(http.StatusOK, PriceHistoryResponse{ProductID: productID, Prices: prices})
}
