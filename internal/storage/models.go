// Package storage defines the persistence layer: tracked products and their
// append-only price history.
package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a web-listed product whose price is tracked over time. Rows are
// created by the API and only read by the scrape pipeline.
type Product struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          *string   `gorm:"size:255" json:"name,omitempty"`
	URL           string    `gorm:"uniqueIndex;not null" json:"url"`
	PriceSelector *string   `json:"price_selector,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	Observations []PriceObservation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// PriceObservation is one observed price for a product. The pipeline only
// ever appends: rows are never updated or deleted, and duplicates from a
// redelivered-but-already-successful job are allowed.
type PriceObservation struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID uint            `gorm:"index;not null" json:"product_id"`
	Price     decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"price"`
	Currency  string          `gorm:"size:3;not null;default:USD" json:"currency"`
	Timestamp time.Time       `gorm:"autoCreateTime" json:"timestamp"`
}
