// Package scrape runs a single price-scrape job end to end: politeness
// delay, isolated browser session, locate, normalize, persist.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fluxmon/fluxmon/internal/browser"
	"github.com/fluxmon/fluxmon/internal/locator"
	"github.com/fluxmon/fluxmon/internal/pricing"
	"github.com/fluxmon/fluxmon/internal/storage"
)

// ErrProductNotFound is returned when the tracked product row is missing.
// It is the only non-retryable failure in the pipeline: redelivery cannot
// restore a deleted row.
var ErrProductNotFound = errors.New("product not found")

// NavigationError wraps a navigation or render failure.
type NavigationError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *NavigationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("navigation to %s timed out: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// Config holds per-job browser and pacing settings.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	PolitenessMin     time.Duration
	PolitenessMax     time.Duration
}

// Orchestrator owns one job's browser lifecycle. Each attempt gets a fresh
// session; the session is torn down on every exit path.
type Orchestrator struct {
	repo   storage.Repository
	launch func(ctx context.Context, userAgent string, settle time.Duration) (browser.Session, error)
	logger *logrus.Logger
	cfg    Config
}

// New creates an Orchestrator that launches real Chrome sessions.
func New(repo storage.Repository, logger *logrus.Logger, cfg Config) *Orchestrator {
	return &Orchestrator{
		repo:   repo,
		launch: browser.Launch,
		logger: logger,
		cfg:    cfg,
	}
}

// Run scrapes the product once and appends exactly one PriceObservation on
// success. Partial extraction never persists a row.
func (o *Orchestrator) Run(ctx context.Context, productID uint) (pricing.ParsedPrice, error) {
	product, err := o.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return pricing.ParsedPrice{}, fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
		}
		return pricing.ParsedPrice{}, fmt.Errorf("load product %d: %w", productID, err)
	}

	// The delay applies to every attempt, including retries, so redelivery
	// does not raise the request rate against the target site.
	if err := o.politenessDelay(ctx); err != nil {
		return pricing.ParsedPrice{}, err
	}

	sess, err := o.launch(ctx, o.cfg.UserAgent, o.cfg.SettleDelay)
	if err != nil {
		return pricing.ParsedPrice{}, fmt.Errorf("launch session: %w", err)
	}
	defer sess.Close()

	if err := sess.Navigate(product.URL, o.cfg.NavigationTimeout); err != nil {
		return pricing.ParsedPrice{}, &NavigationError{
			URL:     product.URL,
			Timeout: errors.Is(err, context.DeadlineExceeded),
			Err:     err,
		}
	}

	hint := ""
	if product.PriceSelector != nil {
		hint = *product.PriceSelector
	}
	rawText, err := locator.Locate(sess, hint)
	if err != nil {
		return pricing.ParsedPrice{}, err
	}

	parsed, err := pricing.Parse(rawText)
	if err != nil {
		return pricing.ParsedPrice{}, err
	}

	obs := &storage.PriceObservation{
		ProductID: product.ID,
		Price:     parsed.Amount,
		Currency:  parsed.Currency,
	}
	if err := o.repo.AppendObservation(ctx, obs); err != nil {
		return pricing.ParsedPrice{}, fmt.Errorf("append observation: %w", err)
	}

	o.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"amount":     parsed.Amount.String(),
		"currency":   parsed.Currency,
	}).Info("price observed")

	return parsed, nil
}

func (o *Orchestrator) politenessDelay(ctx context.Context) error {
	delay := o.cfg.PolitenessMin
	if span := o.cfg.PolitenessMax - o.cfg.PolitenessMin; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
