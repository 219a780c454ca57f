// Package scheduler fans out one scrape job per tracked product on a fixed
// cadence.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Lister enumerates tracked product ids. storage.Repository satisfies it.
type Lister interface {
	ListProductIDs(ctx context.Context) ([]uint, error)
}

// Enqueuer submits a fresh job for a product. *queue.Producer satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, productID uint) (string, error)
}

// Scheduler periodically submits one independent job per tracked product. It
// never waits for job completion and performs no deduplication against jobs
// already in flight: re-running simply submits a fresh batch.
type Scheduler struct {
	products Lister
	jobs     Enqueuer
	interval time.Duration
	logger   *logrus.Logger
}

// New creates a Scheduler with the given fan-out cadence.
func New(products Lister, jobs Enqueuer, interval time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		products: products,
		jobs:     jobs,
		interval: interval,
		logger:   logger,
	}
}

// DispatchAll submits one job per tracked product, in ascending id order,
// and returns the number submitted. A product whose enqueue fails is logged
// and skipped; the batch continues.
func (s *Scheduler) DispatchAll(ctx context.Context) (int, error) {
	ids, err := s.products.ListProductIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list product ids: %w", err)
	}

	dispatched := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return dispatched, ctx.Err()
		}
		if _, err := s.jobs.Enqueue(ctx, id); err != nil {
			s.logger.WithError(err).WithField("product_id", id).Error("enqueue job")
			continue
		}
		dispatched++
	}

	s.logger.WithField("dispatched", dispatched).Info("fan-out complete")
	return dispatched, nil
}

// Run blocks, dispatching a full batch immediately and then on every tick,
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval.String()).Info("scheduler started")

	if _, err := s.DispatchAll(ctx); err != nil && ctx.Err() == nil {
		s.logger.WithError(err).Error("dispatch failed")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.DispatchAll(ctx); err != nil && ctx.Err() == nil {
				s.logger.WithError(err).Error("dispatch failed")
			}
		}
	}
}
