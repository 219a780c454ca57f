// Package worker pulls scrape jobs from the queue and drives each one
// through the retry/backoff state machine.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/fluxmon/fluxmon/internal/pricing"
	"github.com/fluxmon/fluxmon/internal/queue"
)

// Runner executes one scrape attempt. *scrape.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, productID uint) (pricing.ParsedPrice, error)
}

// Requeuer schedules delayed redelivery. *queue.Producer satisfies it.
type Requeuer interface {
	RetryAfter(ctx context.Context, job queue.Job, delay time.Duration) error
}

// Config holds worker pool settings.
type Config struct {
	// Workers is the number of concurrent scrape workers.
	Workers int

	// RatePerSecond caps outbound scrapes across the whole pool.
	// Zero or negative disables the cap.
	RatePerSecond float64
}

// Pool is the scrape worker pool. Each worker fetches one message at a time
// (a prefetch of one per idle worker) and commits the offset only after the
// job reaches a terminal state: at-least-once delivery with late
// acknowledgment. Jobs for different products run fully in parallel with no
// shared mutable state.
type Pool struct {
	reader  *kafka.Reader
	requeue Requeuer
	runner  Runner
	limiter *rate.Limiter
	logger  *logrus.Logger
	cfg     Config
}

// NewPool creates a worker pool reading from the given Kafka reader.
func NewPool(reader *kafka.Reader, requeue Requeuer, runner Runner, logger *logrus.Logger, cfg Config) *Pool {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	return &Pool{
		reader:  reader,
		requeue: requeue,
		runner:  runner,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		cfg:     cfg,
	}
}

// Start runs the worker pool until ctx is cancelled, then closes the reader.
func (p *Pool) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i + 1)
	}
	wg.Wait()

	return p.reader.Close()
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	log := p.logger.WithField("worker", workerID)
	log.Info("worker started")

	for {
		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopped")
				return
			}
			log.WithError(err).Error("fetch message")
			continue
		}

		job, err := queue.Decode(msg.Value)
		if err != nil {
			// A payload that cannot decode can never succeed; drop it.
			log.WithError(err).WithField("offset", msg.Offset).Error("dropping undecodable job")
			p.commit(ctx, msg)
			continue
		}

		if p.handle(ctx, job) {
			p.commit(ctx, msg)
		}
	}
}

// handle runs one attempt and applies the controller's verdict. It reports
// whether the message may be acknowledged; when a redelivery request fails
// the original message stays uncommitted so the queue delivers it again.
func (p *Pool) handle(ctx context.Context, job queue.Job) bool {
	if wait := time.Until(job.NotBefore); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return false
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return false
	}

	log := p.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"product_id": job.ProductID,
		"attempt":    job.Attempt,
	})

	parsed, err := p.runner.Run(ctx, job.ProductID)

	verdict := Decide(err, job.Attempt)
	switch verdict.Decision {
	case Succeed:
		log.WithFields(logrus.Fields{
			"amount":   parsed.Amount.String(),
			"currency": parsed.Currency,
		}).Info("job succeeded")
		return true

	case Retry:
		if requeueErr := p.requeue.RetryAfter(ctx, job, verdict.Delay); requeueErr != nil {
			log.WithError(requeueErr).Error("redelivery request failed")
			return false
		}
		log.WithError(err).WithField("delay", verdict.Delay.String()).Warn("job failed, retry scheduled")
		return true

	default: // Fail
		log.WithError(err).Error("job permanently failed")
		return true
	}
}

func (p *Pool) commit(ctx context.Context, msg kafka.Message) {
	if err := p.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		p.logger.WithError(err).WithField("offset", msg.Offset).Error("commit offset")
	}
}
