// Package queue is the Kafka-backed job queue adapter. Delivery is
// at-least-once: a job message stays on the topic until the worker commits
// its offset, and redelivery with a delay is modeled by re-publishing the
// job with an incremented attempt count and a not-before timestamp, since
// Kafka has no native delayed delivery.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Job is one "scrape this product once" unit of work. The attempt counter is
// part of the payload so the retry controller never needs hidden state.
type Job struct {
	ID        string    `json:"id"`
	ProductID uint      `json:"product_id"`
	Attempt   int       `json:"attempt"`
	NotBefore time.Time `json:"not_before,omitempty"`
}

// Producer publishes scrape jobs to the jobs topic.
type Producer struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

// NewProducer creates a Producer for the given broker and topic.
func NewProducer(broker, topic string, logger *logrus.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}
}

// Enqueue submits a fresh job for the product and returns the job id.
func (p *Producer) Enqueue(ctx context.Context, productID uint) (string, error) {
	job := Job{ID: uuid.NewString(), ProductID: productID}
	if err := p.publish(ctx, job); err != nil {
		return "", err
	}
	p.logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"product_id": productID,
	}).Debug("job enqueued")
	return job.ID, nil
}

// RetryAfter requests redelivery of the job after the given delay. The job
// keeps its id; the attempt count increments and workers hold the message
// until the not-before timestamp passes.
func (p *Producer) RetryAfter(ctx context.Context, job Job, delay time.Duration) error {
	job.Attempt++
	job.NotBefore = time.Now().Add(delay)
	return p.publish(ctx, job)
}

func (p *Producer) publish(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(job.ID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("publish job %s: %w", job.ID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Decode parses a delivered message payload back into a Job.
func Decode(value []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(value, &job); err != nil {
		return Job{}, fmt.Errorf("decode job payload: %w", err)
	}
	return job, nil
}
