// Package processor drains queued listing batches through a duplicate
// detector and persists whatever the detector produced.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"propstack/server/config"
	"propstack/server/internal/dedup"
	"propstack/server/internal/models"
	"propstack/server/internal/queue"
	"propstack/server/internal/storage"
)

// DedupProcessor subscribes to the listing queue and runs the configured
// detector strategy on each batch. Detector results are partial by design;
// whatever succeeded is persisted even when the batch timed out.
type DedupProcessor struct {
	store    storage.Store
	detector dedup.Detector
	queue    *queue.ListingQueue
	config   *config.Config
	logger   *logrus.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewDedupProcessor creates a processor draining the given queue.
func NewDedupProcessor(store storage.Store, detector dedup.Detector, q *queue.ListingQueue, cfg *config.Config, logger *logrus.Logger) *DedupProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &DedupProcessor{
		store:    store,
		detector: detector,
		queue:    q,
		config:   cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes the processor to the queue.
func (p *DedupProcessor) Start() {
	p.queue.Subscribe(func(batch []*models.Listing) error {
		return p.processBatch(batch)
	})
	p.queue.Start()
}

// Stop cancels in-flight detection.
func (p *DedupProcessor) Stop() {
	p.cancel()
}

// processBatch runs detection under the configured timeout and persists the
// result, retrying persistence on failure.
func (p *DedupProcessor) processBatch(batch []*models.Listing) error {
	ctx, cancel := context.WithTimeout(p.ctx, time.Duration(p.config.Dedup.TimeoutSeconds)*time.Second)
	defer cancel()

	result, err := p.detector.Process(ctx, batch, "")
	if err != nil {
		return fmt.Errorf("detection failed for batch of %d listings: %w", len(batch), err)
	}

	var persistErr error
	for attempt := 0; attempt <= p.config.Dedup.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch persistence, attempt %d of %d", attempt, p.config.Dedup.MaxRetries)
			time.Sleep(time.Duration(p.config.Dedup.RetryDelay) * time.Second)
		}

		persistErr = p.persistResult(result)
		if persistErr == nil {
			p.logger.WithFields(logrus.Fields{
				"processed": result.Processed,
				"merged":    result.Merged,
				"objects":   len(result.NewObjects),
			}).Info("Persisted dedup batch")
			return nil
		}
		p.logger.Errorf("Batch persistence failed: %v", persistErr)
	}

	return fmt.Errorf("failed to persist batch after %d attempts: %w", p.config.Dedup.MaxRetries, persistErr)
}

// persistResult writes the detector's output. It must stay idempotent: a
// retry re-runs the whole sequence, so objects already added by an earlier
// attempt are updated instead of failing the batch on a duplicate id.
func (p *DedupProcessor) persistResult(result *dedup.Result) error {
	for _, object := range result.NewObjects {
		err := p.store.Add(p.ctx, storage.CollectionObjects, object)
		if errors.Is(err, models.ErrValidation) {
			err = p.store.Update(p.ctx, storage.CollectionObjects, object)
		}
		if err != nil {
			return err
		}
	}
	for _, listing := range result.UpdatedListings {
		if err := p.store.Update(p.ctx, storage.CollectionListings, listing); err != nil {
			return err
		}
	}
	return nil
}
