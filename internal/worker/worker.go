package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jasser00/bigdata/internal/broker"
	"github.com/jasser00/bigdata/internal/domain"
)

// Worker drains the predictions topic and forwards maintenance-flagged
// events to a consumer in batches. It sits entirely downstream of the
// ingestion pipeline: losing or lagging on events here never affects a
// prediction call.
type Worker struct {
	consumer    domain.EventConsumer
	workerCount int
	batchSize   int
	logger      zerolog.Logger
}

func NewWorker(consumer domain.EventConsumer, workerCount, batchSize int) *Worker {
	return &Worker{
		consumer:    consumer,
		workerCount: workerCount,
		batchSize:   batchSize,
		logger:      log.With().Str("component", "alert_worker").Logger(),
	}
}

// Start runs the worker pool until the context is cancelled.
func (w *Worker) Start(ctx context.Context, mq broker.EventQueue) error {
	var wg sync.WaitGroup

	for i := 0; i < w.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.worker(ctx, workerID, mq)
		}(i)
	}

	wg.Wait()
	return nil
}

func (w *Worker) worker(ctx context.Context, workerID int, mq broker.EventQueue) {
	w.logger.Info().Int("worker", workerID).Msg("worker started")
	defer w.logger.Info().Int("worker", workerID).Msg("worker stopped")

	batch := make([]domain.PredictionEvent, 0, w.batchSize)
	events := make(chan domain.PredictionEvent, w.batchSize)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	handler := func(data []byte) error {
		var event domain.PredictionEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("failed to unmarshal prediction event: %w", err)
		}

		select {
		case events <- event:
		case <-ctx.Done():
		}
		return nil
	}

	go func() {
		if err := mq.Consume(ctx, handler); err != nil && ctx.Err() == nil {
			w.logger.Error().Int("worker", workerID).Err(err).Msg("consume error")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				w.processBatch(batch)
			}
			return
		case event := <-events:
			batch = append(batch, event)
			if len(batch) >= w.batchSize {
				w.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

// processBatch forwards only the events that flagged maintenance.
func (w *Worker) processBatch(batch []domain.PredictionEvent) {
	start := time.Now()

	alerts := make([]domain.PredictionEvent, 0, len(batch))
	for _, event := range batch {
		if event.NeedsMaintenance {
			alerts = append(alerts, event)
		}
	}

	if len(alerts) == 0 {
		return
	}

	if err := w.consumer.Process(alerts); err != nil {
		w.logger.Error().Err(err).Msg("failed to process alert batch")
		return
	}

	w.logger.Info().
		Int("alerts", len(alerts)).
		Int("batch", len(batch)).
		Dur("took", time.Since(start)).
		Msg("processed alert batch")
}
