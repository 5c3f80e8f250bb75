package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jasser00/bigdata/internal/broker"
	"github.com/jasser00/bigdata/internal/domain"
	"github.com/jasser00/bigdata/internal/metrics"
	"github.com/jasser00/bigdata/internal/scoring"
)

// Pipeline runs one ingestion call end to end: score the reading, write
// the record, then best-effort publish the event. The store write is the
// source of truth; a failed publish only flips kafka_sent to false and is
// never rolled back against the committed write.
type Pipeline struct {
	store  domain.RecordStore
	queue  broker.EventQueue
	logger zerolog.Logger
}

func New(store domain.RecordStore, queue broker.EventQueue) *Pipeline {
	return &Pipeline{
		store:  store,
		queue:  queue,
		logger: log.With().Str("component", "pipeline").Logger(),
	}
}

// Ingest scores the request, persists the record and publishes the
// event. It returns an error only when the durable write fails.
func (p *Pipeline) Ingest(ctx context.Context, req domain.PredictionRequest) (domain.PredictResponse, error) {
	start := time.Now()
	metrics.PredictionCounter.Inc()
	defer func() {
		metrics.PredictionLatency.Observe(time.Since(start).Seconds())
	}()

	result := scoring.Score(req.Temperature, req.Humidity)

	record := domain.PredictionRecord{
		MachineID: req.MachineID,
		Features: map[string]float64{
			"temperature": req.Temperature,
			"humidity":    req.Humidity,
		},
		Prediction:   float64(result.Prediction),
		ModelVersion: scoring.ModelVersion,
	}

	created, err := p.store.Create(ctx, record)
	if err != nil {
		p.logger.Error().Err(err).Str("machine_id", req.MachineID).Msg("failed to save prediction")
		return domain.PredictResponse{}, err
	}

	p.logger.Info().
		Str("machine_id", req.MachineID).
		Bool("needs_maintenance", result.NeedsMaintenance).
		Int64("id", created.ID).
		Msg("prediction saved")

	confidence := round4(result.Confidence)

	kafkaSent := p.publish(ctx, domain.PredictionEvent{
		MachineID:        req.MachineID,
		Temperature:      req.Temperature,
		Humidity:         req.Humidity,
		Prediction:       result.Prediction,
		NeedsMaintenance: result.NeedsMaintenance,
		Confidence:       confidence,
		ModelVersion:     scoring.ModelVersion,
		Timestamp:        created.Timestamp,
	})

	return domain.PredictResponse{
		Prediction:       result.Prediction,
		NeedsMaintenance: result.NeedsMaintenance,
		Confidence:       confidence,
		Timestamp:        created.Timestamp,
		ModelVersion:     scoring.ModelVersion,
		KafkaSent:        kafkaSent,
	}, nil
}

// publish sends the event to the bus and reports whether it was
// acknowledged. Failures are non-critical: they are logged and the
// ingestion call carries on.
func (p *Pipeline) publish(ctx context.Context, event domain.PredictionEvent) bool {
	if p.queue == nil {
		return false
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("machine_id", event.MachineID).Msg("failed to encode prediction event")
		return false
	}

	if err := p.queue.Publish(ctx, event.MachineID, payload); err != nil {
		p.logger.Warn().Err(err).Str("machine_id", event.MachineID).Msg("failed to send prediction event (non-critical)")
		return false
	}

	return true
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
