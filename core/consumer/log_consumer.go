package consumer

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jasser00/bigdata/internal/domain"
)

// LogConsumer is the default alert sink: it writes one log line per
// maintenance-flagged prediction.
type LogConsumer struct {
	name   string
	logger zerolog.Logger
}

func NewLogConsumer(name string) *LogConsumer {
	return &LogConsumer{
		name:   name,
		logger: log.With().Str("component", "consumer").Str("name", name).Logger(),
	}
}

func (c *LogConsumer) Process(events []domain.PredictionEvent) error {
	c.logger.Info().Int("count", len(events)).Msg("maintenance alerts received")
	for _, e := range events {
		c.logger.Warn().
			Str("machine_id", e.MachineID).
			Float64("temperature", e.Temperature).
			Float64("humidity", e.Humidity).
			Float64("confidence", e.Confidence).
			Time("timestamp", e.Timestamp).
			Msg("machine flagged for maintenance")
	}
	return nil
}
