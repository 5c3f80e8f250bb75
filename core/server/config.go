package server

import (
	"database/sql"

	"github.com/jasser00/bigdata/internal/broker"
	"github.com/jasser00/bigdata/internal/db"
	"github.com/jasser00/bigdata/internal/domain"
)

type ServerConfig struct {
	Queue         broker.EventQueue
	Store         domain.RecordStore
	AlertConsumer domain.EventConsumer
	AlertEnabled  bool
	WorkerCount   int
	BatchSize     int
	Port          string
	CORSOrigins   []string
}

type ConfigOption func(*ServerConfig) error

// WithKafka connects the event queue. A constructor failure here is a
// publisher init error and surfaces to the NewServer caller.
func WithKafka(brokers, topic, groupID string) ConfigOption {
	return func(config *ServerConfig) error {
		mq, err := broker.NewKafkaQueue(brokers, topic, groupID)
		if err != nil {
			return err
		}
		config.Queue = mq
		return nil
	}
}

// WithPostgres builds the prediction store on an already-opened pool,
// provisioning the schema if needed.
func WithPostgres(pool *sql.DB) ConfigOption {
	return func(config *ServerConfig) error {
		store, err := db.NewPredictionStore(pool)
		if err != nil {
			return err
		}
		config.Store = store
		return nil
	}
}

// WithRecordStore injects a ready-made store.
func WithRecordStore(store domain.RecordStore) ConfigOption {
	return func(config *ServerConfig) error {
		config.Store = store
		return nil
	}
}

// WithEventQueue injects a ready-made queue.
func WithEventQueue(queue broker.EventQueue) ConfigOption {
	return func(config *ServerConfig) error {
		config.Queue = queue
		return nil
	}
}

// WithAlertWorker enables the maintenance-alert consumer pool.
func WithAlertWorker(consumer domain.EventConsumer, workerCount, batchSize int) ConfigOption {
	return func(config *ServerConfig) error {
		config.AlertConsumer = consumer
		config.AlertEnabled = true
		config.WorkerCount = workerCount
		config.BatchSize = batchSize
		return nil
	}
}

func WithCORSOrigins(origins []string) ConfigOption {
	return func(config *ServerConfig) error {
		config.CORSOrigins = origins
		return nil
	}
}

func WithPort(port string) ConfigOption {
	return func(config *ServerConfig) error {
		config.Port = port
		return nil
	}
}
