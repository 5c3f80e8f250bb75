package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"github.com/jasser00/bigdata/internal/domain"
)

// PredictionStore is the Postgres-backed RecordStore. Every call checks a
// connection out of the pool for its own duration; no session is held
// across calls.
type PredictionStore struct {
	db *sql.DB
}

// NewPostgresConnection opens a pooled connection to Postgres and waits
// for it to become reachable, retrying the ping with exponential backoff
// for up to 30 seconds.
func NewPostgresConnection(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(db.Ping, bo); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	return db, nil
}

// NewPredictionStore provisions the predictions table and its indexes if
// they do not exist and returns the store.
func NewPredictionStore(db *sql.DB) (*PredictionStore, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS predictions (
			id SERIAL PRIMARY KEY,
			machine_id TEXT NOT NULL,
			features JSONB NOT NULL DEFAULT '{}',
			prediction DOUBLE PRECISION NOT NULL,
			model_version TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create predictions table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_predictions_machine_id
			ON predictions (machine_id, timestamp)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create predictions index: %w", err)
	}

	return &PredictionStore{db: db}, nil
}

// Create persists one record. The id is assigned by the sequence; the
// timestamp comes from the record when set, otherwise the server clock.
func (s *PredictionStore) Create(ctx context.Context, record domain.PredictionRecord) (domain.PredictionRecord, error) {
	features, err := json.Marshal(record.Features)
	if err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("%w: encode features: %v", domain.ErrStoreWrite, err)
	}

	var ts sql.NullTime
	if !record.Timestamp.IsZero() {
		ts = sql.NullTime{Time: record.Timestamp, Valid: true}
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO predictions (machine_id, features, prediction, model_version, timestamp)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
		RETURNING id, timestamp
	`, record.MachineID, features, record.Prediction, record.ModelVersion, ts).
		Scan(&record.ID, &record.Timestamp)
	if err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("%w: %v", domain.ErrStoreWrite, err)
	}

	return record, nil
}

// GetAll returns every stored record in id order.
func (s *PredictionStore) GetAll(ctx context.Context) ([]domain.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, machine_id, features, prediction, model_version, timestamp
		FROM predictions
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreRead, err)
	}
	defer rows.Close()

	var records []domain.PredictionRecord
	for rows.Next() {
		record, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreRead, err)
	}

	return records, nil
}

// GetByID returns a single record. Administrative; the ingestion and
// aggregation paths do not call it.
func (s *PredictionStore) GetByID(ctx context.Context, id int64) (domain.PredictionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, machine_id, features, prediction, model_version, timestamp
		FROM predictions
		WHERE id = $1
	`, id)
	return scanPrediction(row)
}

// Update overwrites a record's mutable columns. Administrative.
func (s *PredictionStore) Update(ctx context.Context, record domain.PredictionRecord) (domain.PredictionRecord, error) {
	features, err := json.Marshal(record.Features)
	if err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("%w: encode features: %v", domain.ErrStoreWrite, err)
	}

	err = s.db.QueryRowContext(ctx, `
		UPDATE predictions
		SET machine_id = $2, features = $3, prediction = $4, model_version = $5
		WHERE id = $1
		RETURNING timestamp
	`, record.ID, record.MachineID, features, record.Prediction, record.ModelVersion).
		Scan(&record.Timestamp)
	if err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("%w: %v", domain.ErrStoreWrite, err)
	}

	return record, nil
}

// Delete removes a record. Administrative.
func (s *PredictionStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM predictions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreWrite, err)
	}
	return nil
}

func (s *PredictionStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row rowScanner) (domain.PredictionRecord, error) {
	var (
		record   domain.PredictionRecord
		features []byte
	)
	if err := row.Scan(&record.ID, &record.MachineID, &features, &record.Prediction, &record.ModelVersion, &record.Timestamp); err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("%w: %v", domain.ErrStoreRead, err)
	}
	if err := json.Unmarshal(features, &record.Features); err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("%w: decode features: %v", domain.ErrStoreRead, err)
	}
	return record, nil
}
