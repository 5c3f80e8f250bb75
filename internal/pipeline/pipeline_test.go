package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jasser00/bigdata/internal/domain"
)

// memStore assigns ids and timestamps like the real store.
type memStore struct {
	records  []domain.PredictionRecord
	nextID   int64
	writeErr error
}

func (m *memStore) Create(ctx context.Context, r domain.PredictionRecord) (domain.PredictionRecord, error) {
	if m.writeErr != nil {
		return domain.PredictionRecord{}, fmt.Errorf("%w: %v", domain.ErrStoreWrite, m.writeErr)
	}
	m.nextID++
	r.ID = m.nextID
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	m.records = append(m.records, r)
	return r, nil
}

func (m *memStore) GetAll(ctx context.Context) ([]domain.PredictionRecord, error) {
	return m.records, nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (domain.PredictionRecord, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.PredictionRecord{}, domain.ErrStoreRead
}

func (m *memStore) Update(ctx context.Context, r domain.PredictionRecord) (domain.PredictionRecord, error) {
	return r, nil
}

func (m *memStore) Delete(ctx context.Context, id int64) error { return nil }
func (m *memStore) Close() error                               { return nil }

type published struct {
	key  string
	data []byte
}

// memQueue records published events, optionally failing every send.
type memQueue struct {
	sent       []published
	publishErr error
}

func (q *memQueue) Publish(ctx context.Context, key string, data []byte) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.sent = append(q.sent, published{key: key, data: data})
	return nil
}

func (q *memQueue) Consume(ctx context.Context, handler func([]byte) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func (q *memQueue) Close() error { return nil }

func TestIngest_Success(t *testing.T) {
	store := &memStore{}
	queue := &memQueue{}
	p := New(store, queue)

	resp, err := p.Ingest(context.Background(), domain.PredictionRequest{
		MachineID:   "press-1",
		Temperature: 95,
		Humidity:    0,
	})
	if err != nil {
		t.Fatalf("Ingest: unexpected error %v", err)
	}

	if resp.Prediction != 1 || !resp.NeedsMaintenance {
		t.Errorf("decision: got prediction=%d maint=%v, want 1/true", resp.Prediction, resp.NeedsMaintenance)
	}
	if resp.Confidence != 0.87 {
		t.Errorf("Confidence: got %v, want 0.87", resp.Confidence)
	}
	if resp.ModelVersion != "v1.0" {
		t.Errorf("ModelVersion: got %q, want v1.0", resp.ModelVersion)
	}
	if !resp.KafkaSent {
		t.Error("KafkaSent: got false, want true")
	}

	if len(store.records) != 1 {
		t.Fatalf("store: got %d records, want 1", len(store.records))
	}
	rec := store.records[0]
	if rec.MachineID != "press-1" || rec.Prediction != 1 || rec.ModelVersion != "v1.0" {
		t.Errorf("stored record: %+v", rec)
	}
	if rec.Features["temperature"] != 95 || rec.Features["humidity"] != 0 {
		t.Errorf("stored features: %v", rec.Features)
	}

	if len(queue.sent) != 1 {
		t.Fatalf("queue: got %d events, want 1", len(queue.sent))
	}
	if queue.sent[0].key != "press-1" {
		t.Errorf("event key: got %q, want machine id", queue.sent[0].key)
	}

	var event domain.PredictionEvent
	if err := json.Unmarshal(queue.sent[0].data, &event); err != nil {
		t.Fatalf("event payload: %v", err)
	}
	if event.MachineID != "press-1" || event.Prediction != 1 || !event.NeedsMaintenance {
		t.Errorf("event: %+v", event)
	}
	if event.Temperature != 95 || event.Humidity != 0 {
		t.Errorf("event readings: %v / %v", event.Temperature, event.Humidity)
	}
	if event.Confidence != 0.87 {
		t.Errorf("event confidence: got %v, want 0.87", event.Confidence)
	}
}

func TestIngest_PublishFailureIsNonCritical(t *testing.T) {
	store := &memStore{}
	queue := &memQueue{publishErr: errors.New("broker unreachable")}
	p := New(store, queue)

	resp, err := p.Ingest(context.Background(), domain.PredictionRequest{
		MachineID:   "press-2",
		Temperature: 95,
		Humidity:    80,
	})
	if err != nil {
		t.Fatalf("Ingest: publish failure must not fail the call, got %v", err)
	}

	if resp.KafkaSent {
		t.Error("KafkaSent: got true despite failed publish")
	}
	if len(store.records) != 1 {
		t.Errorf("store: got %d records, want 1 (write is not rolled back)", len(store.records))
	}
}

func TestIngest_StoreFailureIsFatal(t *testing.T) {
	store := &memStore{writeErr: errors.New("connection refused")}
	queue := &memQueue{}
	p := New(store, queue)

	_, err := p.Ingest(context.Background(), domain.PredictionRequest{
		MachineID:   "press-3",
		Temperature: 50,
		Humidity:    50,
	})
	if !errors.Is(err, domain.ErrStoreWrite) {
		t.Fatalf("Ingest: got %v, want ErrStoreWrite", err)
	}

	if len(queue.sent) != 0 {
		t.Errorf("queue: %d events published after failed write, want 0", len(queue.sent))
	}
}

func TestIngest_AssignsIncreasingIDs(t *testing.T) {
	store := &memStore{}
	p := New(store, &memQueue{})

	var lastID int64
	for i := 0; i < 5; i++ {
		if _, err := p.Ingest(context.Background(), domain.PredictionRequest{
			MachineID:   "press-4",
			Temperature: float64(20 + i),
			Humidity:    30,
		}); err != nil {
			t.Fatalf("Ingest %d: %v", i, err)
		}
		id := store.records[len(store.records)-1].ID
		if id <= lastID {
			t.Fatalf("record id %d not greater than previous %d", id, lastID)
		}
		lastID = id
	}
}

func TestIngest_RoundsConfidence(t *testing.T) {
	store := &memStore{}
	p := New(store, &memQueue{})

	// base = 33.33/100*0.6 + 44.44/100*0.4 = 0.37774
	resp, err := p.Ingest(context.Background(), domain.PredictionRequest{
		MachineID:   "press-5",
		Temperature: 33.33,
		Humidity:    44.44,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if resp.Confidence != 0.3777 {
		t.Errorf("Confidence: got %v, want 0.3777 (4 decimals)", resp.Confidence)
	}
}

func TestIngest_NoQueueConfigured(t *testing.T) {
	store := &memStore{}
	p := New(store, nil)

	resp, err := p.Ingest(context.Background(), domain.PredictionRequest{
		MachineID:   "press-6",
		Temperature: 10,
		Humidity:    10,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if resp.KafkaSent {
		t.Error("KafkaSent: got true with no queue configured")
	}
	if len(store.records) != 1 {
		t.Errorf("store: got %d records, want 1", len(store.records))
	}
}
