package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jasser00/bigdata/internal/domain"
)

// fakeStore serves a canned record set, optionally failing every read.
type fakeStore struct {
	records []domain.PredictionRecord
	readErr error
}

func (f *fakeStore) Create(ctx context.Context, r domain.PredictionRecord) (domain.PredictionRecord, error) {
	return r, nil
}

func (f *fakeStore) GetAll(ctx context.Context) ([]domain.PredictionRecord, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.records, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (domain.PredictionRecord, error) {
	return domain.PredictionRecord{}, nil
}

func (f *fakeStore) Update(ctx context.Context, r domain.PredictionRecord) (domain.PredictionRecord, error) {
	return r, nil
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error { return nil }
func (f *fakeStore) Close() error                               { return nil }

func rec(id int64, machine string, pred float64, ts time.Time) domain.PredictionRecord {
	return domain.PredictionRecord{
		ID:           id,
		MachineID:    machine,
		Features:     map[string]float64{"temperature": 50, "humidity": 50},
		Prediction:   pred,
		ModelVersion: "v1.0",
		Timestamp:    ts,
	}
}

func TestStats_Empty(t *testing.T) {
	engine := New(&fakeStore{})

	stats, err := engine.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: unexpected error %v", err)
	}

	if stats.TotalPredictions != 0 || stats.UniqueMachines != 0 || stats.AvgPrediction != 0 {
		t.Errorf("Stats on empty set: got %+v, want zeroes", stats)
	}
	if stats.LatestPrediction != nil {
		t.Errorf("LatestPrediction: got %v, want nil", stats.LatestPrediction)
	}
}

func TestStats_Computed(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engine := New(&fakeStore{records: []domain.PredictionRecord{
		rec(1, "m-1", 1, base),
		rec(2, "m-2", 0, base.Add(time.Hour)),
		rec(3, "m-1", 1, base.Add(2*time.Hour)),
	}})

	stats, err := engine.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: unexpected error %v", err)
	}

	if stats.TotalPredictions != 3 {
		t.Errorf("TotalPredictions: got %d, want 3", stats.TotalPredictions)
	}
	if stats.UniqueMachines != 2 {
		t.Errorf("UniqueMachines: got %d, want 2", stats.UniqueMachines)
	}
	if stats.AvgPrediction != 0.6667 {
		t.Errorf("AvgPrediction: got %v, want 0.6667", stats.AvgPrediction)
	}
	if stats.LatestPrediction == nil || !stats.LatestPrediction.Equal(base.Add(2*time.Hour)) {
		t.Errorf("LatestPrediction: got %v, want %v", stats.LatestPrediction, base.Add(2*time.Hour))
	}
}

func TestMachines_Grouping(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []domain.PredictionRecord{
		rec(1, "m-1", 0, base),
		rec(2, "m-2", 1, base.Add(time.Minute)),
		rec(3, "m-1", 1, base.Add(2*time.Minute)),
		rec(4, "m-1", 0, base.Add(time.Minute)),
	}
	engine := New(&fakeStore{records: records})

	machines, err := engine.Machines(context.Background())
	if err != nil {
		t.Fatalf("Machines: unexpected error %v", err)
	}

	if len(machines) != 2 {
		t.Fatalf("Machines: got %d groups, want 2", len(machines))
	}

	m1 := machines[0]
	if m1.MachineID != "m-1" {
		t.Fatalf("expected sorted output, first group is %q", m1.MachineID)
	}
	if m1.PredictionCount != 3 {
		t.Errorf("m-1 count: got %d, want 3", m1.PredictionCount)
	}
	if m1.LastPrediction == nil || *m1.LastPrediction != 1 {
		t.Errorf("m-1 last prediction: got %v, want 1 (most recent record)", m1.LastPrediction)
	}
	if m1.LastTimestamp == nil || !m1.LastTimestamp.Equal(base.Add(2*time.Minute)) {
		t.Errorf("m-1 last timestamp: got %v, want %v", m1.LastTimestamp, base.Add(2*time.Minute))
	}
}

func TestMachines_OrderIndependent(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []domain.PredictionRecord{
		rec(1, "m-1", 0, base),
		rec(2, "m-1", 1, base.Add(time.Minute)),
		rec(3, "m-2", 1, base.Add(2*time.Minute)),
	}

	forward, err := New(&fakeStore{records: records}).Machines(context.Background())
	if err != nil {
		t.Fatalf("Machines forward: %v", err)
	}

	reversed := []domain.PredictionRecord{records[2], records[1], records[0]}
	backward, err := New(&fakeStore{records: reversed}).Machines(context.Background())
	if err != nil {
		t.Fatalf("Machines backward: %v", err)
	}

	if len(forward) != len(backward) {
		t.Fatalf("group counts differ: %d vs %d", len(forward), len(backward))
	}
	for i := range forward {
		if forward[i].MachineID != backward[i].MachineID ||
			*forward[i].LastPrediction != *backward[i].LastPrediction ||
			forward[i].PredictionCount != backward[i].PredictionCount {
			t.Errorf("group %d differs under reordering: %+v vs %+v", i, forward[i], backward[i])
		}
	}
}

func TestMachines_TimestampTieHigherIDWins(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []domain.PredictionRecord{
		rec(5, "m-1", 1, ts),
		rec(4, "m-1", 0, ts),
	}

	for name, input := range map[string][]domain.PredictionRecord{
		"high id first": records,
		"low id first":  {records[1], records[0]},
	} {
		machines, err := New(&fakeStore{records: input}).Machines(context.Background())
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(machines) != 1 {
			t.Fatalf("%s: got %d groups, want 1", name, len(machines))
		}
		if *machines[0].LastPrediction != 1 {
			t.Errorf("%s: last prediction %v, want 1 (record with higher id)", name, *machines[0].LastPrediction)
		}
	}
}

func TestHistory_NormalizesStoredFloats(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engine := New(&fakeStore{records: []domain.PredictionRecord{
		rec(1, "m-1", 0.75, base),
		rec(2, "m-1", 0.25, base),
	}})

	entries, err := engine.History(context.Background())
	if err != nil {
		t.Fatalf("History: unexpected error %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("History: got %d entries, want 2", len(entries))
	}
	if entries[0].Prediction != 1 || !entries[0].NeedsMaintenance {
		t.Errorf("entry 0: got prediction=%d maint=%v, want 1/true", entries[0].Prediction, entries[0].NeedsMaintenance)
	}
	if entries[1].Prediction != 0 || entries[1].NeedsMaintenance {
		t.Errorf("entry 1: got prediction=%d maint=%v, want 0/false", entries[1].Prediction, entries[1].NeedsMaintenance)
	}
}

func TestMachinePredictions_FiltersExactMatch(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engine := New(&fakeStore{records: []domain.PredictionRecord{
		rec(1, "m-1", 1, base),
		rec(2, "m-10", 0, base),
		rec(3, "m-1", 0, base.Add(time.Minute)),
	}})

	entries, err := engine.MachinePredictions(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("MachinePredictions: unexpected error %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("MachinePredictions: got %d entries, want 2 (no prefix matching)", len(entries))
	}
	for _, e := range entries {
		if e.MachineID != "m-1" {
			t.Errorf("entry for machine %q leaked into m-1 filter", e.MachineID)
		}
	}
}

func TestReads_PropagateStoreError(t *testing.T) {
	readErr := domain.ErrStoreRead
	engine := New(&fakeStore{readErr: readErr})
	ctx := context.Background()

	if _, err := engine.History(ctx); !errors.Is(err, domain.ErrStoreRead) {
		t.Errorf("History error: got %v, want ErrStoreRead", err)
	}
	if _, err := engine.Stats(ctx); !errors.Is(err, domain.ErrStoreRead) {
		t.Errorf("Stats error: got %v, want ErrStoreRead", err)
	}
	if _, err := engine.Machines(ctx); !errors.Is(err, domain.ErrStoreRead) {
		t.Errorf("Machines error: got %v, want ErrStoreRead", err)
	}
	if _, err := engine.MachinePredictions(ctx, "m-1"); !errors.Is(err, domain.ErrStoreRead) {
		t.Errorf("MachinePredictions error: got %v, want ErrStoreRead", err)
	}
}
