package aggregate

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/jasser00/bigdata/internal/domain"
)

// Engine derives the read-side views by folding over the full record
// set. It holds no state of its own; every call is a fresh scan and any
// failure comes from the underlying store read.
type Engine struct {
	store domain.RecordStore
}

func New(store domain.RecordStore) *Engine {
	return &Engine{store: store}
}

// History returns every stored record as a normalized view.
func (e *Engine) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	records, err := e.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, domain.NewHistoryEntry(r))
	}
	return entries, nil
}

// Stats computes the record-set summary. An empty set yields zeroed
// counters and a nil latest timestamp.
func (e *Engine) Stats(ctx context.Context) (domain.Stats, error) {
	records, err := e.store.GetAll(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	if len(records) == 0 {
		return domain.Stats{}, nil
	}

	machines := make(map[string]struct{})
	var sum float64
	latest := records[0].Timestamp

	for _, r := range records {
		machines[r.MachineID] = struct{}{}
		sum += r.Prediction
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}

	return domain.Stats{
		TotalPredictions: len(records),
		UniqueMachines:   len(machines),
		AvgPrediction:    round4(sum / float64(len(records))),
		LatestPrediction: &latest,
	}, nil
}

// Machines groups the record set by machine id in a single pass, keeping
// the most recent prediction per machine. When two records for the same
// machine carry an identical timestamp the one with the higher id wins,
// which makes the result independent of scan order. Output is sorted by
// machine id.
func (e *Engine) Machines(ctx context.Context) ([]domain.MachineInfo, error) {
	records, err := e.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	type group struct {
		count  int
		lastID int64
		last   float64
		lastTS time.Time
	}
	groups := make(map[string]*group)

	for _, r := range records {
		g, ok := groups[r.MachineID]
		if !ok {
			g = &group{lastID: r.ID, last: r.Prediction, lastTS: r.Timestamp}
			groups[r.MachineID] = g
			g.count = 1
			continue
		}
		g.count++
		if r.Timestamp.After(g.lastTS) || (r.Timestamp.Equal(g.lastTS) && r.ID > g.lastID) {
			g.lastID = r.ID
			g.last = r.Prediction
			g.lastTS = r.Timestamp
		}
	}

	infos := make([]domain.MachineInfo, 0, len(groups))
	for id, g := range groups {
		last := g.last
		lastTS := g.lastTS
		infos = append(infos, domain.MachineInfo{
			MachineID:       id,
			PredictionCount: g.count,
			LastPrediction:  &last,
			LastTimestamp:   &lastTS,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].MachineID < infos[j].MachineID
	})

	return infos, nil
}

// MachinePredictions filters the history down to one machine by exact
// id match. There is no index; this is a full scan like every other
// read.
func (e *Engine) MachinePredictions(ctx context.Context, machineID string) ([]domain.HistoryEntry, error) {
	records, err := e.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0)
	for _, r := range records {
		if r.MachineID == machineID {
			entries = append(entries, domain.NewHistoryEntry(r))
		}
	}
	return entries, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
