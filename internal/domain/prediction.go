package domain

import "time"

// PredictionRequest is the inbound payload for a prediction call.
type PredictionRequest struct {
	MachineID   string  `json:"machineId" binding:"required"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// PredictionRecord is the durable entity persisted for every successful
// ingestion. ID and Timestamp are assigned by the store at creation and
// never change afterwards. Prediction is stored as a float so the schema
// survives a future non-binary model, even though the current scorer only
// ever writes 0 or 1.
type PredictionRecord struct {
	ID           int64              `json:"id"`
	MachineID    string             `json:"machine_id"`
	Features     map[string]float64 `json:"features"`
	Prediction   float64            `json:"prediction"`
	ModelVersion string             `json:"model_version"`
	Timestamp    time.Time          `json:"timestamp"`
}

// PredictionEvent is the payload published to the predictions topic,
// keyed by machine id.
type PredictionEvent struct {
	MachineID        string    `json:"machine_id"`
	Temperature      float64   `json:"temperature"`
	Humidity         float64   `json:"humidity"`
	Prediction       int       `json:"prediction"`
	NeedsMaintenance bool      `json:"needs_maintenance"`
	Confidence       float64   `json:"confidence"`
	ModelVersion     string    `json:"model_version"`
	Timestamp        time.Time `json:"timestamp"`
}

// PredictResponse is what a successful prediction call returns. KafkaSent
// reports whether the event made it onto the bus; it is informational and
// never affects the success of the call itself.
type PredictResponse struct {
	Prediction       int       `json:"prediction"`
	NeedsMaintenance bool      `json:"needs_maintenance"`
	Confidence       float64   `json:"confidence"`
	Timestamp        time.Time `json:"timestamp"`
	ModelVersion     string    `json:"model_version"`
	KafkaSent        bool      `json:"kafka_sent"`
}

// HistoryEntry is the read-side view of a stored record with the
// prediction normalized back to a strict 0/1.
type HistoryEntry struct {
	ID               int64              `json:"id"`
	MachineID        string             `json:"machine_id"`
	Features         map[string]float64 `json:"features"`
	Prediction       int                `json:"prediction"`
	NeedsMaintenance bool               `json:"needs_maintenance"`
	ModelVersion     string             `json:"model_version"`
	Timestamp        time.Time          `json:"timestamp"`
}

// Stats summarizes the full record set.
type Stats struct {
	TotalPredictions int        `json:"total_predictions"`
	UniqueMachines   int        `json:"unique_machines"`
	AvgPrediction    float64    `json:"avg_prediction"`
	LatestPrediction *time.Time `json:"latest_prediction"`
}

// MachineInfo summarizes one machine's stored predictions.
type MachineInfo struct {
	MachineID       string     `json:"machine_id"`
	PredictionCount int        `json:"prediction_count"`
	LastPrediction  *float64   `json:"last_prediction"`
	LastTimestamp   *time.Time `json:"last_timestamp"`
}

// NewHistoryEntry builds the read view for a stored record. Stored
// predictions are floats; values that are not exactly 0 or 1 are
// thresholded at 0.5, and needs_maintenance is derived from the raw
// stored value, not the normalized one.
func NewHistoryEntry(r PredictionRecord) HistoryEntry {
	pred := int(r.Prediction)
	if r.Prediction != 0 && r.Prediction != 1 {
		if r.Prediction > 0.5 {
			pred = 1
		} else {
			pred = 0
		}
	}

	version := r.ModelVersion
	if version == "" {
		version = "v1.0"
	}

	features := r.Features
	if features == nil {
		features = map[string]float64{}
	}

	return HistoryEntry{
		ID:               r.ID,
		MachineID:        r.MachineID,
		Features:         features,
		Prediction:       pred,
		NeedsMaintenance: r.Prediction >= 1 || r.Prediction > 0.5,
		ModelVersion:     version,
		Timestamp:        r.Timestamp,
	}
}
