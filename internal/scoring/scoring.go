package scoring

// Weight constants for the base risk formula. They must sum to 1.0.
const (
	weightTemperature = 0.6
	weightHumidity    = 0.4
)

// Additional risk added on top of the weighted base.
const (
	bonusTempCritical = 0.3  // temperature above 90
	bonusTempHigh     = 0.15 // temperature above 80
	bonusHumidityHigh = 0.1  // humidity above 70
)

// Threshold above which a machine is flagged for maintenance.
const maintenanceThreshold = 0.5

// ModelVersion tags every record and event produced by this scorer.
const ModelVersion = "v1.0"

// Result is the outcome of scoring one reading.
type Result struct {
	// Confidence is the clamped risk score in [0, 1]. It doubles as the
	// decision input: maintenance is flagged when it exceeds 0.5.
	Confidence float64

	// NeedsMaintenance is true iff Confidence > 0.5.
	NeedsMaintenance bool

	// Prediction is 1 when maintenance is needed, 0 otherwise.
	Prediction int
}

// Score computes the maintenance risk for one temperature/humidity
// reading.
//
// Formula:
//
//	base = temperature/100 * 0.6 + humidity/100 * 0.4
//	+0.3 if temperature > 90, else +0.15 if temperature > 80
//	+0.1 if humidity > 70
//	confidence = clamp(base, 0, 1)
//
// Inputs are not range-checked: readings outside the physical range are
// scored as-is and the clamp keeps the result in [0, 1].
func Score(temperature, humidity float64) Result {
	risk := temperature/100*weightTemperature + humidity/100*weightHumidity

	if temperature > 90 {
		risk += bonusTempCritical
	} else if temperature > 80 {
		risk += bonusTempHigh
	}

	if humidity > 70 {
		risk += bonusHumidityHigh
	}

	confidence := clamp01(risk)
	needsMaintenance := confidence > maintenanceThreshold

	prediction := 0
	if needsMaintenance {
		prediction = 1
	}

	return Result{
		Confidence:       confidence,
		NeedsMaintenance: needsMaintenance,
		Prediction:       prediction,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
