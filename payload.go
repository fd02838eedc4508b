package co2_sensor_proxy

// SensorPayload is the JSON object served by the upstream sensor endpoint.
// Fields are pointers so a missing field can be told apart from a zero value.
type SensorPayload struct {
	CO2         *float64 `json:"co2,omitempty"`         // ppm
	CO2Detected *bool    `json:"co2Detected,omitempty"` // above alarm threshold
}

// Defaults applied when the upstream omits a field.
const (
	DefaultCO2Level    = 0.0
	DefaultCO2Detected = false
)

// Level returns the co2 value or DefaultCO2Level when absent.
func (p SensorPayload) Level() float64 {
	if p.CO2 == nil {
		return DefaultCO2Level
	}
	return *p.CO2
}

// Detected returns the co2Detected value or DefaultCO2Detected when absent.
func (p SensorPayload) Detected() bool {
	if p.CO2Detected == nil {
		return DefaultCO2Detected
	}
	return *p.CO2Detected
}

// NewSensorPayload builds a fully populated payload.
func NewSensorPayload(level float64, detected bool) SensorPayload {
	return SensorPayload{CO2: &level, CO2Detected: &detected}
}
