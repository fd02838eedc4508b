package models

// Characteristic names a value exposed to the accessory runtime.
type Characteristic string

const (
	CharCO2Level    Characteristic = "CarbonDioxideLevel"
	CharCO2Detected Characteristic = "CarbonDioxideDetected"
)

// CharacteristicUpdate is one push notification.
type CharacteristicUpdate struct {
	Characteristic Characteristic `json:"characteristic"`
	Value          any            `json:"value"`
}

// AccessoryInfo describes the exposed accessory.
type AccessoryInfo struct {
	Name            string           `json:"name"`
	Manufacturer    string           `json:"manufacturer"`
	Model           string           `json:"model"`
	SerialNumber    string           `json:"serial_number"`
	Characteristics []Characteristic `json:"characteristics"`
}
