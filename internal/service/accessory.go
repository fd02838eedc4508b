package service

import "co2_sensor_proxy/internal/models"

const (
	defaultAccessoryName = "CO2 Sensor"
	defaultManufacturer  = "Default-Manufacturer"
	defaultModel         = "Default-Model"
	defaultSerial        = "Default-Serial"
)

type AccessoryService struct {
	info models.AccessoryInfo
}

// NewAccessoryService fills unset fields with defaults. The characteristic
// list is fixed.
func NewAccessoryService(info models.AccessoryInfo) *AccessoryService {
	if info.Name == "" {
		info.Name = defaultAccessoryName
	}
	if info.Manufacturer == "" {
		info.Manufacturer = defaultManufacturer
	}
	if info.Model == "" {
		info.Model = defaultModel
	}
	if info.SerialNumber == "" {
		info.SerialNumber = defaultSerial
	}
	info.Characteristics = []models.Characteristic{models.CharCO2Level, models.CharCO2Detected}
	return &AccessoryService{info: info}
}

func (s *AccessoryService) Info() models.AccessoryInfo {
	info := s.info
	info.Characteristics = append([]models.Characteristic(nil), s.info.Characteristics...)
	return info
}
