package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"co2_sensor_proxy"
)

// ----------- Simulation constants -----------
const (
	OutdoorCO2PPM      = 420.0  // fresh-air baseline
	MaxCO2PPM          = 5000.0 // upper clamp
	DetectThresholdPPM = 1000.0 // detected above this level
	OccupiedRisePPM    = 25.0   // ppm per tick while the room is occupied
	VentilationDecay   = 0.05   // fraction of excess over baseline removed per tick
	NoisePPM           = 5.0    // +/- jitter per tick
	OccupancyFlipProb  = 0.02   // chance per tick that occupancy toggles
)

// SimulatorService produces a random-walk CO2 level.
type SimulatorService struct {
	mu       sync.RWMutex
	level    float64
	occupied bool
	rng      *rand.Rand
}

func NewSimulatorService() *SimulatorService {
	return newSimulatorWithSeed(uint64(time.Now().UnixNano()))
}

func newSimulatorWithSeed(seed uint64) *SimulatorService {
	return &SimulatorService{
		level: OutdoorCO2PPM,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Run advances the model each tick until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.step()
		}
	}
}

// Payload returns the current reading in the upstream wire shape.
func (s *SimulatorService) Payload() co2_sensor_proxy.SensorPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return co2_sensor_proxy.NewSensorPayload(s.level, s.level > DetectThresholdPPM)
}

func (s *SimulatorService) step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < OccupancyFlipProb {
		s.occupied = !s.occupied
	}
	s.level = nextLevel(s.level, s.occupied, (s.rng.Float64()*2-1)*NoisePPM)
}

// nextLevel applies ventilation decay, occupancy rise and noise, then clamps.
func nextLevel(level float64, occupied bool, noise float64) float64 {
	level -= (level - OutdoorCO2PPM) * VentilationDecay
	if occupied {
		level += OccupiedRisePPM
	}
	level += noise
	return clamp(level, OutdoorCO2PPM, MaxCO2PPM)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
