package sampler

import (
	"context"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/cpu"
	"codeberg.org/mutker/thermalwatch/internal/logger"
	"codeberg.org/mutker/thermalwatch/internal/sensor"
	"codeberg.org/mutker/thermalwatch/internal/thermal"
)

// Headroom is an optional forecast headroom fraction.
type Headroom struct {
	Fraction  float64
	Available bool
}

// Load converts the headroom into a load percentage; false when no
// forecast is available.
func (h Headroom) Load() (float64, bool) {
	if !h.Available {
		return 0, false
	}

	return thermal.ThermalLoad(h.Fraction), true
}

// ThermalSample is one tick's view of the device. It is never mutated after
// construction.
type ThermalSample struct {
	Timestamp   time.Time
	CPUUsage    float64
	CPUTemp     sensor.Reading
	GPUTemp     sensor.Reading
	BatteryTemp sensor.Reading
	Headroom    Headroom
	Status      thermal.Status
}

// Sampler assembles ThermalSamples. It owns its Estimator, so each consumer
// needs its own Sampler.
type Sampler struct {
	estimator       *cpu.Estimator
	counters        cpu.CounterSource
	probe           *sensor.Probe
	bridge          *thermal.Bridge
	forecastSeconds int
	now             func() time.Time
}

func New(counters cpu.CounterSource, probe *sensor.Probe, bridge *thermal.Bridge, forecastSeconds int) *Sampler {
	if forecastSeconds <= 0 {
		forecastSeconds = thermal.DefaultForecastSeconds
	}

	return &Sampler{
		estimator:       cpu.NewEstimator(),
		counters:        counters,
		probe:           probe,
		bridge:          bridge,
		forecastSeconds: forecastSeconds,
		now:             time.Now,
	}
}

// Sample reads every source once. Failures degrade to zero or absent
// values; nothing here is fatal.
func (s *Sampler) Sample(ctx context.Context) ThermalSample {
	usage, err := s.estimator.Read(ctx, s.counters)
	if err != nil {
		logger.Debug().Err(err).Msg("CPU counter read failed")
	}

	h, ok := s.bridge.HeadroomForecast(s.forecastSeconds)

	return ThermalSample{
		Timestamp:   s.now(),
		CPUUsage:    usage,
		CPUTemp:     s.probe.CPUTemp(ctx),
		GPUTemp:     s.probe.GPUTemp(ctx),
		BatteryTemp: s.probe.BatteryTemp(ctx),
		Headroom:    Headroom{Fraction: h, Available: ok},
		Status:      s.bridge.CurrentStatus(),
	}
}
