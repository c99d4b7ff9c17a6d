package sensor

import (
	"context"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
)

// Cascade tries its sources in order and returns the first plausible value.
// Failing or implausible sources are skipped; exhausting the list yields
// Absent, which is an expected outcome rather than a fault.
type Cascade struct {
	Label   string
	Sources []Source
}

func (c Cascade) Probe(ctx context.Context) Reading {
	for _, src := range c.Sources {
		v, err := src.Read(ctx)
		if err != nil {
			logger.Debug().Err(err).Str("sensor", c.Label).Str("source", src.Name()).Msg("Sensor source unavailable")
			continue
		}
		if !Plausible(v) {
			logger.Debug().
				Err(errors.New().WithData(ErrImplausible, v)).
				Str("sensor", c.Label).
				Str("source", src.Name()).
				Msg("Sensor value out of range")
			continue
		}

		return Celsius(v)
	}

	return Absent
}

// Probe groups the CPU, GPU and battery cascades.
type Probe struct {
	cpu     Cascade
	gpu     Cascade
	battery Cascade
}

// Config lists candidate sources per sensor, in priority order.
type Config struct {
	CPU     []Source
	GPU     []Source
	Battery []Source
}

func NewProbe(cfg Config) *Probe {
	return &Probe{
		cpu:     Cascade{Label: "cpu", Sources: cfg.CPU},
		gpu:     Cascade{Label: "gpu", Sources: cfg.GPU},
		battery: Cascade{Label: "battery", Sources: cfg.Battery},
	}
}

func (p *Probe) CPUTemp(ctx context.Context) Reading {
	return p.cpu.Probe(ctx)
}

// GPUTemp probes a second, disjoint set of zones. Whether those zones
// belong to a GPU is not verified on arbitrary hardware.
func (p *Probe) GPUTemp(ctx context.Context) Reading {
	return p.gpu.Probe(ctx)
}

func (p *Probe) BatteryTemp(ctx context.Context) Reading {
	return p.battery.Probe(ctx)
}
