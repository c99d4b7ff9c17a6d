package history

import (
	"context"

	"codeberg.org/mutker/thermalwatch/internal/sampler"
)

// Recorder persists thermal samples.
type Recorder interface {
	Record(ctx context.Context, sample *sampler.ThermalSample) error
	// Recent returns up to limit samples, newest first.
	Recent(ctx context.Context, limit int) ([]sampler.ThermalSample, error)
	Close() error
}

// Repository is the storage behind a Recorder.
type Repository interface {
	Record(sample *sampler.ThermalSample) error
	Flush() error
	Recent(ctx context.Context, limit int) ([]sampler.ThermalSample, error)
	Close() error
}
