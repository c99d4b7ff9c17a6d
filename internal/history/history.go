package history

import (
	"context"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
	"codeberg.org/mutker/thermalwatch/internal/sampler"
	"codeberg.org/mutker/thermalwatch/internal/thermal"
)

type service struct {
	repo Repository
}

type noopRecorder struct{}

// New returns a Recorder for cfg. A disabled config yields a no-op
// recorder.
func New(cfg Config) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("History disabled, using no-op recorder")
		return noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, logger.With("history"))
	if err != nil {
		return nil, err
	}

	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, sample *sampler.ThermalSample) error {
	errFactory := errors.New()

	if sample == nil || sample.Timestamp.IsZero() {
		return errFactory.New(ErrInvalidSample)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrTimeout, ctx.Err())
	default:
	}

	if err := s.repo.Record(sample); err != nil {
		return errFactory.Wrap(ErrRecordFailed, err)
	}

	return nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]sampler.ThermalSample, error) {
	if limit <= 0 {
		return nil, nil
	}

	return s.repo.Recent(ctx, limit)
}

func (s *service) Close() error {
	return s.repo.Close()
}

func (noopRecorder) Record(context.Context, *sampler.ThermalSample) error { return nil }

func (noopRecorder) Recent(context.Context, int) ([]sampler.ThermalSample, error) { return nil, nil }

func (noopRecorder) Close() error { return nil }

// Sink adapts a Recorder to a scheduler sink, forwarding every sample to
// Next after recording it. Record failures are logged and do not stop
// delivery.
type Sink struct {
	Recorder Recorder
	Next     sampler.Sink
}

func (s Sink) OnSample(sample sampler.ThermalSample) {
	if err := s.Recorder.Record(context.Background(), &sample); err != nil {
		logger.Warn().Err(err).Msg("Failed to record sample")
	}
	if s.Next != nil {
		s.Next.OnSample(sample)
	}
}

func (s Sink) OnStatus(status thermal.Status) {
	if s.Next != nil {
		s.Next.OnStatus(status)
	}
}
