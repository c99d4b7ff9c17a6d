package overlay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
	"codeberg.org/mutker/thermalwatch/internal/pid"
	"codeberg.org/mutker/thermalwatch/internal/sampler"
	"codeberg.org/mutker/thermalwatch/internal/thermal"
)

const (
	DefaultX = 100
	DefaultY = 100
)

// Config for the overlay service.
type Config struct {
	X, Y     int
	Interval time.Duration
	PIDFile  pid.File
}

// Service runs the floating overlay: one surface, one drag controller and
// its own sampling scheduler. Removing the PID file on Stop is the
// overlay's "stopped" signal to other processes.
type Service struct {
	cfg        Config
	compositor Compositor
	sched      *sampler.Scheduler
	log        logger.Logger

	mu      sync.Mutex
	surface Surface
	ctrl    *Controller
	started bool
	done    chan struct{}
	stop    sync.Once
}

func NewService(cfg Config, compositor Compositor, s *sampler.Sampler, bridge *thermal.Bridge) *Service {
	svc := &Service{
		cfg:        cfg,
		compositor: compositor,
		log:        logger.With("overlay"),
		done:       make(chan struct{}),
	}
	svc.sched = sampler.NewScheduler("overlay-sampler", s, bridge, svc, cfg.Interval)

	return svc
}

// Start claims the PID file, creates the surface and begins sampling.
func (s *Service) Start(ctx context.Context) error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errFactory.New(ErrAlreadyStarted)
	}

	if err := s.cfg.PIDFile.Write(ctx); err != nil {
		return err
	}

	surface, err := s.compositor.CreateSurface(SurfaceOptions{
		X:           s.cfg.X,
		Y:           s.cfg.Y,
		Focusable:   false,
		AlwaysOnTop: true,
	}, s.handleEvent)
	if err != nil {
		if rmErr := s.cfg.PIDFile.Remove(); rmErr != nil {
			s.log.Warn().Err(rmErr).Msg("Failed to remove PID file")
		}
		return errFactory.Wrap(ErrSurfaceCreate, err)
	}

	s.surface = surface
	s.ctrl = NewController(surface)
	s.started = true

	s.sched.Start(ctx)
	s.log.Info().Int("x", s.cfg.X).Int("y", s.cfg.Y).Msg("Overlay started")

	return nil
}

// Stop tears the overlay down. Only the first call has an effect.
func (s *Service) Stop() error {
	var err error

	s.stop.Do(func() {
		s.sched.Stop()

		s.mu.Lock()
		surface, started := s.surface, s.started
		s.mu.Unlock()

		if surface != nil {
			if cerr := surface.Close(); cerr != nil {
				s.log.Warn().Err(cerr).Msg("Failed to close surface")
			}
		}

		// the PID file is only ours once Start succeeded
		if started {
			err = s.cfg.PIDFile.Remove()
		}
		close(s.done)
		s.log.Info().Msg("Overlay stopped")
	})

	return err
}

// Done is closed once the overlay has stopped.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) handleEvent(ev Event) {
	if ev.Action == ActionClose {
		if err := s.Stop(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to stop overlay")
		}
		return
	}

	s.mu.Lock()
	ctrl := s.ctrl
	s.mu.Unlock()

	if ctrl != nil {
		ctrl.Handle(ev)
	}
}

// OnSample renders the overlay lines.
func (s *Service) OnSample(sample sampler.ThermalSample) {
	s.mu.Lock()
	surface := s.surface
	s.mu.Unlock()

	if surface == nil {
		return
	}

	surface.SetText(
		fmt.Sprintf("CPU: %.1f%%", sample.CPUUsage),
		"Temp: "+sample.CPUTemp.String(),
		"GPU: "+sample.GPUTemp.String(),
	)
}

func (s *Service) OnStatus(status thermal.Status) {
	s.log.Info().Str("thermal_status", status.String()).Msg("Thermal status changed")
}
