package sampler

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/logger"
	"codeberg.org/mutker/thermalwatch/internal/thermal"
)

const (
	DefaultInterval = 1000 * time.Millisecond

	// pushed status changes buffered between the bridge and the run loop
	statusBuffer = 16
)

// State of a Scheduler.
type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}

	return "idle"
}

// Sink consumes a scheduler's output. Calls are serialized per scheduler
// and never overlap, even across a Stop followed by Start.
type Sink interface {
	OnSample(ThermalSample)
	OnStatus(thermal.Status)
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

// Scheduler samples on a fixed cadence and forwards pushed thermal status
// changes, serializing both into one Sink.
type Scheduler struct {
	sampler  *Sampler
	bridge   *thermal.Bridge
	sink     Sink
	interval time.Duration
	log      logger.Logger

	newTicker func(time.Duration) ticker

	// held for every sink call so a tick left over from a previous run
	// cannot overlap the next run's ticks
	deliver sync.Mutex

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
	sub    thermal.Subscription
}

func NewScheduler(name string, s *Sampler, bridge *thermal.Bridge, sink Sink, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Scheduler{
		sampler:  s,
		bridge:   bridge,
		sink:     sink,
		interval: interval,
		log:      logger.With(name),
		newTicker: func(d time.Duration) ticker {
			return timeTicker{time.NewTicker(d)}
		},
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start moves Idle to Running and samples immediately. It is a no-op while
// already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.state = StateRunning
	s.gen++
	s.cancel = cancel

	events := make(chan thermal.Status, statusBuffer)
	s.sub = s.bridge.Subscribe(func(st thermal.Status) {
		select {
		case events <- st:
		case <-runCtx.Done():
		}
	})

	s.log.Debug().Dur("interval", s.interval).Msg("Scheduler started")

	go s.run(runCtx, s.gen, events)
}

// Stop moves Running to Idle and releases the bridge subscription. No tick
// starts after Stop returns; one already in progress may still complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return
	}

	s.state = StateIdle
	s.cancel()
	s.bridge.Unsubscribe(s.sub)
	s.sub = thermal.Subscription{}

	s.log.Debug().Msg("Scheduler stopped")
}

func (s *Scheduler) active(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning && s.gen == gen
}

func (s *Scheduler) run(ctx context.Context, gen uint64, events <-chan thermal.Status) {
	t := s.newTicker(s.interval)
	defer t.Stop()

	s.tick(ctx, gen)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			s.tick(ctx, gen)
		case st := <-events:
			s.status(gen, st)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, gen uint64) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	if !s.active(gen) {
		return
	}

	s.sink.OnSample(s.sampler.Sample(ctx))
}

func (s *Scheduler) status(gen uint64, st thermal.Status) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	if s.active(gen) {
		s.sink.OnStatus(st)
	}
}
