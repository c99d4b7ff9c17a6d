package overlay

import (
	"strings"
	"sync"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
)

// LogCompositor is a headless compositor: surfaces keep their geometry and
// text in memory and log changes. It never produces pointer events on its
// own; Inject feeds events for scripted control.
type LogCompositor struct {
	log logger.Logger

	mu       sync.Mutex
	surfaces []*logSurface
}

func NewLogCompositor() *LogCompositor {
	return &LogCompositor{log: logger.With("compositor")}
}

func (c *LogCompositor) CreateSurface(opts SurfaceOptions, onEvent func(Event)) (Surface, error) {
	s := &logSurface{
		log:     c.log,
		x:       opts.X,
		y:       opts.Y,
		onEvent: onEvent,
	}

	c.mu.Lock()
	c.surfaces = append(c.surfaces, s)
	c.mu.Unlock()

	c.log.Info().
		Int("x", opts.X).
		Int("y", opts.Y).
		Bool("focusable", opts.Focusable).
		Bool("always_on_top", opts.AlwaysOnTop).
		Msg("Surface created")

	return s, nil
}

// Inject delivers ev to every open surface, in creation order.
func (c *LogCompositor) Inject(ev Event) {
	c.mu.Lock()
	surfaces := make([]*logSurface, len(c.surfaces))
	copy(surfaces, c.surfaces)
	c.mu.Unlock()

	for _, s := range surfaces {
		s.deliver(ev)
	}
}

type logSurface struct {
	log     logger.Logger
	onEvent func(Event)

	// serializes event delivery
	eventMu sync.Mutex

	mu     sync.Mutex
	x, y   int
	text   []string
	closed bool
}

func (s *logSurface) Position() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

func (s *logSurface) SetPosition(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New().WithMessage(ErrSurfaceMove, "surface closed")
	}

	s.x, s.y = x, y
	s.log.Debug().Int("x", x).Int("y", y).Msg("Surface moved")

	return nil
}

func (s *logSurface) SetText(lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = lines
	s.log.Debug().Str("text", strings.Join(lines, " | ")).Msg("Surface updated")
}

func (s *logSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.log.Info().Msg("Surface closed")
	}

	return nil
}

func (s *logSurface) deliver(ev Event) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || s.onEvent == nil {
		return
	}

	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	s.onEvent(ev)
}
