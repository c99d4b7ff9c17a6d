package overlay

// Action is a pointer or control event kind delivered by the compositor.
type Action int

const (
	ActionOther Action = iota
	ActionDown
	ActionMove
	ActionUp
	ActionCancel
	// ActionClose is the surface's close affordance.
	ActionClose
)

// Event is a compositor event in screen coordinates.
type Event struct {
	Action Action
	X, Y   float64
}

// Window is the part of a surface the drag controller needs.
type Window interface {
	Position() (x, y int)
	SetPosition(x, y int) error
}

// Surface is a floating window owned by the overlay.
type Surface interface {
	Window
	SetText(lines ...string)
	Close() error
}

// SurfaceOptions describes the floating surface requested from the
// compositor.
type SurfaceOptions struct {
	X, Y        int
	Focusable   bool
	AlwaysOnTop bool
}

// Compositor creates surfaces and delivers their events to onEvent, one at
// a time.
type Compositor interface {
	CreateSurface(opts SurfaceOptions, onEvent func(Event)) (Surface, error)
}
