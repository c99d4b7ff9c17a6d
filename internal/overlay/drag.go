package overlay

import (
	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
)

// DragState of a Controller.
type DragState int

const (
	DragIdle DragState = iota
	Dragging
)

// Controller moves a window by pointer drags. Positions are not clamped to
// the screen; a surface may be dragged partly or fully off-screen.
type Controller struct {
	win   Window
	state DragState
	err   error
	log   logger.Logger

	originX, originY               int
	originPointerX, originPointerY float64
}

func NewController(win Window) *Controller {
	return &Controller{win: win, log: logger.With("drag")}
}

func (c *Controller) State() DragState {
	return c.state
}

// Err returns the last failed window move, or nil once a move succeeds.
func (c *Controller) Err() error {
	return c.err
}

// Handle processes one event and reports whether it was consumed.
func (c *Controller) Handle(ev Event) bool {
	switch c.state {
	case DragIdle:
		if ev.Action != ActionDown {
			return false
		}
		c.originX, c.originY = c.win.Position()
		c.originPointerX, c.originPointerY = ev.X, ev.Y
		c.state = Dragging
		return true

	case Dragging:
		if ev.Action != ActionMove {
			// the live updates already placed the window at the drop point
			c.state = DragIdle
			return false
		}
		x := c.originX + int(ev.X-c.originPointerX)
		y := c.originY + int(ev.Y-c.originPointerY)
		c.err = nil
		if err := c.win.SetPosition(x, y); err != nil {
			appErr := errors.New().Wrap(ErrSurfaceMove, err)
			c.err = appErr
			c.log.ErrorWithCode(appErr).Int("x", x).Int("y", y).Msg("Failed to move overlay")
		}
		return true
	}

	return false
}
