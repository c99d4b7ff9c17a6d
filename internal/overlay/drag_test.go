package overlay_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/overlay"
	"github.com/stretchr/testify/assert"
)

type fakeWindow struct {
	x, y    int
	moves   int
	moveErr error
}

func (w *fakeWindow) Position() (int, int) { return w.x, w.y }

func (w *fakeWindow) SetPosition(x, y int) error {
	if w.moveErr != nil {
		return w.moveErr
	}
	w.x, w.y = x, y
	w.moves++
	return nil
}

func TestDragSequence(t *testing.T) {
	win := &fakeWindow{x: 100, y: 100}
	c := overlay.NewController(win)

	assert.True(t, c.Handle(overlay.Event{Action: overlay.ActionDown, X: 50, Y: 50}))
	assert.Equal(t, overlay.Dragging, c.State())

	assert.True(t, c.Handle(overlay.Event{Action: overlay.ActionMove, X: 80, Y: 70}))
	x, y := win.Position()
	assert.Equal(t, 130, x)
	assert.Equal(t, 120, y)

	c.Handle(overlay.Event{Action: overlay.ActionUp, X: 80, Y: 70})
	assert.Equal(t, overlay.DragIdle, c.State())
	x, y = win.Position()
	assert.Equal(t, 130, x)
	assert.Equal(t, 120, y)
	assert.Equal(t, 1, win.moves)
}

func TestDragMovesRelativeToOrigin(t *testing.T) {
	win := &fakeWindow{x: 10, y: 20}
	c := overlay.NewController(win)

	c.Handle(overlay.Event{Action: overlay.ActionDown, X: 200, Y: 200})
	c.Handle(overlay.Event{Action: overlay.ActionMove, X: 210, Y: 190})
	c.Handle(overlay.Event{Action: overlay.ActionMove, X: 250, Y: 260})

	x, y := win.Position()
	assert.Equal(t, 60, x)
	assert.Equal(t, 80, y)
}

func TestDragAllowsOffscreen(t *testing.T) {
	win := &fakeWindow{x: 0, y: 0}
	c := overlay.NewController(win)

	c.Handle(overlay.Event{Action: overlay.ActionDown, X: 500, Y: 500})
	c.Handle(overlay.Event{Action: overlay.ActionMove, X: 0, Y: 100})

	x, y := win.Position()
	assert.Equal(t, -500, x)
	assert.Equal(t, -400, y)
}

func TestIdleIgnoresMoveAndUp(t *testing.T) {
	win := &fakeWindow{x: 5, y: 5}
	c := overlay.NewController(win)

	assert.False(t, c.Handle(overlay.Event{Action: overlay.ActionMove, X: 100, Y: 100}))
	assert.False(t, c.Handle(overlay.Event{Action: overlay.ActionUp}))
	assert.Equal(t, overlay.DragIdle, c.State())
	assert.Zero(t, win.moves)
}

func TestOtherEventEndsDrag(t *testing.T) {
	win := &fakeWindow{x: 5, y: 5}
	c := overlay.NewController(win)

	c.Handle(overlay.Event{Action: overlay.ActionDown, X: 1, Y: 1})
	c.Handle(overlay.Event{Action: overlay.ActionCancel})
	assert.Equal(t, overlay.DragIdle, c.State())

	assert.False(t, c.Handle(overlay.Event{Action: overlay.ActionMove, X: 9, Y: 9}))
	assert.Zero(t, win.moves)
}

func TestFailedMoveIsReported(t *testing.T) {
	win := &fakeWindow{x: 100, y: 100, moveErr: fmt.Errorf("compositor gone")}
	c := overlay.NewController(win)

	c.Handle(overlay.Event{Action: overlay.ActionDown, X: 0, Y: 0})
	assert.True(t, c.Handle(overlay.Event{Action: overlay.ActionMove, X: 10, Y: 10}))
	assert.Equal(t, overlay.Dragging, c.State())
	assert.True(t, errors.HasCode(c.Err(), overlay.ErrSurfaceMove))

	win.moveErr = nil
	c.Handle(overlay.Event{Action: overlay.ActionMove, X: 20, Y: 20})
	assert.NoError(t, c.Err())
	x, y := win.Position()
	assert.Equal(t, 120, x)
	assert.Equal(t, 120, y)
}

func TestClosedSurfaceRejectsMove(t *testing.T) {
	comp := overlay.NewLogCompositor()
	surface, err := comp.CreateSurface(overlay.SurfaceOptions{X: 1, Y: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.NoError(t, surface.Close())

	err = surface.SetPosition(5, 5)
	assert.True(t, errors.HasCode(err, overlay.ErrSurfaceMove))
}
