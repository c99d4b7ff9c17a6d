package overlay_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		line string
		want overlay.Event
	}{
		{"down 50 50", overlay.Event{Action: overlay.ActionDown, X: 50, Y: 50}},
		{"MOVE 80.5 -70", overlay.Event{Action: overlay.ActionMove, X: 80.5, Y: -70}},
		{"up", overlay.Event{Action: overlay.ActionUp}},
		{"up 1 2", overlay.Event{Action: overlay.ActionUp, X: 1, Y: 2}},
		{"cancel", overlay.Event{Action: overlay.ActionCancel}},
		{"close", overlay.Event{Action: overlay.ActionClose}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := overlay.ParseEvent(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEventRejectsMalformed(t *testing.T) {
	for _, line := range []string{"", "down", "move 1", "move a b", "hover 1 2", "up 1 2 3"} {
		_, err := overlay.ParseEvent(line)
		assert.True(t, errors.HasCode(err, overlay.ErrInvalidEvent), "line %q", line)
	}
}

func TestFeedEventsDrivesDrag(t *testing.T) {
	comp := overlay.NewLogCompositor()
	surface, err := comp.CreateSurface(overlay.SurfaceOptions{X: 100, Y: 100}, nil)
	require.NoError(t, err)
	c := overlay.NewController(surface)

	script := strings.NewReader(`
# drag right and down
down 50 50
bogus line
move 80 70
up
`)
	require.NoError(t, overlay.FeedEvents(context.Background(), script, func(ev overlay.Event) { c.Handle(ev) }))

	x, y := surface.Position()
	assert.Equal(t, 130, x)
	assert.Equal(t, 120, y)
	assert.Equal(t, overlay.DragIdle, c.State())
}

func TestFeedEventsThroughService(t *testing.T) {
	comp := overlay.NewLogCompositor()
	svc, _ := newService(t, comp)
	require.NoError(t, svc.Start(context.Background()))

	require.NoError(t, overlay.FeedEvents(context.Background(), strings.NewReader("close\n"), comp.Inject))

	select {
	case <-svc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scripted close did not stop the overlay")
	}
}
