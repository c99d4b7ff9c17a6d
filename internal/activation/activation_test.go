package activation_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"

	"codeberg.org/mutker/thermalwatch/internal/activation"
	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	values map[string]bool
	writes int
	failOn bool
}

func newMemStore() *memStore { return &memStore{values: map[string]bool{}} }

func (s *memStore) GetBool(_ context.Context, key string, def bool) (bool, error) {
	v, ok := s.values[key]
	if !ok {
		return def, nil
	}
	return v, nil
}

func (s *memStore) SetBool(_ context.Context, key string, v bool) error {
	if s.failOn {
		return fmt.Errorf("disk full")
	}
	s.values[key] = v
	s.writes++
	return nil
}

type fakeOverlay struct {
	running  bool
	probeErr error
	startErr error
	starts   int
	stops    int
}

func (f *fakeOverlay) IsRunning(context.Context) (bool, error) { return f.running, f.probeErr }

func (f *fakeOverlay) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	f.starts++
	return nil
}

func (f *fakeOverlay) Stop(context.Context) error {
	f.running = false
	f.stops++
	return nil
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		persisted bool
		running   bool
		want      activation.Result
	}{
		{"stale flag", true, false, activation.Result{Active: false, NeedsPersist: true}},
		{"confirmed", true, true, activation.Result{Active: true}},
		{"running without flag", false, true, activation.Result{Active: false}},
		{"off", false, false, activation.Result{Active: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, activation.Reconcile(tt.persisted, tt.running))
		})
	}
}

func TestRestoreSelfHeals(t *testing.T) {
	store := newMemStore()
	store.values[activation.Key] = true
	overlay := &fakeOverlay{running: false}

	m := activation.NewManager(store, overlay, overlay)
	active, err := m.Restore(context.Background())
	require.NoError(t, err)

	assert.False(t, active)
	assert.False(t, store.values[activation.Key])
	assert.Equal(t, 1, store.writes)
}

func TestRestoreConfirmed(t *testing.T) {
	store := newMemStore()
	store.values[activation.Key] = true
	overlay := &fakeOverlay{running: true}

	m := activation.NewManager(store, overlay, overlay)
	active, err := m.Restore(context.Background())
	require.NoError(t, err)

	assert.True(t, active)
	assert.True(t, m.Active())
	assert.Zero(t, store.writes)
}

func TestRestoreProbeErrorCountsAsStopped(t *testing.T) {
	store := newMemStore()
	store.values[activation.Key] = true
	overlay := &fakeOverlay{running: true, probeErr: fmt.Errorf("no procfs")}

	m := activation.NewManager(store, overlay, overlay)
	active, err := m.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, active)
	assert.False(t, store.values[activation.Key])
}

func TestToggleWritesThrough(t *testing.T) {
	store := newMemStore()
	overlay := &fakeOverlay{}
	m := activation.NewManager(store, overlay, overlay)
	ctx := context.Background()

	_, err := m.Restore(ctx)
	require.NoError(t, err)

	on, err := m.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, store.values[activation.Key])
	assert.Equal(t, 1, overlay.starts)

	on, err = m.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, store.values[activation.Key])
	assert.Equal(t, 1, overlay.stops)

	// a later reconciliation sees the last explicit intent
	active, err := activation.NewManager(store, overlay, overlay).Restore(ctx)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestEnableLaunchFailureDoesNotPersist(t *testing.T) {
	store := newMemStore()
	overlay := &fakeOverlay{startErr: fmt.Errorf("no display")}
	m := activation.NewManager(store, overlay, overlay)

	err := m.Enable(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, activation.ErrLaunch))
	assert.False(t, m.Active())
	assert.Zero(t, store.writes)
}

func TestSetActiveFailureKeepsState(t *testing.T) {
	store := newMemStore()
	store.failOn = true
	overlay := &fakeOverlay{}
	m := activation.NewManager(store, overlay, overlay)

	err := m.SetActive(context.Background(), true)
	assert.True(t, errors.HasCode(err, activation.ErrPersist))
	assert.False(t, m.Active())
}

func TestOverlayStoppedClearsFlag(t *testing.T) {
	store := newMemStore()
	overlay := &fakeOverlay{}
	m := activation.NewManager(store, overlay, overlay)
	ctx := context.Background()

	require.NoError(t, m.Enable(ctx))
	m.OverlayStopped(ctx)

	assert.False(t, m.Active())
	assert.False(t, store.values[activation.Key])

	writes := store.writes
	m.OverlayStopped(ctx)
	assert.Equal(t, writes, store.writes)
}

func TestRestoreHealsWhenPIDBelongsToAnotherProcess(t *testing.T) {
	ctx := context.Background()
	file := pid.New(t.TempDir(), "overlay").Owned("thermalwatch", "overlay", "run")

	// the overlay died and its PID now names this test process
	require.NoError(t, os.WriteFile(file.Path(), []byte(strconv.Itoa(os.Getpid())), 0o600))

	store := newMemStore()
	store.values[activation.Key] = true
	launcher := &fakeOverlay{}

	m := activation.NewManager(store, file, launcher)
	active, err := m.Restore(ctx)
	require.NoError(t, err)

	assert.False(t, active)
	assert.False(t, store.values[activation.Key])
	assert.Equal(t, 1, store.writes)
}
