package activation

import (
	"context"
	"sync"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
)

// Key is the store key holding the overlay activation intent.
const Key = "overlay_active"

const (
	ErrPersist = errors.ErrorCode("activation_persist_failed")
	ErrLaunch  = errors.ErrorCode("activation_launch_failed")
)

type Store interface {
	GetBool(ctx context.Context, key string, def bool) (bool, error)
	SetBool(ctx context.Context, key string, v bool) error
}

type Prober interface {
	IsRunning(ctx context.Context) (bool, error)
}

type Launcher interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager owns the effective overlay activation state. Every change it
// makes is written through to the store before it returns.
type Manager struct {
	store    Store
	prober   Prober
	launcher Launcher
	log      logger.Logger

	mu     sync.Mutex
	active bool
}

func NewManager(store Store, prober Prober, launcher Launcher) *Manager {
	return &Manager{
		store:    store,
		prober:   prober,
		launcher: launcher,
		log:      logger.With("activation"),
	}
}

// Restore reconciles the stored flag against the running overlay and
// corrects a stale flag. A failed liveness probe counts as not running.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	errFactory := errors.New()

	persisted, err := m.store.GetBool(ctx, Key, false)
	if err != nil {
		return false, err
	}

	running, err := m.prober.IsRunning(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("Overlay liveness probe failed")
		running = false
	}

	res := Reconcile(persisted, running)
	if res.NeedsPersist {
		if err := m.store.SetBool(ctx, Key, false); err != nil {
			return false, errFactory.Wrap(ErrPersist, err)
		}
		m.log.Info().Msg("Cleared stale overlay activation flag")
	}

	m.mu.Lock()
	m.active = res.Active
	m.mu.Unlock()

	m.log.Debug().
		Bool("persisted", persisted).
		Bool("running", running).
		Bool("active", res.Active).
		Msg("Activation restored")

	return res.Active, nil
}

func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SetActive records v as the activation intent.
func (m *Manager) SetActive(ctx context.Context, v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.SetBool(ctx, Key, v); err != nil {
		return errors.New().Wrap(ErrPersist, err)
	}
	m.active = v

	return nil
}

// Enable launches the overlay and persists the intent once it is up.
func (m *Manager) Enable(ctx context.Context) error {
	if err := m.launcher.Start(ctx); err != nil {
		return errors.New().Wrap(ErrLaunch, err)
	}

	return m.SetActive(ctx, true)
}

// Disable persists the intent first, so a crash while stopping still
// leaves the overlay off on next start.
func (m *Manager) Disable(ctx context.Context) error {
	if err := m.SetActive(ctx, false); err != nil {
		return err
	}

	if err := m.launcher.Stop(ctx); err != nil {
		return errors.New().Wrap(ErrLaunch, err)
	}

	return nil
}

// Toggle flips the effective state and returns the new one.
func (m *Manager) Toggle(ctx context.Context) (bool, error) {
	if m.Active() {
		return false, m.Disable(ctx)
	}

	if err := m.Enable(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// OverlayStopped handles the overlay's stopped signal.
func (m *Manager) OverlayStopped(ctx context.Context) {
	if !m.Active() {
		return
	}

	if err := m.SetActive(ctx, false); err != nil {
		m.log.Warn().Err(err).Msg("Failed to persist overlay stop")
		return
	}
	m.log.Info().Msg("Overlay stopped, activation cleared")
}
