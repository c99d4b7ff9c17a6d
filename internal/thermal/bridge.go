package thermal

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultForecastSeconds is the horizon used for headroom queries.
const DefaultForecastSeconds = 10

// Listener receives status transitions.
type Listener func(Status)

// Subscription identifies a registered listener.
type Subscription struct {
	id uuid.UUID
}

// Valid reports whether s was returned by Subscribe.
func (s Subscription) Valid() bool {
	return s.id != uuid.Nil
}

func (s Subscription) String() string {
	return s.id.String()
}

type subscriber struct {
	id uuid.UUID
	fn Listener
}

// Bridge fans notifier transitions out to its subscribers in registration
// order. It registers with the notifier while it has at least one
// subscriber. Repeated identical statuses are passed through.
type Bridge struct {
	notifier Notifier

	mu         sync.Mutex
	subs       []subscriber
	listenerID int
	registered bool
}

func NewBridge(n Notifier) *Bridge {
	return &Bridge{notifier: n}
}

func (b *Bridge) Subscribe(fn Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := subscriber{id: uuid.New(), fn: fn}
	b.subs = append(b.subs, sub)

	if !b.registered {
		b.listenerID = b.notifier.AddListener(b.dispatch)
		b.registered = true
	}

	return Subscription{id: sub.id}
}

// Unsubscribe is idempotent; unknown or stale handles are ignored.
func (b *Bridge) Unsubscribe(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == s.id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			break
		}
	}

	if len(b.subs) == 0 && b.registered {
		b.notifier.RemoveListener(b.listenerID)
		b.registered = false
	}
}

func (b *Bridge) dispatch(status Status) {
	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.fn(status)
	}
}

// CurrentStatus queries the notifier directly, independent of
// subscriptions.
func (b *Bridge) CurrentStatus() Status {
	return b.notifier.CurrentStatus()
}

// HeadroomForecast returns the forecast headroom fraction, or false when
// the platform cannot forecast.
func (b *Bridge) HeadroomForecast(seconds int) (float64, bool) {
	f, ok := b.notifier.(Forecaster)
	if !ok {
		return 0, false
	}

	return f.Headroom(seconds)
}

// ThermalLoad converts a headroom fraction into a load percentage.
func ThermalLoad(headroom float64) float64 {
	return (1 - headroom) * 100
}
