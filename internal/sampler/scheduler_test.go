package sampler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/cpu"
	"codeberg.org/mutker/thermalwatch/internal/sensor"
	"codeberg.org/mutker/thermalwatch/internal/thermal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }

func (m *manualTicker) Stop() { m.once.Do(func() { close(m.stopped) }) }

type stubNotifier struct {
	mu      sync.Mutex
	fns     map[int]func(thermal.Status)
	next    int
	status  thermal.Status
	added   int
	removed int
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{fns: make(map[int]func(thermal.Status))}
}

func (n *stubNotifier) AddListener(fn func(thermal.Status)) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	n.added++
	n.fns[n.next] = fn
	return n.next
}

func (n *stubNotifier) RemoveListener(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.fns[id]; ok {
		n.removed++
		delete(n.fns, id)
	}
}

func (n *stubNotifier) CurrentStatus() thermal.Status { return n.status }

func (n *stubNotifier) Headroom(int) (float64, bool) { return 0.3, true }

func (n *stubNotifier) emit(s thermal.Status) {
	n.mu.Lock()
	var fns []func(thermal.Status)
	for _, fn := range n.fns {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (n *stubNotifier) listeners() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.fns)
}

type counterSeq struct {
	mu    sync.Mutex
	total float64
}

// each read advances 100 ticks, 40 of them busy
func (c *counterSeq) Read(context.Context) (cpu.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += 100
	return cpu.Snapshot{User: c.total * 0.4, Idle: c.total * 0.6, HasIowait: true}, nil
}

type recordingSink struct {
	samples  chan ThermalSample
	statuses chan thermal.Status
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		samples:  make(chan ThermalSample, 64),
		statuses: make(chan thermal.Status, 64),
	}
}

func (r *recordingSink) OnSample(s ThermalSample)  { r.samples <- s }
func (r *recordingSink) OnStatus(s thermal.Status) { r.statuses <- s }

type fixture struct {
	notifier *stubNotifier
	sink     *recordingSink
	tickers  chan *manualTicker
	sched    *Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	zone := filepath.Join(dir, "zone0")
	require.NoError(t, os.WriteFile(zone, []byte("52000\n"), 0o600))

	n := newStubNotifier()
	n.status = thermal.StatusLight
	bridge := thermal.NewBridge(n)
	probe := sensor.NewProbe(sensor.Config{CPU: sensor.ZoneSources([]string{zone})})
	sink := newRecordingSink()

	f := &fixture{
		notifier: n,
		sink:     sink,
		tickers:  make(chan *manualTicker, 8),
	}
	f.sched = NewScheduler("test", New(&counterSeq{}, probe, bridge, 10), bridge, sink, time.Second)
	f.sched.newTicker = func(time.Duration) ticker {
		mt := newManualTicker()
		f.tickers <- mt
		return mt
	}

	return f
}

func (f *fixture) nextSample(t *testing.T) ThermalSample {
	t.Helper()
	select {
	case s := <-f.sink.samples:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no sample delivered")
		return ThermalSample{}
	}
}

func (f *fixture) ticker(t *testing.T) *manualTicker {
	t.Helper()
	select {
	case mt := <-f.tickers:
		return mt
	case <-time.After(2 * time.Second):
		t.Fatal("ticker not created")
		return nil
	}
}

func TestStartSamplesImmediately(t *testing.T) {
	f := newFixture(t)
	f.sched.Start(context.Background())
	defer f.sched.Stop()

	assert.Equal(t, StateRunning, f.sched.State())

	first := f.nextSample(t)
	assert.Zero(t, first.CPUUsage, "first tick only calibrates")
	assert.InDelta(t, 52.0, first.CPUTemp.Celsius, 1e-9)
	assert.False(t, first.GPUTemp.Present)
	assert.False(t, first.BatteryTemp.Present)
	assert.Equal(t, thermal.StatusLight, first.Status)
	load, ok := first.Headroom.Load()
	require.True(t, ok)
	assert.InDelta(t, 70.0, load, 1e-9)

	mt := f.ticker(t)
	mt.ch <- time.Now()
	second := f.nextSample(t)
	assert.InDelta(t, 40.0, second.CPUUsage, 1e-9)
}

func TestStartWhileRunningIsNoop(t *testing.T) {
	f := newFixture(t)
	f.sched.Start(context.Background())
	f.sched.Start(context.Background())
	defer f.sched.Stop()

	f.nextSample(t)
	f.ticker(t)

	select {
	case <-f.tickers:
		t.Fatal("second Start created another timer")
	case s := <-f.sink.samples:
		t.Fatalf("unexpected extra sample %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, f.notifier.listeners())
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	f := newFixture(t)
	f.sched.Stop()
	assert.Equal(t, StateIdle, f.sched.State())
	assert.Zero(t, f.notifier.removed)
}

func TestStopCancelsTicksAndSubscription(t *testing.T) {
	f := newFixture(t)
	f.sched.Start(context.Background())
	f.nextSample(t)
	mt := f.ticker(t)

	f.sched.Stop()
	assert.Equal(t, StateIdle, f.sched.State())
	assert.Zero(t, f.notifier.listeners())

	select {
	case <-mt.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker not stopped")
	}

	select {
	case mt.ch <- time.Now():
		t.Fatal("run loop still receiving ticks")
	case <-time.After(20 * time.Millisecond):
	}

	f.sched.Stop()
	assert.Equal(t, 1, f.notifier.removed)
}

func TestRestartAfterStop(t *testing.T) {
	f := newFixture(t)
	f.sched.Start(context.Background())
	f.nextSample(t)
	f.ticker(t)
	f.sched.Stop()

	f.sched.Start(context.Background())
	defer f.sched.Stop()
	f.nextSample(t)
	f.ticker(t)
	assert.Equal(t, 2, f.notifier.added)
}

func TestPushedStatusesReachSinkWithoutDedup(t *testing.T) {
	f := newFixture(t)
	f.sched.Start(context.Background())
	defer f.sched.Stop()
	f.nextSample(t)

	f.notifier.emit(thermal.StatusSevere)
	f.notifier.emit(thermal.StatusSevere)

	for i := 0; i < 2; i++ {
		select {
		case s := <-f.sink.statuses:
			assert.Equal(t, thermal.StatusSevere, s)
		case <-time.After(2 * time.Second):
			t.Fatal("status not delivered")
		}
	}
}

func TestIndependentSchedulers(t *testing.T) {
	a, b := newFixture(t), newFixture(t)
	a.sched.Start(context.Background())
	defer a.sched.Stop()
	b.sched.Start(context.Background())
	defer b.sched.Stop()

	a.nextSample(t)
	b.nextSample(t)
	at, bt := a.ticker(t), b.ticker(t)

	b.sched.Stop()
	assert.Equal(t, StateRunning, a.sched.State())

	at.ch <- time.Now()
	assert.InDelta(t, 40.0, a.nextSample(t).CPUUsage, 1e-9)

	select {
	case <-bt.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker b not stopped")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
}

type blockingSink struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	entered  chan struct{}
	release  chan struct{}
}

func (b *blockingSink) OnSample(ThermalSample) {
	b.mu.Lock()
	b.inFlight++
	if b.inFlight > b.peak {
		b.peak = b.inFlight
	}
	b.mu.Unlock()

	b.entered <- struct{}{}
	<-b.release

	b.mu.Lock()
	b.inFlight--
	b.mu.Unlock()
}

func (b *blockingSink) OnStatus(thermal.Status) {}

func TestRestartDoesNotOverlapInFlightTick(t *testing.T) {
	f := newFixture(t)
	sink := &blockingSink{entered: make(chan struct{}, 4), release: make(chan struct{})}
	f.sched.sink = sink

	waitEntered := func() {
		t.Helper()
		select {
		case <-sink.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("sample not delivered")
		}
	}

	f.sched.Start(context.Background())
	waitEntered()

	f.sched.Stop()
	f.sched.Start(context.Background())
	defer f.sched.Stop()

	select {
	case <-sink.entered:
		t.Fatal("new run delivered while the previous tick was still in the sink")
	case <-time.After(100 * time.Millisecond):
	}

	sink.release <- struct{}{}
	waitEntered()
	sink.release <- struct{}{}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 1, sink.peak)
}
