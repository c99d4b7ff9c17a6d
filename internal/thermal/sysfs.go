package thermal

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"codeberg.org/mutker/thermalwatch/internal/logger"
)

const (
	DefaultRoot         = "/sys/class/thermal"
	DefaultPollInterval = 2 * time.Second

	// forecasts beyond this horizon are rejected
	maxForecastSeconds = 60
)

// SysfsNotifier derives a thermal status from Linux thermal zones. Headroom
// is the highest temp/critical-trip ratio over all zones that declare a
// critical trip point. Transitions are detected by polling and pushed to
// listeners from the polling goroutine.
type SysfsNotifier struct {
	root     string
	interval time.Duration

	mu        sync.Mutex
	listeners map[int]func(Status)
	order     []int
	nextID    int
	last      Status
}

func NewSysfsNotifier(root string, interval time.Duration) *SysfsNotifier {
	if root == "" {
		root = DefaultRoot
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &SysfsNotifier{
		root:      root,
		interval:  interval,
		listeners: make(map[int]func(Status)),
		last:      StatusUnknown,
	}
}

func (n *SysfsNotifier) AddListener(fn func(Status)) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.listeners[n.nextID] = fn
	n.order = append(n.order, n.nextID)

	return n.nextID
}

func (n *SysfsNotifier) RemoveListener(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.listeners[id]; !ok {
		return
	}
	delete(n.listeners, id)

	for i, v := range n.order {
		if v == id {
			n.order = append(n.order[:i:i], n.order[i+1:]...)
			break
		}
	}
}

func (n *SysfsNotifier) CurrentStatus() Status {
	h, err := n.headroom()
	if err != nil {
		return StatusUnknown
	}

	return FromHeadroom(h)
}

// Headroom reports the current headroom; sysfs has no trend data, so the
// forecast horizon is only validated.
func (n *SysfsNotifier) Headroom(forecastSeconds int) (float64, bool) {
	if forecastSeconds < 0 || forecastSeconds > maxForecastSeconds {
		return 0, false
	}

	h, err := n.headroom()
	if err != nil {
		logger.Debug().Err(err).Msg("Thermal headroom unavailable")
		return 0, false
	}

	return h, true
}

// Run polls until ctx is done.
func (n *SysfsNotifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	n.poll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.poll()
		}
	}
}

func (n *SysfsNotifier) poll() {
	status := n.CurrentStatus()

	n.mu.Lock()
	if status == n.last {
		n.mu.Unlock()
		return
	}
	n.last = status
	fns := make([]func(Status), 0, len(n.order))
	for _, id := range n.order {
		fns = append(fns, n.listeners[id])
	}
	n.mu.Unlock()

	logger.Debug().Str("thermal_status", status.String()).Msg("Thermal status changed")

	for _, fn := range fns {
		fn(status)
	}
}

func (n *SysfsNotifier) headroom() (float64, error) {
	errFactory := errors.New()

	zones, err := filepath.Glob(filepath.Join(n.root, "thermal_zone*"))
	if err != nil {
		return 0, errFactory.Wrap(ErrZoneRead, err)
	}

	best, found := 0.0, false
	for _, zone := range zones {
		crit, ok := criticalTrip(zone)
		if !ok || crit <= 0 {
			continue
		}
		temp, err := readInt(filepath.Join(zone, "temp"))
		if err != nil {
			continue
		}

		h := float64(temp) / float64(crit)
		if !found || h > best {
			best, found = h, true
		}
	}

	if !found {
		return 0, errFactory.WithData(ErrNoZones, n.root)
	}

	return best, nil
}

func criticalTrip(zone string) (int64, bool) {
	types, _ := filepath.Glob(filepath.Join(zone, "trip_point_*_type"))
	for _, typePath := range types {
		data, err := os.ReadFile(typePath)
		if err != nil || strings.TrimSpace(string(data)) != "critical" {
			continue
		}

		tempPath := strings.TrimSuffix(typePath, "_type") + "_temp"
		v, err := readInt(tempPath)
		if err != nil {
			continue
		}

		return v, true
	}

	return 0, false
}

func readInt(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}
