package sensor

import (
	"context"
	"strings"

	"codeberg.org/mutker/thermalwatch/internal/errors"
	"github.com/shirou/gopsutil/v3/host"
)

// DefaultHwmonKeys are the gopsutil sensor key prefixes tried for the CPU.
var DefaultHwmonKeys = []string{"coretemp_package_id_0", "k10temp_tctl", "cpu_thermal"}

// HwmonSource reads a CPU temperature from hwmon through gopsutil. The first
// sensor whose key starts with one of Keys wins.
type HwmonSource struct {
	Keys []string
}

func (HwmonSource) Name() string {
	return "hwmon"
}

func (h HwmonSource) Read(ctx context.Context) (float64, error) {
	errFactory := errors.New()

	// gopsutil returns partial results together with a warnings error
	stats, err := host.SensorsTemperaturesWithContext(ctx)
	if len(stats) == 0 {
		if err != nil {
			return 0, errFactory.Wrap(ErrSourceRead, err)
		}
		return 0, errFactory.New(ErrSourceAbsent)
	}

	keys := h.Keys
	if len(keys) == 0 {
		keys = DefaultHwmonKeys
	}

	for _, key := range keys {
		for _, st := range stats {
			if strings.HasPrefix(st.SensorKey, key) {
				return st.Temperature, nil
			}
		}
	}

	return 0, errFactory.WithData(ErrSourceAbsent, keys)
}
