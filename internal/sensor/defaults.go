package sensor

import (
	"fmt"
	"path/filepath"
)

const (
	DefaultThermalRoot = "/sys/class/thermal"
	DefaultBatteryPath = "/sys/class/power_supply/battery/temp"
)

// ZonePath returns the temp file of thermal_zone<n> under root.
func ZonePath(root string, n int) string {
	return filepath.Join(root, fmt.Sprintf("thermal_zone%d", n), "temp")
}

// DefaultCPUZones are thermal zones 0-2.
func DefaultCPUZones() []string {
	return []string{
		ZonePath(DefaultThermalRoot, 0),
		ZonePath(DefaultThermalRoot, 1),
		ZonePath(DefaultThermalRoot, 2),
	}
}

// DefaultGPUZones are thermal zones 3-5.
func DefaultGPUZones() []string {
	return []string{
		ZonePath(DefaultThermalRoot, 3),
		ZonePath(DefaultThermalRoot, 4),
		ZonePath(DefaultThermalRoot, 5),
	}
}

// BatterySource reads a tenths-of-a-degree battery temperature.
func BatterySource(path string) Source {
	return FileSource{Path: path, Divisor: DeciDegrees}
}
