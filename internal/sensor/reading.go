package sensor

import "fmt"

const (
	// Plausible readings lie strictly inside (MinPlausible, MaxPlausible).
	MinPlausible = 0.0
	MaxPlausible = 150.0
)

// Reading is an optional temperature in degrees Celsius.
type Reading struct {
	Celsius float64
	Present bool
}

// Absent is the reading returned when no source produced a plausible value.
var Absent = Reading{}

// Celsius returns a present reading.
func Celsius(v float64) Reading {
	return Reading{Celsius: v, Present: true}
}

// Get returns the value and whether it is present.
func (r Reading) Get() (float64, bool) {
	return r.Celsius, r.Present
}

func (r Reading) String() string {
	if !r.Present {
		return "N/A"
	}

	return fmt.Sprintf("%.1f°C", r.Celsius)
}

// Plausible reports whether v is inside the open plausibility range.
func Plausible(v float64) bool {
	return v > MinPlausible && v < MaxPlausible
}
