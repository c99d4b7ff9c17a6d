package thermal

// Status is the coarse thermal state of the device, ordered by severity.
// Unknown sorts first but is not a severity level.
type Status int

const (
	StatusUnknown Status = iota - 1
	StatusNone
	StatusLight
	StatusModerate
	StatusSevere
	StatusCritical
	StatusEmergency
	StatusShutdown
)

// FromCode maps a platform status code (0 = none ... 6 = shutdown) to a
// Status; anything else is Unknown.
func FromCode(code int) Status {
	if code < int(StatusNone) || code > int(StatusShutdown) {
		return StatusUnknown
	}

	return Status(code)
}

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "Normal"
	case StatusLight:
		return "Light Throttling"
	case StatusModerate:
		return "Moderate Throttling"
	case StatusSevere:
		return "Severe Throttling"
	case StatusCritical:
		return "Critical"
	case StatusEmergency:
		return "Emergency"
	case StatusShutdown:
		return "Shutdown Warning"
	default:
		return "Unknown"
	}
}

// Known reports whether s is a recognized severity level.
func (s Status) Known() bool {
	return s >= StatusNone && s <= StatusShutdown
}

// FromHeadroom maps a headroom fraction (1 = at the throttling limit) to a
// Status.
func FromHeadroom(h float64) Status {
	switch {
	case h < 0.70:
		return StatusNone
	case h < 0.80:
		return StatusLight
	case h < 0.90:
		return StatusModerate
	case h < 1.00:
		return StatusSevere
	case h < 1.05:
		return StatusCritical
	case h < 1.10:
		return StatusEmergency
	default:
		return StatusShutdown
	}
}
