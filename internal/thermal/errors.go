package thermal

import "codeberg.org/mutker/thermalwatch/internal/errors"

const (
	ErrZoneRead = errors.ErrorCode("thermal_zone_read_failed")
	ErrNoZones  = errors.ErrorCode("thermal_no_zones")
)
