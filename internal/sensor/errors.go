package sensor

import "codeberg.org/mutker/thermalwatch/internal/errors"

const (
	ErrSourceRead      = errors.ErrorCode("sensor_read_failed")
	ErrSourceParse     = errors.ErrorCode("sensor_parse_failed")
	ErrImplausible     = errors.ErrorCode("sensor_implausible_value")
	ErrSourceAbsent    = errors.ErrorCode("sensor_source_absent")
	ErrNVMLUnavailable = errors.ErrorCode("sensor_nvml_unavailable")
)
