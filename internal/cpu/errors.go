package cpu

import "codeberg.org/mutker/thermalwatch/internal/errors"

const (
	ErrCounterRead      = errors.ErrorCode("cpu_counter_read_failed")
	ErrCounterMalformed = errors.ErrorCode("cpu_counter_malformed")
)
