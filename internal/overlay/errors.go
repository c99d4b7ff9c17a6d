package overlay

import "codeberg.org/mutker/thermalwatch/internal/errors"

const (
	ErrSurfaceCreate  = errors.ErrorCode("overlay_surface_create_failed")
	ErrSurfaceMove    = errors.ErrorCode("overlay_surface_move_failed")
	ErrAlreadyStarted = errors.ErrorCode("overlay_already_started")
	ErrLaunch         = errors.ErrorCode("overlay_launch_failed")
	ErrWatch          = errors.ErrorCode("overlay_watch_failed")
	ErrInvalidEvent   = errors.ErrorCode("overlay_invalid_event")
)
