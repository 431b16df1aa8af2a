package sampler

import "devicelab/internal/errors"

const (
	ErrNotIdle    = errors.ErrorCode("sampler_not_idle")
	ErrNotRunning = errors.ErrorCode("sampler_not_running")
)
