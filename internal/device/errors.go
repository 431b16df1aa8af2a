package device

import "devicelab/internal/errors"

const (
	// Discovery errors
	ErrDiscoveryFailed = errors.ErrorCode("device_discovery_failed")
	ErrToolNotFound    = errors.ErrorCode("device_tool_not_found")

	// Status errors
	ErrStatusRefreshFailed = errors.ErrorCode("device_status_refresh_failed")
	ErrUnknownDevice       = errors.ErrorCode("device_unknown")
	ErrUnknownPlatform     = errors.ErrorCode("device_unknown_platform")

	// Execution errors
	ErrRunFailed  = errors.ErrorCode("device_test_run_failed")
	ErrRunTimeout = errors.ErrorCode("device_test_run_timeout")

	// Telemetry errors
	ErrSampleFailed = errors.ErrorCode("device_sample_failed")
	ErrParseFailed  = errors.ErrorCode("device_output_parse_failed")
)

// IsTimeout reports whether err stems from a test run exceeding its timeout.
func IsTimeout(err error) bool {
	return err != nil && errors.CodeOf(err) == ErrRunTimeout
}
