package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig     ErrorCode = "invalid_configuration"
	ErrMissingConfig     ErrorCode = "missing_configuration"
	ErrBindFlags         ErrorCode = "bind_flags_failed"
	ErrReadConfig        ErrorCode = "read_config_failed"
	ErrInvalidWorkers    ErrorCode = "invalid_max_workers"
	ErrInvalidInterval   ErrorCode = "invalid_sample_interval"
	ErrInvalidOutputDir  ErrorCode = "invalid_output_dir"
	ErrInvalidSuiteFile  ErrorCode = "invalid_suite_file"
	ErrInvalidLogLevel   ErrorCode = "invalid_log_level"
	ErrInvalidAppID      ErrorCode = "invalid_app_id"
	ErrUnmarshalFailed   ErrorCode = "unmarshal_config_failed"
	ErrValidationFailed  ErrorCode = "config_validation_failed"
	ErrSuiteLoadFailed   ErrorCode = "suite_load_failed"
	ErrSuiteEmpty        ErrorCode = "suite_empty"
	ErrReportWriteFailed ErrorCode = "report_write_failed"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Fleet errors
	ErrNoDevices ErrorCode = "no_devices_discovered"

	// Operation errors
	ErrOperationFailed  ErrorCode = "operation_failed"
	ErrTimeout          ErrorCode = "operation_timeout"
	ErrInvalidOperation ErrorCode = "invalid_operation"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:          "Internal error occurred",
	ErrInvalidArgument:   "Invalid argument provided",
	ErrNotImplemented:    "Operation not implemented",
	ErrUnavailable:       "Service unavailable",
	ErrInvalidConfig:     "Invalid configuration",
	ErrMissingConfig:     "Missing configuration",
	ErrBindFlags:         "Failed to bind flags",
	ErrReadConfig:        "Failed to read configuration",
	ErrInvalidWorkers:    "Invalid max_workers value",
	ErrInvalidInterval:   "Invalid sample_interval value",
	ErrInvalidOutputDir:  "Invalid output directory",
	ErrInvalidSuiteFile:  "Invalid test suite file",
	ErrInvalidLogLevel:   "Invalid log level",
	ErrInvalidAppID:      "Invalid application identifier",
	ErrUnmarshalFailed:   "Failed to unmarshal configuration",
	ErrValidationFailed:  "Configuration validation failed",
	ErrSuiteLoadFailed:   "Failed to load test suite",
	ErrSuiteEmpty:        "Test suite contains no tests",
	ErrReportWriteFailed: "Failed to write report artifact",
	ErrInitFailed:        "Initialization failed",
	ErrShutdownFailed:    "Shutdown failed",
	ErrNoDevices:         "No devices discovered",
	ErrOperationFailed:   "Operation failed",
	ErrTimeout:           "Operation timed out",
	ErrInvalidOperation:  "Invalid operation",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
