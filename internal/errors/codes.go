package errors

// Common error codes
const (
	// System errors
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Initialization errors
	ErrInitFailed ErrorCode = "initialization_failed"

	// Register errors
	ErrRegisterOpen  ErrorCode = "register_open_failed"
	ErrRegisterRead  ErrorCode = "register_read_failed"
	ErrRegisterClose ErrorCode = "register_close_failed"

	// Sensor errors
	ErrSensorBackend ErrorCode = "sensor_backend_unknown"
	ErrSensorInit    ErrorCode = "sensor_init_failed"
	ErrSensorRead    ErrorCode = "sensor_read_failed"

	// Sampling errors
	ErrCPURefresh ErrorCode = "cpu_refresh_failed"
	ErrSnapshot   ErrorCode = "snapshot_failed"
	ErrMainLoop   ErrorCode = "main_loop_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInvalidArgument: "Invalid argument provided",
	ErrInvalidConfig:   "Invalid configuration",
	ErrBindFlags:       "Failed to bind flags",
	ErrReadConfig:      "Failed to read configuration",
	ErrInvalidInterval: "Invalid interval value",
	ErrInitFailed:      "Initialization failed",
	ErrRegisterOpen:    "Failed to open energy register device",
	ErrRegisterRead:    "Failed to read energy register",
	ErrRegisterClose:   "Failed to close energy register device",
	ErrSensorBackend:   "Unknown sensor backend",
	ErrSensorInit:      "Sensor subsystem unavailable",
	ErrSensorRead:      "Failed to read sensors",
	ErrCPURefresh:      "Failed to refresh CPU statistics",
	ErrSnapshot:        "Failed to take metric snapshot",
	ErrMainLoop:        "Error in main loop",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
