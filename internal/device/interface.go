package device

import (
	"context"
	"time"
)

// Platform identifies a device family with its own control tooling.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

func (p Platform) String() string {
	return string(p)
}

// Device is an immutable snapshot of a discovered device. Status fields
// are replaced wholesale by the registry on refresh, never mutated in
// place, so concurrent readers always see a consistent record.
type Device struct {
	ID           string   `json:"id"`
	Platform     Platform `json:"platform"`
	Model        string   `json:"model"`
	OSVersion    string   `json:"os_version"`
	BLEVersion   string   `json:"ble_version"`
	BatteryLevel int      `json:"battery_level"`
	Temperature  float64  `json:"temperature"`
}

// Status is the result of a point-in-time device status query.
type Status struct {
	BatteryLevel int
	Temperature  float64
}

// RunOutput is the raw outcome of one instrumented test invocation.
// Metrics carries the performance figures the test itself emitted
// (logcat METRIC lines on Android, measured averages on iOS).
type RunOutput struct {
	Success   bool
	RawOutput string
	Metrics   map[string]float64
}

// Sample is one telemetry measurement for a device. Samples are produced
// by exactly one sampler per device and are ordered by timestamp within
// that device's series.
type Sample struct {
	Timestamp          time.Time `json:"timestamp"`
	DeviceID           string    `json:"device_id"`
	CPUPercent         float64   `json:"cpu_usage"`
	MemoryUsedMB       float64   `json:"memory_usage"`
	MemoryAvailableMB  float64   `json:"memory_available"`
	NetworkRxDelta     int64     `json:"network_rx_bytes"`
	NetworkTxDelta     int64     `json:"network_tx_bytes"`
	BatteryLevel       float64   `json:"battery_level"`
	BatteryTemperature float64   `json:"battery_temperature"`
	FPS                *float64  `json:"fps,omitempty"`
	FrameDrops         int       `json:"frame_drops"`
}

// Adapter is the platform-specific command/control channel for one
// device family. Implementations are external collaborators: they talk
// to real tooling and may fail transiently at any call.
type Adapter interface {
	Platform() Platform

	// Discover returns every reachable device of this platform.
	Discover(ctx context.Context) ([]Device, error)

	// GetStatus queries battery level and temperature for one device.
	GetStatus(ctx context.Context, id string) (Status, error)

	// RunTest invokes one instrumented test bounded by timeout. A run
	// that exceeds the timeout returns an error carrying ErrRunTimeout.
	RunTest(ctx context.Context, id, testName string, timeout time.Duration) (RunOutput, error)

	// Sample collects one telemetry measurement for the device.
	Sample(ctx context.Context, id string) (Sample, error)
}

// SessionResetter is implemented by adapters that keep per-device state
// between samples (counter baselines). Resetting starts a fresh baseline
// so a new sampling session begins with zero deltas.
type SessionResetter interface {
	ResetSession(id string)
}
