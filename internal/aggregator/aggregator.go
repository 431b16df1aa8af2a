package aggregator

import (
	"sort"
	"sync"
	"time"

	"devicelab/internal/device"
)

// TestResult is the immutable outcome of one (device, test) execution.
// Metrics always carries battery_drain and final_battery, merged from the
// status snapshots bracketing the run.
type TestResult struct {
	DeviceID  string             `json:"device_id"`
	TestName  string             `json:"test_name"`
	Success   bool               `json:"success"`
	Duration  time.Duration      `json:"-"`
	Seconds   float64            `json:"duration"`
	Timestamp time.Time          `json:"timestamp"`
	RawOutput string             `json:"raw_output"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Aggregator accumulates results and telemetry series from concurrent
// executions. It is the only shared mutable state across workers, so every
// append is mutex-guarded.
type Aggregator struct {
	mu      sync.Mutex
	devices map[string]device.Device
	results []TestResult
	series  map[string][]device.Sample
}

func New() *Aggregator {
	return &Aggregator{
		devices: make(map[string]device.Device),
		series:  make(map[string][]device.Sample),
	}
}

// RegisterDevice records a device as a run participant so it is
// enumerated in the report even with zero results.
func (a *Aggregator) RegisterDevice(dev device.Device) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.devices[dev.ID] = dev
}

// UpdateDevice replaces a participant's snapshot, keeping the report's
// device list current with the last refresh.
func (a *Aggregator) UpdateDevice(dev device.Device) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.devices[dev.ID]; ok {
		a.devices[dev.ID] = dev
	}
}

// AddResult appends one execution outcome.
func (a *Aggregator) AddResult(result TestResult) {
	result.Seconds = result.Duration.Seconds()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.results = append(a.results, result)
}

// AddSamples appends a device's captured telemetry.
func (a *Aggregator) AddSamples(deviceID string, samples []device.Sample) {
	if len(samples) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.series[deviceID] = append(a.series[deviceID], samples...)
}

// Snapshot returns a deep copy of the accumulated model. Downstream
// consumers (analysis, report emitters) never touch the live collections.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	devices := make([]device.Device, 0, len(a.devices))
	for _, dev := range a.devices {
		devices = append(devices, dev)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })

	results := make([]TestResult, len(a.results))
	for i, result := range a.results {
		results[i] = result
		results[i].Metrics = make(map[string]float64, len(result.Metrics))
		for k, v := range result.Metrics {
			results[i].Metrics[k] = v
		}
	}

	series := make(map[string][]device.Sample, len(a.series))
	for id, samples := range a.series {
		copied := make([]device.Sample, len(samples))
		copy(copied, samples)
		series[id] = copied
	}

	return Snapshot{
		Devices: devices,
		Results: results,
		Series:  series,
	}
}

// Snapshot is an immutable view of one run's accumulated data.
type Snapshot struct {
	Devices []device.Device
	Results []TestResult
	Series  map[string][]device.Sample
}

// ResultsFor returns the results belonging to one device, in append order.
func (s Snapshot) ResultsFor(deviceID string) []TestResult {
	var out []TestResult
	for _, result := range s.Results {
		if result.DeviceID == deviceID {
			out = append(out, result)
		}
	}

	return out
}

// TestNames returns the distinct test names present, sorted.
func (s Snapshot) TestNames() []string {
	seen := make(map[string]struct{})
	for _, result := range s.Results {
		seen[result.TestName] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
