package aggregator_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicelab/internal/aggregator"
	"devicelab/internal/device"
)

func sampleWith(deviceID string, battery float64) device.Sample {
	return device.Sample{
		Timestamp:    time.Now(),
		DeviceID:     deviceID,
		BatteryLevel: battery,
	}
}

func TestConcurrentAppends(t *testing.T) {
	agg := aggregator.New()

	const devices = 4
	const tests = 5

	var wg sync.WaitGroup
	for d := 0; d < devices; d++ {
		deviceID := fmt.Sprintf("dev-%d", d)
		agg.RegisterDevice(device.Device{ID: deviceID, Platform: device.PlatformAndroid})
		for n := 0; n < tests; n++ {
			wg.Add(1)
			go func(deviceID string, n int) {
				defer wg.Done()
				agg.AddResult(aggregator.TestResult{
					DeviceID: deviceID,
					TestName: fmt.Sprintf("Test%d", n),
					Success:  true,
					Duration: time.Second,
					Metrics:  map[string]float64{"battery_drain": 1},
				})
				agg.AddSamples(deviceID, []device.Sample{sampleWith(deviceID, 80)})
			}(deviceID, n)
		}
	}
	wg.Wait()

	snapshot := agg.Snapshot()
	assert.Len(t, snapshot.Results, devices*tests, "Expected exactly N×M results")
	assert.Len(t, snapshot.Devices, devices)

	// Each (device, test) pair must appear exactly once
	seen := make(map[string]int)
	for _, result := range snapshot.Results {
		seen[result.DeviceID+"/"+result.TestName]++
	}
	for pair, count := range seen {
		assert.Equal(t, 1, count, "Duplicate result for pair %s", pair)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	agg := aggregator.New()
	agg.RegisterDevice(device.Device{ID: "dev-1"})
	agg.AddResult(aggregator.TestResult{
		DeviceID: "dev-1",
		TestName: "TestA",
		Metrics:  map[string]float64{"battery_drain": 2},
	})
	agg.AddSamples("dev-1", []device.Sample{sampleWith("dev-1", 90)})

	snapshot := agg.Snapshot()
	snapshot.Results[0].Metrics["battery_drain"] = 99
	snapshot.Series["dev-1"][0].BatteryLevel = 0

	fresh := agg.Snapshot()
	assert.InDelta(t, 2.0, fresh.Results[0].Metrics["battery_drain"], 0.001,
		"Mutating a snapshot must not affect the aggregator")
	assert.InDelta(t, 90.0, fresh.Series["dev-1"][0].BatteryLevel, 0.001)
}

func TestDevicesWithZeroResultsAreEnumerated(t *testing.T) {
	agg := aggregator.New()
	agg.RegisterDevice(device.Device{ID: "busy"})
	agg.RegisterDevice(device.Device{ID: "silent"})
	agg.AddResult(aggregator.TestResult{DeviceID: "busy", TestName: "TestA", Success: true})

	snapshot := agg.Snapshot()
	require.Len(t, snapshot.Devices, 2)

	analyses := snapshot.DeviceAnalyses()
	require.Contains(t, analyses, "silent")
	assert.Zero(t, analyses["silent"].SampleCount)

	passed, total := snapshot.PassCount("silent")
	assert.Zero(t, passed)
	assert.Zero(t, total)

	assert.Empty(t, snapshot.ResultsFor("silent"))
	require.Len(t, snapshot.ResultsFor("busy"), 1)
}

func TestResultSecondsDerivedFromDuration(t *testing.T) {
	agg := aggregator.New()
	agg.AddResult(aggregator.TestResult{
		DeviceID: "dev-1",
		TestName: "TestA",
		Duration: 1500 * time.Millisecond,
	})

	snapshot := agg.Snapshot()
	assert.InDelta(t, 1.5, snapshot.Results[0].Seconds, 0.001)
}
