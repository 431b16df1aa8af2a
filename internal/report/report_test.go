package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicelab/internal/aggregator"
	"devicelab/internal/device"
)

func buildSnapshot(t *testing.T) aggregator.Snapshot {
	t.Helper()

	agg := aggregator.New()
	agg.RegisterDevice(device.Device{
		ID: "android-1", Platform: device.PlatformAndroid,
		Model: "Pixel 7", OSVersion: "14", BatteryLevel: 82, Temperature: 31.5,
	})
	agg.RegisterDevice(device.Device{
		ID: "ios-1", Platform: device.PlatformIOS,
		Model: "iPhone 15", OSVersion: "17.4", BatteryLevel: 91,
	})

	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	results := []aggregator.TestResult{
		{DeviceID: "android-1", TestName: "BLEDiscoveryTest", Success: true,
			Duration: 12 * time.Second, Timestamp: base, RawOutput: "OK (1 test)"},
		{DeviceID: "android-1", TestName: "ConsensusTest", Success: false,
			Duration: 45 * time.Second, Timestamp: base,
			RawOutput: "FAILURES!!!\n\nassertion failed: quorum not reached\nexpected 3 peers\ngot 1 peer\nstack line one\nstack line two"},
		{DeviceID: "ios-1", TestName: "BLEDiscoveryTest", Success: true,
			Duration: 14 * time.Second, Timestamp: base, RawOutput: "TEST SUCCEEDED"},
		{DeviceID: "ios-1", TestName: "ConsensusTest", Success: true,
			Duration: 40 * time.Second, Timestamp: base, RawOutput: "TEST SUCCEEDED"},
	}
	for _, result := range results {
		result.Metrics = map[string]float64{"battery_drain": 2}
		agg.AddResult(result)
	}

	agg.AddSamples("android-1", []device.Sample{
		{Timestamp: base, DeviceID: "android-1", CPUPercent: 10, MemoryUsedMB: 500,
			NetworkRxDelta: 2048, NetworkTxDelta: 1024, BatteryLevel: 84},
		{Timestamp: base.Add(time.Second), DeviceID: "android-1", CPUPercent: 30,
			MemoryUsedMB: 520, NetworkRxDelta: 1024, NetworkTxDelta: 512, BatteryLevel: 82},
	})

	return agg.Snapshot()
}

func TestBuildMetadata(t *testing.T) {
	snap := buildSnapshot(t)
	generated := time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC)

	doc := Build(snap, "run-42", generated)

	assert.Equal(t, "run-42", doc.Metadata.RunID)
	assert.Equal(t, generated, doc.Metadata.Generated)
	assert.Equal(t, 2, doc.Metadata.DevicesTested)
	assert.Equal(t, 4, doc.Metadata.TotalTests)
}

func TestRenderJSONContract(t *testing.T) {
	doc := Build(buildSnapshot(t), "run-42", time.Now())

	raw, err := RenderJSON(doc)
	require.NoError(t, err)

	var parsed map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &parsed))
	for _, field := range []string{"metadata", "devices", "results"} {
		assert.Contains(t, parsed, field)
	}

	var meta map[string]any
	require.NoError(t, json.Unmarshal(parsed["metadata"], &meta))
	assert.Contains(t, meta, "generated")
	assert.EqualValues(t, 2, meta["devices_tested"])
	assert.EqualValues(t, 4, meta["total_tests"])

	var results []map[string]any
	require.NoError(t, json.Unmarshal(parsed["results"], &results))
	require.Len(t, results, 4)
	assert.EqualValues(t, 12, results[0]["duration"])
}

func TestRenderMarkdown(t *testing.T) {
	doc := Build(buildSnapshot(t), "run-42", time.Now())

	md := RenderMarkdown(doc)

	assert.Contains(t, md, "| Device | Platform | OS Version | Battery | Status |")
	assert.Contains(t, md, "| Pixel 7 (android-1) | android | 14 | 82% | 1/2 passed |")
	assert.Contains(t, md, "| iPhone 15 (ios-1) | ios | 17.4 | 91% | 2/2 passed |")

	// Two of four ConsensusTest runs... one of two passed.
	assert.Contains(t, md, "### ConsensusTest")
	assert.Contains(t, md, "50.0% (1/2)")
	assert.Contains(t, md, "100.0% (2/2)")

	assert.Contains(t, md, "✅ **BLEDiscoveryTest**")
	assert.Contains(t, md, "❌ **ConsensusTest**")
}

func TestRenderMarkdownFailureExcerpt(t *testing.T) {
	doc := Build(buildSnapshot(t), "run-42", time.Now())

	md := RenderMarkdown(doc)

	// First three non-empty failure lines appear, later lines are cut.
	assert.Contains(t, md, "> FAILURES!!!")
	assert.Contains(t, md, "> assertion failed: quorum not reached")
	assert.Contains(t, md, "> expected 3 peers")
	assert.NotContains(t, md, "got 1 peer")
	assert.NotContains(t, md, "stack line one")
}

func TestRenderMarkdownPerformanceSection(t *testing.T) {
	doc := Build(buildSnapshot(t), "run-42", time.Now())

	md := RenderMarkdown(doc)

	assert.Contains(t, md, "Performance (2 samples):")
	assert.Contains(t, md, "- CPU: avg 20.0% (min 10.0, max 30.0)")
	assert.Contains(t, md, "- Network: 3.0 KB received, 1.5 KB sent")
	assert.Contains(t, md, "- Battery: 84% → 82%")
}

func TestRenderMarkdownDeviceWithoutResults(t *testing.T) {
	agg := aggregator.New()
	agg.RegisterDevice(device.Device{ID: "idle-1", Platform: device.PlatformAndroid, Model: "Pixel 6"})

	md := RenderMarkdown(Build(agg.Snapshot(), "run-1", time.Now()))

	assert.Contains(t, md, "### Pixel 6 (idle-1)")
	assert.Contains(t, md, "No tests executed.")
}

func TestFailureLines(t *testing.T) {
	lines := failureLines("\n\n  first \nsecond\n\nthird\nfourth", 3)
	assert.Equal(t, []string{"first", "second", "third"}, lines)

	assert.Empty(t, failureLines("", 3))
	assert.True(t, strings.HasPrefix(RenderMarkdown(Document{}), "# Device Test Report"))
}
