package aggregator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicelab/internal/aggregator"
	"devicelab/internal/device"
)

func TestAnalyze(t *testing.T) {
	summary := aggregator.Analyze([]float64{4, 2, 8, 6})

	assert.InDelta(t, 2, summary.Min, 0.001)
	assert.InDelta(t, 8, summary.Max, 0.001)
	assert.InDelta(t, 5, summary.Mean, 0.001)
	assert.InDelta(t, 5, summary.Median, 0.001)
	// Sample standard deviation of {4,2,8,6}
	assert.InDelta(t, 2.5819889, summary.StdDev, 0.0001)
}

func TestAnalyzeSingleSample(t *testing.T) {
	summary := aggregator.Analyze([]float64{7})

	assert.InDelta(t, 7, summary.Min, 0.001)
	assert.InDelta(t, 7, summary.Max, 0.001)
	assert.InDelta(t, 7, summary.Mean, 0.001)
	assert.InDelta(t, 7, summary.Median, 0.001)
	assert.Zero(t, summary.StdDev, "Single-sample series has stddev 0")
}

func TestAnalyzeEmptySeries(t *testing.T) {
	assert.NotPanics(t, func() {
		summary := aggregator.Analyze(nil)
		assert.Zero(t, summary)
	})
}

func TestAnalyzeMedianEven(t *testing.T) {
	summary := aggregator.Analyze([]float64{1, 2, 3, 10})
	assert.InDelta(t, 2.5, summary.Median, 0.001)
}

func buildSnapshot(samples []device.Sample) aggregator.Snapshot {
	agg := aggregator.New()
	agg.RegisterDevice(device.Device{ID: "dev-1", Platform: device.PlatformAndroid})
	agg.AddSamples("dev-1", samples)

	return agg.Snapshot()
}

func TestBatteryDrainRateIsCountNormalized(t *testing.T) {
	samples := []device.Sample{
		{DeviceID: "dev-1", BatteryLevel: 90, BatteryTemperature: 30},
		{DeviceID: "dev-1", BatteryLevel: 88, BatteryTemperature: 32},
		{DeviceID: "dev-1", BatteryLevel: 85, BatteryTemperature: 34},
		{DeviceID: "dev-1", BatteryLevel: 82, BatteryTemperature: 36},
	}

	analysis := buildSnapshot(samples).AnalyzeDevice("dev-1")

	assert.InDelta(t, 90, analysis.Battery.StartLevel, 0.001)
	assert.InDelta(t, 82, analysis.Battery.EndLevel, 0.001)
	// (first - last) / sample_count, deliberately not elapsed-time based
	assert.InDelta(t, 2.0, analysis.Battery.DrainRate, 0.001)
	assert.InDelta(t, 33, analysis.Battery.AvgTemperature, 0.001)
}

func TestNetworkTotalsAndRates(t *testing.T) {
	samples := []device.Sample{
		{DeviceID: "dev-1", NetworkRxDelta: 1024, NetworkTxDelta: 2048},
		{DeviceID: "dev-1", NetworkRxDelta: 3072, NetworkTxDelta: 0},
	}

	analysis := buildSnapshot(samples).AnalyzeDevice("dev-1")

	assert.InDelta(t, 4.0, analysis.Network.RxTotalKB, 0.001)
	assert.InDelta(t, 2.0, analysis.Network.TxTotalKB, 0.001)
	assert.InDelta(t, 2.0, analysis.Network.RxRateKBps, 0.001, "Rate is the mean of per-sample deltas")
	assert.InDelta(t, 1.0, analysis.Network.TxRateKBps, 0.001)
}

func TestGraphicsAnalysisSkipsMissingFPS(t *testing.T) {
	fps1 := 60.0
	fps2 := 50.0
	samples := []device.Sample{
		{DeviceID: "dev-1", FPS: &fps1, FrameDrops: 2},
		{DeviceID: "dev-1", FrameDrops: 1},
		{DeviceID: "dev-1", FPS: &fps2, FrameDrops: 3},
	}

	analysis := buildSnapshot(samples).AnalyzeDevice("dev-1")

	require.NotNil(t, analysis.Graphics.AvgFPS)
	assert.InDelta(t, 55.0, *analysis.Graphics.AvgFPS, 0.001)
	require.NotNil(t, analysis.Graphics.MinFPS)
	assert.InDelta(t, 50.0, *analysis.Graphics.MinFPS, 0.001)
	assert.Equal(t, 6, analysis.Graphics.TotalFrameDrops)
	assert.InDelta(t, 2.0, analysis.Graphics.DropRate, 0.001)
}

func TestGraphicsAnalysisNoFPSAtAll(t *testing.T) {
	samples := []device.Sample{{DeviceID: "dev-1"}, {DeviceID: "dev-1"}}

	analysis := buildSnapshot(samples).AnalyzeDevice("dev-1")
	assert.Nil(t, analysis.Graphics.AvgFPS)
	assert.Nil(t, analysis.Graphics.MinFPS)
}

func TestTestSummaries(t *testing.T) {
	agg := aggregator.New()
	agg.AddResult(aggregator.TestResult{DeviceID: "a", TestName: "ConsensusTest", Success: true, Duration: 2 * time.Second})
	agg.AddResult(aggregator.TestResult{DeviceID: "b", TestName: "ConsensusTest", Success: true, Duration: 4 * time.Second})
	agg.AddResult(aggregator.TestResult{DeviceID: "c", TestName: "ConsensusTest", Success: false, Duration: 3 * time.Second})
	agg.AddResult(aggregator.TestResult{
		DeviceID: "a", TestName: "BLEDiscoveryTest", Success: true,
		Metrics: map[string]float64{"peers_discovered": 3},
	})

	summaries := agg.Snapshot().TestSummaries()
	require.Len(t, summaries, 2)

	// Sorted by name
	ble := summaries[0]
	consensus := summaries[1]

	assert.Equal(t, "BLEDiscoveryTest", ble.Name)
	assert.InDelta(t, 3.0, ble.MetricMeans["peers_discovered"], 0.001)

	assert.Equal(t, "ConsensusTest", consensus.Name)
	assert.Equal(t, 2, consensus.Passed)
	assert.Equal(t, 3, consensus.Total)
	assert.InDelta(t, 2.0/3.0, consensus.PassRate, 0.0001)
	assert.Equal(t, 3*time.Second, consensus.AvgDuration)
}
