package aggregator

import (
	"math"
	"sort"
	"time"

	"devicelab/internal/device"
)

const bytesPerKB = 1024

// Summary holds the five-number analysis of one metric series. An empty
// series yields the zero value; a single-sample series reports a standard
// deviation of 0.
type Summary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"avg"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdev"`
}

// Analyze computes min, max, arithmetic mean, median and sample standard
// deviation over values.
func Analyze(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Summary{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean(values),
		Median: median(sorted),
		StdDev: sampleStdDev(values),
	}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// median expects a sorted slice.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}

	return math.Sqrt(sum / float64(len(values)-1))
}

// NetworkAnalysis reports traffic totals and rates in KB. The rate fields
// are the arithmetic mean of per-sample deltas, an approximation of
// throughput kept for report compatibility.
type NetworkAnalysis struct {
	RxTotalKB  float64 `json:"rx_total_kb"`
	TxTotalKB  float64 `json:"tx_total_kb"`
	RxRateKBps float64 `json:"rx_rate_kbps"`
	TxRateKBps float64 `json:"tx_rate_kbps"`
}

// BatteryAnalysis reports battery behaviour over a series. DrainRate is
// normalized by sample count, not elapsed time; under sampling jitter or
// dropped samples the two diverge.
type BatteryAnalysis struct {
	StartLevel     float64 `json:"start_level"`
	EndLevel       float64 `json:"end_level"`
	DrainRate      float64 `json:"drain_rate"`
	AvgTemperature float64 `json:"avg_temperature"`
}

// GraphicsAnalysis reports frame statistics over the samples that carried
// FPS readings.
type GraphicsAnalysis struct {
	AvgFPS          *float64 `json:"avg_fps"`
	MinFPS          *float64 `json:"min_fps"`
	TotalFrameDrops int      `json:"total_frame_drops"`
	DropRate        float64  `json:"drop_rate"`
}

// DeviceAnalysis is the full statistical view of one device's telemetry.
type DeviceAnalysis struct {
	Platform    device.Platform  `json:"platform"`
	SampleCount int              `json:"samples"`
	CPU         Summary          `json:"cpu"`
	Memory      Summary          `json:"memory"`
	Network     NetworkAnalysis  `json:"network"`
	Battery     BatteryAnalysis  `json:"battery"`
	Graphics    GraphicsAnalysis `json:"graphics"`
}

// AnalyzeDevice computes the statistics for one device's series. A device
// with no samples yields a zero analysis rather than an error, so one
// silent device never aborts the overall report.
func (s Snapshot) AnalyzeDevice(id string) DeviceAnalysis {
	samples := s.Series[id]

	analysis := DeviceAnalysis{SampleCount: len(samples)}
	for _, dev := range s.Devices {
		if dev.ID == id {
			analysis.Platform = dev.Platform
			break
		}
	}

	if len(samples) == 0 {
		return analysis
	}

	cpu := make([]float64, len(samples))
	mem := make([]float64, len(samples))
	for i, sample := range samples {
		cpu[i] = sample.CPUPercent
		mem[i] = sample.MemoryUsedMB
	}
	analysis.CPU = Analyze(cpu)
	analysis.Memory = Analyze(mem)
	analysis.Network = analyzeNetwork(samples)
	analysis.Battery = analyzeBattery(samples)
	analysis.Graphics = analyzeGraphics(samples)

	return analysis
}

// DeviceAnalyses computes statistics for every participating device.
func (s Snapshot) DeviceAnalyses() map[string]DeviceAnalysis {
	analyses := make(map[string]DeviceAnalysis, len(s.Devices))
	for _, dev := range s.Devices {
		analyses[dev.ID] = s.AnalyzeDevice(dev.ID)
	}

	return analyses
}

func analyzeNetwork(samples []device.Sample) NetworkAnalysis {
	var rxTotal, txTotal int64
	rx := make([]float64, len(samples))
	tx := make([]float64, len(samples))
	for i, sample := range samples {
		rxTotal += sample.NetworkRxDelta
		txTotal += sample.NetworkTxDelta
		rx[i] = float64(sample.NetworkRxDelta)
		tx[i] = float64(sample.NetworkTxDelta)
	}

	return NetworkAnalysis{
		RxTotalKB:  float64(rxTotal) / bytesPerKB,
		TxTotalKB:  float64(txTotal) / bytesPerKB,
		RxRateKBps: mean(rx) / bytesPerKB,
		TxRateKBps: mean(tx) / bytesPerKB,
	}
}

func analyzeBattery(samples []device.Sample) BatteryAnalysis {
	temps := make([]float64, len(samples))
	for i, sample := range samples {
		temps[i] = sample.BatteryTemperature
	}

	first := samples[0].BatteryLevel
	last := samples[len(samples)-1].BatteryLevel

	return BatteryAnalysis{
		StartLevel:     first,
		EndLevel:       last,
		DrainRate:      (first - last) / float64(len(samples)),
		AvgTemperature: mean(temps),
	}
}

func analyzeGraphics(samples []device.Sample) GraphicsAnalysis {
	var fpsValues []float64
	totalDrops := 0
	for _, sample := range samples {
		totalDrops += sample.FrameDrops
		if sample.FPS != nil {
			fpsValues = append(fpsValues, *sample.FPS)
		}
	}

	analysis := GraphicsAnalysis{
		TotalFrameDrops: totalDrops,
		DropRate:        float64(totalDrops) / float64(len(samples)),
	}

	if len(fpsValues) > 0 {
		summary := Analyze(fpsValues)
		analysis.AvgFPS = &summary.Mean
		analysis.MinFPS = &summary.Min
	}

	return analysis
}

// TestSummary aggregates all results sharing one test name.
type TestSummary struct {
	Name        string             `json:"name"`
	Passed      int                `json:"passed"`
	Total       int                `json:"total"`
	PassRate    float64            `json:"pass_rate"`
	AvgDuration time.Duration      `json:"-"`
	MetricMeans map[string]float64 `json:"metrics"`
}

// TestSummaries computes per-test pass rates, average durations and
// per-metric means, ordered by test name.
func (s Snapshot) TestSummaries() []TestSummary {
	var summaries []TestSummary
	for _, name := range s.TestNames() {
		var (
			passed   int
			total    int
			duration time.Duration
			metrics  = make(map[string][]float64)
		)

		for _, result := range s.Results {
			if result.TestName != name {
				continue
			}
			total++
			duration += result.Duration
			if result.Success {
				passed++
			}
			for key, value := range result.Metrics {
				metrics[key] = append(metrics[key], value)
			}
		}

		summary := TestSummary{
			Name:        name,
			Passed:      passed,
			Total:       total,
			PassRate:    float64(passed) / float64(total),
			AvgDuration: duration / time.Duration(total),
			MetricMeans: make(map[string]float64, len(metrics)),
		}
		for key, values := range metrics {
			summary.MetricMeans[key] = mean(values)
		}

		summaries = append(summaries, summary)
	}

	return summaries
}

// PassCount returns how many of a device's results passed.
func (s Snapshot) PassCount(deviceID string) (passed, total int) {
	for _, result := range s.Results {
		if result.DeviceID != deviceID {
			continue
		}
		total++
		if result.Success {
			passed++
		}
	}

	return passed, total
}
