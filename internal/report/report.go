package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"devicelab/internal/aggregator"
	"devicelab/internal/device"
)

// Metadata identifies one orchestrator run. Field names are a
// compatibility contract for downstream tooling.
type Metadata struct {
	RunID         string    `json:"run_id"`
	Generated     time.Time `json:"generated"`
	DevicesTested int       `json:"devices_tested"`
	TotalTests    int       `json:"total_tests"`
}

// Document is the rendered model of one run. Building it never mutates
// the snapshot; rendering is a pure function of the document.
type Document struct {
	Metadata    Metadata                             `json:"metadata"`
	Devices     []device.Device                      `json:"devices"`
	Results     []aggregator.TestResult              `json:"results"`
	Performance map[string]aggregator.DeviceAnalysis `json:"performance"`
	Summaries   []aggregator.TestSummary             `json:"summary"`
}

// Build assembles the report document from an aggregator snapshot.
func Build(snap aggregator.Snapshot, runID string, generatedAt time.Time) Document {
	return Document{
		Metadata: Metadata{
			RunID:         runID,
			Generated:     generatedAt,
			DevicesTested: len(snap.Devices),
			TotalTests:    len(snap.Results),
		},
		Devices:     snap.Devices,
		Results:     snap.Results,
		Performance: snap.DeviceAnalyses(),
		Summaries:   snap.TestSummaries(),
	}
}

// RenderJSON renders the structured report artifact.
func RenderJSON(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// RenderMarkdown renders the human-readable report artifact.
func RenderMarkdown(doc Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Device Test Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", doc.Metadata.Generated.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Run ID:** %s\n", doc.Metadata.RunID)
	fmt.Fprintf(&b, "**Devices Tested:** %d\n", doc.Metadata.DevicesTested)
	fmt.Fprintf(&b, "**Total Tests:** %d\n\n", doc.Metadata.TotalTests)

	writeDeviceSummary(&b, doc)
	writeTestSummaries(&b, doc)
	writeDeviceDetails(&b, doc)

	return b.String()
}

func writeDeviceSummary(b *strings.Builder, doc Document) {
	fmt.Fprintf(b, "## Device Summary\n\n")
	fmt.Fprintf(b, "| Device | Platform | OS Version | Battery | Status |\n")
	fmt.Fprintf(b, "|--------|----------|------------|---------|--------|\n")
	for _, dev := range doc.Devices {
		passed, total := passCount(doc.Results, dev.ID)
		fmt.Fprintf(b, "| %s (%s) | %s | %s | %d%% | %d/%d passed |\n",
			dev.Model, dev.ID, dev.Platform, dev.OSVersion, dev.BatteryLevel, passed, total)
	}
	fmt.Fprintf(b, "\n")
}

func writeTestSummaries(b *strings.Builder, doc Document) {
	fmt.Fprintf(b, "## Test Results\n\n")
	for _, summary := range doc.Summaries {
		fmt.Fprintf(b, "### %s\n\n", summary.Name)
		fmt.Fprintf(b, "- **Pass Rate:** %.1f%% (%d/%d)\n",
			summary.PassRate*100, summary.Passed, summary.Total)
		fmt.Fprintf(b, "- **Average Duration:** %.1fs\n", summary.AvgDuration.Seconds())

		metricNames := make([]string, 0, len(summary.MetricMeans))
		for name := range summary.MetricMeans {
			metricNames = append(metricNames, name)
		}
		sort.Strings(metricNames)
		for _, name := range metricNames {
			fmt.Fprintf(b, "- **%s:** %.2f (mean)\n", name, summary.MetricMeans[name])
		}
		fmt.Fprintf(b, "\n")
	}
}

func writeDeviceDetails(b *strings.Builder, doc Document) {
	fmt.Fprintf(b, "## Device Details\n\n")
	for _, dev := range doc.Devices {
		fmt.Fprintf(b, "### %s (%s)\n\n", dev.Model, dev.ID)

		writePerformance(b, doc.Performance[dev.ID])

		results := resultsFor(doc.Results, dev.ID)
		if len(results) == 0 {
			fmt.Fprintf(b, "No tests executed.\n\n")
			continue
		}

		for _, result := range results {
			marker := "✅"
			if !result.Success {
				marker = "❌"
			}
			fmt.Fprintf(b, "- %s **%s** (%.1fs)\n", marker, result.TestName, result.Duration.Seconds())
			if !result.Success {
				for _, line := range failureLines(result.RawOutput, 3) {
					fmt.Fprintf(b, "  > %s\n", line)
				}
			}
		}
		fmt.Fprintf(b, "\n")
	}
}

func writePerformance(b *strings.Builder, analysis aggregator.DeviceAnalysis) {
	if analysis.SampleCount == 0 {
		return
	}

	fmt.Fprintf(b, "Performance (%d samples):\n\n", analysis.SampleCount)
	fmt.Fprintf(b, "- CPU: avg %.1f%% (min %.1f, max %.1f)\n",
		analysis.CPU.Mean, analysis.CPU.Min, analysis.CPU.Max)
	fmt.Fprintf(b, "- Memory: avg %.1f MB (max %.1f)\n",
		analysis.Memory.Mean, analysis.Memory.Max)
	fmt.Fprintf(b, "- Network: %.1f KB received, %.1f KB sent\n",
		analysis.Network.RxTotalKB, analysis.Network.TxTotalKB)
	fmt.Fprintf(b, "- Battery: %.0f%% → %.0f%% (drain rate %.2f/sample)\n",
		analysis.Battery.StartLevel, analysis.Battery.EndLevel, analysis.Battery.DrainRate)
	if analysis.Graphics.AvgFPS != nil {
		fmt.Fprintf(b, "- Graphics: avg %.1f FPS, %d dropped frames\n",
			*analysis.Graphics.AvgFPS, analysis.Graphics.TotalFrameDrops)
	}
	fmt.Fprintf(b, "\n")
}

func passCount(results []aggregator.TestResult, deviceID string) (passed, total int) {
	for _, result := range results {
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

func resultsFor(results []aggregator.TestResult, deviceID string) []aggregator.TestResult {
	var out []aggregator.TestResult
	for _, result := range results {
		if result.DeviceID == deviceID {
			out = append(out, result)
		}
	}
	return out
}

// failureLines returns the first max non-empty lines of raw output.
func failureLines(raw string, max int) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == max {
			break
		}
	}
	return lines
}
