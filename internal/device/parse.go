package device

import (
	"strconv"
	"strings"
)

const kbPerMB = 1024

// parseADBDevices extracts device serials from `adb devices -l` output.
func parseADBDevices(out string) []string {
	var serials []string
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "device product:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 0 {
			serials = append(serials, fields[0])
		}
	}

	return serials
}

// parseBatteryDump reads level and temperature from `dumpsys battery`.
// Temperature is reported in tenths of a degree Celsius.
func parseBatteryDump(out string) (level int, temperature float64) {
	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "level":
			if n, err := strconv.Atoi(value); err == nil {
				level = n
			}
		case "temperature":
			if n, err := strconv.Atoi(value); err == nil {
				temperature = float64(n) / 10
			}
		}
	}

	return level, temperature
}

// parseTopCPU extracts the CPU percentage of the process matching appID
// from `top -b -n 1` output.
func parseTopCPU(out, appID string) float64 {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, appID) {
			continue
		}

		fields := strings.Fields(line)
		for _, field := range fields {
			if !strings.HasSuffix(field, "%") {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSuffix(field, "%"), 64); err == nil {
				return v
			}
		}

		// toybox top prints %CPU as a bare column
		if len(fields) > 8 {
			if v, err := strconv.ParseFloat(fields[8], 64); err == nil {
				return v
			}
		}
	}

	return 0
}

// parseMeminfoTotal extracts the TOTAL PSS in MB from `dumpsys meminfo <app>`.
func parseMeminfoTotal(out string) float64 {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "TOTAL") {
			continue
		}
		for _, field := range strings.Fields(line) {
			if kb, err := strconv.Atoi(field); err == nil {
				return float64(kb) / kbPerMB
			}
		}
	}

	return 0
}

// parseMemAvailable extracts MemAvailable in MB from /proc/meminfo.
func parseMemAvailable(out string) float64 {
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "MemAvailable") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			if kb, err := strconv.Atoi(fields[1]); err == nil {
				return float64(kb) / kbPerMB
			}
		}
	}

	return 0
}

// parseNetDev reads absolute RX/TX byte counters for one interface from
// /proc/net/dev.
func parseNetDev(out, iface string) (rx, tx int64, ok bool) {
	for _, line := range strings.Split(out, "\n") {
		name, rest, found := strings.Cut(line, ":")
		if !found || strings.TrimSpace(name) != iface {
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) < 9 {
			return 0, 0, false
		}

		rxBytes, errRx := strconv.ParseInt(fields[0], 10, 64)
		txBytes, errTx := strconv.ParseInt(fields[8], 10, 64)
		if errRx != nil || errTx != nil {
			return 0, 0, false
		}

		return rxBytes, txBytes, true
	}

	return 0, 0, false
}

// parseGfxInfo extracts frame statistics from `dumpsys gfxinfo <app>`.
// FPS is nil when the renderer reports nothing.
func parseGfxInfo(out string) (fps *float64, frameDrops int) {
	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "Janky frames":
			fields := strings.Fields(value)
			if len(fields) > 0 {
				if n, err := strconv.Atoi(fields[0]); err == nil {
					frameDrops = n
				}
			}
		case "Average FPS":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				fps = &v
			}
		}
	}

	return fps, frameDrops
}

// parseLogcatMetrics extracts `METRIC: key=value` lines the app logs
// during an instrumented test. Non-numeric values are skipped.
func parseLogcatMetrics(out string) map[string]float64 {
	metrics := make(map[string]float64)
	for _, line := range strings.Split(out, "\n") {
		_, rest, found := strings.Cut(line, "METRIC:")
		if !found {
			continue
		}

		key, value, found := strings.Cut(rest, "=")
		if !found {
			continue
		}

		if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			metrics[strings.TrimSpace(key)] = v
		}
	}

	return metrics
}

// parseXcodebuildMetrics extracts measured averages from XCTest
// performance output ("... measured [Time, seconds] average: 0.016, ...").
func parseXcodebuildMetrics(out string) map[string]float64 {
	metrics := make(map[string]float64)
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(strings.ToLower(line), "measured") {
			continue
		}

		_, rest, found := strings.Cut(line, "average:")
		if !found {
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}

		if v, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], ","), 64); err == nil {
			metrics["average"] = v
		}
	}

	return metrics
}

// parseIdeviceInfo converts `ideviceinfo` key: value output into a map.
func parseIdeviceInfo(out string) map[string]string {
	info := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		info[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return info
}
