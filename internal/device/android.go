package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"devicelab/internal/errors"
	"devicelab/internal/logger"
)

const (
	androidNetInterface = "wlan0"
	androidBLEFallback  = "5.0+"
)

type netCounters struct {
	rx, tx int64
}

type androidAdapter struct {
	appID  string
	logTag string
	exec   execRunner

	// Absolute counters from the previous sample, per device, so each
	// sample carries RX/TX deltas. The first sample reports 0/0.
	mu      sync.Mutex
	lastNet map[string]netCounters
}

// NewAndroidAdapter returns the adb-backed capability adapter.
func NewAndroidAdapter(appID string) Adapter {
	return &androidAdapter{
		appID:   appID,
		logTag:  logTagFor(appID),
		exec:    systemRunner{},
		lastNet: make(map[string]netCounters),
	}
}

// logTagFor derives the app's logcat tag from its package id: the last
// path segment, which is what the instrumentation harness logs under.
func logTagFor(appID string) string {
	if idx := strings.LastIndex(appID, "."); idx >= 0 {
		return appID[idx+1:]
	}
	return appID
}

func (*androidAdapter) Platform() Platform {
	return PlatformAndroid
}

func (a *androidAdapter) Discover(ctx context.Context) ([]Device, error) {
	errFactory := errors.New()

	out, err := a.exec.run(ctx, "adb", "devices", "-l")
	if err != nil {
		return nil, errFactory.Wrap(ErrDiscoveryFailed, err)
	}

	var devices []Device
	for _, serial := range parseADBDevices(out) {
		dev, err := a.describe(ctx, serial)
		if err != nil {
			logger.Warn().Str("device_id", serial).Err(err).Msg("Failed to read device properties")
			continue
		}
		devices = append(devices, dev)
	}

	return devices, nil
}

func (a *androidAdapter) describe(ctx context.Context, serial string) (Device, error) {
	model, err := a.shell(ctx, serial, "getprop", "ro.product.model")
	if err != nil {
		return Device{}, err
	}

	release, err := a.shell(ctx, serial, "getprop", "ro.build.version.release")
	if err != nil {
		return Device{}, err
	}

	dev := Device{
		ID:         serial,
		Platform:   PlatformAndroid,
		Model:      strings.TrimSpace(model),
		OSVersion:  "Android " + strings.TrimSpace(release),
		BLEVersion: androidBLEFallback,
	}

	if out, err := a.shell(ctx, serial, "dumpsys", "battery"); err == nil {
		dev.BatteryLevel, dev.Temperature = parseBatteryDump(out)
	}

	return dev, nil
}

func (a *androidAdapter) GetStatus(ctx context.Context, id string) (Status, error) {
	errFactory := errors.New()

	out, err := a.shell(ctx, id, "dumpsys", "battery")
	if err != nil {
		return Status{}, errFactory.Wrap(ErrStatusRefreshFailed, err)
	}

	level, temperature := parseBatteryDump(out)

	return Status{BatteryLevel: level, Temperature: temperature}, nil
}

func (a *androidAdapter) RunTest(ctx context.Context, id, testName string, timeout time.Duration) (RunOutput, error) {
	errFactory := errors.New()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Stale log lines would pollute the failure output
	if _, err := a.exec.run(ctx, "adb", "-s", id, "logcat", "-c"); err != nil {
		logger.Debug().Str("device_id", id).Err(err).Msg("Failed to clear logcat")
	}

	out, err := a.exec.run(runCtx, "adb", "-s", id, "shell", "am", "instrument",
		"-w", "-r", "-e", "debug", "false",
		"-e", "class", fmt.Sprintf("%s.test.%s", a.appID, testName),
		fmt.Sprintf("%s.test/androidx.test.runner.AndroidJUnitRunner", a.appID))
	if err != nil {
		if IsTimeout(err) {
			return RunOutput{}, err
		}
		return RunOutput{}, errFactory.Wrap(ErrRunFailed, err)
	}

	// The test reports its own performance figures through the app's
	// log tag; read them back now that the run is over.
	metrics := map[string]float64{}
	if logOut, logErr := a.exec.run(ctx, "adb", "-s", id,
		"logcat", "-d", a.logTag+":I", "*:S"); logErr == nil {
		metrics = parseLogcatMetrics(logOut)
	} else {
		logger.Debug().Str("device_id", id).Err(logErr).Msg("Failed to read metrics from logcat")
	}

	return RunOutput{
		Success:   !strings.Contains(out, "FAILURES!!!"),
		RawOutput: out,
		Metrics:   metrics,
	}, nil
}

func (a *androidAdapter) Sample(ctx context.Context, id string) (Sample, error) {
	errFactory := errors.New()

	topOut, err := a.shell(ctx, id, "top", "-b", "-n", "1")
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrSampleFailed, err)
	}

	memOut, err := a.shell(ctx, id, "dumpsys", "meminfo", a.appID)
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrSampleFailed, err)
	}

	availOut, err := a.shell(ctx, id, "cat", "/proc/meminfo")
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrSampleFailed, err)
	}

	netOut, err := a.shell(ctx, id, "cat", "/proc/net/dev")
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrSampleFailed, err)
	}

	batteryOut, err := a.shell(ctx, id, "dumpsys", "battery")
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrSampleFailed, err)
	}

	level, temperature := parseBatteryDump(batteryOut)

	sample := Sample{
		Timestamp:          time.Now(),
		DeviceID:           id,
		CPUPercent:         parseTopCPU(topOut, a.appID),
		MemoryUsedMB:       parseMeminfoTotal(memOut),
		MemoryAvailableMB:  parseMemAvailable(availOut),
		BatteryLevel:       float64(level),
		BatteryTemperature: temperature,
	}

	if rx, tx, ok := parseNetDev(netOut, androidNetInterface); ok {
		sample.NetworkRxDelta, sample.NetworkTxDelta = a.netDeltas(id, rx, tx)
	}

	// Frame stats are only present while the UI pipeline is active
	if gfxOut, err := a.shell(ctx, id, "dumpsys", "gfxinfo", a.appID); err == nil {
		sample.FPS, sample.FrameDrops = parseGfxInfo(gfxOut)
	}

	return sample, nil
}

// ResetSession drops the device's counter baseline so the next sampling
// session starts its deltas at 0/0 instead of spanning the gap between
// tests.
func (a *androidAdapter) ResetSession(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.lastNet, id)
}

func (a *androidAdapter) netDeltas(id string, rx, tx int64) (rxDelta, txDelta int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	last, seen := a.lastNet[id]
	a.lastNet[id] = netCounters{rx: rx, tx: tx}
	if !seen {
		return 0, 0
	}

	return rx - last.rx, tx - last.tx
}

func (a *androidAdapter) shell(ctx context.Context, id string, args ...string) (string, error) {
	cmdArgs := append([]string{"-s", id, "shell"}, args...)
	return a.exec.run(ctx, "adb", cmdArgs...)
}
