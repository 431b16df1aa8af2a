package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"devicelab/internal/errors"
	"devicelab/internal/logger"
)

const (
	iosBLEVersion   = "5.0+"
	iosProjectPath  = "ios/App.xcodeproj"
	iosScheme       = "App"
	iosBatteryQuery = "com.apple.mobile.battery"
)

type iosAdapter struct {
	appID string
	exec  execRunner
}

// NewIOSAdapter returns the libimobiledevice/xcodebuild-backed adapter.
func NewIOSAdapter(appID string) Adapter {
	return &iosAdapter{
		appID: appID,
		exec:  systemRunner{},
	}
}

func (*iosAdapter) Platform() Platform {
	return PlatformIOS
}

func (a *iosAdapter) Discover(ctx context.Context) ([]Device, error) {
	errFactory := errors.New()

	out, err := a.exec.run(ctx, "idevice_id", "-l")
	if err != nil {
		return nil, errFactory.Wrap(ErrDiscoveryFailed, err)
	}

	var devices []Device
	for _, udid := range strings.Fields(out) {
		dev, err := a.describe(ctx, udid)
		if err != nil {
			logger.Warn().Str("device_id", udid).Err(err).Msg("Failed to read device properties")
			continue
		}
		devices = append(devices, dev)
	}

	return devices, nil
}

func (a *iosAdapter) describe(ctx context.Context, udid string) (Device, error) {
	out, err := a.exec.run(ctx, "ideviceinfo", "-u", udid)
	if err != nil {
		return Device{}, err
	}

	info := parseIdeviceInfo(out)

	dev := Device{
		ID:         udid,
		Platform:   PlatformIOS,
		Model:      info["DeviceName"],
		OSVersion:  "iOS " + info["ProductVersion"],
		BLEVersion: iosBLEVersion,
	}
	if dev.Model == "" {
		dev.Model = "iPhone"
	}

	if status, err := a.GetStatus(ctx, udid); err == nil {
		dev.BatteryLevel = status.BatteryLevel
		dev.Temperature = status.Temperature
	}

	return dev, nil
}

func (a *iosAdapter) GetStatus(ctx context.Context, id string) (Status, error) {
	errFactory := errors.New()

	out, err := a.exec.run(ctx, "ideviceinfo", "-u", id, "-q", iosBatteryQuery)
	if err != nil {
		return Status{}, errFactory.Wrap(ErrStatusRefreshFailed, err)
	}

	info := parseIdeviceInfo(out)
	level, err := strconv.Atoi(info["BatteryCurrentCapacity"])
	if err != nil {
		return Status{}, errFactory.Wrap(ErrParseFailed, err)
	}

	// The lockdown battery domain does not expose temperature
	return Status{BatteryLevel: level}, nil
}

func (a *iosAdapter) RunTest(ctx context.Context, id, testName string, timeout time.Duration) (RunOutput, error) {
	errFactory := errors.New()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := a.exec.run(runCtx, "xcodebuild", "test",
		"-project", iosProjectPath,
		"-scheme", iosScheme,
		"-destination", fmt.Sprintf("id=%s", id),
		"-only-testing", fmt.Sprintf("%sTests/%s", iosScheme, testName))
	if err != nil {
		if IsTimeout(err) {
			return RunOutput{}, err
		}
		return RunOutput{}, errFactory.Wrap(ErrRunFailed, err)
	}

	return RunOutput{
		Success:   strings.Contains(out, "TEST SUCCEEDED"),
		RawOutput: out,
		Metrics:   parseXcodebuildMetrics(out),
	}, nil
}

func (a *iosAdapter) Sample(ctx context.Context, id string) (Sample, error) {
	errFactory := errors.New()

	status, err := a.GetStatus(ctx, id)
	if err != nil {
		return Sample{}, errFactory.Wrap(ErrSampleFailed, err)
	}

	// Without an instruments trace session only the battery domain is
	// reachable over lockdown; the remaining fields stay zero and the
	// aggregator tolerates partial series.
	sample := Sample{
		Timestamp:    time.Now(),
		DeviceID:     id,
		BatteryLevel: float64(status.BatteryLevel),
	}

	logger.Debug().Str("device_id", id).Msg("Collected lockdown-only sample")

	return sample, nil
}
