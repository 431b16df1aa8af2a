package device

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner maps a space-joined command line prefix to canned output.
type scriptedRunner struct {
	outputs map[string]string
	errs    map[string]error
}

func (s *scriptedRunner) run(_ context.Context, name string, args ...string) (string, error) {
	cmdline := strings.Join(append([]string{name}, args...), " ")
	for prefix, err := range s.errs {
		if strings.HasPrefix(cmdline, prefix) {
			return "", err
		}
	}
	for prefix, out := range s.outputs {
		if strings.HasPrefix(cmdline, prefix) {
			return out, nil
		}
	}
	return "", nil
}

func newTestAndroidAdapter(runner execRunner) *androidAdapter {
	return &androidAdapter{
		appID:   "com.example.meshtest",
		logTag:  logTagFor("com.example.meshtest"),
		exec:    runner,
		lastNet: make(map[string]netCounters),
	}
}

func TestAndroidDiscover(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]string{
		"adb devices -l": "List of devices attached\nserial-1 device product:p model:Pixel_7 device:d\n",
		"adb -s serial-1 shell getprop ro.product.model":         "Pixel 7\n",
		"adb -s serial-1 shell getprop ro.build.version.release": "14\n",
		"adb -s serial-1 shell dumpsys battery":                  "  level: 80\n  temperature: 250\n",
	}}

	adapter := newTestAndroidAdapter(runner)
	devices, err := adapter.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)

	assert.Equal(t, "serial-1", devices[0].ID)
	assert.Equal(t, PlatformAndroid, devices[0].Platform)
	assert.Equal(t, "Pixel 7", devices[0].Model)
	assert.Equal(t, "Android 14", devices[0].OSVersion)
	assert.Equal(t, 80, devices[0].BatteryLevel)
	assert.InDelta(t, 25.0, devices[0].Temperature, 0.001)
}

func TestAndroidRunTestDetectsFailure(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]string{
		"adb -s serial-1 shell am instrument": "com.example.meshtest.test.BLEDiscoveryTest:\nFAILURES!!!\nTests run: 1,  Failures: 1\n",
	}}

	adapter := newTestAndroidAdapter(runner)
	out, err := adapter.RunTest(context.Background(), "serial-1", "BLEDiscoveryTest", 30000000000)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.RawOutput, "FAILURES!!!")
}

func TestAndroidRunTestSuccess(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]string{
		"adb -s serial-1 shell am instrument": "com.example.meshtest.test.ConsensusTest:.\nOK (1 test)\n",
	}}

	adapter := newTestAndroidAdapter(runner)
	out, err := adapter.RunTest(context.Background(), "serial-1", "ConsensusTest", 30000000000)
	require.NoError(t, err)
	assert.True(t, out.Success)
}

func TestAndroidRunTestReadsMetricsFromLogcat(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]string{
		"adb -s serial-1 shell am instrument": "com.example.meshtest.test.BLEDiscoveryTest:.\nOK (1 test)\n",
		"adb -s serial-1 logcat -d meshtest:I": "08-29 10:00:01.000 I meshtest: METRIC: discovery_latency_ms=230\n" +
			"08-29 10:00:02.000 I meshtest: METRIC: peers_found=4\n" +
			"08-29 10:00:03.000 I meshtest: starting round two\n",
	}}

	adapter := newTestAndroidAdapter(runner)
	out, err := adapter.RunTest(context.Background(), "serial-1", "BLEDiscoveryTest", 30000000000)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.InDelta(t, 230.0, out.Metrics["discovery_latency_ms"], 0.001)
	assert.InDelta(t, 4.0, out.Metrics["peers_found"], 0.001)
	assert.Len(t, out.Metrics, 2)
}

func TestLogTagFor(t *testing.T) {
	assert.Equal(t, "meshtest", logTagFor("com.example.meshtest"))
	assert.Equal(t, "meshtest", logTagFor("meshtest"))
}

func TestAndroidSampleNetworkDeltas(t *testing.T) {
	outputs := map[string]string{
		"adb -s serial-1 shell top":                             " 1 u0_a1 20 0 1G 100M 50M S 12.5 2.0 0:01.00 com.example.meshtest\n",
		"adb -s serial-1 shell dumpsys meminfo":                 " TOTAL PSS: 102400\n",
		"adb -s serial-1 shell cat /proc/meminfo":               "MemAvailable: 1048576 kB\n",
		"adb -s serial-1 shell cat /proc/net/dev":               " wlan0: 1000 1 0 0 0 0 0 0 2000 2 0 0 0 0 0 0\n",
		"adb -s serial-1 shell dumpsys battery":                 "  level: 75\n  temperature: 300\n",
		"adb -s serial-1 shell dumpsys gfxinfo":                 "Janky frames: 3 (1.0%)\nAverage FPS: 59.1\n",
	}
	runner := &scriptedRunner{outputs: outputs}
	adapter := newTestAndroidAdapter(runner)

	first, err := adapter.Sample(context.Background(), "serial-1")
	require.NoError(t, err)
	assert.Zero(t, first.NetworkRxDelta, "First sample has no baseline")
	assert.Zero(t, first.NetworkTxDelta)
	assert.InDelta(t, 12.5, first.CPUPercent, 0.001)
	assert.InDelta(t, 100.0, first.MemoryUsedMB, 0.001)
	assert.InDelta(t, 1024.0, first.MemoryAvailableMB, 0.001)
	assert.InDelta(t, 75.0, first.BatteryLevel, 0.001)
	assert.InDelta(t, 30.0, first.BatteryTemperature, 0.001)
	require.NotNil(t, first.FPS)
	assert.InDelta(t, 59.1, *first.FPS, 0.001)
	assert.Equal(t, 3, first.FrameDrops)

	outputs["adb -s serial-1 shell cat /proc/net/dev"] = " wlan0: 1500 1 0 0 0 0 0 0 2300 2 0 0 0 0 0 0\n"

	second, err := adapter.Sample(context.Background(), "serial-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), second.NetworkRxDelta)
	assert.Equal(t, int64(300), second.NetworkTxDelta)

	// A new sampling session must not inherit the old baseline: after a
	// reset the first sample reports 0/0 again even though absolute
	// counters kept growing.
	adapter.ResetSession("serial-1")
	outputs["adb -s serial-1 shell cat /proc/net/dev"] = " wlan0: 9999 1 0 0 0 0 0 0 8888 2 0 0 0 0 0 0\n"

	third, err := adapter.Sample(context.Background(), "serial-1")
	require.NoError(t, err)
	assert.Zero(t, third.NetworkRxDelta)
	assert.Zero(t, third.NetworkTxDelta)
}
