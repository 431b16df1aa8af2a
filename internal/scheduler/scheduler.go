package scheduler

import (
	"context"
	"sync"
	"time"

	"devicelab/internal/aggregator"
	"devicelab/internal/device"
	"devicelab/internal/logger"
	"devicelab/internal/sampler"
)

// TestSpec describes one test scenario. Specs are immutable and loaded
// once before scheduling.
type TestSpec struct {
	Name        string
	Timeout     time.Duration
	Description string
}

type job struct {
	spec TestSpec
	dev  device.Device
}

// Scheduler executes the cross product of test specs and devices under a
// global concurrency bound. Each running execution owns exactly one
// background sampler for the duration of its test.
type Scheduler struct {
	registry       *device.Registry
	agg            *aggregator.Aggregator
	maxWorkers     int
	sampleInterval time.Duration
}

func New(registry *device.Registry, agg *aggregator.Aggregator, maxWorkers int, sampleInterval time.Duration) *Scheduler {
	return &Scheduler{
		registry:       registry,
		agg:            agg,
		maxWorkers:     maxWorkers,
		sampleInterval: sampleInterval,
	}
}

// Run executes every (test, device) pair. At most maxWorkers executions
// run simultaneously; excess pairs queue until a worker frees. Results
// complete in no particular order.
func (s *Scheduler) Run(ctx context.Context, specs []TestSpec) {
	devices := s.registry.Devices()
	for _, dev := range devices {
		s.agg.RegisterDevice(dev)
	}

	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < s.maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				s.execute(ctx, j)
			}
		}()
	}

	for _, spec := range specs {
		for _, dev := range devices {
			jobs <- job{spec: spec, dev: dev}
		}
	}
	close(jobs)
	wg.Wait()
}

// execute runs one (test, device) pair exactly once: status pre-snapshot,
// sampler start, bounded test invocation, sampler stop, status
// post-snapshot, metrics merge. A timed-out or failed run still performs
// the full shutdown sequence; no execution silently vanishes.
func (s *Scheduler) execute(ctx context.Context, j job) {
	logger.Info().
		Str("device_id", j.dev.ID).
		Str("test", j.spec.Name).
		Msg("Running test")

	adapter, ok := s.registry.AdapterFor(j.dev.Platform)
	if !ok {
		s.agg.AddResult(failedResult(j, "no adapter for platform "+j.dev.Platform.String()))
		return
	}

	start := time.Now()

	pre, err := s.registry.RefreshStatus(ctx, j.dev.ID)
	if err != nil {
		// Stale pre-snapshot is preferred over losing the execution
		logger.Warn().Str("device_id", j.dev.ID).Err(err).Msg("Pre-test status refresh failed")
	}

	smp := sampler.New(adapter, j.dev.ID, s.sampleInterval)
	if err := smp.Start(ctx); err != nil {
		s.agg.AddResult(failedResult(j, err.Error()))
		return
	}

	out, runErr := adapter.RunTest(ctx, j.dev.ID, j.spec.Name, j.spec.Timeout)

	// The sampler is stopped before anything else, on every path, so a
	// timed-out execution never orphans its sampling loop.
	if err := smp.Stop(); err != nil {
		logger.Error().Str("device_id", j.dev.ID).Err(err).Msg("Sampler stop failed")
	}

	post, err := s.registry.RefreshStatus(ctx, j.dev.ID)
	if err != nil {
		logger.Warn().Str("device_id", j.dev.ID).Err(err).Msg("Post-test status refresh failed")
	}
	s.agg.UpdateDevice(post)

	result := aggregator.TestResult{
		DeviceID:  j.dev.ID,
		TestName:  j.spec.Name,
		Duration:  time.Since(start),
		Timestamp: start,
		Metrics:   make(map[string]float64),
	}

	switch {
	case device.IsTimeout(runErr):
		result.Success = false
		result.RawOutput = "Test timed out"
	case runErr != nil:
		result.Success = false
		result.RawOutput = runErr.Error()
	default:
		result.Success = out.Success
		result.RawOutput = out.RawOutput
		for name, value := range out.Metrics {
			result.Metrics[name] = value
		}
	}

	result.Metrics["battery_drain"] = float64(pre.BatteryLevel - post.BatteryLevel)
	result.Metrics["final_battery"] = float64(post.BatteryLevel)
	result.Metrics["temperature"] = post.Temperature

	s.agg.AddResult(result)
	s.agg.AddSamples(j.dev.ID, smp.Collect())

	logger.Info().
		Str("device_id", j.dev.ID).
		Str("test", j.spec.Name).
		Bool("success", result.Success).
		Dur("duration", result.Duration).
		Msg("Test finished")
}

// failedResult records an execution that never reached the test run.
// The battery keys are still present, from the last known snapshot, so
// every result carries them.
func failedResult(j job, message string) aggregator.TestResult {
	return aggregator.TestResult{
		DeviceID:  j.dev.ID,
		TestName:  j.spec.Name,
		Success:   false,
		Timestamp: time.Now(),
		RawOutput: message,
		Metrics: map[string]float64{
			"battery_drain": 0,
			"final_battery": float64(j.dev.BatteryLevel),
			"temperature":   j.dev.Temperature,
		},
	}
}
