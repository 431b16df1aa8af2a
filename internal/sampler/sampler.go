package sampler

import (
	"context"
	"sync"
	"time"

	"devicelab/internal/device"
	"devicelab/internal/errors"
	"devicelab/internal/logger"
)

// queueCapacity bounds the in-flight sample queue. At the 1s cadence this
// covers runs far longer than any test timeout; when full, new samples are
// dropped rather than blocking the loop.
const queueCapacity = 1024

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

// Sampler runs one background telemetry loop for one device. Samples flow
// through a bounded single-producer/single-consumer queue: the loop is the
// only writer, Collect the only reader.
type Sampler struct {
	adapter  device.Adapter
	deviceID string
	interval time.Duration

	mu     sync.Mutex
	state  State
	stopCh chan struct{}
	doneCh chan struct{}

	queue chan device.Sample

	seriesMu sync.Mutex
	series   []device.Sample
}

func New(adapter device.Adapter, deviceID string, interval time.Duration) *Sampler {
	return &Sampler{
		adapter:  adapter,
		deviceID: deviceID,
		interval: interval,
		queue:    make(chan device.Sample, queueCapacity),
	}
}

// Start begins the sampling loop. The sampler must be idle.
func (s *Sampler) Start(ctx context.Context) error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return errFactory.WithData(ErrNotIdle, s.deviceID)
	}

	// Stateful adapters carry counter baselines between samples; a new
	// session must not inherit the previous test's baseline.
	if resetter, ok := s.adapter.(device.SessionResetter); ok {
		resetter.ResetSession(s.deviceID)
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.state = StateRunning

	go s.loop(ctx)

	return nil
}

// Stop signals cooperative shutdown and blocks until the loop has emitted
// its final sample and exited. After Stop returns, no sample is ever
// appended to the series again.
func (s *Sampler) Stop() error {
	errFactory := errors.New()

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return errFactory.WithData(ErrNotRunning, s.deviceID)
	}
	s.state = StateStopping
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()

	return nil
}

// Collect drains the queue into the series and returns a copy of the full
// series so far. Each sample appears exactly once in the series regardless
// of how often Collect is called.
func (s *Sampler) Collect() []device.Sample {
	s.seriesMu.Lock()
	defer s.seriesMu.Unlock()

	for {
		select {
		case sample := <-s.queue:
			s.series = append(s.series, sample)
		default:
			out := make([]device.Sample, len(s.series))
			copy(out, s.series)
			return out
		}
	}
}

// State returns the current lifecycle state.
func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Sampler) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			// Final sample before the join completes
			s.sampleOnce(ctx)
			return
		case <-ticker.C:
			s.sampleOnce(ctx)
		}
	}
}

func (s *Sampler) sampleOnce(ctx context.Context) {
	sample, err := s.adapter.Sample(ctx, s.deviceID)
	if err != nil {
		// Dropped, not retried; the loop keeps its cadence
		logger.Debug().Str("device_id", s.deviceID).Err(err).Msg("Sample attempt failed")
		return
	}

	select {
	case s.queue <- sample:
	default:
		logger.Warn().Str("device_id", s.deviceID).Msg("Sample queue full, dropping sample")
	}
}
