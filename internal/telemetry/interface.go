package telemetry

import (
	"context"
	"time"

	"devicelab/internal/aggregator"
	"devicelab/internal/device"
)

// Collector defines the core domain interface
type Collector interface {
	Record(ctx context.Context, run *Run) error
	Close() error
}

// Run is one completed orchestrator run with everything it produced.
type Run struct {
	ID            string
	Generated     time.Time
	DevicesTested int
	TotalTests    int
	Results       []aggregator.TestResult
	Series        map[string][]device.Sample
}
