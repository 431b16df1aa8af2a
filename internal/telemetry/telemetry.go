package telemetry

import (
	"context"

	"devicelab/internal/errors"
)

type service struct {
	repo Repository
	cfg  Config
}

// NewService builds the run collector. A disabled config yields a no-op
// collector so callers never branch on the telemetry setting.
func NewService(cfg Config) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		return noopCollector{}, nil
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, run *Run) error {
	errFactory := errors.New()

	if run == nil || run.ID == "" {
		return errFactory.New(ErrInvalidRun)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Store(ctx, run); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}
	return nil
}

type noopCollector struct{}

func (noopCollector) Record(context.Context, *Run) error { return nil }
func (noopCollector) Close() error                       { return nil }
