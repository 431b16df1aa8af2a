package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"devicelab/internal/aggregator"
	"devicelab/internal/config"
	"devicelab/internal/device"
	"devicelab/internal/errors"
	"devicelab/internal/logger"
	"devicelab/internal/report"
	"devicelab/internal/scheduler"
	"devicelab/internal/telemetry"
)

const reportFilePerm = 0o644

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

// run drives the pipeline: discover, schedule, aggregate, report,
// persist. Aggregate pass/fail is informational only; the exit status
// reflects solely whether the run could execute at all.
func run(ctx context.Context) error {
	errFactory := errors.New()

	registry := device.NewRegistry(
		device.NewAndroidAdapter(cfg.AppID),
		device.NewIOSAdapter(cfg.AppID),
	)
	registry.Discover(ctx)
	if registry.Count() == 0 {
		return errFactory.New(errors.ErrNoDevices)
	}
	logger.Info().Int("devices", registry.Count()).Msg("Discovery complete")

	specs, err := scheduler.LoadSuite(cfg.Suite)
	if err != nil {
		return err
	}
	logger.Info().Int("tests", len(specs)).Int("workers", cfg.MaxWorkers).Msg("Starting test run")

	agg := aggregator.New()
	sched := scheduler.New(registry, agg, cfg.MaxWorkers, time.Duration(cfg.SampleInterval)*time.Second)
	sched.Run(ctx, specs)

	snap := agg.Snapshot()
	runID := uuid.NewString()
	generated := time.Now()
	doc := report.Build(snap, runID, generated)

	if err := writeReports(doc, generated); err != nil {
		return err
	}

	if err := persistRun(ctx, doc, snap); err != nil {
		// Reports are already on disk; a persistence failure downgrades
		// to a logged error.
		logger.Error().Err(err).Msg("Telemetry persistence failed")
	}

	passed := 0
	for _, result := range snap.Results {
		if result.Success {
			passed++
		}
	}
	logger.Info().
		Int("passed", passed).
		Int("total", len(snap.Results)).
		Msg("Run complete")

	return nil
}

func writeReports(doc report.Document, generated time.Time) error {
	errFactory := errors.New()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return errFactory.Wrap(errors.ErrReportWriteFailed, err)
	}

	stamp := generated.Format("20060102_150405")

	raw, err := report.RenderJSON(doc)
	if err != nil {
		return errFactory.Wrap(errors.ErrReportWriteFailed, err)
	}
	jsonPath := filepath.Join(cfg.OutputDir, "report_"+stamp+".json")
	if err := os.WriteFile(jsonPath, raw, reportFilePerm); err != nil {
		return errFactory.Wrap(errors.ErrReportWriteFailed, err)
	}

	mdPath := filepath.Join(cfg.OutputDir, "report_"+stamp+".md")
	if err := os.WriteFile(mdPath, []byte(report.RenderMarkdown(doc)), reportFilePerm); err != nil {
		return errFactory.Wrap(errors.ErrReportWriteFailed, err)
	}

	logger.Info().Str("json", jsonPath).Str("markdown", mdPath).Msg("Reports written")

	return nil
}

func persistRun(ctx context.Context, doc report.Document, snap aggregator.Snapshot) error {
	collector, err := telemetry.NewService(telemetry.Config{
		Enabled: cfg.Telemetry,
		DBPath:  cfg.Database,
	})
	if err != nil {
		return err
	}
	defer collector.Close()

	return collector.Record(ctx, &telemetry.Run{
		ID:            doc.Metadata.RunID,
		Generated:     doc.Metadata.Generated,
		DevicesTested: doc.Metadata.DevicesTested,
		TotalTests:    doc.Metadata.TotalTests,
		Results:       snap.Results,
		Series:        snap.Series,
	})
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
