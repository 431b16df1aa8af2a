package telemetry

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"devicelab/internal/errors"
	"devicelab/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

type Repository interface {
	Store(ctx context.Context, run *Run) error
	Close() error
}

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Initializing telemetry repository at: %s", cfg.DBPath)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteRepository{
		db: db,
	}, nil
}

// Store persists one run atomically: the run row, its results, and every
// captured sample commit together or not at all.
func (r *sqliteRepository) Store(ctx context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errFactory := errors.New()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO runs (run_id, generated, devices_tested, total_tests)
        VALUES (?, ?, ?, ?)
    `, run.ID, run.Generated.Unix(), run.DevicesTested, run.TotalTests)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	for _, result := range run.Results {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO results (run_id, device_id, test_name, success, duration_ms, raw_output)
            VALUES (?, ?, ?, ?, ?, ?)
        `, run.ID, result.DeviceID, result.TestName, boolToInt(result.Success),
			result.Duration.Milliseconds(), result.RawOutput)
		if err != nil {
			return errFactory.Wrap(ErrStorageAccess, err)
		}
	}

	for deviceID, samples := range run.Series {
		for _, sample := range samples {
			var fps any
			if sample.FPS != nil {
				fps = *sample.FPS
			}
			_, err = tx.ExecContext(ctx, `
                INSERT INTO samples (
                    run_id, device_id, timestamp,
                    cpu, mem_used, mem_avail,
                    rx, tx, battery, battery_temp, fps, frame_drops
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            `, run.ID, deviceID, sample.Timestamp.Unix(),
				sample.CPUPercent, sample.MemoryUsedMB, sample.MemoryAvailableMB,
				sample.NetworkRxDelta, sample.NetworkTxDelta,
				sample.BatteryLevel, sample.BatteryTemperature, fps, sample.FrameDrops)
			if err != nil {
				return errFactory.Wrap(ErrStorageAccess, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}
