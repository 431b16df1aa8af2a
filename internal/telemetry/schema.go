package telemetry

import (
	"database/sql"

	"devicelab/internal/errors"
)

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS runs (
            run_id TEXT PRIMARY KEY,
            generated INTEGER,
            devices_tested INTEGER,
            total_tests INTEGER
        );
        CREATE TABLE IF NOT EXISTS results (
            run_id TEXT,
            device_id TEXT,
            test_name TEXT,
            success INTEGER,
            duration_ms INTEGER,
            raw_output TEXT,
            FOREIGN KEY(run_id) REFERENCES runs(run_id)
        );
        CREATE TABLE IF NOT EXISTS samples (
            run_id TEXT,
            device_id TEXT,
            timestamp INTEGER,
            cpu REAL,
            mem_used REAL,
            mem_avail REAL,
            rx INTEGER,
            tx INTEGER,
            battery REAL,
            battery_temp REAL,
            fps REAL,
            frame_drops INTEGER,
            FOREIGN KEY(run_id) REFERENCES runs(run_id)
        )
    `)
	if err != nil {
		return errors.New().Wrap(ErrStorageInit, err)
	}

	return nil
}
