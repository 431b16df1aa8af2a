package telemetry

import "devicelab/internal/errors"

const (
	defaultDirPerm = 0o755
	defaultDBPath  = "test-results/telemetry.db"
)

type Config struct {
	Enabled bool
	DBPath  string
}

func DefaultConfig() Config {
	return Config{
		Enabled: false,
		DBPath:  defaultDBPath,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
