package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"devicelab/internal/errors"
)

const (
	defaultMaxWorkers     = 4
	defaultSampleInterval = 1
	defaultOutputDir      = "test-results"
	defaultAppID          = "com.example.meshtest"
	defaultTelemetryFile  = "telemetry.db"

	configName = "devicelab"
	envPrefix  = "DEVICELAB"
)

type Config struct {
	MaxWorkers     int    `mapstructure:"max_workers"`
	SampleInterval int    `mapstructure:"sample_interval"`
	OutputDir      string `mapstructure:"output_dir"`
	Suite          string `mapstructure:"suite"`
	AppID          string `mapstructure:"app_id"`
	Telemetry      bool   `mapstructure:"telemetry"`
	Database       string `mapstructure:"database"`
	Verbose        bool   `mapstructure:"verbose"`
	Debug          bool   `mapstructure:"debug"`
}

// Load reads configuration from flags, an optional TOML file and the
// environment. Flags take precedence over the file; the file path can be
// forced via DEVICELAB_CONFIG.
func Load() (*Config, error) {
	return LoadWithArgs(os.Args[1:])
}

func LoadWithArgs(args []string) (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	flags.Int("max-workers", defaultMaxWorkers, "Maximum parallel test executions")
	flags.Int("sample-interval", defaultSampleInterval, "Telemetry sampling interval in seconds")
	flags.String("output-dir", defaultOutputDir, "Directory for report artifacts")
	flags.String("suite", "", "Path to a test suite definition file")
	flags.String("app-id", defaultAppID, "Bundle/package identifier of the application under test")
	flags.Bool("telemetry", false, "Persist run telemetry to a local database")
	flags.String("database", "", "Path to the telemetry database")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.Bool("debug", false, "Enable debug logging")

	if err := flags.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("max_workers", defaultMaxWorkers)
	v.SetDefault("sample_interval", defaultSampleInterval)
	v.SetDefault("output_dir", defaultOutputDir)
	v.SetDefault("app_id", defaultAppID)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	// Only flags the caller actually set override file values
	flags.Visit(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		v.Set(key, f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrUnmarshalFailed, err)
	}

	if config.Telemetry && config.Database == "" {
		config.Database = filepath.Join(config.OutputDir, defaultTelemetryFile)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.MaxWorkers < 1 {
		return errFactory.WithData(errors.ErrInvalidWorkers, c.MaxWorkers)
	}
	if c.SampleInterval < 1 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.SampleInterval)
	}
	if c.OutputDir == "" {
		return errFactory.New(errors.ErrInvalidOutputDir)
	}
	if c.AppID == "" {
		return errFactory.New(errors.ErrInvalidAppID)
	}

	return nil
}
