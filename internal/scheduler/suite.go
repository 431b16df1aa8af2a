package scheduler

import (
	"time"

	"github.com/spf13/viper"

	"devicelab/internal/errors"
)

var errFactory = errors.New()

// defaultSuite mirrors the scenarios bundled with the mesh test
// application. Timeouts are generous upper bounds, not expected
// durations.
var defaultSuite = []TestSpec{
	{Name: "BLEDiscoveryTest", Timeout: 30 * time.Second, Description: "Discover nearby mesh peers over BLE"},
	{Name: "ConnectionStabilityTest", Timeout: 60 * time.Second, Description: "Hold a peer connection under churn"},
	{Name: "MeshFormationTest", Timeout: 120 * time.Second, Description: "Form a multi-hop mesh topology"},
	{Name: "ConsensusTest", Timeout: 90 * time.Second, Description: "Reach consensus across mesh nodes"},
	{Name: "BatteryDrainTest", Timeout: 300 * time.Second, Description: "Sustained load for battery profiling"},
}

// DefaultSuite returns a copy of the built-in test suite.
func DefaultSuite() []TestSpec {
	specs := make([]TestSpec, len(defaultSuite))
	copy(specs, defaultSuite)
	return specs
}

type rawSpec struct {
	Name        string `mapstructure:"name"`
	Timeout     int    `mapstructure:"timeout"`
	Description string `mapstructure:"description"`
}

// LoadSuite reads test specs from a suite file. Timeouts are given in
// seconds under a top-level "tests" key; TOML, YAML, and JSON files are
// accepted. An empty path selects the built-in suite.
func LoadSuite(path string) ([]TestSpec, error) {
	if path == "" {
		return DefaultSuite(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errFactory.Wrap(errors.ErrSuiteLoadFailed, err)
	}

	var raw []rawSpec
	if err := v.UnmarshalKey("tests", &raw); err != nil {
		return nil, errFactory.Wrap(errors.ErrSuiteLoadFailed, err)
	}
	if len(raw) == 0 {
		return nil, errFactory.New(errors.ErrSuiteEmpty)
	}

	specs := make([]TestSpec, 0, len(raw))
	for _, r := range raw {
		if r.Name == "" {
			return nil, errFactory.WithMessage(errors.ErrSuiteLoadFailed, "test spec missing name")
		}
		if r.Timeout <= 0 {
			return nil, errFactory.WithMessage(errors.ErrSuiteLoadFailed, "test spec "+r.Name+" has no timeout")
		}
		specs = append(specs, TestSpec{
			Name:        r.Name,
			Timeout:     time.Duration(r.Timeout) * time.Second,
			Description: r.Description,
		})
	}

	return specs, nil
}
