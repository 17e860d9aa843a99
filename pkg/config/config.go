// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// ErrInvalidConfig is returned when a configuration fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

// ResponseMode selects how a separation vector is applied to a colliding pair
type ResponseMode string

const (
	// ResponseSource moves only the source body by the full separation
	ResponseSource ResponseMode = "source"
	// ResponseSplit shares the separation between both bodies by bounding area
	ResponseSplit ResponseMode = "split"
)

// Environment variables read by ApplyEnvironmentOverrides
const (
	EnvCellSize        = "COLLIDE_CELL_SIZE"
	EnvMaxStepDistance = "COLLIDE_MAX_STEP_DISTANCE"
	EnvTimeScaler      = "COLLIDE_TIME_SCALER"
	EnvWorldWidth      = "COLLIDE_WORLD_WIDTH"
	EnvWorldHeight     = "COLLIDE_WORLD_HEIGHT"
	EnvResponse        = "COLLIDE_RESPONSE"
)

// Duration is a time.Duration that reads and writes as a string ("30s") in JSON
type Duration time.Duration

// MarshalJSON encodes the duration as a Go duration string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %w", err)
	}
	*d = Duration(n)
	return nil
}

// WorldConfig contains configuration for a collision world
type WorldConfig struct {
	WorldWidth      float64         `json:"worldWidth"`
	WorldHeight     float64         `json:"worldHeight"`
	CellSize        float64         `json:"cellSize"`
	MaxStepDistance float64         `json:"maxStepDistance"`
	TimeScaler      float64         `json:"timeScaler"`
	Response        ResponseMode    `json:"response"`
	FilterBreaker   BreakerConfig   `json:"filterBreaker"`
	Proximity       ProximityConfig `json:"proximity"`
}

// BreakerConfig configures the circuit breaker guarding host pair filters
type BreakerConfig struct {
	MaxConsecutiveFailures int      `json:"maxConsecutiveFailures"`
	MaxRequests            int      `json:"maxRequests"`
	Timeout                Duration `json:"timeout"`
	Interval               Duration `json:"interval"`
}

// ProximityConfig sizes the scratch buffers used by proximity queries
type ProximityConfig struct {
	BucketCapacity int `json:"bucketCapacity"`
	ResultCapacity int `json:"resultCapacity"`
}

// DefaultConfig returns a default world configuration
func DefaultConfig() *WorldConfig {
	return &WorldConfig{
		WorldWidth:      1000,
		WorldHeight:     1000,
		CellSize:        25,
		MaxStepDistance: 5,
		TimeScaler:      200,
		Response:        ResponseSource,
		FilterBreaker: BreakerConfig{
			MaxConsecutiveFailures: 5,
			MaxRequests:            1,
			Timeout:                Duration(30 * time.Second),
			Interval:               Duration(60 * time.Second),
		},
		Proximity: ProximityConfig{
			BucketCapacity: 1000,
			ResultCapacity: 100,
		},
	}
}

// LoadConfig loads a configuration from a file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*WorldConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *WorldConfig, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration can build a world
func (c *WorldConfig) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"worldWidth", c.WorldWidth},
		{"worldHeight", c.WorldHeight},
		{"cellSize", c.CellSize},
		{"maxStepDistance", c.MaxStepDistance},
		{"timeScaler", c.TimeScaler},
	}
	for _, p := range positive {
		if !(p.value > 0) || math.IsInf(p.value, 0) {
			return fmt.Errorf("%s must be a positive finite number, got %v: %w", p.name, p.value, ErrInvalidConfig)
		}
	}

	switch c.Response {
	case ResponseSource, ResponseSplit:
	default:
		return fmt.Errorf("unknown response mode %q: %w", c.Response, ErrInvalidConfig)
	}

	if c.FilterBreaker.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("filterBreaker.maxConsecutiveFailures must be at least 1: %w", ErrInvalidConfig)
	}
	if c.FilterBreaker.MaxRequests < 0 || c.FilterBreaker.Timeout < 0 || c.FilterBreaker.Interval < 0 {
		return fmt.Errorf("filterBreaker values must not be negative: %w", ErrInvalidConfig)
	}
	if c.Proximity.BucketCapacity < 1 || c.Proximity.ResultCapacity < 1 {
		return fmt.Errorf("proximity capacities must be at least 1: %w", ErrInvalidConfig)
	}
	return nil
}

// ApplyEnvironmentOverrides replaces fields with values from COLLIDE_*
// environment variables that are set. Unparseable values are an error.
func (c *WorldConfig) ApplyEnvironmentOverrides() error {
	floats := []struct {
		env    string
		target *float64
	}{
		{EnvCellSize, &c.CellSize},
		{EnvMaxStepDistance, &c.MaxStepDistance},
		{EnvTimeScaler, &c.TimeScaler},
		{EnvWorldWidth, &c.WorldWidth},
		{EnvWorldHeight, &c.WorldHeight},
	}
	for _, f := range floats {
		value, ok := os.LookupEnv(f.env)
		if !ok || value == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", f.env, value, err)
		}
		*f.target = parsed
	}

	if value := os.Getenv(EnvResponse); value != "" {
		c.Response = ResponseMode(value)
	}
	return nil
}

// LoadConfigFromEnv starts from DefaultConfig, applies environment overrides
// and validates the result.
func LoadConfigFromEnv() (*WorldConfig, error) {
	config := DefaultConfig()
	if err := config.ApplyEnvironmentOverrides(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
