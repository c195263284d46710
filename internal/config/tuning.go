package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/collision.report/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the TTC pipeline.
// Every field is optional; the Get* methods supply defaults for any field
// left out of the JSON, so partial configs are safe.
type TuningConfig struct {
	// Sequence timing
	FrameRate *float64 `json:"frame_rate,omitempty"` // frames per second

	// Region clustering
	ShrinkFactor *float64 `json:"shrink_factor,omitempty"`

	// Robust distance
	DistanceOrderIndex *int `json:"distance_order_index,omitempty"`
	DistanceMinPoints  *int `json:"distance_min_points,omitempty"`

	// Keypoint region filter
	MatchDisplacementMultiplier *float64 `json:"match_displacement_multiplier,omitempty"`
	MatchDisplacementSlackPx    *float64 `json:"match_displacement_slack_px,omitempty"`
	MaxMatchesPerRegion         *int     `json:"max_matches_per_region,omitempty"`

	// Region tracker
	AssociationStrategy *string `json:"association_strategy,omitempty"`

	// Execution
	Workers *int `json:"workers,omitempty"` // 0 means one per CPU

	// Presentation
	SpeedUnits *string `json:"speed_units,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the Get* defaults. It mirrors config/tuning.defaults.json.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		FrameRate:                   ptrFloat64(e.GetFrameRate()),
		ShrinkFactor:                ptrFloat64(e.GetShrinkFactor()),
		DistanceOrderIndex:          ptrInt(e.GetDistanceOrderIndex()),
		DistanceMinPoints:           ptrInt(e.GetDistanceMinPoints()),
		MatchDisplacementMultiplier: ptrFloat64(e.GetMatchDisplacementMultiplier()),
		MatchDisplacementSlackPx:    ptrFloat64(e.GetMatchDisplacementSlackPx()),
		MaxMatchesPerRegion:         ptrInt(e.GetMaxMatchesPerRegion()),
		AssociationStrategy:         ptrString(e.GetAssociationStrategy()),
		Workers:                     ptrInt(e.GetWorkers()),
		SpeedUnits:                  ptrString(e.GetSpeedUnits()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/fusion/pipeline/
		"../../../../" + DefaultConfigPath, // from internal/fusion/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FrameRate != nil && !(*c.FrameRate > 0) {
		return fmt.Errorf("frame_rate must be positive, got %f", *c.FrameRate)
	}

	if c.ShrinkFactor != nil {
		if *c.ShrinkFactor < 0 || *c.ShrinkFactor >= 1 {
			return fmt.Errorf("shrink_factor must be in [0, 1), got %f", *c.ShrinkFactor)
		}
	}

	if c.DistanceOrderIndex != nil && *c.DistanceOrderIndex < 0 {
		return fmt.Errorf("distance_order_index must be non-negative, got %d", *c.DistanceOrderIndex)
	}
	if c.GetDistanceMinPoints() < c.GetDistanceOrderIndex() {
		return fmt.Errorf("distance_min_points (%d) must be at least distance_order_index (%d)",
			c.GetDistanceMinPoints(), c.GetDistanceOrderIndex())
	}

	if c.MatchDisplacementMultiplier != nil && !(*c.MatchDisplacementMultiplier > 0) {
		return fmt.Errorf("match_displacement_multiplier must be positive, got %f", *c.MatchDisplacementMultiplier)
	}
	if c.MatchDisplacementSlackPx != nil && *c.MatchDisplacementSlackPx < 0 {
		return fmt.Errorf("match_displacement_slack_px must be non-negative, got %f", *c.MatchDisplacementSlackPx)
	}
	if c.MaxMatchesPerRegion != nil && *c.MaxMatchesPerRegion < 0 {
		return fmt.Errorf("max_matches_per_region must be non-negative, got %d", *c.MaxMatchesPerRegion)
	}

	if c.AssociationStrategy != nil {
		switch *c.AssociationStrategy {
		case "", "best-vote", "hungarian":
		default:
			return fmt.Errorf("association_strategy must be best-vote or hungarian, got %q", *c.AssociationStrategy)
		}
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	if c.SpeedUnits != nil && !units.IsValid(*c.SpeedUnits) {
		return fmt.Errorf("speed_units must be one of %s, got %q", units.GetValidUnitsString(), *c.SpeedUnits)
	}

	return nil
}

// GetFrameRate returns the frame_rate value or the default.
func (c *TuningConfig) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return 10.0
	}
	return *c.FrameRate
}

// GetShrinkFactor returns the shrink_factor value or the default.
func (c *TuningConfig) GetShrinkFactor() float64 {
	if c.ShrinkFactor == nil {
		return 0.10
	}
	return *c.ShrinkFactor
}

// GetDistanceOrderIndex returns the distance_order_index value or the default.
func (c *TuningConfig) GetDistanceOrderIndex() int {
	if c.DistanceOrderIndex == nil {
		return 4
	}
	return *c.DistanceOrderIndex
}

// GetDistanceMinPoints returns the distance_min_points value or the default.
func (c *TuningConfig) GetDistanceMinPoints() int {
	if c.DistanceMinPoints == nil {
		return 9
	}
	return *c.DistanceMinPoints
}

// GetMatchDisplacementMultiplier returns the match_displacement_multiplier value or the default.
func (c *TuningConfig) GetMatchDisplacementMultiplier() float64 {
	if c.MatchDisplacementMultiplier == nil {
		return 2.0
	}
	return *c.MatchDisplacementMultiplier
}

// GetMatchDisplacementSlackPx returns the match_displacement_slack_px value or the default.
func (c *TuningConfig) GetMatchDisplacementSlackPx() float64 {
	if c.MatchDisplacementSlackPx == nil {
		return 1.0
	}
	return *c.MatchDisplacementSlackPx
}

// GetMaxMatchesPerRegion returns the max_matches_per_region value or the default.
func (c *TuningConfig) GetMaxMatchesPerRegion() int {
	if c.MaxMatchesPerRegion == nil {
		return 0 // unlimited
	}
	return *c.MaxMatchesPerRegion
}

// GetAssociationStrategy returns the association_strategy value or the default.
func (c *TuningConfig) GetAssociationStrategy() string {
	if c.AssociationStrategy == nil || *c.AssociationStrategy == "" {
		return "best-vote"
	}
	return *c.AssociationStrategy
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetSpeedUnits returns the speed_units value or the default.
func (c *TuningConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil || *c.SpeedUnits == "" {
		return units.MPS
	}
	return *c.SpeedUnits
}
