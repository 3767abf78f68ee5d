// Package config holds the tunable parameters of the finder pipeline.
//
// Every threshold used by the preprocessing ensemble, the shape screener, the
// ratio scorer and the geometry stages lives here so that tuning never needs a
// code change. Default returns the reference values; Load overlays a TOML file
// on top of them.
//
// # File Format
//
// Keys use snake_case and mirror the struct tags below:
//
//	ratio_tolerance = 0.22
//	proximity_merge_radius = 40
//	adaptive_block_sizes = [31, 131]
//	methods = ["otsu", "adaptive", "median"]
//
// Keys that are absent keep their default. Unknown keys are reported by Load so
// typos do not silently fall back to defaults.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the complete set of recognised pipeline options.
type Config struct {
	// RatioTolerance bounds the deviation of a run fraction from its
	// 1:1:3:1:1 ideal. Each run must stay within half of it.
	RatioTolerance float64 `toml:"ratio_tolerance" json:"ratio_tolerance"`

	// MinPatternSize is the smallest accepted bounding-box side in pixels.
	MinPatternSize int `toml:"min_pattern_size" json:"min_pattern_size"`

	// MaxPatternSize is the largest accepted bounding-box side in pixels.
	MaxPatternSize int `toml:"max_pattern_size" json:"max_pattern_size"`

	// MaxPatternFraction caps the bounding-box side relative to the shorter
	// image side; the effective maximum is the smaller of the two limits.
	MaxPatternFraction float64 `toml:"max_pattern_fraction" json:"max_pattern_fraction"`

	// Shape screener thresholds.
	CircularityThreshold float64 `toml:"circularity_threshold" json:"circularity_threshold"`
	MinCorners           int     `toml:"min_corners" json:"min_corners"`
	MinAspect            float64 `toml:"min_aspect" json:"min_aspect"`
	MaxAspect            float64 `toml:"max_aspect" json:"max_aspect"`
	MinExtent            float64 `toml:"min_extent" json:"min_extent"`
	MinSolidity          float64 `toml:"min_solidity" json:"min_solidity"`

	// PerspectiveTolerant samples ratio profiles every 15° instead of the
	// four canonical directions.
	PerspectiveTolerant bool `toml:"perspective_tolerant" json:"perspective_tolerant"`

	// ConfidenceThreshold is the minimum fused confidence for a candidate to
	// be accepted.
	ConfidenceThreshold float64 `toml:"confidence_threshold" json:"confidence_threshold"`

	// ProximityMergeRadius merges candidates whose centroids are closer than
	// this many pixels into one detection.
	ProximityMergeRadius float64 `toml:"proximity_merge_radius" json:"proximity_merge_radius"`

	// TopKDetections bounds the ranked detections reported per image.
	TopKDetections int `toml:"top_k_detections" json:"top_k_detections"`

	// SelectionPoolSize is how many top-ranked detections take part in the
	// 3-subset search when more than three markers were found.
	SelectionPoolSize int `toml:"selection_pool_size" json:"selection_pool_size"`

	// SizeRatioTolerance bounds how much the three selected markers may
	// differ in size: a subset is eligible only while
	// max(size)/min(size) <= 1+SizeRatioTolerance.
	SizeRatioTolerance float64 `toml:"size_ratio_tolerance" json:"size_ratio_tolerance"`

	// Role assignment and rectangle validation.
	RightAngleToleranceDegrees  float64 `toml:"right_angle_tolerance_degrees" json:"right_angle_tolerance_degrees"`
	SideLengthToleranceFraction float64 `toml:"side_length_tolerance_fraction" json:"side_length_tolerance_fraction"`
	AngleBandDegrees            float64 `toml:"angle_band_degrees" json:"angle_band_degrees"`
	DistanceTieTolerance        float64 `toml:"distance_tie_tolerance" json:"distance_tie_tolerance"`
	CollinearityTolerance       float64 `toml:"collinearity_tolerance" json:"collinearity_tolerance"`

	// Preprocessing ensemble.
	Methods            []string `toml:"methods" json:"methods"`
	AdaptiveBlockSizes []int    `toml:"adaptive_block_sizes" json:"adaptive_block_sizes"`
	AdaptiveOffset     float64  `toml:"adaptive_offset" json:"adaptive_offset"`
	MedianRadius       float64  `toml:"median_radius" json:"median_radius"`
	BlurSigma          float64  `toml:"blur_sigma" json:"blur_sigma"`
	FixedLevel         int      `toml:"fixed_level" json:"fixed_level"`

	// Workers limits concurrent preprocessing and extraction goroutines.
	// Zero means GOMAXPROCS.
	Workers int `toml:"workers" json:"workers"`
}

// Method names understood by the preprocessing ensemble. "adaptive" expands to
// one bitmap per entry of AdaptiveBlockSizes.
const (
	MethodOtsu         = "otsu"
	MethodOtsuClean    = "otsu_clean"
	MethodOtsuOriginal = "otsu_original"
	MethodAdaptive     = "adaptive"
	MethodEqualized    = "equalized"
	MethodMedian       = "median"
	MethodLightness    = "lightness"
	MethodFixed        = "fixed"
)

// AllMethods lists every ensemble method in execution order.
var AllMethods = []string{
	MethodOtsu,
	MethodOtsuClean,
	MethodOtsuOriginal,
	MethodAdaptive,
	MethodEqualized,
	MethodMedian,
	MethodLightness,
	MethodFixed,
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		RatioTolerance:              0.22,
		MinPatternSize:              8,
		MaxPatternSize:              500,
		MaxPatternFraction:          0.5,
		CircularityThreshold:        0.85,
		MinCorners:                  2,
		MinAspect:                   0.6,
		MaxAspect:                   1.67,
		MinExtent:                   0.6,
		MinSolidity:                 0.8,
		ConfidenceThreshold:         0.5,
		ProximityMergeRadius:        35,
		TopKDetections:              3,
		SelectionPoolSize:           4,
		SizeRatioTolerance:          0.3,
		RightAngleToleranceDegrees:  30,
		SideLengthToleranceFraction: 0.15,
		AngleBandDegrees:            10,
		DistanceTieTolerance:        0.01,
		CollinearityTolerance:       0.01,
		Methods:                     append([]string(nil), AllMethods...),
		AdaptiveBlockSizes:          []int{31, 131},
		AdaptiveOffset:              10,
		MedianRadius:                1,
		BlurSigma:                   0.8,
		FixedLevel:                  128,
	}
}

// Load reads a TOML file and overlays it on Default. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every out-of-range option at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.RatioTolerance > 0 && c.RatioTolerance < 1, "ratio_tolerance must be in (0,1), got %g", c.RatioTolerance)
	check(c.MinPatternSize >= 3, "min_pattern_size must be >= 3, got %d", c.MinPatternSize)
	check(c.MaxPatternSize > c.MinPatternSize, "max_pattern_size (%d) must exceed min_pattern_size (%d)", c.MaxPatternSize, c.MinPatternSize)
	check(c.MaxPatternFraction > 0 && c.MaxPatternFraction <= 1, "max_pattern_fraction must be in (0,1], got %g", c.MaxPatternFraction)
	check(c.CircularityThreshold > 0 && c.CircularityThreshold <= 1, "circularity_threshold must be in (0,1], got %g", c.CircularityThreshold)
	check(c.MinCorners >= 0, "min_corners must be >= 0, got %d", c.MinCorners)
	check(c.MinAspect > 0 && c.MinAspect <= 1 && c.MaxAspect >= 1, "aspect band [%g, %g] must contain 1", c.MinAspect, c.MaxAspect)
	check(c.MinExtent >= 0 && c.MinExtent <= 1, "min_extent must be in [0,1], got %g", c.MinExtent)
	check(c.MinSolidity >= 0 && c.MinSolidity <= 1, "min_solidity must be in [0,1], got %g", c.MinSolidity)
	check(c.ConfidenceThreshold >= 0 && c.ConfidenceThreshold <= 1, "confidence_threshold must be in [0,1], got %g", c.ConfidenceThreshold)
	check(c.ProximityMergeRadius > 0, "proximity_merge_radius must be > 0, got %g", c.ProximityMergeRadius)
	check(c.TopKDetections >= 3, "top_k_detections must be >= 3, got %d", c.TopKDetections)
	check(c.SelectionPoolSize >= 3, "selection_pool_size must be >= 3, got %d", c.SelectionPoolSize)
	check(c.SizeRatioTolerance >= 0, "size_ratio_tolerance must be >= 0, got %g", c.SizeRatioTolerance)
	check(c.RightAngleToleranceDegrees > 0 && c.RightAngleToleranceDegrees < 90, "right_angle_tolerance_degrees must be in (0,90), got %g", c.RightAngleToleranceDegrees)
	check(c.SideLengthToleranceFraction > 0 && c.SideLengthToleranceFraction < 1, "side_length_tolerance_fraction must be in (0,1), got %g", c.SideLengthToleranceFraction)
	check(c.AngleBandDegrees > 0 && c.AngleBandDegrees < 90, "angle_band_degrees must be in (0,90), got %g", c.AngleBandDegrees)
	check(c.DistanceTieTolerance >= 0 && c.DistanceTieTolerance < 1, "distance_tie_tolerance must be in [0,1), got %g", c.DistanceTieTolerance)
	check(c.CollinearityTolerance >= 0 && c.CollinearityTolerance < 1, "collinearity_tolerance must be in [0,1), got %g", c.CollinearityTolerance)
	check(c.AdaptiveOffset >= 0 && c.AdaptiveOffset < 255, "adaptive_offset must be in [0,255), got %g", c.AdaptiveOffset)
	check(c.MedianRadius >= 0, "median_radius must be >= 0, got %g", c.MedianRadius)
	check(c.BlurSigma >= 0, "blur_sigma must be >= 0, got %g", c.BlurSigma)
	check(c.FixedLevel > 0 && c.FixedLevel < 256, "fixed_level must be in (0,256), got %d", c.FixedLevel)
	check(c.Workers >= 0, "workers must be >= 0, got %d", c.Workers)

	for _, size := range c.AdaptiveBlockSizes {
		check(size >= 3 && size%2 == 1, "adaptive block size must be odd and >= 3, got %d", size)
	}

	known := make(map[string]bool, len(AllMethods))
	for _, m := range AllMethods {
		known[m] = true
	}
	for _, m := range c.Methods {
		check(known[m], "unknown method %q (known: %s)", m, strings.Join(sortedCopy(AllMethods), ", "))
	}
	check(len(c.Methods) > 0, "methods must not be empty")

	return errors.Join(errs...)
}

// WorkerLimit resolves Workers to a positive goroutine limit.
func (c Config) WorkerLimit() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// MaxSideFor returns the effective maximum bounding-box side for an image
// whose shorter side is shortSide pixels.
func (c Config) MaxSideFor(shortSide int) int {
	limit := int(float64(shortSide) * c.MaxPatternFraction)
	if limit > c.MaxPatternSize || limit <= 0 {
		return c.MaxPatternSize
	}
	return limit
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
