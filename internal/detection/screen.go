package detection

import (
	"fmt"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
)

// Screen test names reported by Screen.
const (
	TestCircularity = "circularity"
	TestCorners     = "corners"
	TestAspect      = "aspect"
	TestExtent      = "extent"
	TestSolidity    = "solidity"
)

// ScreenFailure names one failed shape test and the measured value.
type ScreenFailure struct {
	Test  string  `json:"test"`
	Value float64 `json:"value"`
	Limit float64 `json:"limit"`
}

func (f ScreenFailure) String() string {
	return fmt.Sprintf("%s=%.3f (limit %.3f)", f.Test, f.Value, f.Limit)
}

// Screen applies the cheap shape tests that rule out regions which cannot be
// finder markers. It returns every failed test; an empty result means the
// candidate passes.
//
// A candidate is rejected when ANY of these holds:
//   - circularity above cfg.CircularityThreshold (a disc, not a square)
//   - fewer than cfg.MinCorners corners
//   - aspect ratio outside [cfg.MinAspect, cfg.MaxAspect]
//   - extent below cfg.MinExtent
//   - solidity below cfg.MinSolidity
func Screen(c Candidate, cfg config.Config) []ScreenFailure {
	var failed []ScreenFailure
	if c.Circularity > cfg.CircularityThreshold {
		failed = append(failed, ScreenFailure{TestCircularity, c.Circularity, cfg.CircularityThreshold})
	}
	if c.Corners < cfg.MinCorners {
		failed = append(failed, ScreenFailure{TestCorners, float64(c.Corners), float64(cfg.MinCorners)})
	}
	if c.AspectRatio < cfg.MinAspect {
		failed = append(failed, ScreenFailure{TestAspect, c.AspectRatio, cfg.MinAspect})
	} else if c.AspectRatio > cfg.MaxAspect {
		failed = append(failed, ScreenFailure{TestAspect, c.AspectRatio, cfg.MaxAspect})
	}
	if c.Extent < cfg.MinExtent {
		failed = append(failed, ScreenFailure{TestExtent, c.Extent, cfg.MinExtent})
	}
	if c.Solidity < cfg.MinSolidity {
		failed = append(failed, ScreenFailure{TestSolidity, c.Solidity, cfg.MinSolidity})
	}
	return failed
}

// Passes reports whether c survives Screen.
func Passes(c Candidate, cfg config.Config) bool {
	return len(Screen(c, cfg)) == 0
}
