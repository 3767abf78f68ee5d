package finder

import (
	"errors"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
	"github.com/ironsheep/sign-finder-mcp/internal/detection"
	"github.com/ironsheep/sign-finder-mcp/internal/geometry"
)

// Quality weights for a candidate subset.
const (
	qualitySide    = 0.25
	qualityHeight  = 0.25
	qualityAspect  = 0.25
	qualityCorner  = 0.15
	qualityPattern = 0.10
)

// selection is the chosen 3-subset and its reconstruction.
type selection struct {
	ranks   [3]int
	rebuilt *geometry.Reconstruction
	err     error
	subsets []SubsetScore
}

func markersOf(dets []detection.Detection, ranks [3]int) []geometry.Marker {
	out := make([]geometry.Marker, 3)
	for i, r := range ranks {
		d := dets[r]
		out[i] = geometry.Marker{X: d.Centroid.X, Y: d.Centroid.Y, Confidence: d.Confidence}
	}
	return out
}

// sizeRatio is the largest marker size over the smallest, or 0 when a marker
// has no size.
func sizeRatio(dets []detection.Detection, ranks [3]int) float64 {
	lo, hi := math.Inf(1), 0.0
	for _, r := range ranks {
		size := float64(dets[r].Size)
		lo = math.Min(lo, size)
		hi = math.Max(hi, size)
	}
	if lo <= 0 {
		return 0
	}
	return hi / lo
}

// subsetQuality scores a reconstructed subset for diagnostics.
func subsetQuality(rect *geometry.Rectangle, confidences []float64, bounds image.Rectangle) float64 {
	side := 1 - rect.SideDeviations[0]
	height := 1 - rect.SideDeviations[1]
	aspect := math.Max(0, 1-math.Abs(rect.AspectRatio-1))

	corner := 0.0
	d := rect.Corner(geometry.RoleInferred)
	if d.X >= float64(bounds.Min.X) && d.Y >= float64(bounds.Min.Y) &&
		d.X < float64(bounds.Max.X) && d.Y < float64(bounds.Max.Y) {
		corner = 1
	}
	return qualitySide*side + qualityHeight*height + qualityAspect*aspect +
		qualityCorner*corner + qualityPattern*stat.Mean(confidences, nil)
}

// selectMarkers picks three of the ranked detections.
//
// # Algorithm
//
// The top cfg.SelectionPoolSize detections form the pool. Every 3-subset of
// the pool is reconstructed. A subset is eligible when its rectangle is
// valid and its markers are of similar size (max/min size at most
// 1+cfg.SizeRatioTolerance), so a small high-confidence blob cannot stand in
// for a real marker. Among eligible subsets the one with the highest total
// confidence wins; equal totals keep the earlier subset in lexicographic rank
// order. When no subset is eligible the three highest-ranked detections are
// used, whatever their geometry.
//
// A *geometry.ComputationInconsistencyError from any subset is returned
// immediately.
func selectMarkers(dets []detection.Detection, cfg config.Config, bounds image.Rectangle) (*selection, error) {
	pool := min(len(dets), cfg.SelectionPoolSize)
	if pool < geometry.RequiredMarkers {
		return nil, &geometry.InsufficientDetectionsError{Found: len(dets)}
	}

	type attempt struct {
		ranks   [3]int
		rebuilt *geometry.Reconstruction
		err     error
	}
	var attempts []attempt
	var subsets []SubsetScore
	best := -1
	bestTotal := math.Inf(-1)

	for i := 0; i < pool; i++ {
		for j := i + 1; j < pool; j++ {
			for k := j + 1; k < pool; k++ {
				ranks := [3]int{i, j, k}
				markers := markersOf(dets, ranks)
				rebuilt, err := geometry.Reconstruct(markers, cfg)

				var inconsistent *geometry.ComputationInconsistencyError
				if errors.As(err, &inconsistent) {
					return nil, err
				}

				score := SubsetScore{Ranks: ranks, SizeRatio: sizeRatio(dets, ranks)}
				score.SimilarSizes = score.SizeRatio > 0 && score.SizeRatio <= 1+cfg.SizeRatioTolerance
				confidences := make([]float64, 3)
				for n, m := range markers {
					confidences[n] = m.Confidence
					score.TotalConfidence += m.Confidence
				}
				if err != nil {
					score.Error = err.Error()
				} else {
					score.Valid = rebuilt.Rectangle.Valid
					score.Quality = subsetQuality(rebuilt.Rectangle, confidences, bounds)
					if score.Valid && score.SimilarSizes && score.TotalConfidence > bestTotal {
						best, bestTotal = len(attempts), score.TotalConfidence
					}
				}
				attempts = append(attempts, attempt{ranks: ranks, rebuilt: rebuilt, err: err})
				subsets = append(subsets, score)
			}
		}
	}

	// attempts[0] is always the top three.
	chosen := attempts[0]
	if best >= 0 {
		chosen = attempts[best]
	}

	logger().Debug().
		Int("pool", pool).
		Int("subsets", len(subsets)).
		Ints("ranks", chosen.ranks[:]).
		Bool("eligible_found", best >= 0).
		Msg("selected markers")

	return &selection{
		ranks:   chosen.ranks,
		rebuilt: chosen.rebuilt,
		err:     chosen.err,
		subsets: subsets,
	}, nil
}
