package detection

import (
	"sort"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
)

// Detection is one physical finder marker, merged from every candidate that
// landed on it across the bitmap ensemble.
type Detection struct {
	// Centroid is the representative candidate's centroid.
	Centroid r2.Point `json:"-"`

	// Confidence and PatternScore are the representative's scores.
	Confidence   float64 `json:"confidence"`
	PatternScore float64 `json:"pattern_score"`

	// Size is the representative's longer bounding-box side.
	Size int `json:"size"`

	// Methods lists, sorted and unique, the binarizations that saw the marker.
	Methods []string `json:"methods"`

	// Support is the number of merged candidates.
	Support int `json:"support"`

	// Candidates holds the merged candidates, representative first.
	Candidates []ScoredCandidate `json:"-"`
}

// Representative returns the highest-ranked candidate of the detection.
func (d Detection) Representative() ScoredCandidate {
	return d.Candidates[0]
}

// sortScored orders candidates by confidence, then pattern score, then
// method name, then position, so the merge result does not depend on the
// order in which bitmaps finished.
func sortScored(scored []ScoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Scores.Confidence != b.Scores.Confidence {
			return a.Scores.Confidence > b.Scores.Confidence
		}
		if a.Scores.PatternScore != b.Scores.PatternScore {
			return a.Scores.PatternScore > b.Scores.PatternScore
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.Centroid.Y != b.Centroid.Y {
			return a.Centroid.Y < b.Centroid.Y
		}
		if a.Centroid.X != b.Centroid.X {
			return a.Centroid.X < b.Centroid.X
		}
		return a.Size > b.Size
	})
}

// Deduplicate merges candidates closer than cfg.ProximityMergeRadius into
// one Detection per physical marker and returns the detections ranked by
// confidence.
//
// # Algorithm
//
// Candidates are sorted deterministically (see sortScored). Each candidate
// joins the first existing detection whose representative centroid lies
// within the merge radius; otherwise it founds a new detection and becomes
// its representative. Because the input is sorted, every representative is
// the highest-confidence candidate of its group, and detections come out in
// descending confidence order.
//
// The input slice is not modified.
func Deduplicate(scored []ScoredCandidate, cfg config.Config) []Detection {
	sorted := append([]ScoredCandidate(nil), scored...)
	sortScored(sorted)

	radius := cfg.ProximityMergeRadius
	detections := make([]Detection, 0)
	for _, sc := range sorted {
		merged := false
		for i := range detections {
			if detections[i].Centroid.Sub(sc.Centroid).Norm() < radius {
				detections[i].Candidates = append(detections[i].Candidates, sc)
				merged = true
				break
			}
		}
		if merged {
			continue
		}
		detections = append(detections, Detection{
			Centroid:     sc.Centroid,
			Confidence:   sc.Scores.Confidence,
			PatternScore: sc.Scores.PatternScore,
			Size:         sc.Size,
			Candidates:   []ScoredCandidate{sc},
		})
	}

	for i := range detections {
		d := &detections[i]
		d.Support = len(d.Candidates)
		seen := make(map[string]bool)
		for _, c := range d.Candidates {
			if !seen[c.Method] {
				seen[c.Method] = true
				d.Methods = append(d.Methods, c.Method)
			}
		}
		sort.Strings(d.Methods)
	}

	logger().Debug().
		Int("candidates", len(scored)).
		Int("detections", len(detections)).
		Msg("deduplicated candidates")
	return detections
}
