package finder

import (
	"time"

	"github.com/ironsheep/sign-finder-mcp/internal/detection"
	"github.com/ironsheep/sign-finder-mcp/internal/geometry"
	"github.com/ironsheep/sign-finder-mcp/internal/imaging"
)

// Status is the outcome of locating a sign in one image.
type Status string

const (
	// StatusLocated means three markers were selected and the rectangle
	// reconstructed. The rectangle may still be invalid.
	StatusLocated Status = "located"

	// StatusInsufficientDetections means fewer than three markers were
	// accepted.
	StatusInsufficientDetections Status = "insufficient_detections"

	// StatusDegenerateGeometry means the selected markers did not determine
	// the corner roles.
	StatusDegenerateGeometry Status = "degenerate_geometry"
)

// DetectionSummary is the reported form of one merged detection.
type DetectionSummary struct {
	Rank         int      `json:"rank"`
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
	Confidence   float64  `json:"confidence"`
	PatternScore float64  `json:"pattern_score"`
	Size         int      `json:"size"`
	Methods      []string `json:"methods"`
	Support      int      `json:"support"`
}

func summarize(rank int, d detection.Detection) DetectionSummary {
	return DetectionSummary{
		Rank:         rank,
		X:            d.Centroid.X,
		Y:            d.Centroid.Y,
		Confidence:   d.Confidence,
		PatternScore: d.PatternScore,
		Size:         d.Size,
		Methods:      d.Methods,
		Support:      d.Support,
	}
}

// SubsetScore records how one 3-subset of the ranked detections fared.
type SubsetScore struct {
	// Ranks are the detection ranks in the subset, ascending.
	Ranks [3]int `json:"ranks"`

	// Valid is the reconstructed rectangle's validity.
	Valid bool `json:"valid"`

	// SizeRatio is the largest marker size over the smallest (0 when a
	// marker is unsized). SimilarSizes reports whether it is within the
	// configured tolerance.
	SizeRatio    float64 `json:"size_ratio"`
	SimilarSizes bool    `json:"similar_sizes"`

	TotalConfidence float64 `json:"total_confidence"`

	// Quality is 0.25 side consistency + 0.25 height consistency +
	// 0.25 aspect score + 0.15 inferred corner inside the image +
	// 0.10 mean detection confidence.
	Quality float64 `json:"quality"`

	// Error is set when the subset could not be reconstructed.
	Error string `json:"error,omitempty"`
}

// Result is the full outcome of Locate for one image.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Ensemble diagnostics.
	Methods       []string                `json:"methods"`
	FailedMethods []imaging.MethodFailure `json:"failed_methods,omitempty"`
	FellBack      bool                    `json:"fell_back,omitempty"`

	// Candidate funnel: extracted, passing the shape screen, accepted by the
	// ratio scorer, and merged detections.
	CandidateCount int `json:"candidate_count"`
	ScreenedCount  int `json:"screened_count"`
	AcceptedCount  int `json:"accepted_count"`
	DetectionCount int `json:"detection_count"`

	// Detections holds the top-ranked detections, at most
	// cfg.TopKDetections.
	Detections []DetectionSummary `json:"detections"`

	// Selected holds the ranks of the three detections used, which may lie
	// beyond the reported top-k.
	Selected []int `json:"selected,omitempty"`

	// Subsets lists every 3-subset evaluated from the selection pool.
	Subsets []SubsetScore `json:"subsets,omitempty"`

	Roles       *geometry.RoleAssignment          `json:"roles,omitempty"`
	Rectangle   *geometry.Rectangle               `json:"rectangle,omitempty"`
	Orientation *geometry.OrientationResult       `json:"orientation,omitempty"`
	Degenerate  *geometry.DegenerateGeometryError `json:"degenerate,omitempty"`

	Elapsed time.Duration `json:"elapsed_ns"`
}
