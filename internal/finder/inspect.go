package finder

import (
	"context"
	"image"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
	"github.com/ironsheep/sign-finder-mcp/internal/detection"
	"github.com/ironsheep/sign-finder-mcp/internal/imaging"
)

// CandidateReport explains what happened to one extracted candidate.
type CandidateReport struct {
	detection.Candidate

	X float64 `json:"x"`
	Y float64 `json:"y"`

	// ScreenFailures lists the shape tests the candidate failed. Scores is
	// nil when any failed.
	ScreenFailures []detection.ScreenFailure `json:"screen_failures,omitempty"`
	Scores         *detection.Scores         `json:"scores,omitempty"`
}

// Inspect runs extraction on every bitmap and reports each candidate with
// its screen result and, when it passed, its ratio scores. It is the
// diagnostic view of the first stages of Locate.
func Inspect(ctx context.Context, img image.Image, cfg config.Config) ([]CandidateReport, error) {
	ens, err := imaging.Binarize(ctx, img, cfg)
	if err != nil {
		return nil, err
	}
	cands, err := detection.DetectCandidates(ctx, ens.Bitmaps, cfg)
	if err != nil {
		return nil, err
	}

	out := make([]CandidateReport, 0, len(cands))
	for _, c := range cands {
		r := CandidateReport{Candidate: c, X: c.Centroid.X, Y: c.Centroid.Y}
		r.ScreenFailures = detection.Screen(c, cfg)
		if len(r.ScreenFailures) == 0 {
			s := detection.ScoreCandidate(c, ens.Gray, cfg)
			r.Scores = &s
		}
		out = append(out, r)
	}
	return out, nil
}
