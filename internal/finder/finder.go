package finder

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
	"github.com/ironsheep/sign-finder-mcp/internal/detection"
	"github.com/ironsheep/sign-finder-mcp/internal/geometry"
	"github.com/ironsheep/sign-finder-mcp/internal/imaging"
)

func logger() *zerolog.Logger {
	l := log.With().Str("module", "finder").Logger()
	return &l
}

// Locate finds the three finder markers of a sign in img, rebuilds the sign
// rectangle and classifies its orientation.
//
// # Algorithm
//
//  1. Binarize img with the configured ensemble
//  2. For every bitmap concurrently: extract candidates, screen their shape
//     and score their finder ratios against the grayscale image
//  3. Keep accepted candidates and merge them into ranked detections
//  4. Select three detections (see selectMarkers) and reconstruct
//
// Missing markers and ambiguous geometry are reported through
// Result.Status, not as errors.
//
// # Errors
//
//   - imaging.ErrInvalidImage (wrapped) for a nil or empty image
//   - ctx.Err() when the caller's context ends
//   - *geometry.ComputationInconsistencyError on an arithmetic defect
func Locate(ctx context.Context, img image.Image, cfg config.Config) (*Result, error) {
	start := time.Now()

	ens, err := imaging.Binarize(ctx, img, cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Width:         ens.Gray.Rect.Dx(),
		Height:        ens.Gray.Rect.Dy(),
		FailedMethods: ens.Failed,
		FellBack:      ens.FellBack,
	}
	for _, bm := range ens.Bitmaps {
		res.Methods = append(res.Methods, bm.Method)
	}

	scored, extracted, err := scoreBitmaps(ctx, ens, cfg)
	if err != nil {
		return nil, err
	}
	res.CandidateCount = extracted
	res.ScreenedCount = len(scored)

	accepted := make([]detection.ScoredCandidate, 0, len(scored))
	for _, sc := range scored {
		if sc.Scores.Accepted {
			accepted = append(accepted, sc)
		}
	}
	res.AcceptedCount = len(accepted)

	dets := detection.Deduplicate(accepted, cfg)
	res.DetectionCount = len(dets)
	for i := 0; i < len(dets) && i < cfg.TopKDetections; i++ {
		res.Detections = append(res.Detections, summarize(i, dets[i]))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(dets) < geometry.RequiredMarkers {
		res.Status = StatusInsufficientDetections
		res.Message = (&geometry.InsufficientDetectionsError{Found: len(dets)}).Error()
		res.Elapsed = time.Since(start)
		logger().Info().Int("detections", len(dets)).Msg("not enough markers")
		return res, nil
	}

	sel, err := selectMarkers(dets, cfg, ens.Gray.Rect)
	if err != nil {
		return nil, err
	}
	res.Selected = sel.ranks[:]
	res.Subsets = sel.subsets

	if sel.err != nil {
		var degenerate *geometry.DegenerateGeometryError
		if !errors.As(sel.err, &degenerate) {
			return nil, sel.err
		}
		res.Status = StatusDegenerateGeometry
		res.Message = degenerate.Error()
		res.Degenerate = degenerate
		res.Elapsed = time.Since(start)
		logger().Info().Str("reason", degenerate.Reason).Msg("degenerate marker geometry")
		return res, nil
	}

	res.Status = StatusLocated
	res.Roles = sel.rebuilt.Roles
	res.Rectangle = sel.rebuilt.Rectangle
	orientation := sel.rebuilt.Orientation
	res.Orientation = &orientation
	res.Elapsed = time.Since(start)

	logger().Info().
		Int("detections", len(dets)).
		Bool("valid", res.Rectangle.Valid).
		Float64("rotation", orientation.RotationDegrees).
		Str("orientation", string(orientation.Status)).
		Dur("elapsed", res.Elapsed).
		Msg("sign located")
	return res, nil
}

// DetectCandidates binarizes img and returns the raw candidates of every
// bitmap, grouped by bitmap in ensemble order.
func DetectCandidates(ctx context.Context, img image.Image, cfg config.Config) ([]detection.Candidate, error) {
	ens, err := imaging.Binarize(ctx, img, cfg)
	if err != nil {
		return nil, err
	}
	return detection.DetectCandidates(ctx, ens.Bitmaps, cfg)
}

// scoreBitmaps extracts, screens and scores every bitmap concurrently. It
// returns the screened candidates in bitmap order and the number extracted
// before screening.
func scoreBitmaps(ctx context.Context, ens *imaging.EnsembleResult, cfg config.Config) ([]detection.ScoredCandidate, int, error) {
	perBitmap := make([][]detection.ScoredCandidate, len(ens.Bitmaps))
	counts := make([]int, len(ens.Bitmaps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.WorkerLimit())
	for i, bm := range ens.Bitmaps {
		i, bm := i, bm
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					logger().Warn().Str("method", bm.Method).Interface("panic", r).Msg("bitmap scoring failed")
					perBitmap[i], counts[i] = nil, 0
				}
			}()
			cands := detection.ExtractCandidates(bm, cfg)
			counts[i] = len(cands)
			perBitmap[i] = detection.ScoreAll(cands, ens.Gray, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var out []detection.ScoredCandidate
	extracted := 0
	for i := range perBitmap {
		out = append(out, perBitmap[i]...)
		extracted += counts[i]
	}
	return out, extracted, nil
}
