package detection

import (
	"context"
	"math"

	"github.com/golang/geo/r2"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
	"github.com/ironsheep/sign-finder-mcp/internal/imaging"
)

// Candidate is one dark region of one bitmap that might be a finder marker.
//
// Candidates are created once per connected region per binarization and are
// never modified afterwards.
type Candidate struct {
	// Method names the binarization the region came from.
	Method string `json:"method"`

	// Contour is the traced outer boundary, clockwise on screen.
	Contour []Point `json:"-"`

	// Bounds is the bounding box of the region.
	Bounds Bounds `json:"bounds"`

	// Centroid is the mean position of the filled region's pixels.
	Centroid r2.Point `json:"-"`

	// Area is the number of pixels in the filled region.
	Area int `json:"area"`

	// Size is the longer bounding-box side in pixels.
	Size int `json:"size"`

	// Circularity is 4*pi*area/perimeter^2 of the lightly simplified
	// boundary polygon: about 0.785 for a square, close to 1 for a disc.
	Circularity float64 `json:"circularity"`

	// Corners counts boundary vertices with an interior angle under 135°
	// after coarse simplification.
	Corners int `json:"corners"`

	// AspectRatio is bounding-box width / height.
	AspectRatio float64 `json:"aspect_ratio"`

	// Extent is Area divided by the bounding-box area.
	Extent float64 `json:"extent"`

	// Solidity is the boundary polygon area divided by its convex hull area.
	Solidity float64 `json:"solidity"`
}

// newCandidate measures a filled region.
func newCandidate(r *region, method string) Candidate {
	contour := traceBoundary(r)
	w, h := r.bounds.Width(), r.bounds.Height()

	c := Candidate{
		Method:  method,
		Contour: contour,
		Bounds:  r.bounds,
		Area:    r.area,
		Size:    max(w, h),
		Centroid: r2.Point{
			X: float64(r.sumX) / float64(r.area),
			Y: float64(r.sumY) / float64(r.area),
		},
		AspectRatio: float64(w) / float64(h),
		Extent:      float64(r.area) / float64(w*h),
	}

	poly := toR2(contour)
	fine := simplifyClosed(poly, 1.0)
	if perim := polygonPerimeter(fine); perim > 0 {
		c.Circularity = math.Min(1, 4*math.Pi*polygonArea(fine)/(perim*perim))
	}

	coarse := simplifyClosed(poly, 0.02*polygonPerimeter(poly))
	c.Corners = countCorners(coarse, 135)

	polyArea := polygonArea(poly)
	if hullArea := polygonArea(convexHull(poly)); hullArea > 0 {
		c.Solidity = math.Min(1, polyArea/hullArea)
	} else {
		// Degenerate line-like or single-pixel region.
		c.Solidity = 0
	}

	return c
}

// ExtractCandidates labels the dark regions of one bitmap and turns every
// region of plausible size into a Candidate.
//
// A region is kept when both bounding-box sides are at least
// cfg.MinPatternSize and neither exceeds cfg.MaxSideFor(shorter image side).
// Holes are filled before measuring, so a finder marker's light ring and dark
// centre count towards its area.
//
// The bitmap must have its bounds at (0,0), as produced by imaging.Binarize.
func ExtractCandidates(bitmap imaging.Bitmap, cfg config.Config) []Candidate {
	img := bitmap.Image
	if img == nil || img.Rect.Empty() {
		return nil
	}
	maxSide := cfg.MaxSideFor(min(img.Rect.Dx(), img.Rect.Dy()))

	regions := labelRegions(img, cfg.MinPatternSize, maxSide)
	out := make([]Candidate, 0, len(regions))
	for _, r := range regions {
		out = append(out, newCandidate(r, bitmap.Method))
	}

	logger().Debug().
		Str("method", bitmap.Method).
		Int("candidates", len(out)).
		Msg("extracted candidates")
	return out
}

// DetectCandidates extracts candidates from every bitmap concurrently and
// returns them grouped by bitmap in input order.
//
// Extraction of one bitmap never affects another. A panic while extracting a
// bitmap is logged and that bitmap contributes no candidates.
func DetectCandidates(ctx context.Context, bitmaps []imaging.Bitmap, cfg config.Config) ([]Candidate, error) {
	perBitmap := make([][]Candidate, len(bitmaps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.WorkerLimit())
	for i, bm := range bitmaps {
		i, bm := i, bm
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					logger().Warn().Str("method", bm.Method).Interface("panic", r).Msg("candidate extraction failed")
					perBitmap[i] = nil
				}
			}()
			perBitmap[i] = ExtractCandidates(bm, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, cs := range perBitmap {
		total += len(cs)
	}
	out := make([]Candidate, 0, total)
	for _, cs := range perBitmap {
		out = append(out, cs...)
	}
	return out, nil
}
