package detection

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
)

// IdealFractions are the 1:1:3:1:1 run widths of a finder cross-section as
// fractions of the whole pattern.
var IdealFractions = [5]float64{1.0 / 7, 1.0 / 7, 3.0 / 7, 1.0 / 7, 1.0 / 7}

// Fusion weights of the confidence score.
const (
	weightPattern    = 0.60
	weightSymmetry   = 0.25
	weightConcentric = 0.15
)

// profileMargin extends the sampled profile beyond the pattern so the
// outermost dark runs are bounded by background.
const profileMargin = 1.25

// RatioProfile is the cross-section of a candidate along one direction.
type RatioProfile struct {
	// AngleDegrees is the sampling direction, 0 = along +X, 90 = along +Y.
	AngleDegrees float64 `json:"angle_degrees"`

	// Found is false when the profile did not contain five runs centred on
	// a dark run at the centroid. All other fields except Symmetry are then
	// zero.
	Found bool `json:"found"`

	// Segments are the five run lengths in samples.
	Segments [5]int `json:"segments"`

	// Fractions are Segments divided by their sum.
	Fractions [5]float64 `json:"fractions"`

	// Deviation is the mean of |fraction - ideal| / ideal.
	Deviation float64 `json:"deviation"`

	// Score is 1 - Deviation clamped to [0,1].
	Score float64 `json:"score"`

	// Matches counts runs whose absolute fraction error is below half the
	// ratio tolerance. Valid is Matches == 5.
	Matches int  `json:"matches"`
	Valid   bool `json:"valid"`

	// CenterDominant is true when the centre run is more than 10% wider than
	// every side run.
	CenterDominant bool `json:"center_dominant"`

	// SideVariation is the standard deviation of the four side fractions.
	SideVariation float64 `json:"side_variation"`

	// Symmetry compares the two halves of the profile mirrored about the
	// centroid: 1 for a perfect mirror image.
	Symmetry float64 `json:"symmetry"`
}

// Scores is the ratio scorer's verdict on one candidate.
type Scores struct {
	PatternScore    float64        `json:"pattern_score"`
	SymmetryScore   float64        `json:"symmetry_score"`
	ConcentricScore float64        `json:"concentric_score"`
	Confidence      float64        `json:"confidence"`
	ValidDirections int            `json:"valid_directions"`
	Accepted        bool           `json:"accepted"`
	Profiles        []RatioProfile `json:"profiles,omitempty"`
}

// ScoredCandidate pairs a candidate with its scores.
type ScoredCandidate struct {
	Candidate
	Scores Scores `json:"scores"`
}

// Directions returns the sampling angles in degrees: the four canonical
// directions, or every 15° when perspective tolerance is enabled.
func Directions(cfg config.Config) []float64 {
	if cfg.PerspectiveTolerant {
		out := make([]float64, 0, 12)
		for a := 0; a < 180; a += 15 {
			out = append(out, float64(a))
		}
		return out
	}
	return []float64{0, 45, 90, 135}
}

// ScoreCandidate measures how closely the grayscale image around c matches a
// finder pattern.
//
// # Algorithm
//
//  1. For each direction, sample brightness through the centroid over the
//     pattern extent plus a 25% margin
//  2. Binarize the profile at its mean and run-length encode it
//  3. Take the dark run holding the centroid and two runs on each side, and
//     compare their fractions to 1:1:3:1:1
//  4. pattern_score is the best direction score; symmetry_score is the mean
//     half-profile similarity; concentric_score checks a dark centre, a
//     light ring at 2 modules and a dark ring at 3 modules (module = size/7)
//  5. confidence = 0.60*pattern + 0.25*symmetry + 0.15*concentric
//
// gray must have its bounds at (0,0).
func ScoreCandidate(c Candidate, gray *image.Gray, cfg config.Config) Scores {
	var s Scores
	if gray == nil || gray.Rect.Empty() || c.Size <= 0 {
		return s
	}

	dirs := Directions(cfg)
	symmetries := make([]float64, 0, len(dirs))
	for _, angle := range dirs {
		p := scoreDirection(gray, c.Centroid, c.Size, angle, cfg.RatioTolerance)
		s.Profiles = append(s.Profiles, p)
		symmetries = append(symmetries, p.Symmetry)
		if p.Score > s.PatternScore {
			s.PatternScore = p.Score
		}
		if p.Valid {
			s.ValidDirections++
		}
	}
	s.SymmetryScore = stat.Mean(symmetries, nil)
	s.ConcentricScore = concentricScore(gray, c.Centroid, float64(c.Size)/7)
	s.Confidence = clamp01(weightPattern*s.PatternScore +
		weightSymmetry*s.SymmetryScore +
		weightConcentric*s.ConcentricScore)
	s.Accepted = s.Confidence >= cfg.ConfidenceThreshold
	return s
}

// ScoreAll scores every candidate that passes Screen. Candidates failing the
// screen are dropped.
func ScoreAll(candidates []Candidate, gray *image.Gray, cfg config.Config) []ScoredCandidate {
	out := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !Passes(c, cfg) {
			continue
		}
		out = append(out, ScoredCandidate{Candidate: c, Scores: ScoreCandidate(c, gray, cfg)})
	}
	return out
}

func scoreDirection(gray *image.Gray, center r2.Point, size int, angle, tolerance float64) RatioProfile {
	p := RatioProfile{AngleDegrees: angle}

	rad := angle * math.Pi / 180
	dir := r2.Point{X: math.Cos(rad), Y: math.Sin(rad)}
	half := float64(size) / 2 / math.Max(math.Abs(dir.X), math.Abs(dir.Y)) * profileMargin

	nearest, smooth, ci := sampleProfile(gray, center, dir, half)
	p.Symmetry = profileSymmetry(smooth, ci)
	if len(nearest) == 0 {
		return p
	}

	runs := runLengths(nearest, stat.Mean(nearest, nil))
	k := -1
	for i, r := range runs {
		if ci >= r.start && ci < r.start+r.length {
			k = i
			break
		}
	}
	if k < 2 || k+2 >= len(runs) || !runs[k].dark {
		return p
	}

	total := 0
	for i := 0; i < 5; i++ {
		p.Segments[i] = runs[k-2+i].length
		total += p.Segments[i]
	}
	p.Found = true

	sum := 0.0
	for i := 0; i < 5; i++ {
		f := float64(p.Segments[i]) / float64(total)
		p.Fractions[i] = f
		diff := math.Abs(f - IdealFractions[i])
		sum += diff / IdealFractions[i]
		if diff < tolerance/2 {
			p.Matches++
		}
	}
	p.Deviation = sum / 5
	p.Score = clamp01(1 - p.Deviation)
	p.Valid = p.Matches == 5

	sides := []float64{p.Fractions[0], p.Fractions[1], p.Fractions[3], p.Fractions[4]}
	maxSide := 0.0
	for _, f := range sides {
		maxSide = math.Max(maxSide, f)
	}
	p.CenterDominant = p.Fractions[2] > maxSide*1.1
	p.SideVariation = stat.StdDev(sides, nil)
	return p
}

// sampleProfile samples gray along center + t*dir for integer t in
// [-half, half], stopping at the image border. It returns nearest-pixel
// samples for run lengths, bilinear samples for symmetry, and the index of
// t = 0.
func sampleProfile(gray *image.Gray, center, dir r2.Point, half float64) (nearest, smooth []float64, centerIdx int) {
	n := int(math.Ceil(half))
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	for t := -n; t <= n; t++ {
		pt := center.Add(dir.Mul(float64(t)))
		x, y := int(math.Round(pt.X)), int(math.Round(pt.Y))
		if x < 0 || y < 0 || x >= w || y >= h {
			if t < 0 {
				continue
			}
			break
		}
		if t < 0 {
			centerIdx++
		}
		nearest = append(nearest, float64(gray.Pix[y*gray.Stride+x]))
		smooth = append(smooth, bilinear(gray, pt.X, pt.Y))
	}
	return nearest, smooth, centerIdx
}

// bilinear interpolates gray at a sub-pixel position, clamping to the border.
func bilinear(gray *image.Gray, x, y float64) float64 {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	x = math.Max(0, math.Min(float64(w-1), x))
	y = math.Max(0, math.Min(float64(h-1), y))
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	fx, fy := x-float64(x0), y-float64(y0)

	at := func(px, py int) float64 { return float64(gray.Pix[py*gray.Stride+px]) }
	top := at(x0, y0)*(1-fx) + at(x1, y0)*fx
	bottom := at(x0, y1)*(1-fx) + at(x1, y1)*fx
	return top*(1-fy) + bottom*fy
}

type run struct {
	dark   bool
	start  int
	length int
}

// runLengths binarizes a profile at threshold (dark when below) and returns
// its runs.
func runLengths(profile []float64, threshold float64) []run {
	var runs []run
	for i, v := range profile {
		dark := v < threshold
		if len(runs) > 0 && runs[len(runs)-1].dark == dark {
			runs[len(runs)-1].length++
			continue
		}
		runs = append(runs, run{dark: dark, start: i, length: 1})
	}
	return runs
}

// profileSymmetry compares samples mirrored about centerIdx, normalised by
// the profile's contrast. Flat or one-sided profiles score 0.
func profileSymmetry(profile []float64, centerIdx int) float64 {
	k := min(centerIdx, len(profile)-1-centerIdx)
	if k < 1 {
		return 0
	}
	lo, hi := profile[0], profile[0]
	for _, v := range profile {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if hi-lo < 1 {
		return 0
	}
	diff := 0.0
	for i := 1; i <= k; i++ {
		diff += math.Abs(profile[centerIdx-i] - profile[centerIdx+i])
	}
	return clamp01(1 - diff/float64(k)/(hi-lo))
}

// concentricScore samples square rings around center, since finder markers
// are square: the centre (dark), Chebyshev radius 1 module (dark),
// 2 modules (light) and 3 modules (dark), every 5 degrees. Each ring is
// thresholded at the midpoint of the sampled extremes.
func concentricScore(gray *image.Gray, center r2.Point, module float64) float64 {
	if module <= 0 {
		return 0
	}
	ring := func(radius float64) []float64 {
		out := make([]float64, 0, 72)
		for a := 0; a < 360; a += 5 {
			rad := float64(a) * math.Pi / 180
			d := r2.Point{X: math.Cos(rad), Y: math.Sin(rad)}
			d = d.Mul(radius / math.Max(math.Abs(d.X), math.Abs(d.Y)))
			pt := center.Add(d)
			out = append(out, bilinear(gray, pt.X, pt.Y))
		}
		return out
	}

	disc := append(ring(module), bilinear(gray, center.X, center.Y))
	light := ring(2 * module)
	dark := ring(3 * module)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vs := range [][]float64{disc, light, dark} {
		for _, v := range vs {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if hi-lo < 1 {
		return 0
	}
	mid := (lo + hi) / 2

	fraction := func(vs []float64, wantDark bool) float64 {
		n := 0
		for _, v := range vs {
			if (v < mid) == wantDark {
				n++
			}
		}
		return float64(n) / float64(len(vs))
	}
	return 0.25*fraction(disc, true) + 0.5*fraction(light, false) + 0.25*fraction(dark, true)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
