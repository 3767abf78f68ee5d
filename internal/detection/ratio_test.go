package detection

import (
	"image"
	"math"
	"testing"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
)

// finderCandidate draws one finder pattern and returns its outer candidate.
func finderCandidate(t *testing.T, u int) (Candidate, *image.Gray) {
	t.Helper()
	img := createTestImage(160, 160)
	drawFinder(img, 40, 40, u)

	for _, c := range ExtractCandidates(bitmapOf(img, "otsu"), config.Default()) {
		if c.Size == 7*u {
			return c, img
		}
	}
	t.Fatalf("no %dpx candidate extracted", 7*u)
	return Candidate{}, nil
}

func TestIdealFractionsSumToOne(t *testing.T) {
	sum := 0.0
	for _, f := range IdealFractions {
		sum += f
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("ideal fractions sum to %v", sum)
	}
}

func TestScoreCandidate_IdealPattern(t *testing.T) {
	cfg := config.Default()
	c, img := finderCandidate(t, 6)

	s := ScoreCandidate(c, img, cfg)

	if s.PatternScore < 0.95 {
		t.Errorf("PatternScore = %.3f, want >= 0.95", s.PatternScore)
	}
	if len(s.Profiles) != 4 {
		t.Fatalf("got %d profiles, want 4", len(s.Profiles))
	}
	for _, p := range s.Profiles {
		if p.AngleDegrees != 0 && p.AngleDegrees != 90 {
			continue
		}
		if !p.Found || !p.Valid {
			t.Errorf("axis profile at %v° not valid: %+v", p.AngleDegrees, p)
		}
		if p.Segments != [5]int{6, 6, 18, 6, 6} {
			t.Errorf("segments at %v° = %v, want [6 6 18 6 6]", p.AngleDegrees, p.Segments)
		}
		if !p.CenterDominant || p.SideVariation > 1e-9 {
			t.Errorf("axis profile at %v° should be centre dominant with equal sides", p.AngleDegrees)
		}
	}
	if s.ValidDirections < 2 {
		t.Errorf("ValidDirections = %d, want >= 2", s.ValidDirections)
	}
	if s.SymmetryScore < 0.95 {
		t.Errorf("SymmetryScore = %.3f, want >= 0.95", s.SymmetryScore)
	}
	if s.ConcentricScore < 0.95 {
		t.Errorf("ConcentricScore = %.3f, want >= 0.95", s.ConcentricScore)
	}
	if !s.Accepted || s.Confidence < 0.9 {
		t.Errorf("Confidence = %.3f accepted=%v, want accepted >= 0.9", s.Confidence, s.Accepted)
	}
}

func TestScoreCandidate_SolidSquareRejected(t *testing.T) {
	cfg := config.Default()
	img := createTestImage(160, 160)
	fillRect(img, 40, 40, 82, 82, 0)

	cands := ExtractCandidates(bitmapOf(img, "otsu"), cfg)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	s := ScoreCandidate(cands[0], img, cfg)
	if s.PatternScore != 0 {
		t.Errorf("PatternScore = %.3f, want 0 for a solid square", s.PatternScore)
	}
	if s.Accepted {
		t.Errorf("solid square accepted with confidence %.3f", s.Confidence)
	}
}

func TestScoreCandidate_PerspectiveTolerant(t *testing.T) {
	cfg := config.Default()
	cfg.PerspectiveTolerant = true
	c, img := finderCandidate(t, 5)

	s := ScoreCandidate(c, img, cfg)
	if len(s.Profiles) != 12 {
		t.Errorf("got %d profiles, want 12", len(s.Profiles))
	}
	if s.PatternScore < 0.95 {
		t.Errorf("PatternScore = %.3f, want >= 0.95", s.PatternScore)
	}
}

func TestScoreCandidate_EmptyInputs(t *testing.T) {
	cfg := config.Default()
	if s := ScoreCandidate(Candidate{Size: 10}, nil, cfg); s.Confidence != 0 || s.Accepted {
		t.Errorf("nil image scored %+v", s)
	}
	if s := ScoreCandidate(Candidate{}, createTestImage(10, 10), cfg); s.Confidence != 0 {
		t.Errorf("zero-size candidate scored %+v", s)
	}
}

func TestScoreAll_DropsScreenFailures(t *testing.T) {
	cfg := config.Default()
	img := createTestImage(200, 100)
	drawDisc(img, 50, 50, 22)
	drawFinder(img, 120, 20, 6)

	cands := ExtractCandidates(bitmapOf(img, "otsu"), cfg)
	scored := ScoreAll(cands, img, cfg)
	for _, sc := range scored {
		if sc.Circularity > cfg.CircularityThreshold {
			t.Errorf("disc-like candidate survived: circularity %.3f", sc.Circularity)
		}
	}
	accepted := 0
	for _, sc := range scored {
		if sc.Scores.Accepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("accepted %d candidates, want the finder's outer square only", accepted)
	}
}

func TestRunLengths(t *testing.T) {
	runs := runLengths([]float64{200, 200, 10, 10, 10, 200, 10}, 100)
	want := []run{
		{dark: false, start: 0, length: 2},
		{dark: true, start: 2, length: 3},
		{dark: false, start: 5, length: 1},
		{dark: true, start: 6, length: 1},
	}
	if len(runs) != len(want) {
		t.Fatalf("got %d runs, want %d", len(runs), len(want))
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Errorf("run %d = %+v, want %+v", i, runs[i], want[i])
		}
	}
}

func TestProfileSymmetry(t *testing.T) {
	tests := []struct {
		name    string
		profile []float64
		center  int
		want    float64
	}{
		{"mirror", []float64{255, 0, 255, 0, 255}, 2, 1},
		{"flat", []float64{9, 9, 9, 9, 9}, 2, 0},
		{"edge centre", []float64{0, 255, 0}, 0, 0},
		{"opposite", []float64{0, 0, 128, 255, 255}, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := profileSymmetry(tt.profile, tt.center); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("profileSymmetry = %v, want %v", got, tt.want)
			}
		})
	}
}
