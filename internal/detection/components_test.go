package detection

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
	"github.com/ironsheep/sign-finder-mcp/internal/imaging"
)

// createTestImage creates a white grayscale image
func createTestImage(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// fillRect paints [x0,x1)x[y0,y1) with v
func fillRect(img *image.Gray, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

// drawFinder draws a 1:1:3:1:1 finder pattern of module u with its top-left
// corner at (x0, y0). The pattern is 7u pixels wide.
func drawFinder(img *image.Gray, x0, y0, u int) {
	fillRect(img, x0, y0, x0+7*u, y0+7*u, 0)
	fillRect(img, x0+u, y0+u, x0+6*u, y0+6*u, 255)
	fillRect(img, x0+2*u, y0+2*u, x0+5*u, y0+5*u, 0)
}

// drawDisc draws a filled dark disc
func drawDisc(img *image.Gray, cx, cy, radius int) {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
}

func bitmapOf(img *image.Gray, method string) imaging.Bitmap {
	return imaging.Bitmap{Method: method, Image: img}
}

func TestFloodFill(t *testing.T) {
	img := createTestImage(20, 20)
	fillRect(img, 2, 2, 5, 5, 0)
	img.SetGray(5, 5, color.Gray{Y: 0}) // diagonal neighbour joins the block

	visited := make([]bool, 20*20)
	var pixels []Point
	floodFill(img, visited, 2, 2, &pixels)

	if len(pixels) != 10 {
		t.Errorf("flood fill found %d pixels, want 10", len(pixels))
	}
	if !visited[5*20+5] {
		t.Error("8-connected diagonal pixel not visited")
	}
}

func TestLabelRegions_SizeFilter(t *testing.T) {
	img := createTestImage(100, 100)
	fillRect(img, 5, 5, 8, 8, 0)     // 3x3, too small
	fillRect(img, 20, 20, 40, 40, 0) // 20x20
	fillRect(img, 50, 10, 95, 90, 0) // 45x80, too tall

	regions := labelRegions(img, 8, 60)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	want := Bounds{X1: 20, Y1: 20, X2: 40, Y2: 40}
	if regions[0].bounds != want {
		t.Errorf("bounds = %+v, want %+v", regions[0].bounds, want)
	}
}

func TestFillRegion_FillsHoles(t *testing.T) {
	img := createTestImage(60, 60)
	drawFinder(img, 10, 10, 4) // 28x28 pattern

	regions := labelRegions(img, 8, 60)
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want outer ring and centre", len(regions))
	}

	outer := regions[0]
	if outer.area != 28*28 {
		t.Errorf("filled area = %d, want %d", outer.area, 28*28)
	}
	if !outer.at(15, 15) {
		t.Error("light ring should be filled")
	}
	cx := float64(outer.sumX) / float64(outer.area)
	cy := float64(outer.sumY) / float64(outer.area)
	if cx != 23.5 || cy != 23.5 {
		t.Errorf("centroid = (%v,%v), want (23.5,23.5)", cx, cy)
	}
}

func TestTraceBoundary_Square(t *testing.T) {
	img := createTestImage(30, 30)
	fillRect(img, 5, 5, 15, 15, 0)

	regions := labelRegions(img, 1, 30)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	contour := traceBoundary(regions[0])

	if len(contour) != 36 {
		t.Errorf("contour length = %d, want 36", len(contour))
	}
	if contour[0] != (Point{X: 5, Y: 5}) {
		t.Errorf("contour starts at %+v, want top-left", contour[0])
	}
	// Clockwise on screen: the walk leaves the top-left corner eastwards.
	if contour[1] != (Point{X: 6, Y: 5}) {
		t.Errorf("second point %+v, want (6,5)", contour[1])
	}
	seen := make(map[Point]bool)
	for _, p := range contour {
		if seen[p] {
			t.Fatalf("point %+v repeated on a simple square boundary", p)
		}
		seen[p] = true
	}
}

func TestTraceBoundary_TinyRegions(t *testing.T) {
	tests := []struct {
		name   string
		pixels []Point
		want   int
	}{
		{"single pixel", []Point{{X: 3, Y: 3}}, 1},
		{"horizontal pair", []Point{{X: 3, Y: 3}, {X: 4, Y: 3}}, 2},
		{"diagonal pair", []Point{{X: 3, Y: 3}, {X: 4, Y: 4}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := fillRegion(tt.pixels, boundsOf(tt.pixels))
			if got := len(traceBoundary(r)); got != tt.want {
				t.Errorf("contour length = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPolygonHelpers(t *testing.T) {
	square := []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	if a := polygonArea(square); a != 100 {
		t.Errorf("area = %v, want 100", a)
	}
	if p := polygonPerimeter(square); p != 40 {
		t.Errorf("perimeter = %v, want 40", p)
	}
	if c := countCorners(square, 135); c != 4 {
		t.Errorf("corners = %d, want 4", c)
	}

	// An L shape has a hull larger than itself.
	l := []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 10}, {X: 0, Y: 10}}
	hull := convexHull(l)
	if len(hull) != 5 {
		t.Errorf("hull has %d vertices, want 5", len(hull))
	}
	if polygonArea(hull) <= polygonArea(l) {
		t.Error("hull area should exceed L area")
	}

	// Collinear points along a square's edges collapse to its corners.
	var dense []r2.Point
	for x := 0; x < 10; x++ {
		dense = append(dense, r2.Point{X: float64(x), Y: 0})
	}
	for y := 0; y < 10; y++ {
		dense = append(dense, r2.Point{X: 10, Y: float64(y)})
	}
	for x := 10; x > 0; x-- {
		dense = append(dense, r2.Point{X: float64(x), Y: 10})
	}
	for y := 10; y > 0; y-- {
		dense = append(dense, r2.Point{X: 0, Y: float64(y)})
	}
	if s := simplifyClosed(dense, 0.5); len(s) != 4 {
		t.Errorf("simplified square has %d vertices, want 4", len(s))
	}
}

func TestExtractCandidates_Measurements(t *testing.T) {
	img := createTestImage(120, 120)
	fillRect(img, 20, 20, 61, 61, 0) // 41x41 square

	cands := ExtractCandidates(bitmapOf(img, "otsu"), config.Default())
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	c := cands[0]

	if c.Method != "otsu" {
		t.Errorf("Method = %s", c.Method)
	}
	if c.Size != 41 || c.Area != 41*41 {
		t.Errorf("Size = %d, Area = %d", c.Size, c.Area)
	}
	if c.Centroid.X != 40 || c.Centroid.Y != 40 {
		t.Errorf("Centroid = %v, want (40,40)", c.Centroid)
	}
	if math.Abs(c.Circularity-math.Pi/4) > 0.01 {
		t.Errorf("Circularity = %.3f, want ~0.785", c.Circularity)
	}
	if c.Corners != 4 {
		t.Errorf("Corners = %d, want 4", c.Corners)
	}
	if c.AspectRatio != 1 || c.Extent != 1 || c.Solidity != 1 {
		t.Errorf("aspect %.3f extent %.3f solidity %.3f, want all 1", c.AspectRatio, c.Extent, c.Solidity)
	}
}

func TestExtractCandidates_MaxFraction(t *testing.T) {
	img := createTestImage(100, 100)
	fillRect(img, 10, 10, 70, 70, 0) // 60px side exceeds half of 100

	if cands := ExtractCandidates(bitmapOf(img, "otsu"), config.Default()); len(cands) != 0 {
		t.Errorf("got %d candidates, want 0", len(cands))
	}
}

func TestScreen_RejectsCircleAcceptsSquare(t *testing.T) {
	cfg := config.Default()

	img := createTestImage(200, 100)
	drawDisc(img, 50, 50, 22)
	fillRect(img, 120, 30, 161, 71, 0)

	cands := ExtractCandidates(bitmapOf(img, "otsu"), cfg)
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}

	circle, square := cands[0], cands[1]
	if circle.Centroid.X > square.Centroid.X {
		circle, square = square, circle
	}

	failed := Screen(circle, cfg)
	if len(failed) == 0 {
		t.Fatalf("circle passed the screen (circularity %.3f)", circle.Circularity)
	}
	if failed[0].Test != TestCircularity {
		t.Errorf("circle failed %v, want circularity first", failed)
	}

	if failed := Screen(square, cfg); len(failed) != 0 {
		t.Errorf("square failed the screen: %v", failed)
	}
}

func TestScreen_ReportsEveryFailure(t *testing.T) {
	cfg := config.Default()
	c := Candidate{
		Circularity: 0.95,
		Corners:     0,
		AspectRatio: 3,
		Extent:      0.3,
		Solidity:    0.5,
	}
	failed := Screen(c, cfg)
	if len(failed) != 5 {
		t.Fatalf("got %d failures, want 5: %v", len(failed), failed)
	}
	if Passes(c, cfg) {
		t.Error("Passes should be false")
	}
}

func TestDetectCandidates_KeepsBitmapOrder(t *testing.T) {
	a := createTestImage(80, 80)
	fillRect(a, 10, 10, 30, 30, 0)
	b := createTestImage(80, 80)
	fillRect(b, 40, 40, 60, 60, 0)
	fillRect(b, 10, 50, 25, 65, 0)

	cfg := config.Default()
	cfg.Workers = 2
	cands, err := DetectCandidates(context.Background(), []imaging.Bitmap{
		bitmapOf(a, "first"),
		bitmapOf(b, "second"),
	}, cfg)
	if err != nil {
		t.Fatalf("DetectCandidates failed: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("got %d candidates, want 3", len(cands))
	}
	if cands[0].Method != "first" || cands[1].Method != "second" || cands[2].Method != "second" {
		t.Errorf("unexpected order: %s %s %s", cands[0].Method, cands[1].Method, cands[2].Method)
	}
}

func TestDetectCandidates_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DetectCandidates(ctx, []imaging.Bitmap{bitmapOf(createTestImage(10, 10), "otsu")}, config.Default())
	if err == nil {
		t.Error("expected context error")
	}
}
