package detection

import (
	"image"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Width returns the horizontal extent in pixels.
func (b Bounds) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent in pixels.
func (b Bounds) Height() int { return b.Y2 - b.Y1 }

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// region is one 8-connected group of dark pixels with its holes filled.
type region struct {
	bounds Bounds

	// filled is a (w+2)x(h+2) mask covering bounds plus a one-pixel border.
	// Border cells are always false.
	filled []bool
	stride int

	area int
	sumX int
	sumY int
}

// at reports whether the filled region covers image pixel (x, y).
func (r *region) at(x, y int) bool {
	mx := x - r.bounds.X1 + 1
	my := y - r.bounds.Y1 + 1
	if mx < 0 || my < 0 || mx >= r.stride || my*r.stride >= len(r.filled) {
		return false
	}
	return r.filled[my*r.stride+mx]
}

// isDark reports whether a bitmap pixel belongs to the foreground.
func isDark(bitmap *image.Gray, x, y int) bool {
	return bitmap.Pix[y*bitmap.Stride+x] < 128
}

// labelRegions finds 8-connected dark regions whose bounding box sides lie
// within [minSide, maxSide], and fills their holes.
//
// Regions are returned in raster order of their first pixel.
func labelRegions(bitmap *image.Gray, minSide, maxSide int) []*region {
	width := bitmap.Rect.Dx()
	height := bitmap.Rect.Dy()
	visited := make([]bool, width*height)

	regions := make([]*region, 0)
	var pixels []Point

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || !isDark(bitmap, x, y) {
				continue
			}
			pixels = pixels[:0]
			floodFill(bitmap, visited, x, y, &pixels)

			b := boundsOf(pixels)
			w, h := b.Width(), b.Height()
			if w < minSide || h < minSide || w > maxSide || h > maxSide {
				continue
			}
			regions = append(regions, fillRegion(pixels, b))
		}
	}

	return regions
}

// floodFill performs iterative flood-fill of dark pixels from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large regions. Marks visited pixels and appends them to pixels.
// Uses 8-connectivity (includes diagonal neighbors).
func floodFill(bitmap *image.Gray, visited []bool, startX, startY int, pixels *[]Point) {
	width := bitmap.Rect.Dx()
	height := bitmap.Rect.Dy()
	stack := []Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		idx := p.Y*width + p.X
		if visited[idx] || !isDark(bitmap, p.X, p.Y) {
			continue
		}

		visited[idx] = true
		*pixels = append(*pixels, p)

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

func boundsOf(pixels []Point) Bounds {
	b := Bounds{X1: pixels[0].X, Y1: pixels[0].Y, X2: pixels[0].X + 1, Y2: pixels[0].Y + 1}
	for _, p := range pixels[1:] {
		if p.X < b.X1 {
			b.X1 = p.X
		}
		if p.X >= b.X2 {
			b.X2 = p.X + 1
		}
		if p.Y < b.Y1 {
			b.Y1 = p.Y
		}
		if p.Y >= b.Y2 {
			b.Y2 = p.Y + 1
		}
	}
	return b
}

// fillRegion rasterises pixels into a padded mask and fills every hole: any
// background cell the padding border cannot reach through 4-connected
// background becomes part of the region.
func fillRegion(pixels []Point, b Bounds) *region {
	stride := b.Width() + 2
	rows := b.Height() + 2
	mask := make([]bool, stride*rows)
	for _, p := range pixels {
		mask[(p.Y-b.Y1+1)*stride+(p.X-b.X1+1)] = true
	}

	outside := make([]bool, len(mask))
	stack := []int{0}
	outside[0] = true
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%stride, i/stride
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= stride || ny >= rows {
				continue
			}
			j := ny*stride + nx
			if outside[j] || mask[j] {
				continue
			}
			outside[j] = true
			stack = append(stack, j)
		}
	}

	r := &region{bounds: b, filled: mask, stride: stride}
	for i := range mask {
		if outside[i] {
			continue
		}
		mask[i] = true
		x := i%stride - 1 + b.X1
		y := i/stride - 1 + b.Y1
		r.area++
		r.sumX += x
		r.sumY += y
	}
	return r
}
