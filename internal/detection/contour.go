package detection

// mooreDirs lists the 8 neighbour offsets clockwise on screen, starting west.
var mooreDirs = [8]Point{
	{X: -1, Y: 0},  // W
	{X: -1, Y: -1}, // NW
	{X: 0, Y: -1},  // N
	{X: 1, Y: -1},  // NE
	{X: 1, Y: 0},   // E
	{X: 1, Y: 1},   // SE
	{X: 0, Y: 1},   // S
	{X: -1, Y: 1},  // SW
}

func dirIndex(d Point) int {
	for i, m := range mooreDirs {
		if m == d {
			return i
		}
	}
	return 0
}

// traceBoundary walks the outer boundary of a filled region clockwise with
// Moore-neighbour tracing and returns the boundary pixels in order, without
// repeating the start pixel.
//
// # Algorithm
//
// Tracing starts at the first region pixel in raster order, whose west
// neighbour is known to be background. From the current pixel the 8
// neighbours are scanned clockwise beginning just after the backtrack pixel;
// the first region pixel found becomes current and the neighbour checked
// just before it becomes the new backtrack. Tracing stops when the start pixel
// is about to be left towards the same second pixel as on the first step.
func traceBoundary(r *region) []Point {
	var start Point
	found := false
	for y := r.bounds.Y1; y < r.bounds.Y2 && !found; y++ {
		for x := r.bounds.X1; x < r.bounds.X2; x++ {
			if r.at(x, y) {
				start = Point{X: x, Y: y}
				found = true
				break
			}
		}
	}
	if !found {
		return nil
	}

	contour := []Point{start}
	cur := start
	back := Point{X: start.X - 1, Y: start.Y}
	limit := 4*r.area + 8

	for iter := 0; iter < limit; iter++ {
		k := dirIndex(Point{X: back.X - cur.X, Y: back.Y - cur.Y})
		var next, nextBack Point
		ok := false
		for i := 1; i <= 8; i++ {
			d := mooreDirs[(k+i)%8]
			n := Point{X: cur.X + d.X, Y: cur.Y + d.Y}
			if r.at(n.X, n.Y) {
				prev := mooreDirs[(k+i-1)%8]
				next = n
				nextBack = Point{X: cur.X + prev.X, Y: cur.Y + prev.Y}
				ok = true
				break
			}
		}
		if !ok {
			// Isolated pixel.
			return contour
		}
		if cur == start && len(contour) > 1 && next == contour[1] {
			return contour[:len(contour)-1]
		}
		cur, back = next, nextBack
		contour = append(contour, cur)
	}

	logger().Debug().Int("area", r.area).Msg("boundary trace hit iteration limit")
	return contour
}
