package detection

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
)

func toR2(points []Point) []r2.Point {
	out := make([]r2.Point, len(points))
	for i, p := range points {
		out[i] = r2.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}

// polygonArea returns the absolute shoelace area of a closed polygon.
func polygonArea(poly []r2.Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	sum := 0.0
	for i, p := range poly {
		sum += p.Cross(poly[(i+1)%len(poly)])
	}
	return math.Abs(sum) / 2
}

// polygonPerimeter returns the length of a closed polygon.
func polygonPerimeter(poly []r2.Point) float64 {
	if len(poly) < 2 {
		return 0
	}
	sum := 0.0
	for i, p := range poly {
		sum += poly[(i+1)%len(poly)].Sub(p).Norm()
	}
	return sum
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(p, a, b r2.Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Sub(a).Norm()
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Add(ab.Mul(t))).Norm()
}

// simplifyOpen is Douglas-Peucker on an open polyline. The result keeps both
// endpoints.
func simplifyOpen(pts []r2.Point, epsilon float64) []r2.Point {
	if len(pts) < 3 {
		return append([]r2.Point(nil), pts...)
	}
	first, last := pts[0], pts[len(pts)-1]
	maxDist, index := -1.0, 0
	for i := 1; i < len(pts)-1; i++ {
		if d := segmentDistance(pts[i], first, last); d > maxDist {
			maxDist, index = d, i
		}
	}
	if maxDist <= epsilon {
		return []r2.Point{first, last}
	}
	left := simplifyOpen(pts[:index+1], epsilon)
	right := simplifyOpen(pts[index:], epsilon)
	return append(left[:len(left)-1], right...)
}

// simplifyClosed applies Douglas-Peucker to a closed polygon. The polygon is
// split at the vertex farthest from the first one and both halves are
// simplified independently. The returned polygon does not repeat its first
// vertex.
func simplifyClosed(poly []r2.Point, epsilon float64) []r2.Point {
	if len(poly) < 4 {
		return append([]r2.Point(nil), poly...)
	}
	far, farDist := 0, -1.0
	for i, p := range poly {
		if d := p.Sub(poly[0]).Norm(); d > farDist {
			far, farDist = i, d
		}
	}

	firstHalf := simplifyOpen(poly[:far+1], epsilon)
	secondPath := append(append([]r2.Point(nil), poly[far:]...), poly[0])
	secondHalf := simplifyOpen(secondPath, epsilon)

	out := append([]r2.Point(nil), firstHalf...)
	out = append(out, secondHalf[1:len(secondHalf)-1]...)
	return out
}

// convexHull returns the convex hull of points in counter-clockwise order
// (Andrew's monotone chain). Collinear points are dropped.
func convexHull(points []r2.Point) []r2.Point {
	pts := append([]r2.Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	if len(pts) < 3 {
		return pts
	}

	turn := func(o, a, b r2.Point) float64 {
		return a.Sub(o).Cross(b.Sub(o))
	}

	hull := make([]r2.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// countCorners counts polygon vertices whose interior angle is sharper than
// maxAngle degrees.
func countCorners(poly []r2.Point, maxAngle float64) int {
	n := len(poly)
	if n < 3 {
		return 0
	}
	corners := 0
	for i, v := range poly {
		a := poly[(i+n-1)%n].Sub(v)
		b := poly[(i+1)%n].Sub(v)
		na, nb := a.Norm(), b.Norm()
		if na == 0 || nb == 0 {
			continue
		}
		cos := math.Max(-1, math.Min(1, a.Dot(b)/(na*nb)))
		if math.Acos(cos)*180/math.Pi < maxAngle {
			corners++
		}
	}
	return corners
}
