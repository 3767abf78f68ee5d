package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
)

func logger() *zerolog.Logger {
	l := log.With().Str("module", "geometry").Logger()
	return &l
}

// Role is the canonical position of a sign corner.
type Role string

const (
	RoleAnchor        Role = "anchor"
	RoleVerticalRef   Role = "vertical_ref"
	RoleHorizontalRef Role = "horizontal_ref"
	RoleInferred      Role = "inferred"
)

// Marker is one located finder marker.
type Marker struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Point returns the marker centre as a vector.
func (m Marker) Point() r2.Point {
	return r2.Point{X: m.X, Y: m.Y}
}

// RoleAssignment maps exactly three markers onto the Anchor, VerticalRef and
// HorizontalRef roles.
type RoleAssignment struct {
	Anchor        Marker `json:"anchor"`
	VerticalRef   Marker `json:"vertical_ref"`
	HorizontalRef Marker `json:"horizontal_ref"`

	// Indices are the input positions of Anchor, VerticalRef and
	// HorizontalRef.
	Indices [3]int `json:"indices"`

	// Pairwise distances between the roled markers.
	AnchorToVertical     float64 `json:"anchor_to_vertical"`
	VerticalToHorizontal float64 `json:"vertical_to_horizontal"`
	Diagonal             float64 `json:"diagonal"`

	// RightAngleDegrees is the angle at VerticalRef and RightAngleDeviation
	// its distance from 90°.
	RightAngleDegrees   float64 `json:"right_angle_degrees"`
	RightAngleDeviation float64 `json:"right_angle_deviation"`

	// DiagonalIsLongest is true when the Anchor-HorizontalRef pair is
	// strictly longer than both sides.
	DiagonalIsLongest bool `json:"diagonal_is_longest"`

	// LowConfidence flags a corner angle outside the right-angle tolerance.
	LowConfidence bool `json:"low_confidence"`
}

// quantum is the coordinate grid used for reconstruction.
const quantum = 256.0

func snap(p r2.Point) r2.Point {
	return r2.Point{X: math.Round(p.X*quantum) / quantum, Y: math.Round(p.Y*quantum) / quantum}
}

// angleAt returns the angle in degrees at vertex v between the rays to p and q.
func angleAt(v, p, q r2.Point) float64 {
	a, b := p.Sub(v), q.Sub(v)
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	cos := math.Max(-1, math.Min(1, a.Dot(b)/(na*nb)))
	return math.Acos(cos) * 180 / math.Pi
}

// AssignRoles labels exactly three markers.
//
// # Algorithm
//
//  1. Snap the centres to the 1/256 pixel grid and measure the three
//     pairwise distances
//  2. Reject coincident or collinear points (triangle area divided by the
//     squared longest distance below cfg.CollinearityTolerance) and layouts
//     whose two longest distances differ by less than
//     cfg.DistanceTieTolerance relative to the longest
//  3. The longest pair is the diagonal {Anchor, HorizontalRef}; the third
//     marker is VerticalRef
//  4. Anchor is the diagonal marker with the larger Y. On an exact tie it is
//     the one for which Anchor, VerticalRef, HorizontalRef turns clockwise
//     on screen
//  5. The angle at VerticalRef is compared to 90°; beyond
//     cfg.RightAngleToleranceDegrees the assignment is flagged low
//     confidence but still returned
//
// Fewer or more than three markers yield *InsufficientDetectionsError.
func AssignRoles(markers []Marker, cfg config.Config) (*RoleAssignment, error) {
	if len(markers) != RequiredMarkers {
		return nil, &InsufficientDetectionsError{Found: len(markers)}
	}

	var pts [3]r2.Point
	for i, m := range markers {
		pts[i] = snap(m.Point())
	}

	// pairs[k] are the endpoints of distance k; the remaining index is the
	// vertex opposite it.
	pairs := [3][2]int{{0, 1}, {1, 2}, {0, 2}}
	var dist [3]float64
	for k, pr := range pairs {
		dist[k] = pts[pr[0]].Sub(pts[pr[1]]).Norm()
	}

	longest, second := 0, -1
	for k := 1; k < 3; k++ {
		if dist[k] > dist[longest] {
			longest = k
		}
	}
	for k := 0; k < 3; k++ {
		if k != longest && (second < 0 || dist[k] > dist[second]) {
			second = k
		}
	}
	p, q := pairs[longest][0], pairs[longest][1]
	v := 3 - p - q

	dmax := dist[longest]
	if dmax == 0 {
		return nil, &DegenerateGeometryError{Reason: "coincident markers", Distances: dist}
	}
	angle := angleAt(pts[v], pts[p], pts[q])

	area := math.Abs(pts[1].Sub(pts[0]).Cross(pts[2].Sub(pts[0]))) / 2
	if area/(dmax*dmax) < cfg.CollinearityTolerance {
		return nil, &DegenerateGeometryError{Reason: "collinear markers", Distances: dist, AngleDegrees: angle}
	}
	if (dmax-dist[second])/dmax < cfg.DistanceTieTolerance {
		return nil, &DegenerateGeometryError{Reason: "indistinguishable diagonal", Distances: dist, AngleDegrees: angle}
	}

	anchor, horizontal := p, q
	switch {
	case pts[q].Y > pts[p].Y:
		anchor, horizontal = q, p
	case pts[q].Y == pts[p].Y:
		b := pts[v]
		if b.Sub(pts[p]).Cross(pts[q].Sub(b)) < 0 {
			anchor, horizontal = q, p
		}
	}

	a, b, c := pts[anchor], pts[v], pts[horizontal]
	ra := &RoleAssignment{
		Anchor:               markers[anchor],
		VerticalRef:          markers[v],
		HorizontalRef:        markers[horizontal],
		Indices:              [3]int{anchor, v, horizontal},
		AnchorToVertical:     a.Sub(b).Norm(),
		VerticalToHorizontal: b.Sub(c).Norm(),
		Diagonal:             dmax,
		RightAngleDegrees:    angle,
		RightAngleDeviation:  math.Abs(angle - 90),
	}
	ra.DiagonalIsLongest = ra.Diagonal > ra.AnchorToVertical && ra.Diagonal > ra.VerticalToHorizontal
	ra.LowConfidence = ra.RightAngleDeviation > cfg.RightAngleToleranceDegrees

	if ra.LowConfidence {
		logger().Debug().
			Float64("angle", angle).
			Float64("tolerance", cfg.RightAngleToleranceDegrees).
			Msg("corner angle outside right-angle tolerance")
	}
	return ra, nil
}
