package geometry

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
)

// Corner is one labelled corner of the reconstructed sign.
type Corner struct {
	Role Role    `json:"role"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Point returns the corner as a vector.
func (c Corner) Point() r2.Point {
	return r2.Point{X: c.X, Y: c.Y}
}

// Rectangle is the sign quadrilateral rebuilt from three roled markers.
//
// Corners, Sides and Angles are indexed in corner order: Anchor,
// VerticalRef, HorizontalRef, Inferred. Sides[i] runs from corner i to
// corner i+1, and Angles[i] is the interior angle at corner i.
type Rectangle struct {
	Corners   [4]Corner  `json:"corners"`
	Sides     [4]float64 `json:"sides"`
	Diagonals [2]float64 `json:"diagonals"`
	Area      float64    `json:"area"`
	Angles    [4]float64 `json:"angles"`

	// AspectRatio is the mean long side over the mean short side, >= 1.
	AspectRatio float64 `json:"aspect_ratio"`

	Valid bool `json:"valid"`

	// MaxAngleDeviation is the largest |angle - 90°|.
	MaxAngleDeviation float64 `json:"max_angle_deviation"`

	// SideDeviations are the relative differences of AB vs CD and BC vs DA.
	SideDeviations [2]float64 `json:"side_deviations"`
}

// Corner returns the corner with the given role.
func (r *Rectangle) Corner(role Role) Corner {
	for _, c := range r.Corners {
		if c.Role == role {
			return c
		}
	}
	return Corner{}
}

// ShortSide and LongSide are the mean lengths of the two pairs of opposite
// sides.
func (r *Rectangle) ShortSide() float64 {
	return math.Min((r.Sides[0]+r.Sides[2])/2, (r.Sides[1]+r.Sides[3])/2)
}

func (r *Rectangle) LongSide() float64 {
	return math.Max((r.Sides[0]+r.Sides[2])/2, (r.Sides[1]+r.Sides[3])/2)
}

func parallelogramCorner(a, b, c r2.Point) r2.Point {
	return a.Add(c).Sub(b)
}

// vectorCorner is the independent vector form used to cross-check the
// inferred corner.
var vectorCorner = func(a, b, c r2.Point) r2.Point {
	return a.Add(c.Sub(b))
}

// ReconstructRectangle infers the fourth corner and measures the resulting
// quadrilateral.
//
// # Algorithm
//
//  1. Snap A (Anchor), B (VerticalRef) and C (HorizontalRef) to the 1/256
//     pixel grid
//  2. D = A + C - B, checked against D = A + (C - B); any difference is a
//     *ComputationInconsistencyError
//  3. Sides AB, BC, CD, DA; diagonals A-C and B-D; shoelace area over
//     A, B, C, D
//  4. Interior angles by the law of cosines over each corner's two edges and
//     the chord joining their far ends
//  5. Valid when every angle lies within cfg.AngleBandDegrees of 90° and
//     both pairs of opposite sides agree within
//     cfg.SideLengthToleranceFraction
//
// An invalid rectangle is still returned, with its deviations filled in.
func ReconstructRectangle(roles *RoleAssignment, cfg config.Config) (*Rectangle, error) {
	if roles == nil {
		return nil, &InsufficientDetectionsError{Found: 0}
	}
	a := snap(roles.Anchor.Point())
	b := snap(roles.VerticalRef.Point())
	c := snap(roles.HorizontalRef.Point())

	d := parallelogramCorner(a, b, c)
	if dv := vectorCorner(a, b, c); dv != d {
		return nil, &ComputationInconsistencyError{Parallelogram: d, Vector: dv}
	}

	pts := [4]r2.Point{a, b, c, d}
	roleOrder := [4]Role{RoleAnchor, RoleVerticalRef, RoleHorizontalRef, RoleInferred}

	r := &Rectangle{}
	for i, p := range pts {
		r.Corners[i] = Corner{Role: roleOrder[i], X: p.X, Y: p.Y}
		r.Sides[i] = pts[(i+1)%4].Sub(p).Norm()
	}
	r.Diagonals = [2]float64{c.Sub(a).Norm(), d.Sub(b).Norm()}

	shoelace := 0.0
	for i, p := range pts {
		shoelace += p.Cross(pts[(i+1)%4])
	}
	r.Area = math.Abs(shoelace) / 2

	for i := range pts {
		prev := r.Sides[(i+3)%4]
		next := r.Sides[i]
		chord := r.Diagonals[(i+1)%2]
		r.Angles[i] = lawOfCosines(prev, next, chord)
		r.MaxAngleDeviation = math.Max(r.MaxAngleDeviation, math.Abs(r.Angles[i]-90))
	}

	r.SideDeviations = [2]float64{
		relativeDifference(r.Sides[0], r.Sides[2]),
		relativeDifference(r.Sides[1], r.Sides[3]),
	}

	if short := r.ShortSide(); short > 0 {
		r.AspectRatio = r.LongSide() / short
	}

	r.Valid = r.MaxAngleDeviation <= cfg.AngleBandDegrees &&
		r.SideDeviations[0] <= cfg.SideLengthToleranceFraction &&
		r.SideDeviations[1] <= cfg.SideLengthToleranceFraction &&
		r.ShortSide() > 0

	logger().Debug().
		Float64("inferred_x", d.X).
		Float64("inferred_y", d.Y).
		Float64("area", r.Area).
		Bool("valid", r.Valid).
		Msg("reconstructed rectangle")
	return r, nil
}

// lawOfCosines returns the angle in degrees between sides of length a and b
// whose far ends are c apart.
func lawOfCosines(a, b, c float64) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	cos := (a*a + b*b - c*c) / (2 * a * b)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

func relativeDifference(x, y float64) float64 {
	m := math.Max(x, y)
	if m == 0 {
		return 0
	}
	return math.Abs(x-y) / m
}
