package geometry

import (
	"fmt"

	"github.com/golang/geo/r2"
)

// RequiredMarkers is the number of markers a reconstruction needs.
const RequiredMarkers = 3

// InsufficientDetectionsError reports that role assignment did not get
// exactly three markers.
type InsufficientDetectionsError struct {
	Found int
}

func (e *InsufficientDetectionsError) Error() string {
	if e.Found > RequiredMarkers {
		return fmt.Sprintf("need exactly %d markers, got %d: select a subset first", RequiredMarkers, e.Found)
	}
	return fmt.Sprintf("insufficient detections: found %d of %d markers", e.Found, RequiredMarkers)
}

// DegenerateGeometryError reports three markers whose layout does not
// determine the roles: collinear points, or two candidate diagonals of
// indistinguishable length.
type DegenerateGeometryError struct {
	Reason string `json:"reason"`

	// Distances holds the pairwise distances |P0P1|, |P1P2|, |P0P2| of the
	// input points.
	Distances [3]float64 `json:"distances"`

	// AngleDegrees is the angle at the point opposite the longest pair, or
	// zero when it could not be measured.
	AngleDegrees float64 `json:"angle_degrees"`
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry: %s (distances %.2f, %.2f, %.2f; angle %.2f°)",
		e.Reason, e.Distances[0], e.Distances[1], e.Distances[2], e.AngleDegrees)
}

// ComputationInconsistencyError reports that the parallelogram and vector
// forms of the inferred corner disagree. It signals an arithmetic defect, not
// ambiguous input.
type ComputationInconsistencyError struct {
	Parallelogram r2.Point
	Vector        r2.Point
}

func (e *ComputationInconsistencyError) Error() string {
	return fmt.Sprintf("inferred corner mismatch: parallelogram (%g,%g) vs vector (%g,%g)",
		e.Parallelogram.X, e.Parallelogram.Y, e.Vector.X, e.Vector.Y)
}
