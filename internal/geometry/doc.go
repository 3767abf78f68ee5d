// Package geometry turns three located finder markers into a labelled sign
// quadrilateral and classifies its orientation.
//
// The three markers sit on three corners of the sign. The pair furthest apart
// spans the diagonal and holds the Anchor and HorizontalRef roles; the
// remaining marker is the VerticalRef corner between them. The fourth corner
// is never detected: it is inferred by parallelogram completion,
//
//	D = A + C - B
//
// because the diagonals of a parallelogram bisect each other.
//
// # Corner Order
//
// Corners are always reported as Anchor, VerticalRef, HorizontalRef,
// Inferred. Sides follow that order (AB, BC, CD, DA) and the diagonals are
// A-C and B-D.
//
// # Coordinate System
//
// Image coordinates: origin top-left, X rightward, Y downward. Angles on
// screen are therefore clockwise-positive. Coordinates are snapped to a
// 1/256 pixel grid before reconstruction so every intermediate sum is exact in
// float64.
//
// # Errors
//
// Wrong input cardinality yields *InsufficientDetectionsError, ambiguous
// geometry yields *DegenerateGeometryError, and a disagreement between the two
// fourth-corner formulas yields *ComputationInconsistencyError. A rectangle
// that fails the validity thresholds is not an error: it is returned with
// Valid=false and its deviations.
//
// # Limitations
//
// The Anchor is the lower of the two diagonal markers, so orientation is
// measured from geometry alone. Rotations are reported faithfully only while
// the true Anchor stays below the true HorizontalRef on screen: for a square
// sign that is from 135 degrees counter-clockwise to 45 degrees clockwise.
// Outside that range the two swap roles and the reported rotation is the true
// one less 90 degrees, so a sign turned 90 degrees reads as upright.
package geometry
