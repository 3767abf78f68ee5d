package geometry

import (
	"math"
)

// OrientationStatus labels the rotation of a sign.
type OrientationStatus string

const (
	StatusProper     OrientationStatus = "Proper Orientation"
	StatusSlight     OrientationStatus = "Slight Rotation"
	StatusRotated90  OrientationStatus = "90° Rotation"
	StatusRotated180 OrientationStatus = "180° Rotation"
	StatusRotated270 OrientationStatus = "270° Rotation"
	StatusCustom     OrientationStatus = "Custom Rotation"
)

// OrientationResult describes how far a sign is turned from upright.
type OrientationResult struct {
	// RotationDegrees is the angle of the Anchor to VerticalRef edge from
	// the image vertical, clockwise-positive, in (-180, 180].
	RotationDegrees float64           `json:"rotation_degrees"`
	Status          OrientationStatus `json:"status"`
	Confidence      float64           `json:"confidence"`
}

// AnalyzeOrientation classifies the rotation of rect.
//
// An upright sign has VerticalRef directly above Anchor, giving 0°. The
// status bands are
//
//	|r| <= 5          Proper Orientation
//	|r| <= 15         Slight Rotation
//	75 <= r <= 105    90° Rotation
//	|r| >= 165        180° Rotation
//	-105 <= r <= -75  270° Rotation
//	otherwise         Custom Rotation
//
// Confidence is the short side over the long side, halved when the
// rectangle is not valid.
func AnalyzeOrientation(rect *Rectangle) OrientationResult {
	if rect == nil {
		return OrientationResult{Status: StatusCustom}
	}
	a := rect.Corner(RoleAnchor).Point()
	b := rect.Corner(RoleVerticalRef).Point()
	edge := b.Sub(a)

	// Up on screen is -Y, so atan2(dx, -dy) is 0 for an upright edge and
	// grows clockwise.
	r := math.Atan2(edge.X, -edge.Y) * 180 / math.Pi
	if r <= -180 {
		r += 360
	}

	res := OrientationResult{RotationDegrees: r, Status: classifyRotation(r)}
	if long := rect.LongSide(); long > 0 {
		res.Confidence = rect.ShortSide() / long
	}
	if !rect.Valid {
		res.Confidence *= 0.5
	}
	return res
}

func classifyRotation(r float64) OrientationStatus {
	abs := math.Abs(r)
	switch {
	case abs <= 5:
		return StatusProper
	case abs <= 15:
		return StatusSlight
	case r >= 75 && r <= 105:
		return StatusRotated90
	case abs >= 165:
		return StatusRotated180
	case r >= -105 && r <= -75:
		return StatusRotated270
	default:
		return StatusCustom
	}
}
