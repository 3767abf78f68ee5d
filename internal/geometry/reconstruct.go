package geometry

import (
	"github.com/ironsheep/sign-finder-mcp/internal/config"
)

// Reconstruction bundles the three geometry stages for one marker triple.
type Reconstruction struct {
	Roles       *RoleAssignment   `json:"roles"`
	Rectangle   *Rectangle        `json:"rectangle"`
	Orientation OrientationResult `json:"orientation"`
}

// Reconstruct assigns roles to exactly three markers, rebuilds the sign
// rectangle and classifies its orientation.
func Reconstruct(markers []Marker, cfg config.Config) (*Reconstruction, error) {
	roles, err := AssignRoles(markers, cfg)
	if err != nil {
		return nil, err
	}
	rect, err := ReconstructRectangle(roles, cfg)
	if err != nil {
		return nil, err
	}
	return &Reconstruction{
		Roles:       roles,
		Rectangle:   rect,
		Orientation: AnalyzeOrientation(rect),
	}, nil
}
