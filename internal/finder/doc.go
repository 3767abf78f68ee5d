// Package finder runs the complete sign-location pipeline on one image.
//
// Locate binarizes the image with the preprocessing ensemble, extracts and
// scores marker candidates from every bitmap concurrently, merges them into
// ranked detections, selects the three markers that form the most plausible
// sign corner triple and hands them to the geometry stage.
//
// Each call is a pure function of the image and the configuration. Nothing
// is shared between calls, so images may be processed in parallel.
//
// # Outcomes
//
//   - StatusLocated: a rectangle and orientation are available. Check
//     Rectangle.Valid before trusting the corners.
//   - StatusInsufficientDetections: fewer than three markers were found.
//   - StatusDegenerateGeometry: three markers were found but their layout
//     is ambiguous.
//
// Errors are reserved for bad input, cancellation and internal defects.
package finder
