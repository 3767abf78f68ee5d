// Package detection finds finder-marker candidates in binary bitmaps and
// scores how closely each one matches the 1:1:3:1:1 finder pattern.
//
// A finder marker is a dark square ring, a light ring and a dark square
// centre. Its cross-section through the centre reads dark, light, dark, light,
// dark with widths in the ratio 1:1:3:1:1 in every direction. This package
// works in four stages:
//
//  1. Extraction: label 8-connected dark regions of each bitmap, fill their
//     holes and trace the outer boundary into a closed polygon
//  2. Screening: reject regions whose shape cannot be a finder marker
//     (too round, too few corners, wrong aspect, too sparse, too concave)
//  3. Scoring: sample brightness profiles through the centroid and compare
//     their run lengths to the ideal ratio, plus symmetry and concentric
//     ring checks
//  4. Merging: collapse candidates from different bitmaps that sit on the
//     same physical marker into one Detection
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// Centroids are sub-pixel (github.com/golang/geo/r2 points) and refer to pixel
// centres, so a pixel at column 3 contributes X = 3.0.
//
// # Confidence Scores
//
// All scores lie in [0,1]. The fused confidence is
//
//	0.60*pattern + 0.25*symmetry + 0.15*concentric
//
// and a candidate is accepted when it reaches the configured threshold.
//
// # Limitations
//
// The extent test rejects markers rotated close to 45 degrees, because their
// axis-aligned bounding box is then twice their area.
package detection
