// Package imaging turns photographs into the binary bitmaps the marker
// detector works on.
//
// A single global threshold rarely separates finder markers from their
// background across real photographs: glare, shadows, low contrast and sensor
// noise each defeat a different binarization. This package therefore runs an
// ensemble of independent methods and hands every resulting bitmap to the
// detector, which merges what they find.
//
// # Bitmaps
//
// Every bitmap is an *image.Gray whose bounds start at (0,0) and match the
// source image size. A pixel value of 0 is dark (potential marker ink) and 255
// is light. Callers must not assume any other value appears.
//
// # Methods
//
//   - otsu: light Gaussian blur, then a global Otsu threshold
//   - otsu_clean: otsu followed by a 3x3 opening of the dark foreground
//   - otsu_original: Otsu on the unblurred grayscale
//   - adaptive_<N>: dark when below the Gaussian local mean minus an offset
//   - equalized: histogram equalisation, then Otsu
//   - median: median filter, then Otsu
//   - lightness: CIE L* channel, then Otsu
//   - fixed: fixed mid-level threshold
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Binarize runs its methods
// concurrently and never mutates the source image.
package imaging
