package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/histogram"
	"github.com/anthonynsimon/bild/segment"
)

// OtsuLevel returns the gray level t that maximises the between-class
// variance of the two classes {v <= t} and {v > t}.
//
// The histogram comes from bild. A flat image (a single populated bin)
// returns that bin's level, so everything at or below it is dark.
//
// # Algorithm
//
// For each candidate t the weights w0, w1 and means m0, m1 of the two classes
// are accumulated incrementally; the level with the largest w0*w1*(m0-m1)^2
// wins. Ties keep the lowest level.
func OtsuLevel(gray *image.Gray) uint8 {
	bins := histogram.NewRGBAHistogram(gray).R.Bins

	total := 0
	sum := 0.0
	for v, n := range bins {
		total += n
		sum += float64(v * n)
	}
	if total == 0 {
		return 127
	}

	var (
		best    = -1.0
		level   = 0
		w0      = 0
		sum0    = 0.0
		nonZero = 0
	)
	for _, n := range bins {
		if n > 0 {
			nonZero++
		}
	}
	if nonZero <= 1 {
		for v, n := range bins {
			if n > 0 {
				return uint8(v)
			}
		}
	}

	for t := 0; t < 255; t++ {
		w0 += bins[t]
		if w0 == 0 {
			continue
		}
		w1 := total - w0
		if w1 == 0 {
			break
		}
		sum0 += float64(t * bins[t])
		m0 := sum0 / float64(w0)
		m1 := (sum - sum0) / float64(w1)
		between := float64(w0) * float64(w1) * (m0 - m1) * (m0 - m1)
		if between > best {
			best = between
			level = t
		}
	}
	return uint8(level)
}

// thresholdAt marks pixels at or below level as dark (0) and the rest as
// light (255) using bild's segment.Threshold.
func thresholdAt(gray *image.Gray, level uint8) *image.Gray {
	if level == 255 {
		out := image.NewGray(gray.Rect)
		return out
	}
	return segment.Threshold(gray, level+1)
}

// otsu binarizes gray with its own Otsu level.
func otsu(gray *image.Gray) *image.Gray {
	return thresholdAt(gray, OtsuLevel(gray))
}

// openDark removes dark specks narrower than 3 pixels. On a dark-is-0 bitmap
// eroding the dark foreground is a local maximum, so the opening is bild's
// Dilate followed by Erode.
func openDark(bitmap *image.Gray) *image.Gray {
	grown := effect.Dilate(bitmap, 1)
	return channelToGray(effect.Erode(grown, 1), 0)
}

// adaptive marks a pixel dark when it is more than offset below the
// Gaussian-weighted mean of its blockSize neighbourhood.
func adaptive(gray *image.Gray, blockSize int, offset float64) *image.Gray {
	radius := float64(blockSize-1) / 2
	mean := channelToGray(blur.Gaussian(gray, radius), 0)

	out := image.NewGray(gray.Rect)
	for i, v := range gray.Pix {
		if float64(v) < float64(mean.Pix[i])-offset {
			out.Pix[i] = 0
		} else {
			out.Pix[i] = 255
		}
	}
	return out
}

// equalize spreads the gray levels of src over the full 0..255 range using
// the cumulative histogram.
func equalize(src *image.Gray) *image.Gray {
	cum := histogram.NewRGBAHistogram(src).Cumulative().R.Bins
	total := cum[len(cum)-1]

	cmin := 0
	for _, c := range cum {
		if c > 0 {
			cmin = c
			break
		}
	}

	var lut [256]uint8
	if total > cmin {
		for v, c := range cum {
			if c <= cmin {
				continue
			}
			lut[v] = clampByte(float64(c-cmin) * 255 / float64(total-cmin))
		}
	} else {
		for v := range lut {
			lut[v] = uint8(v)
		}
	}

	out := image.NewGray(src.Rect)
	for i, v := range src.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// median applies bild's median filter with the given radius.
func median(gray *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return gray
	}
	return channelToGray(effect.Median(gray, radius), 0)
}
