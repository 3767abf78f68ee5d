package imaging

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// ToGray converts img to an 8-bit grayscale image with bounds at (0,0).
//
// Luminance uses the ITU-R BT.601 weights (0.299, 0.587, 0.114) applied by
// disintegration/imaging. An *image.Gray already at the origin is returned as is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) && g.Stride == g.Rect.Dx() {
		return g
	}
	return channelToGray(imaging.Grayscale(img), 0)
}

// Lightness returns the CIE L* channel of img scaled to 0..255.
//
// L* follows perceived brightness more closely than luma, which keeps a dark
// marker distinct from a saturated red or blue sign background that luma
// would render as mid-gray. Fully transparent pixels map to white.
func Lightness(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			c, ok := colorful.MakeColor(img.At(b.Min.X+x, b.Min.Y+y))
			if !ok {
				row[x] = 255
				continue
			}
			l, _, _ := c.Lab()
			row[x] = clampByte(l * 255)
		}
	}
	return out
}

// blurGray applies a Gaussian blur with the given sigma. A non-positive sigma
// returns src unchanged.
func blurGray(src *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return src
	}
	return channelToGray(imaging.Blur(src, sigma), 0)
}

// channelToGray copies one channel of a 4-byte-per-pixel image into a new
// *image.Gray at the origin. It accepts the *image.NRGBA returned by
// disintegration/imaging and the *image.RGBA returned by bild.
func channelToGray(img image.Image, channel int) *image.Gray {
	var pix []uint8
	var stride int
	switch src := img.(type) {
	case *image.NRGBA:
		pix, stride = src.Pix, src.Stride
	case *image.RGBA:
		pix, stride = src.Pix, src.Stride
	default:
		return ToGray(img)
	}

	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srow := pix[y*stride:]
		drow := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			drow[x] = srow[x*4+channel]
		}
	}
	return out
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
