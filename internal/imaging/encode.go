package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// EncodedImage is a PNG-encoded image ready for transport.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG, optionally rescaled.
//
// A scale in (0,1) shrinks large bitmaps before transport; nearest-neighbour
// resampling keeps a binary bitmap binary. A scale of 1 or less than or equal
// to 0 leaves the size unchanged.
func EncodePNG(img image.Image, scale float64) (*EncodedImage, error) {
	if err := CheckImage(img); err != nil {
		return nil, err
	}

	out := img
	if scale > 0 && scale != 1.0 {
		newWidth := int(float64(img.Bounds().Dx()) * scale)
		newHeight := int(float64(img.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %g reduces %dx%d image to nothing", scale, img.Bounds().Dx(), img.Bounds().Dy())
		}
		out = imaging.Resize(img, newWidth, newHeight, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
