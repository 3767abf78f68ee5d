package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
)

// newSquareImage returns a white RGBA image with a black square.
func newSquareImage(width, height, x0, y0, side int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if x >= x0 && x < x0+side && y >= y0 && y < y0+side {
				c = color.RGBA{0, 0, 0, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func newGrayFill(width, height int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, width, height))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func assertBinary(t *testing.T, name string, g *image.Gray) {
	t.Helper()
	for i, v := range g.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("%s: pixel %d has value %d, want 0 or 255", name, i, v)
		}
	}
}

func TestOtsuLevel(t *testing.T) {
	g := newGrayFill(40, 40, 200)
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			g.SetGray(x, y, color.Gray{Y: 40})
		}
	}

	level := OtsuLevel(g)
	if level < 40 || level >= 200 {
		t.Fatalf("OtsuLevel = %d, want in [40,200)", level)
	}

	bin := otsu(g)
	if bin.GrayAt(5, 5).Y != 0 {
		t.Error("dark half should be 0")
	}
	if bin.GrayAt(5, 30).Y != 255 {
		t.Error("light half should be 255")
	}
}

func TestOtsuLevel_FlatImage(t *testing.T) {
	g := newGrayFill(10, 10, 90)
	if level := OtsuLevel(g); level != 90 {
		t.Errorf("OtsuLevel of flat image = %d, want 90", level)
	}
}

func TestOpenDark_RemovesSpecks(t *testing.T) {
	g := newGrayFill(30, 30, 255)
	g.SetGray(3, 3, color.Gray{Y: 0})
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			g.SetGray(x, y, color.Gray{Y: 0})
		}
	}

	out := openDark(g)
	if out.GrayAt(3, 3).Y != 255 {
		t.Error("single-pixel speck should be removed")
	}
	if out.GrayAt(15, 15).Y != 0 {
		t.Error("10x10 block should survive the opening")
	}
}

func TestAdaptive_LocalContrast(t *testing.T) {
	// Left half is much darker than the right, but each half holds a small
	// darker mark. A global threshold cannot find both marks.
	g := image.NewGray(image.Rect(0, 0, 80, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 80; x++ {
			v := uint8(200)
			if x < 40 {
				v = 90
			}
			g.SetGray(x, y, color.Gray{Y: v})
		}
	}
	for y := 18; y < 22; y++ {
		for x := 18; x < 22; x++ {
			g.SetGray(x, y, color.Gray{Y: 40})
			g.SetGray(x+40, y, color.Gray{Y: 140})
		}
	}

	out := adaptive(g, 15, 10)
	assertBinary(t, "adaptive", out)
	if out.GrayAt(20, 20).Y != 0 {
		t.Error("mark on dark half should be dark")
	}
	if out.GrayAt(60, 20).Y != 0 {
		t.Error("mark on light half should be dark")
	}
	if out.GrayAt(5, 5).Y != 255 || out.GrayAt(75, 35).Y != 255 {
		t.Error("uniform background should be light")
	}
}

func TestEqualize_StretchesRange(t *testing.T) {
	g := newGrayFill(10, 10, 100)
	for x := 0; x < 10; x++ {
		g.SetGray(x, 0, color.Gray{Y: 110})
	}

	out := equalize(g)
	if out.GrayAt(0, 5).Y != 0 {
		t.Errorf("lowest level maps to %d, want 0", out.GrayAt(0, 5).Y)
	}
	if out.GrayAt(0, 0).Y != 255 {
		t.Errorf("highest level maps to %d, want 255", out.GrayAt(0, 0).Y)
	}
}

func TestLightness(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{255, 255, 255, 255})
	img.SetNRGBA(2, 0, color.NRGBA{0, 0, 0, 0})

	l := Lightness(img)
	if v := l.GrayAt(0, 0).Y; v > 1 {
		t.Errorf("black L* = %d, want 0", v)
	}
	if v := l.GrayAt(1, 0).Y; v < 254 {
		t.Errorf("white L* = %d, want 255", v)
	}
	if v := l.GrayAt(2, 0).Y; v != 255 {
		t.Errorf("transparent L* = %d, want 255", v)
	}
}

func TestBinarize_AllMethods(t *testing.T) {
	img := newSquareImage(120, 100, 40, 30, 40)
	cfg := config.Default()

	res, err := Binarize(context.Background(), img, cfg)
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}
	if res.FellBack {
		t.Fatal("unexpected fallback")
	}
	if len(res.Failed) != 0 {
		t.Fatalf("unexpected failures: %+v", res.Failed)
	}

	wantMethods := []string{
		"otsu", "otsu_clean", "otsu_original", "adaptive_31", "adaptive_131",
		"equalized", "median", "lightness", "fixed",
	}
	if len(res.Bitmaps) != len(wantMethods) {
		t.Fatalf("got %d bitmaps, want %d", len(res.Bitmaps), len(wantMethods))
	}
	for i, bm := range res.Bitmaps {
		if bm.Method != wantMethods[i] {
			t.Errorf("bitmap %d method = %s, want %s", i, bm.Method, wantMethods[i])
		}
		if bm.Image.Rect != image.Rect(0, 0, 120, 100) {
			t.Errorf("%s bounds = %v", bm.Method, bm.Image.Rect)
		}
		assertBinary(t, bm.Method, bm.Image)

		if bm.Image.GrayAt(2, 2).Y != 255 {
			t.Errorf("%s: background corner should be light", bm.Method)
		}
		// The square's edge is dark for every method; adaptive leaves large
		// uniform interiors light.
		if bm.Image.GrayAt(41, 50).Y != 0 {
			t.Errorf("%s: square edge should be dark", bm.Method)
		}
		if !strings.HasPrefix(bm.Method, "adaptive") && bm.Image.GrayAt(60, 50).Y != 0 {
			t.Errorf("%s: square centre should be dark", bm.Method)
		}
	}
}

func TestBinarize_FallbackWhenEveryMethodFails(t *testing.T) {
	img := newSquareImage(60, 60, 20, 20, 20)
	cfg := config.Default()
	cfg.Methods = []string{config.MethodFixed}
	cfg.FixedLevel = 0 // makes the fixed method fail

	res, err := Binarize(context.Background(), img, cfg)
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}
	if !res.FellBack {
		t.Error("expected fallback")
	}
	if len(res.Bitmaps) != 1 {
		t.Fatalf("got %d bitmaps, want 1", len(res.Bitmaps))
	}
	if len(res.Failed) != 1 || res.Failed[0].Method != "fixed" {
		t.Errorf("Failed = %+v, want the fixed method", res.Failed)
	}
	if res.Bitmaps[0].Image.GrayAt(30, 30).Y != 0 {
		t.Error("fallback bitmap should mark the square dark")
	}
}

func TestBinarize_NoMethodsStillYieldsBitmap(t *testing.T) {
	cfg := config.Default()
	cfg.Methods = nil

	res, err := Binarize(context.Background(), newSquareImage(30, 30, 10, 10, 10), cfg)
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}
	if len(res.Bitmaps) == 0 {
		t.Fatal("ensemble returned no bitmaps")
	}
}

func TestBinarize_InvalidImage(t *testing.T) {
	_, err := Binarize(context.Background(), nil, config.Default())
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("error = %v, want ErrInvalidImage", err)
	}
}

func TestBinarize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Binarize(ctx, newSquareImage(30, 30, 10, 10, 10), config.Default())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRunMethod_RecoversPanic(t *testing.T) {
	m := binarizer{name: "boom", run: func(*ensembleInput) (*image.Gray, error) {
		panic("bad pixel")
	}}
	out, err := runMethod(m, &ensembleInput{})
	if err == nil || out != nil {
		t.Fatalf("runMethod = (%v, %v), want error", out, err)
	}
	if !strings.Contains(err.Error(), "panicked") {
		t.Errorf("error %q should mention the panic", err)
	}
}

func TestBinarizeMethod(t *testing.T) {
	img := newSquareImage(60, 60, 20, 20, 20)
	cfg := config.Default()

	bm, err := BinarizeMethod(img, "adaptive_131", cfg)
	if err != nil {
		t.Fatalf("BinarizeMethod failed: %v", err)
	}
	if bm.Method != "adaptive_131" {
		t.Errorf("Method = %s", bm.Method)
	}

	bm, err = BinarizeMethod(img, "adaptive", cfg)
	if err != nil {
		t.Fatalf("BinarizeMethod(adaptive) failed: %v", err)
	}
	if bm.Method != "adaptive_31" {
		t.Errorf("bare adaptive resolved to %s, want adaptive_31", bm.Method)
	}

	if _, err := BinarizeMethod(img, "sauvola", cfg); err == nil {
		t.Error("unknown method should fail")
	}
}

func TestEncodePNG(t *testing.T) {
	g := newGrayFill(40, 20, 255)

	enc, err := EncodePNG(g, 0.5)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if enc.Width != 20 || enc.Height != 10 || enc.MimeType != "image/png" {
		t.Errorf("unexpected result %dx%d %s", enc.Width, enc.Height, enc.MimeType)
	}

	raw, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 20 {
		t.Errorf("decoded width = %d, want 20", decoded.Bounds().Dx())
	}

	if _, err := EncodePNG(g, 0.01); err == nil {
		t.Error("scale that collapses the image should fail")
	}
}
