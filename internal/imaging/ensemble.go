package imaging

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/sign-finder-mcp/internal/config"
)

// logger returns the imaging sub-logger. It is built on each call so that it
// follows whatever global logger the command installs at startup.
func logger() *zerolog.Logger {
	l := log.With().Str("module", "imaging").Logger()
	return &l
}

// Bitmap is one binarization of the source image.
type Bitmap struct {
	// Method names the binarization, e.g. "otsu" or "adaptive_31".
	Method string `json:"method"`

	// Image holds the pixels: 0 = dark, 255 = light, bounds at (0,0).
	Image *image.Gray `json:"-"`

	// Elapsed is how long the method took.
	Elapsed time.Duration `json:"elapsed_ns"`
}

// MethodFailure records a method that errored or panicked.
type MethodFailure struct {
	Method string `json:"method"`
	Error  string `json:"error"`
}

// EnsembleResult is the output of Binarize.
type EnsembleResult struct {
	// Gray is the luminance image every method (except lightness) started
	// from. The ratio scorer samples it.
	Gray *image.Gray

	// Bitmaps holds one entry per successful method in configured order.
	// It is never empty.
	Bitmaps []Bitmap

	// Failed lists methods that produced nothing.
	Failed []MethodFailure

	// FellBack is true when every configured method failed and Bitmaps holds
	// only the inline fixed-threshold fallback.
	FellBack bool
}

// binarizer produces one bitmap from the shared inputs.
type binarizer struct {
	name string
	run  func(in *ensembleInput) (*image.Gray, error)
}

type ensembleInput struct {
	src     image.Image
	gray    *image.Gray
	blurred *image.Gray
}

// Binarize runs every configured method on img and returns the resulting
// bitmaps.
//
// Methods are independent and run concurrently, bounded by cfg.WorkerLimit().
// A method that returns an error or panics is logged and listed in
// EnsembleResult.Failed; the rest still contribute. If every method fails a
// fixed-threshold bitmap is produced inline, so the result always holds at
// least one bitmap.
//
// # Errors
//
//   - ErrInvalidImage (wrapped) for a nil or empty image
//   - ctx.Err() when the context is cancelled before the methods finish
func Binarize(ctx context.Context, img image.Image, cfg config.Config) (*EnsembleResult, error) {
	if err := CheckImage(img); err != nil {
		return nil, err
	}

	gray := ToGray(img)
	in := &ensembleInput{
		src:     img,
		gray:    gray,
		blurred: blurGray(gray, cfg.BlurSigma),
	}

	methods := buildMethods(cfg)
	bitmaps := make([]*Bitmap, len(methods))
	failures := make([]*MethodFailure, len(methods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.WorkerLimit())
	for i, m := range methods {
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			out, err := runMethod(m, in)
			if err != nil {
				logger().Warn().Err(err).Str("method", m.name).Msg("binarization failed")
				failures[i] = &MethodFailure{Method: m.name, Error: err.Error()}
				return nil
			}
			bitmaps[i] = &Bitmap{Method: m.name, Image: out, Elapsed: time.Since(start)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &EnsembleResult{Gray: gray}
	for i := range methods {
		if bitmaps[i] != nil {
			res.Bitmaps = append(res.Bitmaps, *bitmaps[i])
		}
		if failures[i] != nil {
			res.Failed = append(res.Failed, *failures[i])
		}
	}

	if len(res.Bitmaps) == 0 {
		logger().Warn().Int("failed", len(res.Failed)).Msg("all binarizations failed, using fixed threshold")
		res.Bitmaps = append(res.Bitmaps, Bitmap{
			Method: config.MethodFixed + "_fallback",
			Image:  thresholdAt(gray, fallbackLevel(cfg.FixedLevel)),
		})
		res.FellBack = true
	}

	logger().Debug().
		Int("bitmaps", len(res.Bitmaps)).
		Int("failed", len(res.Failed)).
		Int("width", gray.Rect.Dx()).
		Int("height", gray.Rect.Dy()).
		Msg("ensemble complete")

	return res, nil
}

// BinarizeMethod runs a single named method, e.g. "median" or "adaptive_131".
// It is used to inspect one bitmap of the ensemble.
func BinarizeMethod(img image.Image, method string, cfg config.Config) (*Bitmap, error) {
	if err := CheckImage(img); err != nil {
		return nil, err
	}
	all := cfg
	all.Methods = config.AllMethods
	if method == config.MethodAdaptive && len(cfg.AdaptiveBlockSizes) > 0 {
		method = fmt.Sprintf("%s_%d", config.MethodAdaptive, cfg.AdaptiveBlockSizes[0])
	}
	for _, m := range buildMethods(all) {
		if m.name != method {
			continue
		}
		gray := ToGray(img)
		in := &ensembleInput{src: img, gray: gray, blurred: blurGray(gray, cfg.BlurSigma)}
		start := time.Now()
		out, err := runMethod(m, in)
		if err != nil {
			return nil, err
		}
		return &Bitmap{Method: m.name, Image: out, Elapsed: time.Since(start)}, nil
	}
	return nil, fmt.Errorf("unknown binarization method %q", method)
}

// runMethod converts a panic inside a method into an error.
func runMethod(m binarizer, in *ensembleInput) (out *image.Gray, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("method %s panicked: %v", m.name, r)
		}
	}()
	out, err = m.run(in)
	if err == nil && out == nil {
		err = fmt.Errorf("method %s produced no bitmap", m.name)
	}
	return out, err
}

// buildMethods expands cfg.Methods into runnable binarizers in configured
// order. "adaptive" becomes one binarizer per block size.
func buildMethods(cfg config.Config) []binarizer {
	var out []binarizer
	for _, name := range cfg.Methods {
		switch name {
		case config.MethodOtsu:
			out = append(out, binarizer{name, func(in *ensembleInput) (*image.Gray, error) {
				return otsu(in.blurred), nil
			}})
		case config.MethodOtsuClean:
			out = append(out, binarizer{name, func(in *ensembleInput) (*image.Gray, error) {
				return openDark(otsu(in.blurred)), nil
			}})
		case config.MethodOtsuOriginal:
			out = append(out, binarizer{name, func(in *ensembleInput) (*image.Gray, error) {
				return otsu(in.gray), nil
			}})
		case config.MethodAdaptive:
			for _, size := range cfg.AdaptiveBlockSizes {
				size := size
				offset := cfg.AdaptiveOffset
				out = append(out, binarizer{fmt.Sprintf("%s_%d", name, size), func(in *ensembleInput) (*image.Gray, error) {
					return adaptive(in.gray, size, offset), nil
				}})
			}
		case config.MethodEqualized:
			out = append(out, binarizer{name, func(in *ensembleInput) (*image.Gray, error) {
				return otsu(equalize(in.gray)), nil
			}})
		case config.MethodMedian:
			radius := cfg.MedianRadius
			out = append(out, binarizer{name, func(in *ensembleInput) (*image.Gray, error) {
				return otsu(median(in.gray, radius)), nil
			}})
		case config.MethodLightness:
			out = append(out, binarizer{name, func(in *ensembleInput) (*image.Gray, error) {
				return otsu(Lightness(in.src)), nil
			}})
		case config.MethodFixed:
			level := cfg.FixedLevel
			out = append(out, binarizer{name, func(in *ensembleInput) (*image.Gray, error) {
				if level <= 0 || level > 255 {
					return nil, fmt.Errorf("fixed level %d out of range", level)
				}
				return thresholdAt(in.gray, uint8(level-1)), nil
			}})
		}
	}
	return out
}

// fallbackLevel maps the configured fixed level to a Threshold cut, using the
// mid level when the configured one is unusable.
func fallbackLevel(level int) uint8 {
	if level <= 0 || level > 255 {
		level = 128
	}
	return uint8(level - 1)
}
