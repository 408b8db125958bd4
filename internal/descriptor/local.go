package descriptor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// minFaceRegionPx is the smallest image side the local extractor will
// accept as containing a usable face region.
const minFaceRegionPx = 32

// LocalExtractor computes a deterministic descriptor from image statistics
// without an external model: grayscale block means over a normalized crop,
// L2-normalized. It is not a real face embedding, but it is stable per
// image and honors the extractor contract, which makes it suitable for
// development and tests. Tagged "local-v1" so its vectors are never
// compared against model-produced ones.
type LocalExtractor struct {
	dim int
}

func NewLocalExtractor(dim int) *LocalExtractor {
	return &LocalExtractor{dim: dim}
}

func (e *LocalExtractor) Version() string { return "local-v1" }
func (e *LocalExtractor) Dim() int        { return e.dim }

func (e *LocalExtractor) Extract(ctx context.Context, imageData []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() < minFaceRegionPx || bounds.Dy() < minFaceRegionPx {
		return nil, ErrNoFaceDetected
	}

	// Resize to a fixed square so the descriptor is independent of the
	// source resolution.
	const side = 128
	resized := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	gray := toGrayscale(resized)

	// Block means: split the pixel stream into dim equal chunks and take
	// the mean luma of each, scaled into [0, 1].
	pixels := make([]float64, 0, side*side)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			pixels = append(pixels, gray[x][y])
		}
	}

	vec := make([]float32, e.dim)
	chunk := len(pixels) / e.dim
	if chunk == 0 {
		chunk = 1
	}
	for i := 0; i < e.dim; i++ {
		start := i * chunk
		if start >= len(pixels) {
			break
		}
		end := start + chunk
		if end > len(pixels) {
			end = len(pixels)
		}
		var sum float64
		for _, p := range pixels[start:end] {
			sum += p
		}
		vec[i] = float32(sum / float64(end-start) / 255.0)
	}

	normalize(vec)
	return &Result{Vector: vec, Version: e.Version()}, nil
}

// decodeConfig validates that the bytes decode as a known image format.
func decodeConfig(imageData []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	return cfg, err
}

// toGrayscale converts an image to a 2D array of grayscale values (0-255).
func toGrayscale(img *image.RGBA) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, width)
	for x := 0; x < width; x++ {
		gray[x] = make([]float64, height)
		for y := 0; y < height; y++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray[x][y] = luma
		}
	}

	return gray
}

// normalize scales the vector to unit L2 norm in place. Zero vectors are
// left untouched.
func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
