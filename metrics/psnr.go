package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/nvr-ai/go-iqa/images"
)

const (
	// MaxPixel is the peak value of the [0, 255] intensity range.
	MaxPixel = 255.0
	// PSNRIdentical is returned when two images are effectively identical.
	PSNRIdentical = 100.0
	// mseEpsilon is the MSE below which images count as identical.
	mseEpsilon = 1e-10
)

// PSNR computes the peak signal-to-noise ratio between two images, in dB.
//
// border pixels are cropped from each side of the first two axes before the
// mean squared error is taken. An MSE below 1e-10 returns PSNRIdentical.
//
// Arguments:
//   - a, b: Images of identical shape, [H, W] or [H, W, C] with C in {1, 3}.
//   - border: Pixels to crop from each side, >= 0.
//
// Returns:
//   - float64: 20*log10(255/sqrt(MSE)), or 100 for identical images.
//   - error: ErrShapeMismatch, ErrUnsupportedShape or ErrInvalidBorder.
//
// @example
// score, err := PSNR(reference, distorted, 4)
func PSNR(a, b images.Array, border int) (float64, error) {
	ca, cb, err := prepare(a, b, border)
	if err != nil {
		return 0, err
	}
	return psnr(ca.Data, cb.Data), nil
}

// psnr assumes equal, non-empty slices.
func psnr(a, b []float64) float64 {
	mse := meanSquaredError(a, b)
	if mse < mseEpsilon {
		return PSNRIdentical
	}
	return 20 * math.Log10(MaxPixel/math.Sqrt(mse))
}

// meanSquaredError returns mean((a-b)^2).
func meanSquaredError(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d / float64(len(a))
}
