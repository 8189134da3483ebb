// Package metrics - Full-reference image quality metrics (PSNR, SSIM) and their
// aggregation over batches of frame sequences.
package metrics

import "github.com/pkg/errors"

// Error taxonomy. Every error returned by this package wraps one of these, so
// callers can match with errors.Is or errors.Cause.
var (
	// ErrShapeMismatch is returned when the two input images differ in shape.
	ErrShapeMismatch = errors.New("input images must have the same dimensions")
	// ErrUnsupportedShape is returned for dimensionality outside {2, 3} or a
	// channel count outside {1, 3}.
	ErrUnsupportedShape = errors.New("unsupported image shape")
	// ErrEmptyBatch is returned when a batch yields no consecutive frame pairs.
	ErrEmptyBatch = errors.New("batch has no consecutive frame pairs")
	// ErrInvalidBorder is returned when the border crop (or the SSIM window
	// margin) leaves no pixels to compare.
	ErrInvalidBorder = errors.New("border crop leaves an empty region")
)
