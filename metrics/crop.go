package metrics

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-iqa/images"
)

// checkPair validates that a and b share one supported shape.
func checkPair(a, b images.Array) error {
	if !a.SameShape(b) {
		return errors.Wrapf(ErrShapeMismatch, "%v vs %v", a.Shape, b.Shape)
	}
	return checkShape(a)
}

// checkShape accepts [H, W], [H, W, 1] and [H, W, 3] arrays with matching data length.
func checkShape(a images.Array) error {
	switch a.Layout() {
	case images.LayoutGrayscale2D:
	case images.LayoutMultiChannel3D:
		if c := a.Channels(); c != 1 && c != 3 {
			return errors.Wrapf(ErrUnsupportedShape, "%d channels", c)
		}
	default:
		return errors.Wrapf(ErrUnsupportedShape, "shape %v", a.Shape)
	}
	if n := a.Height() * a.Width() * a.Channels(); n != len(a.Data) {
		return errors.Wrapf(ErrUnsupportedShape, "shape %v needs %d values, have %d", a.Shape, n, len(a.Data))
	}
	return nil
}

// cropBorder removes border pixels from each side of the first two axes.
func cropBorder(a images.Array, border int) (images.Array, error) {
	if border < 0 {
		return images.Array{}, errors.Wrapf(ErrInvalidBorder, "negative border %d", border)
	}
	if border == 0 {
		return a, nil
	}
	h, w := a.Height(), a.Width()
	if h-2*border <= 0 || w-2*border <= 0 {
		return images.Array{}, errors.Wrapf(ErrInvalidBorder, "border %d on %dx%d", border, h, w)
	}
	return a.Region(border, h-border, border, w-border), nil
}

// prepare runs the shared validation and crop of both metrics.
func prepare(a, b images.Array, border int) (images.Array, images.Array, error) {
	if err := checkPair(a, b); err != nil {
		return images.Array{}, images.Array{}, err
	}
	ca, err := cropBorder(a, border)
	if err != nil {
		return images.Array{}, images.Array{}, err
	}
	cb, err := cropBorder(b, border)
	if err != nil {
		return images.Array{}, images.Array{}, err
	}
	return ca, cb, nil
}
