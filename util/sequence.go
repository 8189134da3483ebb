package util

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-iqa/images"
)

// SequenceFromFiles decodes frames and stacks them into a (C, T, H, W) float64
// tensor. Grayscale mode yields C = 1, RGB and BGR yield C = 3.
//
// Arguments:
// - files: The frames in order, e.g. from LoadDirectoryImageFiles.
// - mode: The color mode each frame is converted with.
//
// Returns:
// - *tensor.Dense: The sequence tensor.
// - error: An error if a frame fails to decode or frame sizes differ.
//
// @example
// files, _ := LoadDirectoryImageFiles("clip")
// seq, err := SequenceFromFiles(files, images.ColorModeRGB)
func SequenceFromFiles(files []ImageFile, mode images.ColorMode) (*tensor.Dense, error) {
	if len(files) == 0 {
		return nil, errors.New("no frames")
	}

	arrays := make([]images.Array, len(files))
	for i, f := range files {
		img, err := images.Decode(f.Data, f.Format)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d (%s)", f.Frame, f.Path)
		}
		a, err := images.FromImage(img, mode)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d (%s)", f.Frame, f.Path)
		}
		if i > 0 && !a.SameShape(arrays[0]) {
			return nil, errors.Errorf("frame %d (%s) has shape %v, first frame %v", f.Frame, f.Path, a.Shape, arrays[0].Shape)
		}
		arrays[i] = a
	}
	return Stack(arrays)
}

// Stack turns T frames of shape [H, W] or [H, W, C] into a (C, T, H, W) tensor.
func Stack(frames []images.Array) (*tensor.Dense, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames")
	}
	first := frames[0]
	if first.Layout() == images.LayoutInvalid {
		return nil, errors.Errorf("unsupported frame shape %v", first.Shape)
	}
	t, h, w, c := len(frames), first.Height(), first.Width(), first.Channels()

	data := make([]float64, c*t*h*w)
	for ti, f := range frames {
		if !f.SameShape(first) {
			return nil, errors.Errorf("frame %d has shape %v, want %v", ti, f.Shape, first.Shape)
		}
		for ci := 0; ci < c; ci++ {
			off := (ci*t + ti) * h * w
			copy(data[off:off+h*w], f.Plane(ci))
		}
	}
	return tensor.New(tensor.WithShape(c, t, h, w), tensor.WithBacking(data)), nil
}
