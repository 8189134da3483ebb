package metrics

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-iqa/images"
)

// PairFunc scores one pair of frames.
type PairFunc func(a, b images.Array) (float64, error)

// PSNRFunc returns a PairFunc computing PSNR with the given border.
func PSNRFunc(border int) PairFunc {
	return func(a, b images.Array) (float64, error) {
		return PSNR(a, b, border)
	}
}

// SSIMFunc returns a PairFunc computing SSIM with the given border.
func SSIMFunc(border int) PairFunc {
	return func(a, b images.Array) (float64, error) {
		return SSIM(a, b, border)
	}
}

// SSIMFunc returns a PairFunc computing SSIM with the evaluator's filter.
func (e *Evaluator) SSIMFunc(border int) PairFunc {
	return func(a, b images.Array) (float64, error) {
		return e.SSIM(a, b, border)
	}
}

// MeanOverBatch scores every consecutive frame pair of every sequence and
// returns the mean of all scores.
//
// Each sequence is a (C, T, H, W) tensor. Frames are taken as [H, W, C] arrays
// after transposing to (T, H, W, C), and fn is called on (t, t+1) for every t.
// Scores are pooled across sequences, so longer sequences weigh more.
//
// Arguments:
//   - batch: The sequences.
//   - fn: The pairwise metric, e.g. PSNRFunc(0) or SSIMFunc(0).
//
// Returns:
//   - float64: The mean score.
//   - error: ErrEmptyBatch if no pair exists, a shape error for malformed
//     sequences, or the first error returned by fn.
//
// @example
// psnr, err := MeanOverBatch(generated, PSNRFunc(0))
func MeanOverBatch(batch []tensor.Tensor, fn PairFunc) (float64, error) {
	var scores []float64
	for i, seq := range batch {
		frames, err := Frames(seq)
		if err != nil {
			return 0, errors.Wrapf(err, "sequence %d", i)
		}
		for t := 0; t+1 < len(frames); t++ {
			s, err := fn(frames[t], frames[t+1])
			if err != nil {
				return 0, errors.Wrapf(err, "sequence %d, frames %d-%d", i, t, t+1)
			}
			scores = append(scores, s)
		}
	}
	if len(scores) == 0 {
		return 0, errors.Wrapf(ErrEmptyBatch, "%d sequences", len(batch))
	}
	return stat.Mean(scores, nil), nil
}

// Frames splits a (C, T, H, W) sequence tensor into T arrays of shape [H, W, C].
func Frames(seq tensor.Tensor) ([]images.Array, error) {
	if seq == nil {
		return nil, errors.Wrap(ErrUnsupportedShape, "nil sequence")
	}
	shape := seq.Shape()
	if len(shape) != 4 {
		return nil, errors.Wrapf(ErrUnsupportedShape, "sequence shape %v, want (C, T, H, W)", shape)
	}
	c, t, h, w := shape[0], shape[1], shape[2], shape[3]
	if c <= 0 || h <= 0 || w <= 0 {
		return nil, errors.Wrapf(ErrUnsupportedShape, "sequence shape %v", shape)
	}
	if t == 0 {
		return nil, nil
	}

	thwc, err := tensor.T(materialize(seq), 1, 2, 3, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to transpose sequence to (T, H, W, C)")
	}
	data, err := TensorValues(thwc)
	if err != nil {
		return nil, err
	}

	size := h * w * c
	frames := make([]images.Array, t)
	for i := range frames {
		frames[i] = images.Array{
			Shape: []int{h, w, c},
			Data:  data[i*size : (i+1)*size : (i+1)*size],
		}
	}
	return frames, nil
}

// SplitBatch splits a (B, C, T, H, W) tensor into B sequence tensors of shape (C, T, H, W).
func SplitBatch(batch tensor.Tensor) ([]tensor.Tensor, error) {
	if batch == nil {
		return nil, errors.Wrap(ErrUnsupportedShape, "nil batch")
	}
	shape := batch.Shape()
	if len(shape) != 5 {
		return nil, errors.Wrapf(ErrUnsupportedShape, "batch shape %v, want (B, C, T, H, W)", shape)
	}
	src := materialize(batch)

	seqs := make([]tensor.Tensor, 0, shape[0])
	for b := 0; b < shape[0]; b++ {
		v, err := src.Slice(tensor.S(b))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to slice sequence %d", b)
		}
		seqs = append(seqs, v.Materialize())
	}
	return seqs, nil
}

// TensorValues copies the elements of a tensor into a float64 slice in
// row-major order. float64, float32, uint8, int and int64 tensors are supported.
func TensorValues(t tensor.Tensor) ([]float64, error) {
	if t == nil {
		return nil, errors.New("nil tensor")
	}
	switch data := materialize(t).Data().(type) {
	case []float64:
		out := make([]float64, len(data))
		copy(out, data)
		return out, nil
	case []float32:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	case []uint8:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	case []int:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	case float64:
		return []float64{data}, nil
	case float32:
		return []float64{float64(data)}, nil
	default:
		return nil, errors.Errorf("unsupported tensor dtype %v", t.Dtype())
	}
}

// materialize returns a contiguous dense copy when t is a view, t otherwise.
func materialize(t tensor.Tensor) tensor.Tensor {
	if d, ok := t.(*tensor.Dense); ok && d.IsMaterializable() {
		return d.Materialize()
	}
	return t
}
