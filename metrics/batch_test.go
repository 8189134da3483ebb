package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-iqa/images"
)

// sequenceTensor builds a (C, T, H, W) float64 tensor whose value at
// (c, t, y, x) is fn(c, t, y, x).
func sequenceTensor(c, t, h, w int, fn func(c, t, y, x int) float64) *tensor.Dense {
	data := make([]float64, c*t*h*w)
	i := 0
	for ci := 0; ci < c; ci++ {
		for ti := 0; ti < t; ti++ {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					data[i] = fn(ci, ti, y, x)
					i++
				}
			}
		}
	}
	return tensor.New(tensor.WithShape(c, t, h, w), tensor.WithBacking(data))
}

func constantSequence(c, t, h, w int, v float64) *tensor.Dense {
	return sequenceTensor(c, t, h, w, func(int, int, int, int) float64 { return v })
}

func TestFramesTransposesToChannelLast(t *testing.T) {
	seq := sequenceTensor(3, 4, 5, 6, func(c, t, y, x int) float64 {
		return float64(c*1000 + t*100 + y*10 + x)
	})
	frames, err := Frames(seq)
	require.NoError(t, err)
	require.Len(t, frames, 4)

	for ti, f := range frames {
		assert.Equal(t, []int{5, 6, 3}, f.Shape)
		for y := 0; y < 5; y++ {
			for x := 0; x < 6; x++ {
				for c := 0; c < 3; c++ {
					assert.Equal(t, float64(c*1000+ti*100+y*10+x), f.At(y, x, c))
				}
			}
		}
	}
}

func TestFramesSupportsFloat32AndUint8(t *testing.T) {
	f32 := tensor.New(tensor.WithShape(1, 2, 2, 2), tensor.WithBacking([]float32{1, 2, 3, 4, 5, 6, 7, 8}))
	frames, err := Frames(f32)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, []float64{5, 6, 7, 8}, frames[1].Data)

	u8 := tensor.New(tensor.WithShape(1, 2, 2, 2), tensor.WithBacking([]uint8{1, 2, 3, 4, 255, 6, 7, 8}))
	frames, err = Frames(u8)
	require.NoError(t, err)
	assert.Equal(t, []float64{255, 6, 7, 8}, frames[1].Data)
}

func TestFramesRejectsWrongRank(t *testing.T) {
	seq := tensor.New(tensor.WithShape(3, 4, 4), tensor.WithBacking(make([]float64, 48)))
	_, err := Frames(seq)
	assert.ErrorIs(t, err, ErrUnsupportedShape)

	_, err = Frames(nil)
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}

func TestMeanOverBatchIdenticalFramesPSNR(t *testing.T) {
	batch := []tensor.Tensor{
		constantSequence(3, 3, 16, 16, 120),
		constantSequence(3, 3, 16, 16, 30),
	}
	got, err := MeanOverBatch(batch, PSNRFunc(0))
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)
}

func TestMeanOverBatchIdenticalFramesSSIM(t *testing.T) {
	seq := sequenceTensor(3, 3, 16, 16, func(c, _, y, x int) float64 {
		return float64((c*31 + y*7 + x*13) % 256)
	})
	got, err := MeanOverBatch([]tensor.Tensor{seq}, SSIMFunc(0))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-6)
}

func TestMeanOverBatchPoolsAllPairs(t *testing.T) {
	// Frames alternate between 10 and 20 in the first sequence (two pairs with
	// MSE 100) and stay constant in the second (one identical pair).
	varying := sequenceTensor(1, 3, 4, 4, func(_, t, _, _ int) float64 {
		if t%2 == 0 {
			return 10
		}
		return 20
	})
	still := constantSequence(1, 2, 4, 4, 50)

	differing, err := PSNR(images.Filled(10, 4, 4, 1), images.Filled(20, 4, 4, 1), 0)
	require.NoError(t, err)

	got, err := MeanOverBatch([]tensor.Tensor{varying, still}, PSNRFunc(0))
	require.NoError(t, err)
	assert.InDelta(t, (2*differing+100)/3, got, 1e-12)
}

func TestMeanOverBatchEmpty(t *testing.T) {
	single := []tensor.Tensor{
		constantSequence(3, 1, 8, 8, 1),
		constantSequence(3, 1, 8, 8, 2),
	}
	_, err := MeanOverBatch(single, PSNRFunc(0))
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = MeanOverBatch(nil, SSIMFunc(0))
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestMeanOverBatchPropagatesMetricErrors(t *testing.T) {
	// Two channels are not a supported image layout.
	seq := constantSequence(2, 3, 8, 8, 5)
	_, err := MeanOverBatch([]tensor.Tensor{seq}, PSNRFunc(0))
	assert.ErrorIs(t, err, ErrUnsupportedShape)

	calls := 0
	failing := func(a, b images.Array) (float64, error) {
		calls++
		return 0, assert.AnError
	}
	_, err = MeanOverBatch([]tensor.Tensor{constantSequence(1, 4, 4, 4, 0)}, failing)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls, "the first error stops aggregation")
}

func TestSplitBatchMatchesSequences(t *testing.T) {
	const b, c, tt, h, w = 2, 3, 3, 12, 12
	data := make([]float64, b*c*tt*h*w)
	for i := range data {
		data[i] = float64((i * 37) % 256)
	}
	batch := tensor.New(tensor.WithShape(b, c, tt, h, w), tensor.WithBacking(data))

	seqs, err := SplitBatch(batch)
	require.NoError(t, err)
	require.Len(t, seqs, b)

	size := c * tt * h * w
	var manual []tensor.Tensor
	for i := 0; i < b; i++ {
		part := make([]float64, size)
		copy(part, data[i*size:(i+1)*size])
		manual = append(manual, tensor.New(tensor.WithShape(c, tt, h, w), tensor.WithBacking(part)))
	}
	for i := range seqs {
		assert.Equal(t, []int{c, tt, h, w}, []int(seqs[i].Shape()))
		got, err := TensorValues(seqs[i])
		require.NoError(t, err)
		want, err := TensorValues(manual[i])
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	fromSplit, err := MeanOverBatch(seqs, PSNRFunc(0))
	require.NoError(t, err)
	fromManual, err := MeanOverBatch(manual, PSNRFunc(0))
	require.NoError(t, err)
	assert.Equal(t, fromManual, fromSplit)
}

func TestSplitBatchRejectsWrongRank(t *testing.T) {
	_, err := SplitBatch(constantSequence(1, 2, 3, 3, 0))
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}

func TestTensorValues(t *testing.T) {
	got, err := TensorValues(tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{1, 2.5, 3})))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, 3}, got)

	got, err = TensorValues(tensor.New(tensor.FromScalar(4.0)))
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, got)

	_, err = TensorValues(nil)
	assert.Error(t, err)
}
