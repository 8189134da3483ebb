package metrics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-iqa/images"
)

// randomArray returns an array of the given shape with uniform integer pixels.
func randomArray(seed int64, shape ...int) images.Array {
	r := rand.New(rand.NewSource(seed))
	a := images.NewArray(shape...)
	for i := range a.Data {
		a.Data[i] = float64(r.Intn(256))
	}
	return a
}

// noisy returns a copy of a with uniform noise in [-amp, amp] added.
func noisy(a images.Array, amp float64, seed int64) images.Array {
	r := rand.New(rand.NewSource(seed))
	out := images.NewArray(a.Shape...)
	for i, v := range a.Data {
		out.Data[i] = images.Clamp(v+(r.Float64()*2-1)*amp, 0, 255)
	}
	return out
}

func TestPSNRIdenticalImages(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
	}{
		{"grayscale", []int{8, 8}},
		{"rgb", []int{12, 9, 3}},
		{"single channel 3d", []int{7, 5, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := randomArray(1, tt.shape...)
			got, err := PSNR(a, a, 0)
			require.NoError(t, err)
			assert.Equal(t, PSNRIdentical, got)
		})
	}
}

func TestPSNRConstantImages(t *testing.T) {
	a := images.Filled(100, 8, 8)
	b := images.Filled(100, 8, 8)
	got, err := PSNR(a, b, 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)
}

func TestPSNRBlackVersusWhite(t *testing.T) {
	black := images.Filled(0, 16, 16)
	white := images.Filled(255, 16, 16)
	got, err := PSNR(black, white, 0)
	require.NoError(t, err)
	// MSE = 65025, 20*log10(255/255) = 0.
	assert.InDelta(t, 0.0, got, 1e-9)
}

func TestPSNRKnownValue(t *testing.T) {
	a := images.Filled(10, 4, 4)
	b := images.Filled(20, 4, 4)
	got, err := PSNR(a, b, 0)
	require.NoError(t, err)
	// MSE = 100 -> 20*log10(25.5).
	assert.InDelta(t, 20*math.Log10(25.5), got, 1e-9)
}

func TestPSNRSymmetric(t *testing.T) {
	a := randomArray(3, 20, 24, 3)
	b := noisy(a, 20, 4)
	ab, err := PSNR(a, b, 0)
	require.NoError(t, err)
	ba, err := PSNR(b, a, 0)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	assert.Less(t, ab, PSNRIdentical)
	assert.Greater(t, ab, 0.0)
}

func TestPSNRBorderCropsOnlyFirstTwoAxes(t *testing.T) {
	a := images.Filled(50, 10, 10, 3)
	b := images.Filled(50, 10, 10, 3)
	// Differences confined to a 2-pixel frame vanish with border=2.
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if y < 2 || y >= 8 || x < 2 || x >= 8 {
				for c := 0; c < 3; c++ {
					b.Set(y, x, c, 200)
				}
			}
		}
	}
	cropped, err := PSNR(a, b, 2)
	require.NoError(t, err)
	assert.Equal(t, PSNRIdentical, cropped)

	full, err := PSNR(a, b, 0)
	require.NoError(t, err)
	assert.Less(t, full, PSNRIdentical)
}

func TestPSNRErrors(t *testing.T) {
	tests := []struct {
		name   string
		a, b   images.Array
		border int
		want   error
	}{
		{"shape mismatch", images.NewArray(8, 8), images.NewArray(8, 9), 0, ErrShapeMismatch},
		{"dims mismatch", images.NewArray(8, 8), images.NewArray(8, 8, 1), 0, ErrShapeMismatch},
		{"four channels", images.NewArray(8, 8, 4), images.NewArray(8, 8, 4), 0, ErrUnsupportedShape},
		{"one dimension", images.NewArray(8), images.NewArray(8), 0, ErrUnsupportedShape},
		{"four dimensions", images.NewArray(2, 2, 2, 2), images.NewArray(2, 2, 2, 2), 0, ErrUnsupportedShape},
		{"negative border", images.NewArray(8, 8), images.NewArray(8, 8), -1, ErrInvalidBorder},
		{"border collapses height", images.NewArray(8, 20), images.NewArray(8, 20), 4, ErrInvalidBorder},
		{"border exceeds width", images.NewArray(20, 6), images.NewArray(20, 6), 5, ErrInvalidBorder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PSNR(tt.a, tt.b, tt.border)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.want, errors.Cause(err))
		})
	}
}

func TestPSNRShapeMismatchBeforeBorderCheck(t *testing.T) {
	_, err := PSNR(images.NewArray(4, 4), images.NewArray(5, 5), 10)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestPSNRRejectsShortData(t *testing.T) {
	a := images.Array{Shape: []int{4, 4}, Data: make([]float64, 10)}
	_, err := PSNR(a, a, 0)
	assert.ErrorIs(t, err, ErrUnsupportedShape)
}
