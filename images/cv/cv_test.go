package cv

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-iqa/images"
	"github.com/nvr-ai/go-iqa/images/kernels"
	"github.com/nvr-ai/go-iqa/metrics"
)

func randomPlane(seed int64, n int) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(r.Intn(256))
	}
	return out
}

func TestGaussianFilterMatchesGoFilter(t *testing.T) {
	for _, size := range [][2]int{{32, 24}, {11, 11}, {7, 9}} {
		w, h := size[0], size[1]
		src := randomPlane(int64(w*h), w*h)

		cvOut, err := GaussianFilter{Size: 11, Sigma: 1.5}.Smooth(src, w, h)
		require.NoError(t, err)

		g, err := kernels.NewGaussian(11, 1.5, kernels.Options{Edge: kernels.EdgeReflect101})
		require.NoError(t, err)
		goOut, err := g.Smooth(src, w, h)
		require.NoError(t, err)

		require.Len(t, cvOut, len(goOut))
		for i := range goOut {
			assert.InDelta(t, goOut[i], cvOut[i], 1e-7, "%dx%d index %d", w, h, i)
		}
	}
}

func TestGaussianFilterSSIM(t *testing.T) {
	ev, err := metrics.NewEvaluator(metrics.Options{Filter: GaussianFilter{Size: metrics.SSIMWindowSize, Sigma: metrics.SSIMWindowSigma}})
	require.NoError(t, err)

	a, err := images.FromPlane(30, 40, randomPlane(1, 1200))
	require.NoError(t, err)
	b, err := images.FromPlane(30, 40, randomPlane(2, 1200))
	require.NoError(t, err)

	want, err := metrics.SSIM(a, b, 0)
	require.NoError(t, err)
	got, err := ev.SSIM(a, b, 0)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-7)

	same, err := ev.SSIM(a, a, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same, 1e-7)
}

func TestGaussianFilterRejectsEvenWindow(t *testing.T) {
	_, err := GaussianFilter{Size: 10, Sigma: 1.5}.Smooth(make([]float64, 100), 10, 10)
	assert.Error(t, err)
}

func TestFromMat(t *testing.T) {
	gray := gocv.Zeros(2, 3, gocv.MatTypeCV8UC1)
	defer gray.Close()
	gray.SetUCharAt(1, 2, 200)

	a, err := FromMat(gray)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, a.Shape)
	assert.Equal(t, 200.0, a.At(1, 2, 0))

	color := gocv.Zeros(2, 2, gocv.MatTypeCV8UC3)
	defer color.Close()
	// Column 1 of row 0, channel 2 (red in BGR).
	color.SetUCharAt(0, 1*3+2, 77)

	c, err := FromMat(color)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 3}, c.Shape)
	assert.Equal(t, 77.0, c.At(0, 1, 2))

	f64, err := ToMat([]float64{1.5, 2.5, 3.5, 4.5}, 2, 2)
	require.NoError(t, err)
	defer f64.Close()
	back, err := FromMat(f64)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5, 4.5}, back.Data)
}

func TestFromMatErrors(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	_, err := FromMat(empty)
	assert.Error(t, err)

	four := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC4)
	defer four.Close()
	_, err = FromMat(four)
	assert.Error(t, err)

	_, err = ToMat([]float64{1, 2, 3}, 2, 2)
	assert.Error(t, err)
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	mat := gocv.Zeros(4, 5, gocv.MatTypeCV8UC3)
	defer mat.Close()
	mat.SetUCharAt(2, 3*3, 123)
	require.True(t, gocv.IMWrite(path, mat))

	a, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 3}, a.Shape)
	assert.Equal(t, 123.0, a.At(2, 3, 0))

	g, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, g.Shape)

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"), false)
	assert.Error(t, err)
}
