// Package kernels - Separable float64 filtering on single-channel planes.
package kernels

import (
	"math"
	"sync"

	"github.com/pkg/errors"
)

// EdgeMode defines how sampling behaves outside the plane bounds.
//   - Clamp: repeats edge pixels (aaa|abcdefgh|hhh).
//   - Mirror: reflects including the edge pixel (cba|abcdefgh|hgf).
//   - Wrap: tiles the plane (fgh|abcdefgh|abc).
//   - Reflect101: reflects around the edge pixel (dcb|abcdefgh|gfe). This is
//     OpenCV's BORDER_REFLECT_101 and the default border of cv::filter2D.
type EdgeMode int

const (
	EdgeClamp EdgeMode = iota
	EdgeMirror
	EdgeWrap
	EdgeReflect101
)

// String returns the name of the edge mode.
func (m EdgeMode) String() string {
	switch m {
	case EdgeClamp:
		return "clamp"
	case EdgeMirror:
		return "mirror"
	case EdgeWrap:
		return "wrap"
	case EdgeReflect101:
		return "reflect101"
	default:
		return "unknown"
	}
}

// Options configures a filter call.
type Options struct {
	Edge     EdgeMode // Edge sampling mode.
	Parallel bool     // Split rows/columns across goroutines (good for 1080p+).
}

// GaussianKernel returns a normalized 1D Gaussian kernel of the given odd size.
//
// The weights follow cv::getGaussianKernel for sigma > 0:
// w[i] = exp(-(i-(size-1)/2)^2 / (2*sigma^2)), scaled to sum to 1.
// A non-positive sigma is derived from the size the same way OpenCV does.
//
// Arguments:
// - size: Kernel length, odd and >= 1.
// - sigma: Standard deviation.
//
// Returns:
// - The kernel weights.
// - An error for an even or non-positive size.
//
// @example
// k, _ := GaussianKernel(11, 1.5)
func GaussianKernel(size int, sigma float64) ([]float64, error) {
	if size <= 0 || size%2 == 0 {
		return nil, errors.Errorf("gaussian kernel size must be odd and positive, got %d", size)
	}
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}

	kernel := make([]float64, size)
	scale := -0.5 / (sigma * sigma)
	center := float64(size-1) * 0.5

	sum := 0.0
	for i := range kernel {
		x := float64(i) - center
		kernel[i] = math.Exp(scale * x * x)
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel, nil
}

// Outer returns the row-major len(ky) x len(kx) outer product ky * kx^T.
func Outer(ky, kx []float64) []float64 {
	out := make([]float64, len(ky)*len(kx))
	for i, a := range ky {
		for j, b := range kx {
			out[i*len(kx)+j] = a * b
		}
	}
	return out
}

// Gaussian is a reusable separable Gaussian smoother.
type Gaussian struct {
	kernel []float64
	opt    Options
}

// NewGaussian builds a size x size Gaussian smoother.
//
// @example
// g, err := NewGaussian(11, 1.5, Options{Edge: EdgeReflect101})
// mu := g.Smooth(plane, width, height)
func NewGaussian(size int, sigma float64, opt Options) (*Gaussian, error) {
	k, err := GaussianKernel(size, sigma)
	if err != nil {
		return nil, err
	}
	return &Gaussian{kernel: k, opt: opt}, nil
}

// Kernel returns a copy of the 1D kernel.
func (g *Gaussian) Kernel() []float64 {
	out := make([]float64, len(g.kernel))
	copy(out, g.kernel)
	return out
}

// Smooth filters a width x height plane and returns a new plane of the same size.
func (g *Gaussian) Smooth(src []float64, width, height int) ([]float64, error) {
	return SepFilter(src, width, height, g.kernel, g.kernel, g.opt)
}

// SepFilter correlates a plane with the separable kernel kx (along rows) and
// ky (along columns), sampling outside the plane per opt.Edge.
//
// The kernel anchor is its center, so the output has the input's size. For
// symmetric kernels correlation and convolution coincide.
//
// Performance: O(W*H*(len(kx)+len(ky))), one intermediate plane.
func SepFilter(src []float64, width, height int, kx, ky []float64, opt Options) ([]float64, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid plane size %dx%d", width, height)
	}
	if len(src) != width*height {
		return nil, errors.Errorf("plane has %d values, want %dx%d", len(src), width, height)
	}
	if len(kx)%2 == 0 || len(ky)%2 == 0 {
		return nil, errors.Errorf("kernel lengths must be odd, got %d and %d", len(kx), len(ky))
	}

	tmp := make([]float64, len(src))
	dst := make([]float64, len(src))

	// Horizontal pass, row by row.
	rx := len(kx) / 2
	xIdx := borderTable(width, rx, opt.Edge)
	runChunks(height, opt.Parallel, func(y int) {
		row := src[y*width : (y+1)*width]
		out := tmp[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			var sum float64
			for k, w := range kx {
				sum += w * row[xIdx[x+k]]
			}
			out[x] = sum
		}
	})

	// Vertical pass, column by column.
	ry := len(ky) / 2
	yIdx := borderTable(height, ry, opt.Edge)
	runChunks(width, opt.Parallel, func(x int) {
		for y := 0; y < height; y++ {
			var sum float64
			for k, w := range ky {
				sum += w * tmp[yIdx[y+k]*width+x]
			}
			dst[y*width+x] = sum
		}
	})

	return dst, nil
}

// Filter2D correlates a plane with a full kw x kh kernel (row-major). It is the
// direct, non-separable form of SepFilter.
func Filter2D(src []float64, width, height int, kernel []float64, kw, kh int, edge EdgeMode) ([]float64, error) {
	if width <= 0 || height <= 0 || len(src) != width*height {
		return nil, errors.Errorf("invalid plane: %d values for %dx%d", len(src), width, height)
	}
	if kw%2 == 0 || kh%2 == 0 || len(kernel) != kw*kh {
		return nil, errors.Errorf("invalid kernel: %d values for %dx%d", len(kernel), kw, kh)
	}
	rx, ry := kw/2, kh/2
	xIdx := borderTable(width, rx, edge)
	yIdx := borderTable(height, ry, edge)

	dst := make([]float64, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for j := 0; j < kh; j++ {
				row := yIdx[y+j] * width
				for i := 0; i < kw; i++ {
					sum += kernel[j*kw+i] * src[row+xIdx[x+i]]
				}
			}
			dst[y*width+x] = sum
		}
	}
	return dst, nil
}

// borderTable precomputes source indices for positions -r..n-1+r so the hot
// loops never branch on the edge mode. Entry i maps position i-r.
func borderTable(n, r int, mode EdgeMode) []int {
	table := make([]int, n+2*r)
	for i := range table {
		table[i] = mapCoord(i-r, n, mode)
	}
	return table
}

// mapCoord maps an index i to [0, n) according to edge mode.
// For Clamp: clamp to [0, n-1].
// For Mirror: reflect indices ... -2,-1,0,1,2, ... -> 1,0,0,1,2, ...
// For Wrap: modulo wrap to [0, n).
// For Reflect101: reflect indices ... -2,-1,0,1,2, ... -> 2,1,0,1,2, ...
func mapCoord(i, n int, mode EdgeMode) int {
	switch mode {
	case EdgeMirror:
		if n == 1 {
			return 0
		}
		for i < 0 || i >= n {
			if i < 0 {
				i = -i - 1
			} else {
				i = 2*n - i - 1
			}
		}
		return i
	case EdgeWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	case EdgeReflect101:
		if n == 1 {
			return 0
		}
		for i < 0 || i >= n {
			if i < 0 {
				i = -i
			} else {
				i = 2*n - i - 2
			}
		}
		return i
	default:
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}
}

// runChunks calls task for every index in [0, n), optionally split into
// chunks processed by separate goroutines.
func runChunks(n int, parallel bool, task func(i int)) {
	if !parallel || n < 4 {
		for i := 0; i < n; i++ {
			task(i)
		}
		return
	}

	chunk := chooseChunk(n)
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				task(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// chooseChunk picks a work chunk size that balances overhead and cache locality.
func chooseChunk(n int) int {
	switch {
	case n >= 2048:
		return 128
	case n >= 512:
		return 64
	default:
		return 32
	}
}
