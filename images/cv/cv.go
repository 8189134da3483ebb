// Package cv bridges gocv matrices and the metrics package.
//
// It is the OpenCV backend of iqa: images can be read with OpenCV and the SSIM
// window can be applied with cv::filter2D instead of the pure Go filter.
package cv

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-iqa/images"
)

// FromMat copies an 8-bit, 32-bit float or 64-bit float Mat with one or three
// channels into an Array. Single-channel mats become [H, W], three-channel mats
// [H, W, 3] in the mat's own channel order (BGR for IMRead).
func FromMat(mat gocv.Mat) (images.Array, error) {
	if mat.Empty() {
		return images.Array{}, errors.New("empty mat")
	}
	ch := mat.Channels()
	if ch != 1 && ch != 3 {
		return images.Array{}, errors.Errorf("unsupported channel count %d", ch)
	}

	src := mat
	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}

	var out images.Array
	if ch == 1 {
		out = images.NewArray(src.Rows(), src.Cols())
	} else {
		out = images.NewArray(src.Rows(), src.Cols(), ch)
	}

	switch src.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3:
		data, err := src.DataPtrUint8()
		if err != nil {
			return images.Array{}, errors.Wrap(err, "failed to read uint8 mat")
		}
		for i := range out.Data {
			out.Data[i] = float64(data[i])
		}
	case gocv.MatTypeCV32FC1, gocv.MatTypeCV32FC3:
		data, err := src.DataPtrFloat32()
		if err != nil {
			return images.Array{}, errors.Wrap(err, "failed to read float32 mat")
		}
		for i := range out.Data {
			out.Data[i] = float64(data[i])
		}
	case gocv.MatTypeCV64FC1, gocv.MatTypeCV64FC3:
		data, err := src.DataPtrFloat64()
		if err != nil {
			return images.Array{}, errors.Wrap(err, "failed to read float64 mat")
		}
		copy(out.Data, data)
	default:
		return images.Array{}, errors.Errorf("unsupported mat type %v", src.Type())
	}
	return out, nil
}

// ToMat copies a single plane into a new CV_64FC1 Mat. The caller closes it.
func ToMat(plane []float64, width, height int) (gocv.Mat, error) {
	if width <= 0 || height <= 0 || len(plane) != width*height {
		return gocv.NewMat(), errors.Errorf("plane of %d values does not match %dx%d", len(plane), width, height)
	}
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV64FC1)
	for y := 0; y < height; y++ {
		row := plane[y*width : (y+1)*width]
		for x, v := range row {
			mat.SetDoubleAt(y, x, v)
		}
	}
	return mat, nil
}

// Load reads an image with OpenCV. Grayscale reads a single plane, otherwise
// the image is read as 3-channel BGR.
func Load(path string, grayscale bool) (images.Array, error) {
	flags := gocv.IMReadColor
	if grayscale {
		flags = gocv.IMReadGrayScale
	}
	mat := gocv.IMRead(path, flags)
	defer mat.Close()
	if mat.Empty() {
		return images.Array{}, errors.Errorf("failed to read image %s", path)
	}
	a, err := FromMat(mat)
	return a, errors.Wrapf(err, "failed to convert %s", path)
}

// GaussianFilter smooths planes with cv::filter2D and a Gaussian window built
// from cv::getGaussianKernel, reflecting borders without repeating the edge.
type GaussianFilter struct {
	Size  int
	Sigma float64
}

// Smooth implements metrics.Filter.
func (f GaussianFilter) Smooth(src []float64, width, height int) ([]float64, error) {
	if f.Size <= 0 || f.Size%2 == 0 {
		return nil, errors.Errorf("window size must be odd and positive, got %d", f.Size)
	}
	in, err := ToMat(src, width, height)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	window := f.window()
	defer window.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Filter2D(in, &dst, gocv.MatTypeCV64F, window, image.Pt(-1, -1), 0, gocv.BorderReflect101)

	data, err := dst.DataPtrFloat64()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read filtered mat")
	}
	out := make([]float64, width*height)
	copy(out, data)
	return out, nil
}

// window returns the Size x Size outer product of the 1D Gaussian kernel.
func (f GaussianFilter) window() gocv.Mat {
	k := gocv.GetGaussianKernel(f.Size, f.Sigma)
	defer k.Close()

	coeffs := make([]float64, f.Size)
	for i := range coeffs {
		coeffs[i] = k.GetDoubleAt(i, 0)
	}
	w := gocv.NewMatWithSize(f.Size, f.Size, gocv.MatTypeCV64FC1)
	for y, ky := range coeffs {
		for x, kx := range coeffs {
			w.SetDoubleAt(y, x, ky*kx)
		}
	}
	return w
}
