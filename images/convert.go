package images

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// FromImage converts an image into a pixel array.
//
// RGB and BGR modes produce [H, W, 3] arrays; grayscale mode produces an [H, W]
// array using the BT.601 luma weights of color.GrayModel, which is what OpenCV's
// BGR2GRAY conversion uses. Alpha is dropped after un-premultiplying.
//
// Arguments:
// - img: The source image.
// - mode: The channel layout of the result.
//
// Returns:
// - The pixel array, values in [0, 255].
// - An error if the image is nil or empty.
//
// @example
// arr, err := FromImage(img, ColorModeRGB)
func FromImage(img image.Image, mode ColorMode) (Array, error) {
	if img == nil {
		return Array{}, errors.New("image is nil")
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return Array{}, errors.Errorf("image has empty bounds %v", bounds)
	}

	switch mode {
	case ColorModeGrayscale:
		out := NewArray(height, width)
		if g, ok := img.(*image.Gray); ok {
			for y := 0; y < height; y++ {
				row := g.Pix[y*g.Stride : y*g.Stride+width]
				for x, v := range row {
					out.Data[y*width+x] = float64(v)
				}
			}
			return out, nil
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
				out.Data[y*width+x] = float64(c.Y)
			}
		}
		return out, nil

	case ColorModeRGB, ColorModeBGR:
		out := NewArray(height, width, 3)
		// Index of R and B within each pixel triple.
		ri, bi := 0, 2
		if mode == ColorModeBGR {
			ri, bi = 2, 0
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				off := (y*width + x) * 3
				out.Data[off+ri] = float64(c.R)
				out.Data[off+1] = float64(c.G)
				out.Data[off+bi] = float64(c.B)
			}
		}
		return out, nil

	default:
		return Array{}, errors.Errorf("unsupported color mode %d", mode)
	}
}

// ToGray renders a 2D array, or the first channel of a 3D array, as an 8-bit
// grayscale image. Values are rounded and clamped to [0, 255].
func ToGray(a Array) *image.Gray {
	h, w := a.Height(), a.Width()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8(Clamp(a.At(y, x, 0)+0.5, 0, 255))
		}
	}
	return img
}

// Clamp restricts a value to a specified range.
//
// @example
// clamped := Clamp(300.5, 0, 255) // Returns 255
// clamped := Clamp(-10.0, 0, 255) // Returns 0
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
