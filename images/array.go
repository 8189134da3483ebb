package images

import (
	"fmt"

	"github.com/pkg/errors"
)

// Layout is the shape class of an Array, resolved once from its dimensionality.
type Layout int

const (
	// LayoutInvalid is any shape that is neither 2D nor 3D, or has an empty axis.
	LayoutInvalid Layout = iota
	// LayoutGrayscale2D is an [H, W] array.
	LayoutGrayscale2D
	// LayoutMultiChannel3D is an [H, W, C] array.
	LayoutMultiChannel3D
)

// String returns the name of the layout.
func (l Layout) String() string {
	switch l {
	case LayoutGrayscale2D:
		return "grayscale-2d"
	case LayoutMultiChannel3D:
		return "multichannel-3d"
	default:
		return "invalid"
	}
}

// Array is a dense row-major float64 pixel array.
//
// The axis order is [H, W] for grayscale and [H, W, C] for channel-last images.
// Pixel values are expected in [0, 255] but are not clamped.
type Array struct {
	// Shape is [H, W] or [H, W, C].
	Shape []int `json:"shape" yaml:"shape"`
	// Data holds the product of Shape values, row-major.
	Data []float64 `json:"data" yaml:"data"`
}

// NewArray allocates a zeroed array of the given shape.
//
// Arguments:
// - shape: The dimensions, [H, W] or [H, W, C].
//
// Returns:
// - A zero-filled Array.
//
// @example
// rgb := NewArray(480, 640, 3)
func NewArray(shape ...int) Array {
	n := 1
	for _, d := range shape {
		if d < 0 {
			d = 0
		}
		n *= d
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return Array{Shape: s, Data: make([]float64, n)}
}

// FromPlane wraps a single channel plane as an [H, W] array. The data is not copied.
func FromPlane(height, width int, data []float64) (Array, error) {
	if height*width != len(data) {
		return Array{}, errors.Errorf("plane data has %d values, want %dx%d", len(data), height, width)
	}
	return Array{Shape: []int{height, width}, Data: data}, nil
}

// Filled returns an array of the given shape with every value set to v.
func Filled(v float64, shape ...int) Array {
	a := NewArray(shape...)
	for i := range a.Data {
		a.Data[i] = v
	}
	return a
}

// Dims returns the number of axes.
func (a Array) Dims() int { return len(a.Shape) }

// Height returns the size of the first axis.
func (a Array) Height() int {
	if len(a.Shape) < 1 {
		return 0
	}
	return a.Shape[0]
}

// Width returns the size of the second axis.
func (a Array) Width() int {
	if len(a.Shape) < 2 {
		return 0
	}
	return a.Shape[1]
}

// Channels returns the size of the channel axis, 1 for 2D arrays.
func (a Array) Channels() int {
	if len(a.Shape) < 3 {
		return 1
	}
	return a.Shape[2]
}

// Layout classifies the array as grayscale 2D, multi-channel 3D or invalid.
func (a Array) Layout() Layout {
	for _, d := range a.Shape {
		if d <= 0 {
			return LayoutInvalid
		}
	}
	switch len(a.Shape) {
	case 2:
		return LayoutGrayscale2D
	case 3:
		return LayoutMultiChannel3D
	default:
		return LayoutInvalid
	}
}

// SameShape reports whether a and o have identical shapes.
func (a Array) SameShape(o Array) bool {
	if len(a.Shape) != len(o.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// At returns the value at row y, column x and channel c. c is ignored for 2D arrays.
func (a Array) At(y, x, c int) float64 {
	ch := a.Channels()
	if a.Dims() == 2 {
		c = 0
	}
	return a.Data[(y*a.Width()+x)*ch+c]
}

// Set stores v at row y, column x and channel c.
func (a Array) Set(y, x, c int, v float64) {
	ch := a.Channels()
	if a.Dims() == 2 {
		c = 0
	}
	a.Data[(y*a.Width()+x)*ch+c] = v
}

// Plane returns a copy of channel c as an H*W row-major slice.
func (a Array) Plane(c int) []float64 {
	h, w, ch := a.Height(), a.Width(), a.Channels()
	out := make([]float64, h*w)
	if a.Dims() == 2 {
		copy(out, a.Data)
		return out
	}
	for i := 0; i < h*w; i++ {
		out[i] = a.Data[i*ch+c]
	}
	return out
}

// Squeeze drops a trailing channel axis of size 1.
func (a Array) Squeeze() Array {
	if a.Dims() == 3 && a.Shape[2] == 1 {
		return Array{Shape: []int{a.Shape[0], a.Shape[1]}, Data: a.Data}
	}
	return a
}

// Region copies rows [top, bottom) and columns [left, right) into a new array.
// The channel axis, if any, is kept whole.
func (a Array) Region(top, bottom, left, right int) Array {
	ch := a.Channels()
	h, w := bottom-top, right-left
	if h < 0 {
		h = 0
	}
	if w < 0 {
		w = 0
	}
	shape := []int{h, w}
	if a.Dims() == 3 {
		shape = append(shape, ch)
	}
	out := NewArray(shape...)
	rowLen := w * ch
	for y := 0; y < h; y++ {
		src := ((top+y)*a.Width() + left) * ch
		copy(out.Data[y*rowLen:(y+1)*rowLen], a.Data[src:src+rowLen])
	}
	return out
}

// String describes the array shape.
func (a Array) String() string {
	return fmt.Sprintf("Array%v", a.Shape)
}
