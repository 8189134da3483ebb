// Package images - Pixel arrays and image I/O for quality metrics.
package images

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
	// FormatTIFF is the TIFF image format.
	FormatTIFF ImageFormat = "tiff"
	// FormatGIF is the GIF image format.
	FormatGIF ImageFormat = "gif"
)

// FormatFromExtension maps a file extension (with or without the dot) to a format.
func FormatFromExtension(ext string) (ImageFormat, bool) {
	if len(ext) > 0 && ext[0] == '.' {
		ext = ext[1:]
	}
	switch ext {
	case "jpg", "jpeg", "JPG", "JPEG":
		return FormatJPEG, true
	case "png", "PNG":
		return FormatPNG, true
	case "webp", "WEBP":
		return FormatWebP, true
	case "bmp", "BMP":
		return FormatBMP, true
	case "tif", "tiff", "TIF", "TIFF":
		return FormatTIFF, true
	case "gif", "GIF":
		return FormatGIF, true
	}
	return "", false
}

// ColorMode defines how an image is turned into a pixel array.
type ColorMode int

const (
	// ColorModeRGB produces an [H, W, 3] array in R, G, B order.
	ColorModeRGB ColorMode = iota
	// ColorModeBGR produces an [H, W, 3] array in B, G, R order (OpenCV order).
	ColorModeBGR
	// ColorModeGrayscale produces an [H, W] array of BT.601 luma.
	ColorModeGrayscale
)

// String returns the name of the color mode.
func (m ColorMode) String() string {
	switch m {
	case ColorModeRGB:
		return "rgb"
	case ColorModeBGR:
		return "bgr"
	case ColorModeGrayscale:
		return "grayscale"
	default:
		return "unknown"
	}
}
