package images

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Load reads and decodes an image file. The format is taken from the file
// extension; unknown extensions fall back to content sniffing.
//
// Arguments:
//   - path: The image file path.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: An error if the file cannot be read or decoded.
func Load(path string) (image.Image, error) {
	if format, ok := FormatFromExtension(filepath.Ext(path)); ok && format == FormatWebP {
		// imaging.Open only knows the formats registered with image.Decode.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read image %s", path)
		}
		return Decode(data, FormatWebP)
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load image %s", path)
	}
	return img, nil
}

// Decode decodes encoded image bytes of the given format.
//
// Arguments:
//   - data: The encoded image.
//   - format: The image format. An empty format sniffs the content.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: An error if decoding fails.
func Decode(data []byte, format ImageFormat) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	r := bytes.NewReader(data)

	var (
		img image.Image
		err error
	)
	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatGIF:
		img, err = gif.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	case FormatBMP:
		img, err = bmp.Decode(r)
	case FormatTIFF:
		img, err = tiff.Decode(r)
	case "":
		img, err = imaging.Decode(r)
	default:
		return nil, errors.Errorf("unsupported image format: %s", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s image", format)
	}
	return img, nil
}

// ResizeTo resamples img to width x height with a Lanczos3 filter.
//
// Metrics never resize on their own; this exists for callers that explicitly
// want to compare images of different resolutions.
//
// Arguments:
//   - img: The source image.
//   - width: The target width in pixels.
//   - height: The target height in pixels.
//
// Returns:
//   - image.Image: The resized image, or img itself when it already matches.
//   - error: An error for non-positive dimensions.
func ResizeTo(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid dimensions: width=%d, height=%d", width, height)
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img, nil
	}
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3), nil
}
