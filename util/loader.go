package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-iqa/images"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number of the image file.
	Frame int
	// Format is the image format taken from the file extension.
	Format images.ImageFormat
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Files must be named "frame-<n>.<ext>" or "<n>.<ext>"; they are returned in
// frame order. Files with other extensions and subdirectories are ignored.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails or a file name carries no frame number.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", dir)
	}

	var frames []ImageFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		ext := filepath.Ext(file.Name())
		format, ok := images.FormatFromExtension(ext)
		if !ok {
			continue
		}

		imgPath := filepath.Join(dir, file.Name())
		frame, err := ParseFrameNumber(file.Name())
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(imgPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", imgPath)
		}
		frames = append(frames, ImageFile{
			Path:   imgPath,
			Data:   data,
			Frame:  frame,
			Format: format,
		})
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Frame < frames[j].Frame
	})

	return frames, nil
}

// ParseFrameNumber extracts n from "frame-<n>.<ext>" or "<n>.<ext>".
func ParseFrameNumber(name string) (int, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	frame, err := strconv.Atoi(strings.TrimPrefix(base, "frame-"))
	if err != nil {
		return 0, errors.Wrapf(err, "no frame number in %q", name)
	}
	return frame, nil
}
