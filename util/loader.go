package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FrameExtensions are the encodings the depth estimators accept.
var FrameExtensions = []string{".jpg", ".jpeg"}

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number of the image file, or -1 when the name
	// carries none.
	Frame int
}

// LoadDirectoryImageFiles reads all frame files from a directory.
//
// Files named frame-<n>.<ext> (or <n>.<ext>) are ordered by n; other
// matching files follow in name order.
//
// Arguments:
// - dir: Directory path containing image files.
// - exts: Accepted extensions; FrameExtensions when empty.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string, exts ...string) ([]ImageFile, error) {
	if len(exts) == 0 {
		exts = FrameExtensions
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() || !hasExt(file.Name(), exts) {
			continue
		}

		imgPath := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(imgPath)
		if err != nil {
			return nil, err
		}
		images = append(images, ImageFile{
			Path:  imgPath,
			Data:  data,
			Frame: FrameNumber(file.Name()),
		})
	}

	sort.SliceStable(images, func(i, j int) bool {
		a, b := images[i], images[j]
		if (a.Frame < 0) != (b.Frame < 0) {
			return a.Frame >= 0
		}
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return a.Path < b.Path
	})

	return images, nil
}

// FrameNumber extracts n from frame-<n>.<ext> or <n>.<ext>, or returns -1.
func FrameNumber(name string) int {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.TrimPrefix(base, "frame-")
	n, err := strconv.Atoi(base)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
