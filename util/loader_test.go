package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectoryImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-10.jpg", "frame-2.jpg", "cover.jpeg", "frame-1.JPG", "notes.txt", "frame-3.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frame-0.jpg"), 0o755), "directories are skipped")

	images, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, image := range images {
		names = append(names, filepath.Base(image.Path))
		assert.Equal(t, filepath.Base(image.Path), string(image.Data), "file contents are loaded")
	}
	assert.Equal(t, []string{"frame-1.JPG", "frame-2.jpg", "frame-10.jpg", "cover.jpeg"}, names, "numeric frame order, unnumbered last")
}

func TestLoadDirectoryImagesExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-3.png"), nil, 0o644))

	images, err := LoadDirectoryImageFiles(dir, ".png")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, 3, images[0].Frame)

	_, err = LoadDirectoryImageFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestFrameNumber(t *testing.T) {
	assert.Equal(t, 42, FrameNumber("frame-42.jpg"))
	assert.Equal(t, 7, FrameNumber("/tmp/7.jpeg"))
	assert.Equal(t, -1, FrameNumber("cover.jpg"))
	assert.Equal(t, -1, FrameNumber("frame--1.jpg"))
}
