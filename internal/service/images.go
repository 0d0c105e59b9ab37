package service

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxImageSize bounds uploaded images
const MaxImageSize = 32 << 20

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// Stage copies an uploaded image to a temporary file the tool can read.
// The returned cleanup removes it.
func Stage(r io.Reader, name string) (string, func(), error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !imageExtensions[ext] {
		ext = ".png"
	}

	f, err := os.CreateTemp("", "lens-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	cleanup := func() {
		os.Remove(f.Name())
	}

	n, err := io.Copy(f, io.LimitReader(r, MaxImageSize+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write image: %w", err)
	}

	if n == 0 {
		cleanup()
		return "", nil, fmt.Errorf("image is empty")
	}

	if n > MaxImageSize {
		cleanup()
		return "", nil, fmt.Errorf("image exceeds %d bytes", MaxImageSize)
	}

	return f.Name(), cleanup, nil
}

// StageBase64 decodes a base64 image and stages it
func StageBase64(data, name string) (string, func(), error) {
	// data URLs carry a media type prefix
	if i := strings.Index(data, ";base64,"); i >= 0 && strings.HasPrefix(data, "data:") {
		data = data[i+len(";base64,"):]
	}

	return Stage(base64.NewDecoder(base64.StdEncoding, strings.NewReader(data)), name)
}

// CheckImage verifies that path names a readable regular file
func CheckImage(path string) error {
	if path == "" {
		return fmt.Errorf("image path is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read image: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("image path is a directory: %s", path)
	}

	return nil
}
