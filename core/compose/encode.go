package compose

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Format is an output image format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ParseFormat validates an output format. Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use 'png' or 'jpeg')", s)
	}
}

// Extension returns the file extension, with leading dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// Encode writes img in the given format. JPEG has no alpha channel, so the
// image is flattened onto white first.
func Encode(w io.Writer, img image.Image, format Format) error {
	if format == FormatJPEG {
		flat := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
		flat = imaging.Overlay(flat, img, image.Point{}, 1.0)
		return imaging.Encode(w, flat, imaging.JPEG, imaging.JPEGQuality(95))
	}
	return imaging.Encode(w, img, imaging.PNG)
}

// WriteFile encodes img to path atomically: the image is written to a
// temporary file in the same directory and renamed into place, so a failed
// write never leaves a truncated image behind.
func WriteFile(path string, img image.Image, format Format) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".regen-*"+format.Extension())
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := Encode(tmp, img, format); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
