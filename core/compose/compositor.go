package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	// Register the webp decoder for layer files.
	_ "golang.org/x/image/webp"
)

// ErrNoLayers is returned when there is nothing to paint. A blank canvas is
// never produced for a token.
var ErrNoLayers = errors.New("no layers to composite")

// FitMode decides how a layer whose size differs from the canvas is adapted.
// No mode crops.
type FitMode string

const (
	// FitStretch resizes the layer to exactly the canvas size.
	FitStretch FitMode = "stretch"
	// FitContain scales the layer, keeping its aspect ratio, to fit inside the canvas.
	FitContain FitMode = "fit"
	// FitCenter centers the layer unscaled; layers larger than the canvas fall back to FitContain.
	FitCenter FitMode = "center"
)

// ParseFitMode validates a fit mode string. Empty means FitStretch.
func ParseFitMode(s string) (FitMode, error) {
	switch FitMode(s) {
	case "":
		return FitStretch, nil
	case FitStretch, FitContain, FitCenter:
		return FitMode(s), nil
	default:
		return "", fmt.Errorf("invalid fit mode %q (use 'stretch', 'fit' or 'center')", s)
	}
}

// Options configures a Compositor.
type Options struct {
	// Width and Height are the canvas size. Zero means the size of the first layer.
	Width  int
	Height int
	// Fit is the policy for layers whose size differs from the canvas.
	Fit FitMode
	// Background is an optional "#rrggbb" fill. Empty means transparent.
	Background string
}

// Layer is one image to paint, bottom to top.
type Layer struct {
	Category string
	Path     string
}

// LayerDecodeError reports a layer file that could not be decoded.
type LayerDecodeError struct {
	Category string
	Path     string
	Err      error
}

func (e *LayerDecodeError) Error() string {
	return fmt.Sprintf("failed to decode layer %s (%s): %v", e.Path, e.Category, e.Err)
}

func (e *LayerDecodeError) Unwrap() error {
	return e.Err
}

// Compositor stacks layer images onto a canvas with alpha blending.
// It holds no mutable state and is safe for concurrent use.
type Compositor struct {
	width      int
	height     int
	fit        FitMode
	background color.Color
}

// New validates opts and returns a Compositor.
func New(opts Options) (*Compositor, error) {
	if opts.Width < 0 || opts.Height < 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", opts.Width, opts.Height)
	}
	if (opts.Width == 0) != (opts.Height == 0) {
		return nil, fmt.Errorf("canvas width and height must both be set or both be zero")
	}
	fit, err := ParseFitMode(string(opts.Fit))
	if err != nil {
		return nil, err
	}

	c := &Compositor{width: opts.Width, height: opts.Height, fit: fit}
	if opts.Background != "" {
		bg, err := colorful.Hex(opts.Background)
		if err != nil {
			return nil, fmt.Errorf("invalid background colour %q: %w", opts.Background, err)
		}
		r, g, b := bg.RGB255()
		c.background = color.NRGBA{R: r, G: g, B: b, A: 0xff}
	}
	return c, nil
}

// Composite decodes each layer and paints it over the previous ones.
// The first decode failure aborts the composite with a *LayerDecodeError.
func (c *Compositor) Composite(layers []Layer) (*image.RGBA, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}

	var canvas *image.RGBA
	for _, l := range layers {
		img, err := imaging.Open(l.Path)
		if err != nil {
			return nil, &LayerDecodeError{Category: l.Category, Path: l.Path, Err: err}
		}

		if canvas == nil {
			w, h := c.width, c.height
			if w == 0 {
				w, h = img.Bounds().Dx(), img.Bounds().Dy()
			}
			canvas = c.newCanvas(w, h)
		}

		c.paint(canvas, img)
	}
	return canvas, nil
}

func (c *Compositor) newCanvas(w, h int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	if c.background != nil {
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)
	}
	return canvas
}

func (c *Compositor) paint(canvas *image.RGBA, img image.Image) {
	cb := canvas.Bounds()
	img = c.adapt(img, cb.Dx(), cb.Dy())

	ib := img.Bounds()
	x := (cb.Dx() - ib.Dx()) / 2
	y := (cb.Dy() - ib.Dy()) / 2
	dst := image.Rect(x, y, x+ib.Dx(), y+ib.Dy())
	draw.Draw(canvas, dst, img, ib.Min, draw.Over)
}

// adapt returns img sized for a w×h canvas according to the fit policy.
func (c *Compositor) adapt(img image.Image, w, h int) image.Image {
	iw, ih := img.Bounds().Dx(), img.Bounds().Dy()
	if iw == w && ih == h {
		return img
	}

	switch c.fit {
	case FitCenter:
		if iw <= w && ih <= h {
			return img
		}
		return contain(img, w, h)
	case FitContain:
		return contain(img, w, h)
	default:
		return imaging.Resize(img, w, h, imaging.Lanczos)
	}
}

// contain scales img up or down to the largest size that fits in w×h.
func contain(img image.Image, w, h int) image.Image {
	iw, ih := img.Bounds().Dx(), img.Bounds().Dy()
	if iw == 0 || ih == 0 {
		return img
	}
	scale := min(float64(w)/float64(iw), float64(h)/float64(ih))
	dw := max(1, int(float64(iw)*scale+0.5))
	dh := max(1, int(float64(ih)*scale+0.5))
	return imaging.Resize(img, min(dw, w), min(dh, h), imaging.Lanczos)
}

// Size returns the configured canvas size (zero when derived from layers).
func (c *Compositor) Size() (int, int) {
	return c.width, c.height
}
