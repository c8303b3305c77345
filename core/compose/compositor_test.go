package compose

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red         = color.NRGBA{R: 255, A: 255}
	yellow      = color.NRGBA{R: 255, G: 255, A: 255}
	green       = color.NRGBA{G: 255, A: 255}
	transparent = color.NRGBA{}
)

// writeLayer saves a w×h PNG whose pixels come from fill.
func writeLayer(t *testing.T, path string, w, h int, fill func(x, y int) color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill(x, y))
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, imaging.Save(img, path))
}

func solid(c color.NRGBA) func(int, int) color.NRGBA {
	return func(int, int) color.NRGBA { return c }
}

func assertPixel(t *testing.T, img image.Image, x, y int, want color.NRGBA) {
	t.Helper()
	got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	assert.InDelta(t, want.R, got.R, 2, "R at %d,%d", x, y)
	assert.InDelta(t, want.G, got.G, 2, "G at %d,%d", x, y)
	assert.InDelta(t, want.B, got.B, 2, "B at %d,%d", x, y)
	assert.InDelta(t, want.A, got.A, 2, "A at %d,%d", x, y)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"Defaults", Options{}, false},
		{"Sized", Options{Width: 1000, Height: 1000, Fit: FitContain}, false},
		{"Background", Options{Width: 8, Height: 8, Background: "#102030"}, false},
		{"Negative", Options{Width: -1, Height: 5}, true},
		{"HalfSized", Options{Width: 10}, true},
		{"BadFit", Options{Fit: "crop"}, true},
		{"BadBackground", Options{Background: "blue"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestComposite_NoLayers(t *testing.T) {
	c, err := New(Options{Width: 4, Height: 4})
	require.NoError(t, err)

	img, err := c.Composite(nil)
	assert.ErrorIs(t, err, ErrNoLayers)
	assert.Nil(t, img)
}

func TestComposite_AlphaOver(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	hat := filepath.Join(dir, "hat.png")
	writeLayer(t, bg, 4, 4, solid(red))
	writeLayer(t, hat, 4, 4, func(_, y int) color.NRGBA {
		if y < 2 {
			return yellow
		}
		return transparent
	})

	c, err := New(Options{Width: 4, Height: 4})
	require.NoError(t, err)

	img, err := c.Composite([]Layer{{Category: "bg", Path: bg}, {Category: "hat", Path: hat}})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())

	assertPixel(t, img, 0, 0, yellow)
	assertPixel(t, img, 3, 1, yellow)
	assertPixel(t, img, 0, 2, red)
	assertPixel(t, img, 3, 3, red)
}

func TestComposite_OrderMatters(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writeLayer(t, a, 2, 2, solid(red))
	writeLayer(t, b, 2, 2, solid(green))

	c, err := New(Options{})
	require.NoError(t, err)

	img, err := c.Composite([]Layer{{Path: a}, {Path: b}})
	require.NoError(t, err)
	assertPixel(t, img, 0, 0, green)

	img, err = c.Composite([]Layer{{Path: b}, {Path: a}})
	require.NoError(t, err)
	assertPixel(t, img, 0, 0, red)
}

func TestComposite_SemiTransparent(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	glass := filepath.Join(dir, "glass.png")
	writeLayer(t, bg, 2, 2, solid(red))
	writeLayer(t, glass, 2, 2, solid(color.NRGBA{B: 255, A: 128}))

	c, err := New(Options{})
	require.NoError(t, err)
	img, err := c.Composite([]Layer{{Path: bg}, {Path: glass}})
	require.NoError(t, err)

	assertPixel(t, img, 1, 1, color.NRGBA{R: 127, B: 128, A: 255})
}

func TestComposite_CanvasFromFirstLayer(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.png")
	writeLayer(t, first, 6, 3, solid(red))

	c, err := New(Options{})
	require.NoError(t, err)
	img, err := c.Composite([]Layer{{Path: first}})
	require.NoError(t, err)
	assert.Equal(t, 6, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())
}

func TestComposite_FitPolicies(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.png")
	wide := filepath.Join(dir, "wide.png")
	big := filepath.Join(dir, "big.png")
	writeLayer(t, small, 2, 2, solid(green))
	writeLayer(t, wide, 2, 1, solid(green))
	writeLayer(t, big, 8, 8, solid(green))

	t.Run("Stretch", func(t *testing.T) {
		c, err := New(Options{Width: 4, Height: 4, Fit: FitStretch})
		require.NoError(t, err)
		img, err := c.Composite([]Layer{{Path: small}})
		require.NoError(t, err)
		assertPixel(t, img, 0, 0, green)
		assertPixel(t, img, 3, 3, green)
	})

	t.Run("CenterSmall", func(t *testing.T) {
		c, err := New(Options{Width: 4, Height: 4, Fit: FitCenter})
		require.NoError(t, err)
		img, err := c.Composite([]Layer{{Path: small}})
		require.NoError(t, err)
		assertPixel(t, img, 0, 0, transparent)
		assertPixel(t, img, 1, 1, green)
		assertPixel(t, img, 2, 2, green)
		assertPixel(t, img, 3, 3, transparent)
	})

	t.Run("CenterLargeFallsBackToFit", func(t *testing.T) {
		c, err := New(Options{Width: 4, Height: 4, Fit: FitCenter})
		require.NoError(t, err)
		img, err := c.Composite([]Layer{{Path: big}})
		require.NoError(t, err)
		// Nothing cropped: the whole layer is scaled onto the canvas.
		assertPixel(t, img, 0, 0, green)
		assertPixel(t, img, 3, 3, green)
	})

	t.Run("ContainKeepsAspect", func(t *testing.T) {
		c, err := New(Options{Width: 4, Height: 4, Fit: FitContain})
		require.NoError(t, err)
		img, err := c.Composite([]Layer{{Path: wide}})
		require.NoError(t, err)
		assertPixel(t, img, 0, 0, transparent)
		assertPixel(t, img, 0, 1, green)
		assertPixel(t, img, 3, 2, green)
		assertPixel(t, img, 3, 3, transparent)
	})
}

func TestComposite_Background(t *testing.T) {
	dir := t.TempDir()
	clear := filepath.Join(dir, "clear.png")
	writeLayer(t, clear, 2, 2, solid(transparent))

	c, err := New(Options{Background: "#0000ff"})
	require.NoError(t, err)
	img, err := c.Composite([]Layer{{Path: clear}})
	require.NoError(t, err)
	assertPixel(t, img, 0, 0, color.NRGBA{B: 255, A: 255})
}

func TestComposite_DecodeError(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	corrupt := filepath.Join(dir, "corrupt.png")
	writeLayer(t, good, 2, 2, solid(red))
	require.NoError(t, os.WriteFile(corrupt, []byte("not an image"), 0o644))

	c, err := New(Options{})
	require.NoError(t, err)
	_, err = c.Composite([]Layer{{Category: "bg", Path: good}, {Category: "hat", Path: corrupt}})
	require.Error(t, err)

	var decodeErr *LayerDecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "hat", decodeErr.Category)
	assert.Equal(t, corrupt, decodeErr.Path)
}
