package rebuild

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	core "regen/core/rebuild"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t      *testing.T
	meta   string
	layers string
	out    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		t:      t,
		meta:   filepath.Join(root, "metadata"),
		layers: filepath.Join(root, "layers"),
		out:    filepath.Join(root, "output"),
	}
	require.NoError(t, os.MkdirAll(f.meta, 0o755))
	f.layer("Background", "Blue.png", color.NRGBA{B: 255, A: 255})
	f.layer("Hat", "Red_Cap.png", color.NRGBA{R: 255, A: 255})
	return f
}

func (f *fixture) layer(category, name string, c color.NRGBA) {
	f.t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	dir := filepath.Join(f.layers, category)
	require.NoError(f.t, os.MkdirAll(dir, 0o755))
	require.NoError(f.t, imaging.Save(img, filepath.Join(dir, name)))
}

func (f *fixture) token(name string, traits ...string) string {
	f.t.Helper()
	attrs := []map[string]string{}
	for i := 0; i+1 < len(traits); i += 2 {
		attrs = append(attrs, map[string]string{"trait_type": traits[i], "value": traits[i+1]})
	}
	data, err := json.Marshal(map[string]any{"attributes": attrs})
	require.NoError(f.t, err)
	path := filepath.Join(f.meta, name)
	require.NoError(f.t, os.WriteFile(path, data, 0o644))
	return path
}

func (f *fixture) request() core.Request {
	return core.Request{
		MetadataDir: f.meta,
		LayersDir:   f.layers,
		OutputDir:   f.out,
		Width:       2,
		Height:      2,
		Workers:     1,
		SummaryFile: "_summary.json",
	}
}

func waitRun(t *testing.T, svc *Service) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, err := svc.Wait(ctx)
	require.NoError(t, err)
	return snap
}
