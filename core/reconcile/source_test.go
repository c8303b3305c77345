package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"regen/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestMetadataSource_UsesRecordID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"id": 7, "attributes": [{"trait_type": "Hat", "value": "Red"}]}`)
	writeFile(t, dir, "b.json", `not json`)
	writeFile(t, dir, ".hidden.json", `{}`)

	src := &MetadataSource{Dir: dir}
	index, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, index, 2)
	assert.Equal(t, filepath.Join(dir, "a.json"), index["7"].Path)
	// Unparseable records fall back to the file stem.
	assert.Contains(t, index, "b")
}

func TestMetadataSource_MissingDir(t *testing.T) {
	src := &MetadataSource{Dir: filepath.Join(t.TempDir(), "nope")}
	_, err := src.Load(context.Background())
	assert.Error(t, err)
}

func TestDirSource_FiltersExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1.png", "xx")
	writeFile(t, dir, "2.PNG", "xxx")
	writeFile(t, dir, "_summary.json", "{}")
	writeFile(t, dir, ".3.png", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "4.png"), 0o755))

	src := &DirSource{Dir: dir, Extension: ".png"}
	index, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, index, 2)
	assert.Equal(t, int64(2), index["1"].Size)
	assert.Equal(t, int64(3), index["2"].Size)
}

func TestDirSource_MissingDirIsEmpty(t *testing.T) {
	src := &DirSource{Dir: filepath.Join(t.TempDir(), "out"), Extension: ".png"}
	index, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, index)
}

func objects(infos ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(infos))
	for _, info := range infos {
		ch <- info
	}
	close(ch)
	return ch
}

func TestBucketSource_Load(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "bucket", minio.ListObjectsOptions{Prefix: "images/"}).
		Return(objects(
			minio.ObjectInfo{Key: "images/1.png", Size: 10},
			minio.ObjectInfo{Key: "images/runs/"},
			minio.ObjectInfo{Key: "images/notes.txt"},
		))

	src := &BucketSource{Client: client, Bucket: "bucket", Prefix: "images", Extension: ".png"}
	index, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, index, 1)
	assert.Equal(t, "images/1.png", index["1"].Path)
	assert.Equal(t, int64(10), index["1"].Size)
	client.AssertExpectations(t)
}

func TestBucketSource_ListError(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "bucket", mock.Anything).
		Return(objects(minio.ObjectInfo{Err: errors.New("access denied")}))

	src := &BucketSource{Client: client, Bucket: "bucket", Extension: ".png"}
	_, err := src.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestExtractKey(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		key  string
		ok   bool
	}{
		{"12.png", ".png", "12", true},
		{"12.PNG", ".png", "12", true},
		{"12.jpg", ".png", "", false},
		{".png", ".png", "", false},
		{"dir/", ".png", "", false},
	}
	for _, tt := range tests {
		key, ok := ExtractKey(tt.name, tt.ext)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.key, key, tt.name)
	}
}
