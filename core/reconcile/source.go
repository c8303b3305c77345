package reconcile

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"regen/core/metadata"
	"regen/core/storage"

	"github.com/minio/minio-go/v7"
)

// Source loads one side of a reconciliation.
type Source interface {
	// Name identifies the source and its location, e.g. "output:/data/out".
	Name() string

	// Load returns every token the source holds, keyed by token id.
	Load(ctx context.Context) (map[string]Entry, error)
}

// MetadataSource lists the tokens declared by a metadata directory. Each
// record is parsed so the key matches the image name the driver writes.
type MetadataSource struct {
	Dir     string
	Options metadata.Options
}

func (s *MetadataSource) Name() string {
	return "metadata:" + s.Dir
}

func (s *MetadataSource) Load(ctx context.Context) (map[string]Entry, error) {
	files, err := metadata.Discover(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	index := make(map[string]Entry, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := metadata.Stem(file)
		if tok, err := metadata.Load(file, s.Options); err == nil {
			key = tok.ID
		}
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		index[key] = Entry{Key: key, Path: file, ModTime: info.ModTime()}
	}
	return index, nil
}

// DirSource lists the images in a local directory.
type DirSource struct {
	Dir       string
	Extension string
}

func (s *DirSource) Name() string {
	return "output:" + s.Dir + "|" + s.Extension
}

func (s *DirSource) Load(ctx context.Context) (map[string]Entry, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list output: %w", err)
	}
	index := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		key, ok := ExtractKey(e.Name(), s.Extension)
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		index[key] = Entry{Key: key, Path: filepath.Join(s.Dir, e.Name()), Size: info.Size(), ModTime: info.ModTime()}
	}
	return index, nil
}

// BucketSource lists the images published under a bucket prefix.
type BucketSource struct {
	Client    storage.Client
	Bucket    string
	Prefix    string
	Extension string
}

func (s *BucketSource) Name() string {
	return "bucket:" + s.Bucket + "/" + s.Prefix + "|" + s.Extension
}

func (s *BucketSource) Load(ctx context.Context) (map[string]Entry, error) {
	prefix := storage.ObjectKey(s.Prefix, "")
	index := make(map[string]Entry)
	for obj := range s.Client.ListObjects(ctx, s.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: false}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list bucket: %w", obj.Err)
		}
		key, ok := ExtractKey(path.Base(obj.Key), s.Extension)
		if !ok {
			continue
		}
		index[key] = Entry{Key: key, Path: obj.Key, Size: obj.Size, ModTime: obj.LastModified}
	}
	return index, nil
}

// ExtractKey returns the token id of an image file name, or false when the
// name does not carry the extension.
func ExtractKey(name, extension string) (string, bool) {
	if strings.HasSuffix(name, "/") {
		return "", false
	}
	if !strings.EqualFold(filepath.Ext(name), extension) {
		return "", false
	}
	key := strings.TrimSuffix(name, filepath.Ext(name))
	return key, key != ""
}
