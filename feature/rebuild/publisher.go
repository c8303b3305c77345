package rebuild

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"regen/core/storage"

	"github.com/minio/minio-go/v7"
)

// BucketPublisher uploads rebuilt images and run summaries to object storage.
//
// Images go to "<prefix>/<file>" and summaries to "<prefix>/runs/<run id>.json".
type BucketPublisher struct {
	client storage.Client
	bucket string
	prefix string
}

// NewBucketPublisher creates a publisher for the bucket.
func NewBucketPublisher(client storage.Client, bucket, prefix string) *BucketPublisher {
	return &BucketPublisher{client: client, bucket: bucket, prefix: prefix}
}

// PublishImage uploads one rebuilt image.
func (p *BucketPublisher) PublishImage(ctx context.Context, tokenID, path string) error {
	return p.upload(ctx, storage.ObjectKey(p.prefix, filepath.Base(path)), path)
}

// PublishSummary uploads a run summary.
func (p *BucketPublisher) PublishSummary(ctx context.Context, runID, path string) error {
	return p.upload(ctx, storage.ObjectKey(p.prefix, "runs/"+runID+".json"), path)
}

func (p *BucketPublisher) upload(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = p.client.PutObject(ctx, p.bucket, key, f, info.Size(), minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
