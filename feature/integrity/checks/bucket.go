package checks

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"regen/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// RequiredFolders lists the folders, relative to the publish prefix, that
// must exist in the bucket.
var RequiredFolders = []string{"", "runs"}

// CheckBucket returns the publish folders missing from the bucket.
func CheckBucket(ctx context.Context, client storage.Client, bucket, prefix string) ([]string, error) {
	var missing []string

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	for _, folder := range RequiredFolderKeys(prefix) {
		folderPath := folder + "/"

		opts := minio.ListObjectsOptions{
			Prefix:    folderPath,
			Recursive: false,
			MaxKeys:   1,
		}

		found := false
		for obj := range client.ListObjects(ctx, bucket, opts) {
			found = obj.Err == nil
			break
		}

		if !found {
			missing = append(missing, folder)
		}
	}

	return missing, nil
}

// FixBucket creates the bucket if needed and a placeholder for each missing folder.
func FixBucket(ctx context.Context, client storage.Client, bucket, region string, logger *zap.Logger, missing []string) error {
	if err := storage.EnsureBucket(ctx, client, bucket, region); err != nil {
		return err
	}
	for _, folder := range missing {
		folderPath := folder + "/"

		_, err := client.PutObject(ctx, bucket, folderPath, bytes.NewReader([]byte{}), 0, minio.PutObjectOptions{})
		if err != nil {
			logger.Error("Failed to create folder", zap.String("folder", folder), zap.Error(err))
			return err
		}
		logger.Info("Created missing folder", zap.String("folder", folder))
	}
	return nil
}

// RequiredFolderKeys returns the RequiredFolders under prefix, without
// trailing slashes.
func RequiredFolderKeys(prefix string) []string {
	var keys []string
	for _, folder := range RequiredFolders {
		if key := strings.Trim(storage.ObjectKey(prefix, folder), "/"); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
