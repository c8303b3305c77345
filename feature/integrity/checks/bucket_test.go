package checks

import (
	"context"
	"errors"
	"testing"

	"regen/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func objects(keys ...string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		ch <- minio.ObjectInfo{Key: k}
	}
	close(ch)
	return ch
}

func TestCheckBucket(t *testing.T) {
	t.Run("Bucket Missing", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "collection").Return(false, nil)

		_, err := CheckBucket(context.Background(), mockClient, "collection", "images")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("Bucket Error", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "collection").Return(false, errors.New("connection refused"))

		_, err := CheckBucket(context.Background(), mockClient, "collection", "images")
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("All Missing", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "collection").Return(true, nil)
		mockClient.On("ListObjects", mock.Anything, "collection", mock.Anything).Return(objects())

		missing, err := CheckBucket(context.Background(), mockClient, "collection", "images")
		assert.NoError(t, err)
		assert.Equal(t, []string{"images", "images/runs"}, missing)
	})

	t.Run("All Present", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "collection").Return(true, nil)
		for _, prefix := range []string{"images/", "images/runs/"} {
			p := prefix
			mockClient.On("ListObjects", mock.Anything, "collection", mock.MatchedBy(func(opts minio.ListObjectsOptions) bool {
				return opts.Prefix == p
			})).Return(objects(p + "1.png"))
		}

		missing, err := CheckBucket(context.Background(), mockClient, "collection", "images")
		assert.NoError(t, err)
		assert.Empty(t, missing)
	})

	t.Run("Empty Prefix", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "collection").Return(true, nil)
		mockClient.On("ListObjects", mock.Anything, "collection", mock.Anything).Return(objects())

		missing, err := CheckBucket(context.Background(), mockClient, "collection", "")
		assert.NoError(t, err)
		assert.Equal(t, []string{"runs"}, missing)
	})
}

func TestFixBucket(t *testing.T) {
	logger := zap.NewNop()
	mockClient := new(mocks.Client)

	mockClient.On("BucketExists", mock.Anything, "collection").Return(false, nil)
	mockClient.On("MakeBucket", mock.Anything, "collection", mock.Anything).Return(nil)
	mockClient.On("PutObject", mock.Anything, "collection", "images/runs/", mock.Anything, int64(0), mock.Anything).Return(minio.UploadInfo{}, nil)

	err := FixBucket(context.Background(), mockClient, "collection", "", logger, []string{"images/runs"})
	assert.NoError(t, err)
	mockClient.AssertNumberOfCalls(t, "MakeBucket", 1)
	mockClient.AssertNumberOfCalls(t, "PutObject", 1)
}
