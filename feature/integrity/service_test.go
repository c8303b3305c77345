package integrity

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"regen/core/database"
	core "regen/core/rebuild"
	"regen/core/storage"
	"regen/core/storage/mocks"
	"regen/feature/integrity/checks"

	"github.com/disintegration/imaging"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// setupCollection creates a small collection and returns its request.
func setupCollection(t *testing.T) core.Request {
	t.Helper()
	root := t.TempDir()
	req := core.Request{
		MetadataDir: filepath.Join(root, "metadata"),
		LayersDir:   filepath.Join(root, "layers"),
		OutputDir:   filepath.Join(root, "output"),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(req.LayersDir, "Background"), 0o755))
	require.NoError(t, os.MkdirAll(req.MetadataDir, 0o755))
	require.NoError(t, imaging.Save(image.NewNRGBA(image.Rect(0, 0, 1, 1)),
		filepath.Join(req.LayersDir, "Background", "Blue.png")))
	require.NoError(t, os.WriteFile(filepath.Join(req.MetadataDir, "1.json"),
		[]byte(`{"attributes":[{"trait_type":"Background","value":"Blue"},{"trait_type":"Hat","value":"Cap"}]}`), 0o644))
	return req
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	return db
}

func emptyObjects() <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	close(ch)
	return ch
}

func TestService_Layers(t *testing.T) {
	svc := NewService(setupCollection(t), nil, storage.Config{}, nil, zap.NewNop())

	report, err := svc.CheckLayers()
	require.NoError(t, err)
	assert.Equal(t, "ok", report.Status)
	assert.Len(t, report.Categories, 1)
}

func TestService_Metadata(t *testing.T) {
	svc := NewService(setupCollection(t), nil, storage.Config{}, nil, zap.NewNop())

	report, err := svc.CheckMetadata()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Tokens)
	assert.Equal(t, map[string]int{"Hat": 1}, report.UnknownCategories)
}

func TestService_Output(t *testing.T) {
	req := setupCollection(t)
	svc := NewService(req, nil, storage.Config{}, nil, zap.NewNop())

	assert.False(t, svc.CheckOutput().Exists)
	require.NoError(t, os.MkdirAll(req.OutputDir, 0o755))
	assert.True(t, svc.CheckOutput().Writable)
}

func TestService_Bucket(t *testing.T) {
	mockClient := new(mocks.Client)
	svc := NewService(core.Request{}, mockClient, storage.Config{Bucket: "test-bucket", Prefix: "images"}, nil, zap.NewNop())

	t.Run("CheckBucket", func(t *testing.T) {
		mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(true, nil)
		mockClient.On("ListObjects", mock.Anything, "test-bucket", mock.Anything).Return(emptyObjects())

		missing, err := svc.CheckBucket(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, []string{"images", "images/runs"}, missing)
	})

	t.Run("FixBucket", func(t *testing.T) {
		mockClient.On("PutObject", mock.Anything, "test-bucket", mock.Anything, mock.Anything, int64(0), mock.Anything).Return(minio.UploadInfo{}, nil)
		err := svc.FixBucket(context.Background(), []string{"images"})
		assert.NoError(t, err)
	})
}

func TestService_Disabled(t *testing.T) {
	svc := NewService(core.Request{}, nil, storage.Config{}, nil, zap.NewNop())

	_, err := svc.CheckBucket(context.Background())
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.ErrorIs(t, svc.FixBucket(context.Background(), nil), ErrStorageDisabled)
	_, err = svc.CheckSchema()
	assert.ErrorIs(t, err, ErrDatabaseDisabled)
	assert.ErrorIs(t, svc.FixSchema(), ErrDatabaseDisabled)
}

func TestService_Schema(t *testing.T) {
	db := setupDB(t)
	svc := NewService(core.Request{}, nil, storage.Config{}, db, zap.NewNop())

	report, err := svc.CheckSchema()
	require.NoError(t, err)
	assert.False(t, report.Matched)

	require.NoError(t, svc.FixSchema())

	report, err = svc.CheckSchema()
	require.NoError(t, err)
	assert.True(t, report.Matched)
}

func TestService_Report(t *testing.T) {
	svc := NewService(setupCollection(t), nil, storage.Config{}, nil, zap.NewNop())

	report := svc.Report(context.Background())
	assert.IsType(t, &checks.LayerReport{}, report["layers"])
	assert.IsType(t, &checks.MetadataReport{}, report["metadata"])
	assert.IsType(t, &checks.OutputReport{}, report["output"])
	assert.Equal(t, map[string]any{"status": "skipped"}, report["bucket"])
	assert.Equal(t, map[string]any{"status": "skipped"}, report["schema"])
}

func TestService_ReportErrors(t *testing.T) {
	req := core.Request{LayersDir: filepath.Join(t.TempDir(), "nope")}
	svc := NewService(req, nil, storage.Config{}, nil, zap.NewNop())

	report := svc.Report(context.Background())
	layers, ok := report["layers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "error", layers["status"])
}
