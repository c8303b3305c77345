package integrity

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	core "regen/core/rebuild"
	"regen/core/storage"
	"regen/core/storage/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T) (*fiber.App, *mocks.Client) {
	app := fiber.New()
	mockClient := new(mocks.Client)
	svc := NewService(setupCollection(t), mockClient, storage.Config{Bucket: "test-bucket", Prefix: "images"}, setupDB(t), zap.NewNop())
	NewHandler(svc).RegisterRoutes(app)
	return app, mockClient
}

func getJSON(t *testing.T, app *fiber.App, url string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", url, nil), -1)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleIntegrityCheck(t *testing.T) {
	app, mockClient := setupTestApp(t)
	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(true, nil)
	mockClient.On("ListObjects", mock.Anything, "test-bucket", mock.Anything).Return(emptyObjects())

	status, body := getJSON(t, app, "/integrity")
	assert.Equal(t, 200, status)
	for _, key := range []string{"layers", "metadata", "output", "bucket", "schema"} {
		assert.Contains(t, body, key)
	}
}

func TestHandleLayersCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := getJSON(t, app, "/integrity/layers")
	assert.Equal(t, 200, status)
	assert.Equal(t, "ok", body["status"])
}

func TestHandleMetadataCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := getJSON(t, app, "/integrity/metadata")
	assert.Equal(t, 200, status)
	assert.Equal(t, "warning", body["status"])
	assert.Equal(t, map[string]any{"Hat": float64(1)}, body["unknown_categories"])
}

func TestHandleOutputCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := getJSON(t, app, "/integrity/output")
	assert.Equal(t, 200, status)
	assert.Equal(t, false, body["exists"])
}

func TestHandleBucketCheck(t *testing.T) {
	t.Run("Checked", func(t *testing.T) {
		app, mockClient := setupTestApp(t)
		mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(true, nil)
		mockClient.On("ListObjects", mock.Anything, "test-bucket", mock.Anything).Return(emptyObjects())

		status, body := getJSON(t, app, "/integrity/bucket")
		assert.Equal(t, 200, status)
		assert.Equal(t, "checked", body["status"])
		assert.NotEmpty(t, body["missing"])
	})

	t.Run("Fix Missing Bucket", func(t *testing.T) {
		app, mockClient := setupTestApp(t)
		mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(false, nil)
		mockClient.On("MakeBucket", mock.Anything, "test-bucket", mock.Anything).Return(nil)
		mockClient.On("PutObject", mock.Anything, "test-bucket", mock.Anything, mock.Anything, int64(0), mock.Anything).Return(minio.UploadInfo{}, nil)

		status, body := getJSON(t, app, "/integrity/bucket?fix=true")
		assert.Equal(t, 200, status)
		assert.Equal(t, "fixed", body["status"])
		mockClient.AssertNumberOfCalls(t, "PutObject", 2)
	})

	t.Run("Error", func(t *testing.T) {
		app, mockClient := setupTestApp(t)
		mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(false, errors.New("connection refused"))

		status, _ := getJSON(t, app, "/integrity/bucket")
		assert.Equal(t, 500, status)
	})

	t.Run("Disabled", func(t *testing.T) {
		app := fiber.New()
		NewHandler(NewService(core.Request{}, nil, storage.Config{}, nil, zap.NewNop())).RegisterRoutes(app)

		status, _ := getJSON(t, app, "/integrity/bucket")
		assert.Equal(t, 503, status)
	})
}

func TestHandleSchemaCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := getJSON(t, app, "/integrity/schema")
	assert.Equal(t, 200, status)
	assert.Equal(t, false, body["matched"])

	status, body = getJSON(t, app, "/integrity/schema?fix=true")
	assert.Equal(t, 200, status)
	assert.Equal(t, "fixed", body["status"])

	status, body = getJSON(t, app, "/integrity/schema")
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["matched"])
}
