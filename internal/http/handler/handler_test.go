package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dropapi/internal/ingest"
	"dropapi/internal/model"
	"dropapi/internal/service"
	serviceMocks "dropapi/internal/service/mocks"
)

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestUploadFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockDropService)
	app := fiber.New()
	app.Post("/drop", UploadFile(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		expected := &model.UploadResult{
			ID:       id,
			ShortURL: "http://localhost:3000/drop/a1b2c3d4",
			FullURL:  "http://localhost:3000/drop/" + id,
		}
		mockSvc.On("Upload", mock.Anything, mock.Anything, "test.pdf", mock.Anything, mock.Anything).
			Return(expected, nil).Once()

		body, ct := multipartBody(t, "file", "test.pdf", []byte("pdf bytes"))
		req := httptest.NewRequest(http.MethodPost, "/drop", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result model.UploadResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
		assert.Equal(t, expected.ShortURL, result.ShortURL)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing file field", func(t *testing.T) {
		body, ct := multipartBody(t, "document", "test.pdf", []byte("pdf bytes"))
		req := httptest.NewRequest(http.MethodPost, "/drop", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "FILE_REQUIRED", payload.Error.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything, "test.pdf", mock.Anything, mock.Anything).
			Return(nil, service.ErrRateLimited).Once()

		body, ct := multipartBody(t, "file", "test.pdf", []byte("pdf bytes"))
		req := httptest.NewRequest(http.MethodPost, "/drop", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "RATE_LIMITED", payload.Error.Code)
	})

	t.Run("file too large", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything, "huge.bin", mock.Anything, mock.Anything).
			Return(nil, ingest.ErrFileTooLarge).Once()

		body, ct := multipartBody(t, "file", "huge.bin", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/drop", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "PAYLOAD_TOO_LARGE", payload.Error.Code)
	})

	t.Run("internal error", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.Anything, "test.pdf", mock.Anything, mock.Anything).
			Return(nil, errors.New("boom")).Once()

		body, ct := multipartBody(t, "file", "test.pdf", []byte("pdf bytes"))
		req := httptest.NewRequest(http.MethodPost, "/drop", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestDownloadFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockDropService)
	app := fiber.New()
	app.Get("/drop/:id", DownloadFile(mockSvc))

	t.Run("success", func(t *testing.T) {
		payload := []byte("file contents")
		rec := &model.FileRecord{
			ID:          uuid.New().String(),
			Filename:    "report.pdf",
			ContentType: "application/pdf",
			Size:        int64(len(payload)),
			InMemory:    true,
		}
		mockSvc.On("Download", mock.Anything, rec.ID).
			Return(rec, io.NopCloser(bytes.NewReader(payload)), nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/drop/"+rec.ID, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Equal(t, `attachment; filename="report.pdf"`, resp.Header.Get("Content-Disposition"))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, body)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Download", mock.Anything, "missing0").
			Return(nil, nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/drop/missing0", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "NOT_FOUND", payload.Error.Code)
	})

	t.Run("internal error", func(t *testing.T) {
		mockSvc.On("Download", mock.Anything, "brokenid").
			Return(nil, nil, errors.New("open payload: permission denied")).Once()

		req := httptest.NewRequest(http.MethodGet, "/drop/brokenid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestHealthCheck(t *testing.T) {
	mockSvc := new(serviceMocks.MockDropService)
	app := fiber.New()
	app.Get("/health", HealthCheck(mockSvc))

	mockSvc.On("Health", mock.Anything).Return(&model.HealthStatus{
		Status:     "healthy",
		Database:   "healthy",
		MemoryPool: "12 MB / 1024 MB",
	}).Once()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body model.HealthStatus
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "12 MB / 1024 MB", body.MemoryPool)
	mockSvc.AssertExpectations(t)
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
