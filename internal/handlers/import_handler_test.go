package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"marketplace-service/internal/importer"
	"marketplace-service/internal/models"
)

type stubObjectStore struct {
	uploads map[string][]byte
}

func (s *stubObjectStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if s.uploads == nil {
		s.uploads = make(map[string][]byte)
	}
	s.uploads[path] = data
	return nil
}

func (s *stubObjectStore) PublicURL(path string) (string, error) {
	return "https://cdn.example.com/" + path, nil
}

func (s *stubObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

type stubProductStore struct {
	saved []*models.Product
}

func (s *stubProductStore) UpsertBySlug(ctx context.Context, product *models.Product) error {
	s.saved = append(s.saved, product)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newImportTestRouter(maxBytes int64) (*gin.Engine, *stubProductStore) {
	gin.SetMode(gin.TestMode)

	store := &stubObjectStore{}
	products := &stubProductStore{}
	imp := importer.NewImporter(store, products, quietLogger(), "USD")
	handler := NewImportHandler(imp, quietLogger(), maxBytes)

	r := gin.New()
	r.POST("/api/v1/products/import/archive", handler.ImportArchive)
	return r, products
}

func multipartZip(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(ArchiveFileField, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func zipWithFiles(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestImportArchive_NoFile(t *testing.T) {
	router, _ := newImportTestRouter(8 << 20)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import/archive", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "FILE_REQUIRED", decodeError(t, w).Error.Code)
}

func TestImportArchive_WrongFileType(t *testing.T) {
	router, _ := newImportTestRouter(8 << 20)

	body, contentType := multipartZip(t, "products.tar.gz", []byte("whatever"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import/archive", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, importer.CodeInvalidFileType, decodeError(t, w).Error.Code)
}

func TestImportArchive_TooLarge(t *testing.T) {
	router, _ := newImportTestRouter(16)

	body, contentType := multipartZip(t, "products.zip", bytes.Repeat([]byte("a"), 64))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import/archive", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, importer.CodeArchiveTooLarge, decodeError(t, w).Error.Code)
}

func TestImportArchive_ZipContentTypeWithoutExtension(t *testing.T) {
	router, products := newImportTestRouter(8 << 20)

	manifest := `{
		"slug": "desk-lamp",
		"title": "Desk Lamp",
		"description": "Warm light",
		"price": 39.99,
		"images": ["lamp.jpg"],
		"condition": "new",
		"category": "home",
		"brand": "Lumen",
		"checkoutLink": "https://pay.example.com/desk-lamp"
	}`
	archive := zipWithFiles(t, map[string]string{
		"desk-lamp/product.json": manifest,
		"desk-lamp/lamp.jpg":     "jpeg-bytes",
	})

	// Filename carries no .zip extension; the declared content type decides
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+ArchiveFileField+`"; filename="upload.bin"`)
	header.Set("Content-Type", "application/zip")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(archive)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import/archive", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, products.saved, 1)
	assert.Equal(t, "desk-lamp", products.saved[0].Slug)
}

func TestImportArchive_EmptyUpload(t *testing.T) {
	router, _ := newImportTestRouter(8 << 20)

	body, contentType := multipartZip(t, "products.zip", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import/archive", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, importer.CodeEmptyArchive, decodeError(t, w).Error.Code)
}

func TestImportArchive_NotAZip(t *testing.T) {
	router, _ := newImportTestRouter(8 << 20)

	body, contentType := multipartZip(t, "products.zip", []byte("not actually zipped"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import/archive", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, importer.CodeInvalidArchive, decodeError(t, w).Error.Code)
}

func TestImportArchive_Success(t *testing.T) {
	router, products := newImportTestRouter(8 << 20)

	manifest := `{
		"slug": "desk-lamp",
		"title": "Desk Lamp",
		"description": "Warm light",
		"price": 39.99,
		"images": ["lamp.jpg"],
		"condition": "new",
		"category": "home",
		"brand": "Lumen",
		"checkoutLink": "https://pay.example.com/desk-lamp"
	}`
	archive := zipWithFiles(t, map[string]string{
		"desk-lamp/product.json": manifest,
		"desk-lamp/lamp.jpg":     "jpeg-bytes",
	})

	body, contentType := multipartZip(t, "products.zip", archive)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import/archive", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Successful)
	require.Len(t, products.saved, 1)
	assert.Equal(t, "desk-lamp", products.saved[0].Slug)
}

func TestImportArchive_PartialFailureStillOK(t *testing.T) {
	router, _ := newImportTestRouter(8 << 20)

	manifest := `{
		"slug": "desk-lamp",
		"title": "Desk Lamp",
		"description": "Warm light",
		"price": 39.99,
		"images": ["lamp.jpg"],
		"condition": "new",
		"category": "home",
		"brand": "Lumen",
		"checkoutLink": "https://pay.example.com/desk-lamp"
	}`
	archive := zipWithFiles(t, map[string]string{
		"desk-lamp/product.json": manifest,
		"desk-lamp/lamp.jpg":     "jpeg-bytes",
		"broken/product.json":    `{"title": "no slug"}`,
	})

	body, contentType := multipartZip(t, "products.zip", archive)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import/archive", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Per-product failures never turn the call into a non-200
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Successful)
	assert.Equal(t, 1, resp.Summary.Failed)
}
