package importer

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"marketplace-service/internal/models"
)

type fakeObjectStore struct {
	uploads      map[string][]byte
	contentTypes map[string]string
	uploadErr    error
	urlErr       error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		uploads:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (f *fakeObjectStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads[path] = data
	f.contentTypes[path] = contentType
	return nil
}

func (f *fakeObjectStore) PublicURL(path string) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return "https://cdn.example.com/" + path, nil
}

func (f *fakeObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range f.uploads {
		keys = append(keys, k)
	}
	return keys, nil
}

type fakeProductStore struct {
	products map[string]*models.Product
	upserts  int
	err      error
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{products: make(map[string]*models.Product)}
}

func (f *fakeProductStore) UpsertBySlug(ctx context.Context, product *models.Product) error {
	f.upserts++
	if f.err != nil {
		return f.err
	}
	f.products[product.Slug] = product
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestImporter(objects *fakeObjectStore, products *fakeProductStore) *Importer {
	return NewImporter(objects, products, testLogger(), "USD")
}

func TestRun_InvalidArchive(t *testing.T) {
	imp := newTestImporter(newFakeObjectStore(), newFakeProductStore())

	_, err := imp.Run(context.Background(), []byte("definitely not a zip"))
	require.Error(t, err)

	aerr, ok := err.(*ArchiveError)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidArchive, aerr.Code)
}

func TestRun_EmptyArchive(t *testing.T) {
	imp := newTestImporter(newFakeObjectStore(), newFakeProductStore())
	data := buildZip(t, nil)

	_, err := imp.Run(context.Background(), data)
	require.Error(t, err)

	aerr, ok := err.(*ArchiveError)
	require.True(t, ok)
	assert.Equal(t, CodeEmptyArchive, aerr.Code)
}

func TestRun_NoProductsFound(t *testing.T) {
	imp := newTestImporter(newFakeObjectStore(), newFakeProductStore())
	data := buildZip(t, []zipEntry{
		{"readme.txt", "nothing to import"},
	})

	_, err := imp.Run(context.Background(), data)
	require.Error(t, err)

	aerr, ok := err.(*ArchiveError)
	require.True(t, ok)
	assert.Equal(t, CodeNoProductsFound, aerr.Code)
}

func TestRun_SingleProductSuccess(t *testing.T) {
	objects := newFakeObjectStore()
	products := newFakeProductStore()
	imp := newTestImporter(objects, products)

	data := buildZip(t, []zipEntry{
		{"vintage-watch/product.json", validManifest},
		{"vintage-watch/img1.jpg", "jpeg-bytes"},
	})

	resp, err := imp.Run(context.Background(), data)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Successful)
	assert.Equal(t, 0, resp.Summary.Failed)
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].Success)
	assert.Equal(t, "vintage-watch", resp.Results[0].ProductSlug)

	// Image uploaded under the deterministic path
	assert.Equal(t, []byte("jpeg-bytes"), objects.uploads["vintage-watch/img1.jpg"])
	assert.Equal(t, "image/jpeg", objects.contentTypes["vintage-watch/img1.jpg"])

	saved := products.products["vintage-watch"]
	require.NotNil(t, saved)
	assert.Equal(t, "vintage-watch", saved.ID, "ID defaults to the slug")
	assert.Equal(t, models.JSONArray{"https://cdn.example.com/vintage-watch/img1.jpg"}, saved.Images)
	require.NotNil(t, saved.ThumbnailURL)
	assert.Equal(t, "https://cdn.example.com/vintage-watch/img1.jpg", *saved.ThumbnailURL)
	assert.Equal(t, 149.99, saved.Price)
	assert.Equal(t, "USD", saved.Currency)
}

func TestRun_RemoteURLPassthrough(t *testing.T) {
	objects := newFakeObjectStore()
	products := newFakeProductStore()
	imp := newTestImporter(objects, products)

	manifest := `{
		"slug": "remote-only",
		"title": "Remote",
		"description": "d",
		"price": 10,
		"images": ["HTTPS://existing.example.com/pic.png"],
		"condition": "new",
		"category": "c",
		"brand": "b",
		"checkoutLink": "https://pay.example.com/remote-only"
	}`
	data := buildZip(t, []zipEntry{
		{"remote-only/product.json", manifest},
	})

	resp, err := imp.Run(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Summary.Successful)

	// Nothing uploaded; the URL is carried through verbatim, case included
	assert.Empty(t, objects.uploads)
	saved := products.products["remote-only"]
	require.NotNil(t, saved)
	assert.Equal(t, models.JSONArray{"HTTPS://existing.example.com/pic.png"}, saved.Images)
}

func TestRun_FailureIsolation(t *testing.T) {
	objects := newFakeObjectStore()
	products := newFakeProductStore()
	imp := newTestImporter(objects, products)

	broken := `{"slug": "broken-one", "title": "B", "description": "d", "price": 5,
		"images": ["a.jpg"], "condition": "new", "category": "c", "brand": "b"}`
	data := buildZip(t, []zipEntry{
		{"broken-one/product.json", broken},
		{"broken-one/a.jpg", "x"},
		{"vintage-watch/product.json", validManifest},
		{"vintage-watch/img1.jpg", "jpeg-bytes"},
	})

	resp, err := imp.Run(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Successful)
	assert.Equal(t, 1, resp.Summary.Failed)
	assert.Equal(t, resp.Summary.Total, resp.Summary.Successful+resp.Summary.Failed)

	// Results follow archive order
	require.Len(t, resp.Results, 2)
	assert.False(t, resp.Results[0].Success)
	assert.Contains(t, resp.Results[0].Error, "checkoutLink")
	assert.True(t, resp.Results[1].Success)
	assert.Equal(t, "vintage-watch", resp.Results[1].ProductSlug)

	// The broken directory persisted nothing
	_, exists := products.products["broken-one"]
	assert.False(t, exists)
	assert.NotNil(t, products.products["vintage-watch"])
}

func TestRun_InvalidPrice(t *testing.T) {
	imp := newTestImporter(newFakeObjectStore(), newFakeProductStore())

	manifest := `{"slug": "cheap", "title": "C", "description": "d", "price": -5,
		"images": ["https://existing.example.com/p.jpg"], "condition": "new",
		"category": "c", "brand": "b", "checkoutLink": "https://pay.example.com/cheap"}`
	data := buildZip(t, []zipEntry{
		{"cheap/product.json", manifest},
	})

	resp, err := imp.Run(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Summary.Failed)
	require.Len(t, resp.Results, 1)
	assert.False(t, resp.Results[0].Success)
	assert.Equal(t, "cheap", resp.Results[0].ProductSlug)
	assert.Contains(t, resp.Results[0].Error, "positive")
}

func TestRun_MissingImageEntry(t *testing.T) {
	imp := newTestImporter(newFakeObjectStore(), newFakeProductStore())

	data := buildZip(t, []zipEntry{
		{"vintage-watch/product.json", validManifest},
		// img1.jpg referenced by the manifest is absent
	})

	resp, err := imp.Run(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Summary.Failed)
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Results[0].Error, "image file not found in ZIP")
	assert.Contains(t, resp.Results[0].Error, "img1.jpg")
}

func TestRun_ImageRefIncludingDirPrefix(t *testing.T) {
	objects := newFakeObjectStore()
	products := newFakeProductStore()
	imp := newTestImporter(objects, products)

	// The reference repeats the directory name, as some export tools write it
	manifest := `{"slug": "a", "title": "A", "description": "d", "price": 10,
		"images": ["a/1.jpg"], "condition": "new", "category": "c", "brand": "b",
		"checkoutLink": "https://pay.example.com/a"}`
	data := buildZip(t, []zipEntry{
		{"a/product.json", manifest},
		{"a/1.jpg", "jpeg-bytes"},
	})

	resp, err := imp.Run(context.Background(), data)
	require.NoError(t, err)

	require.Equal(t, 1, resp.Summary.Successful)
	assert.Equal(t, []byte("jpeg-bytes"), objects.uploads["a/img1.jpg"])

	saved := products.products["a"]
	require.NotNil(t, saved)
	assert.Equal(t, models.JSONArray{"https://cdn.example.com/a/img1.jpg"}, saved.Images)
}

func TestRun_ImageInNestedSubfolder(t *testing.T) {
	objects := newFakeObjectStore()
	products := newFakeProductStore()
	imp := newTestImporter(objects, products)

	manifest := `{"slug": "nested", "title": "N", "description": "d", "price": 10,
		"images": ["pic.jpg"], "condition": "new", "category": "c", "brand": "b",
		"checkoutLink": "https://pay.example.com/nested"}`
	data := buildZip(t, []zipEntry{
		{"nested/product.json", manifest},
		{"nested/photos/pic.jpg", "jpeg-bytes"},
	})

	resp, err := imp.Run(context.Background(), data)
	require.NoError(t, err)

	require.Equal(t, 1, resp.Summary.Successful)
	assert.Equal(t, []byte("jpeg-bytes"), objects.uploads["nested/img1.jpg"])
}

func TestRun_UploadFailureFailsProduct(t *testing.T) {
	objects := newFakeObjectStore()
	objects.uploadErr = errors.New("bucket unavailable")
	products := newFakeProductStore()
	imp := newTestImporter(objects, products)

	data := buildZip(t, []zipEntry{
		{"vintage-watch/product.json", validManifest},
		{"vintage-watch/img1.jpg", "jpeg-bytes"},
	})

	resp, err := imp.Run(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Summary.Failed)
	assert.Contains(t, resp.Results[0].Error, "failed to upload image")
	assert.Zero(t, products.upserts, "nothing persisted when an image fails")
}

func TestRun_PersistenceError(t *testing.T) {
	objects := newFakeObjectStore()
	products := newFakeProductStore()
	products.err = errors.New("connection reset")
	imp := newTestImporter(objects, products)

	data := buildZip(t, []zipEntry{
		{"vintage-watch/product.json", validManifest},
		{"vintage-watch/img1.jpg", "jpeg-bytes"},
	})

	resp, err := imp.Run(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Summary.Failed)
	assert.Contains(t, resp.Results[0].Error, "failed to save product vintage-watch")
}

func TestRun_ReimportIsIdempotent(t *testing.T) {
	objects := newFakeObjectStore()
	products := newFakeProductStore()
	imp := newTestImporter(objects, products)

	data := buildZip(t, []zipEntry{
		{"vintage-watch/product.json", validManifest},
		{"vintage-watch/img1.jpg", "jpeg-bytes"},
	})

	first, err := imp.Run(context.Background(), data)
	require.NoError(t, err)
	second, err := imp.Run(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Summary.Successful)
	assert.Equal(t, 1, second.Summary.Successful)
	assert.Equal(t, 2, products.upserts)
	assert.Len(t, products.products, 1, "same slug replaces, never duplicates")
	assert.Len(t, objects.uploads, 1, "image path is stable across imports")
}

func TestDiscoverProductDirs(t *testing.T) {
	data := buildZip(t, []zipEntry{
		{"alpha/product.json", "{}"},
		{"alpha/img.jpg", "x"},
		{"beta/product.json", "{}"},
		{"notes.txt", "skip me"},
		{"gamma/nested/product.json", "{}"},
	})

	dirs := discoverProductDirs(openZip(t, data))
	assert.Equal(t, []string{"alpha", "beta", "gamma/nested"}, dirs)
}

func TestDiscoverProductDirs_Root(t *testing.T) {
	data := buildZip(t, []zipEntry{
		{"product.json", "{}"},
		{"img.jpg", "x"},
	})

	dirs := discoverProductDirs(openZip(t, data))
	assert.Equal(t, []string{""}, dirs)
}
