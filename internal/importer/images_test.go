package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRemoteURL(t *testing.T) {
	assert.True(t, isRemoteURL("https://example.com/a.jpg"))
	assert.True(t, isRemoteURL("http://example.com/a.jpg"))
	assert.True(t, isRemoteURL("HTTPS://EXAMPLE.COM/A.JPG"))
	assert.False(t, isRemoteURL("img1.jpg"))
	assert.False(t, isRemoteURL("photos/img1.jpg"))
	assert.False(t, isRemoteURL("ftp://example.com/a.jpg"))
}

func TestSanitizeSlug(t *testing.T) {
	assert.Equal(t, "vintage-watch", sanitizeSlug("vintage-watch"))
	assert.Equal(t, "my-product-", sanitizeSlug("my product!"))
	assert.Equal(t, "caf--2024_v2", sanitizeSlug("café 2024_v2"))
}

func TestImagePath(t *testing.T) {
	assert.Equal(t, "vintage-watch/img1.jpg", imagePath("vintage-watch", "photo.jpg", 0))
	assert.Equal(t, "vintage-watch/img3.png", imagePath("vintage-watch", "nested/pic.PNG", 2))
	assert.Equal(t, "vintage-watch/img2.jpg", imagePath("vintage-watch", "no-extension", 1))
	assert.Equal(t, "a-b/img1.webp", imagePath("a/b", "x.webp", 0))
}

func TestImageContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", imageContentType("a.jpg"))
	assert.Equal(t, "image/png", imageContentType("a.png"))
	assert.Equal(t, "image/webp", imageContentType("a.webp"))
	assert.Equal(t, "image/jpeg", imageContentType("no-extension"))
}
