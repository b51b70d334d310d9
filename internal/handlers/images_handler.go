package handlers

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"marketplace-service/internal/models"
	"marketplace-service/internal/storage"
)

type ImagesHandler struct {
	store  storage.ObjectStore
	logger *logrus.Logger
}

func NewImagesHandler(store storage.ObjectStore, logger *logrus.Logger) *ImagesHandler {
	return &ImagesHandler{store: store, logger: logger}
}

type imageUploadResult struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// UploadImage uploads a single image to the object store
// @Summary Upload image
// @Description Upload an image to the given object path and return its public URL
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Param path formData string true "Destination object path, e.g. my-product/img1.jpg"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/images/upload [post]
func (h *ImagesHandler) UploadImage(c *gin.Context) {
	objectPath := strings.TrimSpace(c.PostForm("path"))
	if objectPath == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Missing destination path",
				Field:   "path",
			},
		})
		return
	}
	objectPath = strings.TrimPrefix(path.Clean(objectPath), "/")
	if objectPath == "." || strings.HasPrefix(objectPath, "..") {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Invalid destination path",
				Field:   "path",
			},
		})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "No file provided in field file",
			},
		})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_FILE_TYPE",
				Message: "Only image files are allowed",
			},
		})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "READ_ERROR",
				Message: "Failed to read uploaded file",
			},
		})
		return
	}

	ctx := c.Request.Context()
	if err := h.store.Upload(ctx, objectPath, data, contentType); err != nil {
		h.logger.WithError(err).WithField("path", objectPath).Error("Image upload failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPLOAD_ERROR",
				Message: "Failed to upload image",
			},
		})
		return
	}

	url, err := h.store.PublicURL(objectPath)
	if err != nil {
		h.logger.WithError(err).WithField("path", objectPath).Error("Public URL unavailable")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "URL_ERROR",
				Message: "Uploaded but failed to resolve public URL",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    imageUploadResult{URL: url, Path: objectPath},
	})
}

// ListProductImages resyncs a product's image URLs from the object store
// @Summary List stored images for a product
// @Description List the object store's images under the product's folder, as public URLs
// @Tags images
// @Produce json
// @Param slug path string true "Product slug"
// @Success 200 {object} models.SuccessResponse
// @Security BearerAuth
// @Router /products/{slug}/images [get]
func (h *ImagesHandler) ListProductImages(c *gin.Context) {
	slug := c.Param("slug")

	keys, err := h.store.List(c.Request.Context(), slug+"/")
	if err != nil {
		h.logger.WithError(err).WithField("slug", slug).Error("Failed to list product images")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "LIST_ERROR",
				Message: "Failed to list images",
			},
		})
		return
	}

	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		// Skip placeholder entries some object browsers create
		if strings.HasPrefix(path.Base(key), ".") {
			continue
		}
		url, err := h.store.PublicURL(key)
		if err != nil {
			continue
		}
		urls = append(urls, url)
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    gin.H{"slug": slug, "images": urls, "total": len(urls)},
	})
}
