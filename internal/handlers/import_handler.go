package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"marketplace-service/internal/importer"
	"marketplace-service/internal/models"
)

// ArchiveFileField is the multipart form field carrying the uploaded ZIP.
const ArchiveFileField = "zipFile"

type ImportHandler struct {
	importer        *importer.Importer
	logger          *logrus.Logger
	maxArchiveBytes int64
}

func NewImportHandler(imp *importer.Importer, logger *logrus.Logger, maxArchiveBytes int64) *ImportHandler {
	return &ImportHandler{
		importer:        imp,
		logger:          logger,
		maxArchiveBytes: maxArchiveBytes,
	}
}

// ImportArchive ingests a ZIP of product directories
// @Summary Bulk import products from a ZIP archive
// @Description Each directory containing a product.json becomes one product. Per-product failures are reported in the results without aborting the rest.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param zipFile formData file true "ZIP archive of product directories"
// @Success 200 {object} models.ImportResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/import/archive [post]
func (h *ImportHandler) ImportArchive(c *gin.Context) {
	file, header, err := c.Request.FormFile(ArchiveFileField)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FILE_REQUIRED",
				Message: "No file provided in field " + ArchiveFileField,
			},
		})
		return
	}
	defer file.Close()

	if !isZipUpload(header.Filename, header.Header.Get("Content-Type")) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    importer.CodeInvalidFileType,
				Message: "File must be a ZIP archive",
			},
		})
		return
	}

	if header.Size > h.maxArchiveBytes {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    importer.CodeArchiveTooLarge,
				Message: "ZIP file too large. Maximum size is " + formatMiB(h.maxArchiveBytes),
			},
		})
		return
	}

	// Size header can lie; enforce the cap on the actual bytes too
	archive, err := io.ReadAll(io.LimitReader(file, h.maxArchiveBytes+1))
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
	if int64(len(archive)) > h.maxArchiveBytes {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    importer.CodeArchiveTooLarge,
				Message: "ZIP file too large. Maximum size is " + formatMiB(h.maxArchiveBytes),
			},
		})
		return
	}
	if len(archive) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    importer.CodeEmptyArchive,
				Message: "Uploaded file is empty",
			},
		})
		return
	}

	response, err := h.importer.Run(c.Request.Context(), archive)
	if err != nil {
		if archiveErr, ok := err.(*importer.ArchiveError); ok {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    archiveErr.Code,
					Message: archiveErr.Message,
				},
			})
			return
		}
		h.logger.WithError(err).Error("Archive import failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INTERNAL_ERROR",
				Message: "Failed to process archive",
			},
		})
		return
	}

	// 200 even when individual products failed; the summary tells the story
	c.JSON(http.StatusOK, response)
}

// isZipUpload accepts either signal: a .zip filename or a declared ZIP
// content type.
func isZipUpload(filename, contentType string) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".zip") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "application/zip", "application/x-zip-compressed":
		return true
	}
	return false
}

func formatMiB(bytes int64) string {
	mib := bytes / (1024 * 1024)
	if mib <= 0 {
		return "less than 1MB"
	}
	return strconv.FormatInt(mib, 10) + "MB"
}
