package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"marketplace-service/internal/models"
	"marketplace-service/internal/storage"
)

// ProductStore is the persistence surface the importer needs. The products
// repository satisfies it.
type ProductStore interface {
	UpsertBySlug(ctx context.Context, product *models.Product) error
}

// Importer runs the bulk ZIP import pipeline: discover product directories,
// read each manifest, materialize its images, and upsert the product.
type Importer struct {
	objects         storage.ObjectStore
	products        ProductStore
	logger          *logrus.Logger
	opTimeout       time.Duration
	defaultCurrency string
}

func NewImporter(objects storage.ObjectStore, products ProductStore, logger *logrus.Logger, defaultCurrency string) *Importer {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Importer{
		objects:         objects,
		products:        products,
		logger:          logger,
		opTimeout:       30 * time.Second,
		defaultCurrency: defaultCurrency,
	}
}

// Run processes one uploaded archive. Archive-level problems return an
// *ArchiveError and nothing is persisted; per-directory failures are
// captured in the results and never stop sibling directories.
func (imp *Importer) Run(ctx context.Context, archive []byte) (*models.ImportResponse, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, &ArchiveError{
			Code:    CodeInvalidArchive,
			Message: "file is not a valid ZIP archive",
		}
	}

	if len(zr.File) == 0 {
		return nil, &ArchiveError{
			Code:    CodeEmptyArchive,
			Message: "ZIP archive contains no files",
		}
	}

	dirs := discoverProductDirs(zr)
	if len(dirs) == 0 {
		return nil, &ArchiveError{
			Code:    CodeNoProductsFound,
			Message: fmt.Sprintf("no %s files found in archive", ManifestName),
		}
	}

	results := make([]models.ImportResult, 0, len(dirs))
	for _, dir := range dirs {
		results = append(results, imp.processDir(ctx, zr, dir))
	}

	summary := models.ImportSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	imp.logger.WithFields(logrus.Fields{
		"total":      summary.Total,
		"successful": summary.Successful,
		"failed":     summary.Failed,
	}).Info("Bulk import finished")

	return &models.ImportResponse{
		Success: true,
		Summary: summary,
		Results: results,
	}, nil
}

// discoverProductDirs returns the directories containing a product.json, in
// first-seen archive order. The archive root counts as a directory ("").
func discoverProductDirs(zr *zip.Reader) []string {
	seen := make(map[string]bool)
	var dirs []string

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		p := normalizePath(f.Name)

		var dir string
		switch {
		case p == ManifestName:
			dir = ""
		case strings.HasSuffix(p, "/"+ManifestName):
			dir = strings.TrimSuffix(p, "/"+ManifestName)
		default:
			continue
		}

		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// processDir runs the full pipeline for one product directory. Every failure
// path collapses into a single failed ImportResult.
func (imp *Importer) processDir(ctx context.Context, zr *zip.Reader, dir string) models.ImportResult {
	rec, err := readManifest(zr, dir)
	if err != nil {
		return imp.failResult(dir, err)
	}

	urls, err := imp.materializeImages(ctx, zr, dir, rec)
	if err != nil {
		return imp.failResult(dir, err)
	}

	product, err := imp.buildProduct(rec, urls)
	if err != nil {
		return imp.failResult(dir, err)
	}

	upsertCtx, cancel := context.WithTimeout(ctx, imp.opTimeout)
	err = imp.products.UpsertBySlug(upsertCtx, product)
	cancel()
	if err != nil {
		return imp.failResult(dir, &ProductError{
			Code:    CodePersistenceError,
			Slug:    rec.Slug,
			Message: fmt.Sprintf("failed to save product %s: %v", rec.Slug, err),
		})
	}

	imp.logger.WithFields(logrus.Fields{
		"slug":   product.Slug,
		"images": len(urls),
	}).Info("Product imported")

	return models.ImportResult{Success: true, ProductSlug: product.Slug}
}

func (imp *Importer) failResult(dir string, err error) models.ImportResult {
	result := models.ImportResult{Success: false, Error: err.Error()}
	if perr, ok := err.(*ProductError); ok && perr.Slug != "" {
		result.ProductSlug = perr.Slug
	}
	imp.logger.WithFields(logrus.Fields{
		"dir":   displayDir(dir),
		"error": err.Error(),
	}).Warn("Product directory failed to import")
	return result
}

// buildProduct adapts a validated manifest plus its materialized image URLs
// into the persistence model.
func (imp *Importer) buildProduct(rec *ManifestRecord, urls []string) (*models.Product, error) {
	if math.IsNaN(rec.Price) || math.IsInf(rec.Price, 0) || rec.Price <= 0 {
		return nil, &ProductError{
			Code:    CodeInvalidPrice,
			Slug:    rec.Slug,
			Message: fmt.Sprintf("price must be a positive number for product %s", rec.Slug),
		}
	}

	id := rec.ID
	if id == "" {
		id = rec.Slug
	}

	images := make(models.JSONArray, len(urls))
	for i, u := range urls {
		images[i] = u
	}
	thumbnail := urls[0]

	currency := rec.Currency
	if currency == "" {
		currency = imp.defaultCurrency
	}

	product := &models.Product{
		ID:           id,
		Slug:         rec.Slug,
		Title:        rec.Title,
		Description:  rec.Description,
		Price:        rec.Price,
		Images:       images,
		ThumbnailURL: &thumbnail,
		Condition:    rec.Condition,
		Category:     rec.Category,
		Brand:        rec.Brand,
		CheckoutLink: rec.CheckoutLink,
		Currency:     currency,
		Rating:       rec.Rating,
		ReviewCount:  rec.ReviewCount,
		Reviews:      rec.Reviews,
		Meta:         rec.Meta,
		InStock:      rec.InStock,
	}

	if payee := strings.TrimSpace(rec.PayeeEmail); payee != "" {
		product.PayeeEmail = &payee
	}

	return product, nil
}
