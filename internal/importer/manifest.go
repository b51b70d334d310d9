package importer

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"marketplace-service/internal/models"
)

// ManifestName is the descriptor filename expected in every product directory.
const ManifestName = "product.json"

// ManifestRecord is the canonical product descriptor after normalization.
// Field-name variants from the wire format are collapsed exactly once, here;
// nothing downstream ever looks at a snake_case/camelCase pair again.
type ManifestRecord struct {
	Slug         string
	ID           string
	Title        string
	Description  string
	Price        float64
	Images       []string
	Condition    string
	Category     string
	Brand        string
	PayeeEmail   string
	CheckoutLink string
	Currency     string
	Rating       float64
	ReviewCount  int
	Reviews      models.JSONArray
	Meta         models.JSON
	InStock      bool
}

// manifestFile mirrors the on-disk JSON, tolerating both naming variants.
type manifestFile struct {
	Slug              string           `json:"slug"`
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Price             interface{}      `json:"price"`
	Images            []string         `json:"images"`
	Condition         string           `json:"condition"`
	Category          string           `json:"category"`
	Brand             string           `json:"brand"`
	PayeeEmail        string           `json:"payeeEmail"`
	PayeeEmailSnake   string           `json:"payee_email"`
	CheckoutLink      string           `json:"checkoutLink"`
	CheckoutLinkSnake string           `json:"checkout_link"`
	Currency          string           `json:"currency"`
	Rating            float64          `json:"rating"`
	ReviewCount       *int             `json:"reviewCount"`
	ReviewCountSnake  *int             `json:"review_count"`
	Reviews           models.JSONArray `json:"reviews"`
	Meta              models.JSON      `json:"meta"`
	InStock           *bool            `json:"inStock"`
	InStockSnake      *bool            `json:"in_stock"`
}

// normalize collapses field variants and applies defaults. Validation is a
// separate step so callers get the right error code for each failure.
func (m *manifestFile) normalize() *ManifestRecord {
	rec := &ManifestRecord{
		Slug:        strings.TrimSpace(m.Slug),
		ID:          strings.TrimSpace(m.ID),
		Title:       m.Title,
		Description: m.Description,
		Images:      m.Images,
		Condition:   m.Condition,
		Category:    m.Category,
		Brand:       m.Brand,
		Currency:    m.Currency,
		Rating:      m.Rating,
		Reviews:     m.Reviews,
		Meta:        m.Meta,
		InStock:     true,
	}

	rec.PayeeEmail = strings.TrimSpace(firstNonEmpty(m.PayeeEmail, m.PayeeEmailSnake))
	rec.CheckoutLink = firstNonEmpty(m.CheckoutLink, m.CheckoutLinkSnake)

	// snake_case takes precedence, matching the persisted column names
	if m.ReviewCountSnake != nil {
		rec.ReviewCount = *m.ReviewCountSnake
	} else if m.ReviewCount != nil {
		rec.ReviewCount = *m.ReviewCount
	}
	if m.InStockSnake != nil {
		rec.InStock = *m.InStockSnake
	} else if m.InStock != nil {
		rec.InStock = *m.InStock
	}

	if rec.Currency == "" {
		rec.Currency = "USD"
	}
	if rec.Reviews == nil {
		rec.Reviews = models.JSONArray{}
	}
	if rec.Meta == nil {
		rec.Meta = models.JSON{}
	}

	if price, ok := coercePrice(m.Price); ok {
		rec.Price = price
	}

	return rec
}

// coercePrice accepts the manifest's number-or-string-number price shape.
func coercePrice(v interface{}) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// readManifest locates {dir}/product.json in the archive, parses it and
// validates the required fields. Pure parse and validate; no side effects.
func readManifest(zr *zip.Reader, dir string) (*ManifestRecord, error) {
	want := ManifestName
	if dir != "" {
		want = dir + "/" + ManifestName
	}

	var entry *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if normalizePath(f.Name) == want {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, &ProductError{
			Code:    CodeManifestMissing,
			Message: fmt.Sprintf("%s not found in %s", ManifestName, displayDir(dir)),
		}
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, &ProductError{
			Code:    CodeManifestInvalid,
			Message: fmt.Sprintf("failed to read %s in %s: %v", ManifestName, displayDir(dir), err),
		}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &ProductError{
			Code:    CodeManifestInvalid,
			Message: fmt.Sprintf("failed to read %s in %s: %v", ManifestName, displayDir(dir), err),
		}
	}

	var file manifestFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &ProductError{
			Code:    CodeManifestInvalid,
			Message: fmt.Sprintf("invalid JSON in %s: %v", ManifestName, err),
		}
	}

	rec := file.normalize()
	if err := validateManifest(rec, file.Price); err != nil {
		return nil, err
	}
	return rec, nil
}

// validateManifest enforces the required-field contract. The slug is checked
// first so later error messages can name the product.
func validateManifest(rec *ManifestRecord, rawPrice interface{}) error {
	if rec.Slug == "" {
		return incomplete("", "slug")
	}
	if rec.CheckoutLink == "" {
		return incomplete(rec.Slug, "checkoutLink")
	}
	if rec.Title == "" {
		return incomplete(rec.Slug, "title")
	}
	if rec.Description == "" {
		return incomplete(rec.Slug, "description")
	}
	if rawPrice == nil {
		return incomplete(rec.Slug, "price")
	}
	if _, ok := coercePrice(rawPrice); !ok {
		return &ProductError{
			Code:    CodeManifestIncomplete,
			Slug:    rec.Slug,
			Message: fmt.Sprintf("price must be a number for product %s", rec.Slug),
		}
	}
	if rec.Condition == "" {
		return incomplete(rec.Slug, "condition")
	}
	if rec.Category == "" {
		return incomplete(rec.Slug, "category")
	}
	if rec.Brand == "" {
		return incomplete(rec.Slug, "brand")
	}
	if len(rec.Images) == 0 {
		return &ProductError{
			Code:    CodeManifestIncomplete,
			Slug:    rec.Slug,
			Message: fmt.Sprintf("no images found in images array for product %s", rec.Slug),
		}
	}
	return nil
}

func incomplete(slug, field string) *ProductError {
	msg := fmt.Sprintf("missing required field: %s", field)
	if slug != "" {
		msg = fmt.Sprintf("missing required field: %s for product %s", field, slug)
	}
	return &ProductError{Code: CodeManifestIncomplete, Slug: slug, Message: msg}
}

// normalizePath converts backslash separators and trims a trailing slash.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimSuffix(p, "/")
}

func displayDir(dir string) string {
	if dir == "" {
		return "archive root"
	}
	return dir
}
