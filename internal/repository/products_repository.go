package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"marketplace-service/internal/models"
	"gorm.io/gorm"
)

// Cache TTL constants
const (
	ProductCacheTTL     = 5 * time.Minute // Single product cache
	ProductListCacheTTL = 2 * time.Minute // Product list cache (shorter due to frequent changes)
)

type ProductsRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewProductsRepository(db *gorm.DB, redis *redis.Client) *ProductsRepository {
	return &ProductsRepository{
		db:    db,
		redis: redis,
	}
}

func productCacheKey(slug string) string {
	return fmt.Sprintf("marketplace:products:slug:%s", slug)
}

// invalidateProductCache drops the cached copy of one product
func (r *ProductsRepository) invalidateProductCache(ctx context.Context, slug string) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, productCacheKey(slug)).Err()
}

// CreateProduct creates a new product row. The ID defaults to the slug when
// the caller does not supply one.
func (r *ProductsRepository) CreateProduct(product *models.Product) error {
	if product.ID == "" {
		product.ID = product.Slug
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	return r.db.Create(product).Error
}

// GetProductBySlug retrieves a product by slug with read-through caching
func (r *ProductsRepository) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	slug = strings.TrimSpace(slug)
	cacheKey := productCacheKey(slug)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}

	return &product, nil
}

// GetProducts retrieves all products, newest first
func (r *ProductsRepository) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&products).Error
	return products, err
}

// GetProductsByCategory retrieves products in a category, newest first
func (r *ProductsRepository) GetProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC").
		Find(&products).Error
	return products, err
}

// GetFeaturedProducts returns the most recently updated featured products
func (r *ProductsRepository) GetFeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 6
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_featured = ?", true).
		Order("updated_at DESC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

// SearchProducts matches the query against slug, title, description, brand and category
func (r *ProductsRepository) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return []models.Product{}, nil
	}
	pattern := "%" + term + "%"

	var products []models.Product
	err := r.db.WithContext(ctx).
		Where(
			"title ILIKE ? OR description ILIKE ? OR brand ILIKE ? OR category ILIKE ? OR slug ILIKE ?",
			pattern, pattern, pattern, pattern, pattern,
		).
		Order("created_at DESC").
		Find(&products).Error
	return products, err
}

// UpdateProductBySlug applies a partial update to one product. When the slug
// itself changes, a row ID that mirrored the old slug is rewritten to the new
// one so external references stay consistent.
func (r *ProductsRepository) UpdateProductBySlug(ctx context.Context, slug string, updates map[string]interface{}) (*models.Product, error) {
	var existing models.Product
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&existing).Error; err != nil {
		return nil, err
	}

	if newSlug, ok := updates["slug"].(string); ok && newSlug != slug && existing.ID == slug {
		updates["id"] = newSlug
	}
	updates["updated_at"] = time.Now()

	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("slug = ?", slug).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	r.invalidateProductCache(ctx, slug)
	if newSlug, ok := updates["slug"].(string); ok {
		r.invalidateProductCache(ctx, newSlug)
		slug = newSlug
	}

	var updated models.Product
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateCheckoutLink replaces a product's external payment link
func (r *ProductsRepository) UpdateCheckoutLink(ctx context.Context, slug, checkoutLink string) (*models.Product, error) {
	return r.UpdateProductBySlug(ctx, slug, map[string]interface{}{
		"checkout_link": checkoutLink,
	})
}

// DeleteProduct removes a product row by slug
func (r *ProductsRepository) DeleteProduct(ctx context.Context, slug string) error {
	result := r.db.WithContext(ctx).Where("slug = ?", slug).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.invalidateProductCache(ctx, slug)
	return nil
}

// UpsertBySlug inserts the product or, when a row with the same slug exists,
// replaces that row's fields and images in full. The single statement per row
// is all-or-nothing; there are no partial writes.
func (r *ProductsRepository) UpsertBySlug(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Product
		err := tx.Where("slug = ?", product.Slug).First(&existing).Error

		if err == nil {
			// Row exists - full-column replace, preserving original creation time
			product.CreatedAt = existing.CreatedAt
			return tx.Model(&models.Product{}).
				Where("slug = ?", product.Slug).
				Updates(map[string]interface{}{
					"id":            product.ID,
					"title":         product.Title,
					"description":   product.Description,
					"price":         product.Price,
					"images":        product.Images,
					"thumbnail_url": product.ThumbnailURL,
					"condition":     product.Condition,
					"category":      product.Category,
					"brand":         product.Brand,
					"payee_email":   product.PayeeEmail,
					"checkout_link": product.CheckoutLink,
					"currency":      product.Currency,
					"rating":        product.Rating,
					"review_count":  product.ReviewCount,
					"reviews":       product.Reviews,
					"meta":          product.Meta,
					"in_stock":      product.InStock,
					"updated_at":    product.UpdatedAt,
				}).Error
		}

		if err == gorm.ErrRecordNotFound {
			product.CreatedAt = time.Now()
			return tx.Create(product).Error
		}

		return err
	})

	if err != nil {
		return err
	}

	r.invalidateProductCache(ctx, product.Slug)
	return nil
}
