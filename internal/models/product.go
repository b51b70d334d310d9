package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON type for PostgreSQL JSONB (object/map)
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// JSONArray type for PostgreSQL JSONB (array)
type JSONArray []interface{}

func (j JSONArray) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONArray, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Product represents a listed product. Rows are keyed by a unique URL-safe
// slug; re-importing the same slug replaces the row rather than duplicating it.
type Product struct {
	ID           string     `json:"id" gorm:"primary_key"`
	Slug         string     `json:"slug" gorm:"uniqueIndex;not null"`
	Title        string     `json:"title" gorm:"not null"`
	Description  string     `json:"description" gorm:"type:text;not null"`
	Price        float64    `json:"price" gorm:"not null"`
	Images       JSONArray  `json:"images" gorm:"type:jsonb"`
	ThumbnailURL *string    `json:"thumbnailUrl,omitempty" gorm:"column:thumbnail_url"`
	Condition    string     `json:"condition" gorm:"not null"`
	Category     string     `json:"category" gorm:"not null;index"`
	Brand        string     `json:"brand" gorm:"not null;index"`
	PayeeEmail   *string    `json:"payeeEmail,omitempty" gorm:"column:payee_email"`
	CheckoutLink string     `json:"checkoutLink" gorm:"column:checkout_link;not null"`
	Currency     string     `json:"currency" gorm:"not null;default:'USD'"`
	Rating       float64    `json:"rating" gorm:"default:0"`
	ReviewCount  int        `json:"reviewCount" gorm:"column:review_count;default:0"`
	Reviews      JSONArray  `json:"reviews" gorm:"type:jsonb"`
	Meta         JSON       `json:"meta" gorm:"type:jsonb"`
	InStock      bool       `json:"inStock" gorm:"column:in_stock;default:true"`
	IsFeatured   bool       `json:"isFeatured" gorm:"column:is_featured;default:false"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Slug         string    `json:"slug" binding:"required"`
	ID           *string   `json:"id,omitempty"`
	Title        string    `json:"title" binding:"required"`
	Description  string    `json:"description" binding:"required"`
	Price        float64   `json:"price" binding:"required,gt=0"`
	Images       []string  `json:"images" binding:"required,min=1"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"`
	Condition    string    `json:"condition" binding:"required"`
	Category     string    `json:"category" binding:"required"`
	Brand        string    `json:"brand" binding:"required"`
	PayeeEmail   *string   `json:"payeeEmail,omitempty"`
	CheckoutLink string    `json:"checkoutLink" binding:"required"`
	Currency     *string   `json:"currency,omitempty"`
	Rating       *float64  `json:"rating,omitempty"`
	ReviewCount  *int      `json:"reviewCount,omitempty"`
	Reviews      JSONArray `json:"reviews,omitempty"`
	Meta         JSON      `json:"meta,omitempty"`
	InStock      *bool     `json:"inStock,omitempty"`
	IsFeatured   *bool     `json:"isFeatured,omitempty"`
}

// UpdateProductRequest represents a request to update a product by slug.
// A slug change also rewrites the row ID when the ID mirrored the old slug.
type UpdateProductRequest struct {
	Slug         *string    `json:"slug,omitempty"`
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Price        *float64   `json:"price,omitempty"`
	Images       []string   `json:"images,omitempty"`
	ThumbnailURL *string    `json:"thumbnailUrl,omitempty"`
	Condition    *string    `json:"condition,omitempty"`
	Category     *string    `json:"category,omitempty"`
	Brand        *string    `json:"brand,omitempty"`
	PayeeEmail   *string    `json:"payeeEmail,omitempty"`
	CheckoutLink *string    `json:"checkoutLink,omitempty"`
	Currency     *string    `json:"currency,omitempty"`
	Rating       *float64   `json:"rating,omitempty"`
	ReviewCount  *int       `json:"reviewCount,omitempty"`
	Reviews      *JSONArray `json:"reviews,omitempty"`
	Meta         *JSON      `json:"meta,omitempty"`
	InStock      *bool      `json:"inStock,omitempty"`
	IsFeatured   *bool      `json:"isFeatured,omitempty"`
}

// UpdateCheckoutLinkRequest replaces a product's external payment link
type UpdateCheckoutLinkRequest struct {
	CheckoutLink string `json:"checkoutLink" binding:"required"`
}

// Response types

type ProductResponse struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data"`
	Message *string  `json:"message,omitempty"`
}

type ProductListResponse struct {
	Success bool      `json:"success"`
	Data    []Product `json:"data"`
	Total   int       `json:"total"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details *JSON  `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}
