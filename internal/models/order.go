package models

import (
	"time"

	"github.com/google/uuid"
)

// Order represents a checkout hand-off lead captured from the storefront.
// Payment itself happens on the external checkout link; the row tracks whether
// the confirmation email went out and whether the lead converted.
type Order struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CustomerEmail   string     `json:"customerEmail" gorm:"column:customer_email;not null;index"`
	CustomerName    *string    `json:"customerName,omitempty" gorm:"column:customer_name"`
	ProductSlug     string     `json:"productSlug" gorm:"column:product_slug;not null;index"`
	Amount          float64    `json:"amount" gorm:"not null"`
	Currency        string     `json:"currency" gorm:"not null;default:'USD'"`
	IsConverted     bool       `json:"isConverted" gorm:"column:is_converted;default:false"`
	EmailSent       bool       `json:"emailSent" gorm:"column:email_sent;default:false;index"`
	EmailError      *string    `json:"emailError,omitempty" gorm:"column:email_error"`
	EmailRetryCount int        `json:"emailRetryCount" gorm:"column:email_retry_count;default:0"`
	NextRetryAt     *time.Time `json:"nextRetryAt,omitempty" gorm:"column:next_retry_at"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// CreateOrderRequest records a checkout hand-off from the storefront
type CreateOrderRequest struct {
	CustomerEmail string  `json:"customerEmail" binding:"required,email"`
	CustomerName  *string `json:"customerName,omitempty"`
	ProductSlug   string  `json:"productSlug" binding:"required"`
}

// OrderResponse wraps a single order
type OrderResponse struct {
	Success bool    `json:"success"`
	Order   *Order  `json:"order"`
	Message *string `json:"message,omitempty"`
}

// OrderListResponse wraps an order listing
type OrderListResponse struct {
	Success bool    `json:"success"`
	Data    []Order `json:"data"`
	Total   int     `json:"total"`
}

// RetryEmailsResponse summarizes a bulk email retry run
type RetryEmailsResponse struct {
	Success bool `json:"success"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
}
