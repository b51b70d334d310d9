package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"marketplace-service/internal/models"
	"gorm.io/gorm"
)

// Retry schedule bounds for order confirmation emails
const (
	EmailRetryBaseDelay = 5 * time.Minute
	EmailRetryMaxDelay  = 6 * time.Hour
)

type OrdersRepository struct {
	db *gorm.DB
}

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{db: db}
}

// NextEmailRetryAt computes when a failed confirmation email should be
// retried: exponential backoff on the retry count, capped at the max delay.
func NextEmailRetryAt(retryCount int, now time.Time) time.Time {
	delay := EmailRetryBaseDelay
	for i := 0; i < retryCount && delay < EmailRetryMaxDelay; i++ {
		delay *= 2
	}
	if delay > EmailRetryMaxDelay {
		delay = EmailRetryMaxDelay
	}
	return now.Add(delay)
}

// CreateOrder persists a new checkout hand-off lead
func (r *OrdersRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(order).Error
}

// GetOrderByID fetches one order
func (r *OrdersRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrders lists orders, newest first. Nil filters mean "any".
func (r *OrdersRepository) GetOrders(ctx context.Context, emailSent, converted *bool) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx)
	if emailSent != nil {
		query = query.Where("email_sent = ?", *emailSent)
	}
	if converted != nil {
		query = query.Where("is_converted = ?", *converted)
	}
	err := query.Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// GetOrdersWithFailedEmail lists orders whose confirmation email has not gone out
func (r *OrdersRepository) GetOrdersWithFailedEmail(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("email_sent = ?", false).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// MarkConverted flags an order as a converted sale
func (r *OrdersRepository) MarkConverted(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_converted": true,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetOrderByID(ctx, id)
}

// MarkEmailSent records a successful confirmation email and clears the
// failure bookkeeping.
func (r *OrdersRepository) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email_sent":    true,
			"email_error":   nil,
			"next_retry_at": nil,
			"updated_at":    time.Now(),
		}).Error
}

// MarkEmailFailed records a failed confirmation email attempt and schedules
// the next retry.
func (r *OrdersRepository) MarkEmailFailed(ctx context.Context, id uuid.UUID, sendErr string, retryCount int) error {
	now := time.Now()
	nextRetry := NextEmailRetryAt(retryCount, now)
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email_sent":        false,
			"email_error":       sendErr,
			"email_retry_count": retryCount,
			"next_retry_at":     nextRetry,
			"updated_at":        now,
		}).Error
}
