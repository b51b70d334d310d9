package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"marketplace-service/internal/mailer"
	"marketplace-service/internal/models"
)

// OrdersStore is the persistence surface the orders handler needs. The
// orders repository satisfies it.
type OrdersStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrders(ctx context.Context, emailSent, converted *bool) ([]models.Order, error)
	GetOrdersWithFailedEmail(ctx context.Context) ([]models.Order, error)
	MarkConverted(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID) error
	MarkEmailFailed(ctx context.Context, id uuid.UUID, sendErr string, retryCount int) error
}

// ProductGetter resolves the product an order points at.
type ProductGetter interface {
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
}

type OrdersHandler struct {
	orders   OrdersStore
	products ProductGetter
	sender   mailer.Sender
	logger   *logrus.Logger
}

// NewOrdersHandler builds the orders handler. sender may be nil when SMTP is
// not configured; orders are still captured and emails queue up for retry.
func NewOrdersHandler(orders OrdersStore, products ProductGetter, sender mailer.Sender, logger *logrus.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:   orders,
		products: products,
		sender:   sender,
		logger:   logger,
	}
}

// CreateOrder captures a checkout hand-off and attempts the confirmation email
// @Summary Create order
// @Description Record a checkout hand-off lead and send the confirmation email. Email failure does not fail the order.
// @Tags orders
// @Accept json
// @Produce json
// @Param order body models.CreateOrderRequest true "Order"
// @Success 201 {object} models.OrderResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/orders [post]
func (h *OrdersHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	ctx := c.Request.Context()

	product, err := h.products.GetProductBySlug(ctx, req.ProductSlug)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found: " + req.ProductSlug,
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to resolve product for order")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_ERROR",
				Message: "Failed to resolve product",
			},
		})
		return
	}

	order := &models.Order{
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		ProductSlug:   product.Slug,
		Amount:        product.Price,
		Currency:      product.Currency,
	}

	if err := h.orders.CreateOrder(ctx, order); err != nil {
		h.logger.WithError(err).Error("Failed to create order")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_ERROR",
				Message: "Failed to create order",
			},
		})
		return
	}

	h.attemptConfirmationEmail(ctx, order, product)

	c.JSON(http.StatusCreated, models.OrderResponse{Success: true, Order: order})
}

// attemptConfirmationEmail sends the confirmation email and records the
// outcome on the order. Failures only schedule a retry.
func (h *OrdersHandler) attemptConfirmationEmail(ctx context.Context, order *models.Order, product *models.Product) {
	if h.sender == nil {
		reason := "email sender not configured"
		if err := h.orders.MarkEmailFailed(ctx, order.ID, reason, order.EmailRetryCount+1); err != nil {
			h.logger.WithError(err).Warn("Failed to record email bookkeeping")
		}
		order.EmailSent = false
		order.EmailError = &reason
		order.EmailRetryCount++
		return
	}

	subject, body := mailer.OrderConfirmation(order, product)
	if err := h.sender.Send(ctx, order.CustomerEmail, subject, body); err != nil {
		h.logger.WithError(err).WithField("order_id", order.ID).Warn("Confirmation email failed")
		reason := err.Error()
		if mErr := h.orders.MarkEmailFailed(ctx, order.ID, reason, order.EmailRetryCount+1); mErr != nil {
			h.logger.WithError(mErr).Warn("Failed to record email bookkeeping")
		}
		order.EmailSent = false
		order.EmailError = &reason
		order.EmailRetryCount++
		return
	}

	if err := h.orders.MarkEmailSent(ctx, order.ID); err != nil {
		h.logger.WithError(err).Warn("Failed to record email bookkeeping")
	}
	order.EmailSent = true
	order.EmailError = nil
}

// GetOrders lists orders, optionally filtered
// @Summary List orders
// @Tags orders
// @Produce json
// @Param emailSent query bool false "Filter by confirmation email status"
// @Param converted query bool false "Filter by conversion status"
// @Success 200 {object} models.OrderListResponse
// @Security BearerAuth
// @Router /orders [get]
func (h *OrdersHandler) GetOrders(c *gin.Context) {
	emailSent := boolQuery(c, "emailSent")
	converted := boolQuery(c, "converted")

	orders, err := h.orders.GetOrders(c.Request.Context(), emailSent, converted)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list orders")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_ERROR",
				Message: "Failed to fetch orders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.OrderListResponse{
		Success: true,
		Data:    orders,
		Total:   len(orders),
	})
}

// boolQuery parses an optional boolean query parameter. Absent or malformed
// values mean no filter.
func boolQuery(c *gin.Context, name string) *bool {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &parsed
}

// MarkConverted flags an order as a converted sale
// @Summary Mark order converted
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.OrderResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /orders/{id}/mark-converted [post]
func (h *OrdersHandler) MarkConverted(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid order ID format",
			},
		})
		return
	}

	order, err := h.orders.MarkConverted(c.Request.Context(), id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Order not found",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to mark order converted")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_ERROR",
				Message: "Failed to update order",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.OrderResponse{Success: true, Order: order})
}

// RetryEmail re-attempts the confirmation email for one order
// @Summary Retry confirmation email
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.OrderResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /orders/{id}/retry-email [post]
func (h *OrdersHandler) RetryEmail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid order ID format",
			},
		})
		return
	}

	ctx := c.Request.Context()

	order, err := h.orders.GetOrderByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Order not found",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to fetch order for retry")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_ERROR",
				Message: "Failed to fetch order",
			},
		})
		return
	}

	if order.EmailSent {
		msg := "Email already sent"
		c.JSON(http.StatusOK, models.OrderResponse{Success: true, Order: order, Message: &msg})
		return
	}

	product, err := h.products.GetProductBySlug(ctx, order.ProductSlug)
	if err != nil {
		h.logger.WithError(err).WithField("slug", order.ProductSlug).Error("Failed to resolve product for email retry")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_ERROR",
				Message: "Failed to resolve product for order",
			},
		})
		return
	}

	h.attemptConfirmationEmail(ctx, order, product)

	c.JSON(http.StatusOK, models.OrderResponse{Success: true, Order: order})
}

// RetryEmails re-attempts every unsent confirmation email
// @Summary Retry all failed confirmation emails
// @Tags orders
// @Produce json
// @Success 200 {object} models.RetryEmailsResponse
// @Security BearerAuth
// @Router /orders/retry-emails [post]
func (h *OrdersHandler) RetryEmails(c *gin.Context) {
	ctx := c.Request.Context()

	orders, err := h.orders.GetOrdersWithFailedEmail(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list orders with failed email")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_ERROR",
				Message: "Failed to fetch orders",
			},
		})
		return
	}

	var sent, failed int
	for i := range orders {
		order := &orders[i]

		product, err := h.products.GetProductBySlug(ctx, order.ProductSlug)
		if err != nil {
			h.logger.WithError(err).WithField("slug", order.ProductSlug).Warn("Skipping retry; product unresolved")
			failed++
			continue
		}

		h.attemptConfirmationEmail(ctx, order, product)
		if order.EmailSent {
			sent++
		} else {
			failed++
		}
	}

	h.logger.WithFields(logrus.Fields{"sent": sent, "failed": failed}).Info("Email retry run finished")

	c.JSON(http.StatusOK, models.RetryEmailsResponse{Success: true, Sent: sent, Failed: failed})
}

// ExportOrders downloads the order book as CSV or XLSX
// @Summary Export orders
// @Tags orders
// @Produce octet-stream
// @Param format query string false "csv or xlsx (default csv)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /orders/export [get]
func (h *OrdersHandler) ExportOrders(c *gin.Context) {
	orders, err := h.orders.GetOrders(c.Request.Context(), nil, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list orders for export")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_ERROR",
				Message: "Failed to fetch orders",
			},
		})
		return
	}

	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		h.exportXLSX(c, orders)
	default:
		h.exportCSV(c, orders)
	}
}

var orderExportHeaders = []string{
	"ID", "Customer Email", "Customer Name", "Product Slug",
	"Amount", "Currency", "Converted", "Email Sent", "Email Retries", "Created At",
}

func orderExportRow(o *models.Order) []string {
	name := ""
	if o.CustomerName != nil {
		name = *o.CustomerName
	}
	return []string{
		o.ID.String(),
		o.CustomerEmail,
		name,
		o.ProductSlug,
		strconv.FormatFloat(o.Amount, 'f', 2, 64),
		o.Currency,
		strconv.FormatBool(o.IsConverted),
		strconv.FormatBool(o.EmailSent),
		strconv.Itoa(o.EmailRetryCount),
		o.CreatedAt.Format(time.RFC3339),
	}
}

func (h *OrdersHandler) exportCSV(c *gin.Context, orders []models.Order) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=orders_export.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(orderExportHeaders)
	for i := range orders {
		writer.Write(orderExportRow(&orders[i]))
	}
}

func (h *OrdersHandler) exportXLSX(c *gin.Context, orders []models.Order) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Orders"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, header := range orderExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row := range orders {
		values := orderExportRow(&orders[row])
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=orders_export_%s.xlsx", time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		h.logger.WithError(err).Error("Failed to write XLSX export")
	}
}
