package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"marketplace-service/internal/models"
	"marketplace-service/internal/repository"
)

type ProductsHandler struct {
	repo   *repository.ProductsRepository
	logger *logrus.Logger
}

func NewProductsHandler(repo *repository.ProductsRepository, logger *logrus.Logger) *ProductsHandler {
	return &ProductsHandler{repo: repo, logger: logger}
}

// GetProducts lists products, optionally filtered
// @Summary List products
// @Description List all products, optionally filtered by category or search query
// @Tags products
// @Produce json
// @Param category query string false "Filter by category"
// @Param q query string false "Search query over title, description, brand, category and slug"
// @Success 200 {object} models.ProductListResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /storefront/products [get]
func (h *ProductsHandler) GetProducts(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		products []models.Product
		err      error
	)
	switch {
	case c.Query("q") != "":
		products, err = h.repo.SearchProducts(ctx, c.Query("q"))
	case c.Query("category") != "":
		products, err = h.repo.GetProductsByCategory(ctx, c.Query("category"))
	default:
		products, err = h.repo.GetProducts(ctx)
	}

	if err != nil {
		h.logger.WithError(err).Error("Failed to list products")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_ERROR",
				Message: "Failed to fetch products",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.ProductListResponse{
		Success: true,
		Data:    products,
		Total:   len(products),
	})
}

// GetFeaturedProducts lists featured products
// @Summary List featured products
// @Tags products
// @Produce json
// @Param limit query int false "Maximum products to return (default 6)"
// @Success 200 {object} models.ProductListResponse
// @Router /storefront/products/featured [get]
func (h *ProductsHandler) GetFeaturedProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "6"))

	products, err := h.repo.GetFeaturedProducts(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list featured products")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_ERROR",
				Message: "Failed to fetch featured products",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.ProductListResponse{
		Success: true,
		Data:    products,
		Total:   len(products),
	})
}

// GetProduct fetches one product by slug
// @Summary Get product by slug
// @Tags products
// @Produce json
// @Param slug path string true "Product slug"
// @Success 200 {object} models.ProductResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /storefront/products/{slug} [get]
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	slug := c.Param("slug")

	product, err := h.repo.GetProductBySlug(c.Request.Context(), slug)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found: " + slug,
				},
			})
			return
		}
		h.logger.WithError(err).WithField("slug", slug).Error("Failed to fetch product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_ERROR",
				Message: "Failed to fetch product",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// CreateProduct creates a new product
// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param product body models.CreateProductRequest true "Product"
// @Success 201 {object} models.ProductResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products [post]
func (h *ProductsHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
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

	product := productFromCreateRequest(&req)

	if err := h.repo.CreateProduct(product); err != nil {
		if isDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "DUPLICATE_SLUG",
					Message: "A product with this slug already exists",
					Field:   "slug",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to create product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_ERROR",
				Message: "Failed to create product",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.ProductResponse{Success: true, Data: product})
}

// UpdateProduct applies a partial update to a product by slug
// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param slug path string true "Product slug"
// @Param product body models.UpdateProductRequest true "Fields to update"
// @Success 200 {object} models.ProductResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{slug} [put]
func (h *ProductsHandler) UpdateProduct(c *gin.Context) {
	slug := c.Param("slug")

	var req models.UpdateProductRequest
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

	updates := updatesFromRequest(&req)
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "No fields to update",
			},
		})
		return
	}

	product, err := h.repo.UpdateProductBySlug(c.Request.Context(), slug, updates)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found: " + slug,
				},
			})
			return
		}
		h.logger.WithError(err).WithField("slug", slug).Error("Failed to update product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_ERROR",
				Message: "Failed to update product",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// UpdateCheckoutLink replaces a product's external payment link
// @Summary Update checkout link
// @Tags products
// @Accept json
// @Produce json
// @Param slug path string true "Product slug"
// @Param body body models.UpdateCheckoutLinkRequest true "New checkout link"
// @Success 200 {object} models.ProductResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{slug}/checkout-link [put]
func (h *ProductsHandler) UpdateCheckoutLink(c *gin.Context) {
	slug := c.Param("slug")

	var req models.UpdateCheckoutLinkRequest
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

	product, err := h.repo.UpdateCheckoutLink(c.Request.Context(), slug, req.CheckoutLink)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found: " + slug,
				},
			})
			return
		}
		h.logger.WithError(err).WithField("slug", slug).Error("Failed to update checkout link")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_ERROR",
				Message: "Failed to update checkout link",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// DeleteProduct removes a product by slug
// @Summary Delete product
// @Tags products
// @Produce json
// @Param slug path string true "Product slug"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{slug} [delete]
func (h *ProductsHandler) DeleteProduct(c *gin.Context) {
	slug := c.Param("slug")

	if err := h.repo.DeleteProduct(c.Request.Context(), slug); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found: " + slug,
				},
			})
			return
		}
		h.logger.WithError(err).WithField("slug", slug).Error("Failed to delete product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELETE_ERROR",
				Message: "Failed to delete product",
			},
		})
		return
	}

	msg := "Product deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &msg})
}

func productFromCreateRequest(req *models.CreateProductRequest) *models.Product {
	images := make(models.JSONArray, len(req.Images))
	for i, img := range req.Images {
		images[i] = img
	}

	product := &models.Product{
		Slug:         req.Slug,
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Images:       images,
		ThumbnailURL: req.ThumbnailURL,
		Condition:    req.Condition,
		Category:     req.Category,
		Brand:        req.Brand,
		PayeeEmail:   req.PayeeEmail,
		CheckoutLink: req.CheckoutLink,
		Currency:     "USD",
		Reviews:      models.JSONArray{},
		Meta:         models.JSON{},
		InStock:      true,
	}

	if req.ID != nil && *req.ID != "" {
		product.ID = *req.ID
	}
	if req.Currency != nil && *req.Currency != "" {
		product.Currency = *req.Currency
	}
	if req.Rating != nil {
		product.Rating = *req.Rating
	}
	if req.ReviewCount != nil {
		product.ReviewCount = *req.ReviewCount
	}
	if req.Reviews != nil {
		product.Reviews = req.Reviews
	}
	if req.Meta != nil {
		product.Meta = req.Meta
	}
	if req.InStock != nil {
		product.InStock = *req.InStock
	}
	if req.IsFeatured != nil {
		product.IsFeatured = *req.IsFeatured
	}
	if product.ThumbnailURL == nil && len(req.Images) > 0 {
		thumb := req.Images[0]
		product.ThumbnailURL = &thumb
	}

	return product
}

func updatesFromRequest(req *models.UpdateProductRequest) map[string]interface{} {
	updates := make(map[string]interface{})

	if req.Slug != nil {
		updates["slug"] = *req.Slug
	}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Images != nil {
		images := make(models.JSONArray, len(req.Images))
		for i, img := range req.Images {
			images[i] = img
		}
		updates["images"] = images
	}
	if req.ThumbnailURL != nil {
		updates["thumbnail_url"] = *req.ThumbnailURL
	}
	if req.Condition != nil {
		updates["condition"] = *req.Condition
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Brand != nil {
		updates["brand"] = *req.Brand
	}
	if req.PayeeEmail != nil {
		updates["payee_email"] = *req.PayeeEmail
	}
	if req.CheckoutLink != nil {
		updates["checkout_link"] = *req.CheckoutLink
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Rating != nil {
		updates["rating"] = *req.Rating
	}
	if req.ReviewCount != nil {
		updates["review_count"] = *req.ReviewCount
	}
	if req.Reviews != nil {
		updates["reviews"] = *req.Reviews
	}
	if req.Meta != nil {
		updates["meta"] = *req.Meta
	}
	if req.InStock != nil {
		updates["in_stock"] = *req.InStock
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}

	return updates
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
