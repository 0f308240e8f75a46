package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/middleware"
	"github.com/GTDGit/gtd_console/internal/repository"
	"github.com/GTDGit/gtd_console/internal/service"
	"github.com/GTDGit/gtd_console/internal/utils"
)

// ProductHandler handles the merchant's product catalog endpoints.
type ProductHandler struct {
	productService *service.ProductService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// pagination reads page and limit query params with defaults of 1 and 50.
func pagination(c *gin.Context) (int, int) {
	page := 1
	limit := 50
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return page, limit
}

func productID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid product id")
		return 0, false
	}
	return id, true
}

// ListProducts handles GET /v1/products.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, limit := pagination(c)
	lowStock, _ := strconv.ParseBool(c.Query("lowStock"))

	result, err := h.productService.ListProducts(c.Request.Context(), &repository.ProductFilter{
		MerchantID:   middleware.GetMerchantID(c),
		Category:     c.Query("category"),
		Search:       c.Query("search"),
		LowStockOnly: lowStock,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list products")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get products")
		return
	}

	utils.SuccessWithPagination(c, 200, "Products retrieved successfully", gin.H{
		"products": result.Products,
	}, result.Page, result.Limit, result.TotalItems)
}

// GetProduct handles GET /v1/products/:id.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	product, err := h.productService.GetProduct(c.Request.Context(), middleware.GetMerchantID(c), id)
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to get product")
		return
	}
	utils.Success(c, 200, "Product retrieved successfully", product)
}

// CreateProduct handles POST /v1/products.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), middleware.GetMerchantID(c), &req)
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to create product")
		return
	}
	utils.Success(c, 201, "Product created successfully", product)
}

// UpdateProduct handles PUT /v1/products/:id.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), middleware.GetMerchantID(c), id, &req)
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to update product")
		return
	}
	utils.Success(c, 200, "Product updated successfully", product)
}

// DeleteProduct handles DELETE /v1/products/:id.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	if err := h.productService.DeleteProduct(c.Request.Context(), middleware.GetMerchantID(c), id); err != nil {
		utils.ErrorFrom(c, err, "Failed to delete product")
		return
	}
	utils.Success(c, 200, "Product deleted successfully", nil)
}

// LowStock handles GET /v1/products/low-stock.
func (h *ProductHandler) LowStock(c *gin.Context) {
	page, limit := pagination(c)
	result, err := h.productService.LowStock(c.Request.Context(), middleware.GetMerchantID(c), page, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list low stock products")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get low stock products")
		return
	}
	utils.SuccessWithPagination(c, 200, "Low stock products retrieved successfully", gin.H{
		"products": result.Products,
	}, result.Page, result.Limit, result.TotalItems)
}

// LowStockCount handles GET /v1/products/low-stock/count.
func (h *ProductHandler) LowStockCount(c *gin.Context) {
	n, err := h.productService.LowStockCount(c.Request.Context(), middleware.GetMerchantID(c))
	if err != nil {
		log.Error().Err(err).Msg("Failed to count low stock products")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to count low stock products")
		return
	}
	utils.Success(c, 200, "Low stock count retrieved successfully", gin.H{"count": n})
}

// GetCategories handles GET /v1/categories.
func (h *ProductHandler) GetCategories(c *gin.Context) {
	categories, err := h.productService.ListCategories(c.Request.Context(), middleware.GetMerchantID(c))
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to get categories")
		return
	}
	if categories == nil {
		categories = []string{}
	}
	utils.Success(c, 200, "Categories retrieved successfully", gin.H{"categories": categories})
}
