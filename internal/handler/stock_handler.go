package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_console/internal/middleware"
	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/service"
	"github.com/GTDGit/gtd_console/internal/utils"
)

// StockHandler handles quantity and price corrections.
type StockHandler struct {
	stockService *service.StockService
}

// NewStockHandler constructs a StockHandler.
func NewStockHandler(stockService *service.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// UpdateStock handles PATCH /v1/products/:id/stock.
func (h *StockHandler) UpdateStock(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req struct {
		Quantity *int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "quantity is required")
		return
	}

	product, err := h.stockService.UpdateStock(c.Request.Context(), middleware.GetMerchantID(c), id, *req.Quantity)
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to update stock")
		return
	}
	utils.Success(c, 200, "Stock updated successfully", product)
}

// UpdatePrice handles PATCH /v1/products/:id/price.
func (h *StockHandler) UpdatePrice(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req service.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	product, err := h.stockService.UpdatePrices(c.Request.Context(), middleware.GetMerchantID(c), id, &req)
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to update price")
		return
	}
	utils.Success(c, 200, "Price updated successfully", product)
}

// UpdateByNameOrSku handles PATCH /v1/stock. The product is looked up by
// name, or by SKU when no name is given.
func (h *StockHandler) UpdateByNameOrSku(c *gin.Context) {
	var req struct {
		ProductName  string           `json:"productName"`
		SKU          string           `json:"sku"`
		Stock        *int             `json:"stock" binding:"required"`
		CostPrice    *decimal.Decimal `json:"costPrice"`
		SellingPrice *decimal.Decimal `json:"sellingPrice"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "stock is required")
		return
	}
	if req.ProductName == "" && req.SKU == "" {
		utils.Error(c, 400, "INVALID_REQUEST", "productName or sku is required")
		return
	}

	product, err := h.stockService.UpdateByNameOrSku(c.Request.Context(), middleware.GetMerchantID(c), models.StockUpdateRow{
		Name:         req.ProductName,
		SKU:          req.SKU,
		Stock:        *req.Stock,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
	})
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to update stock")
		return
	}
	if product == nil {
		utils.ErrorFrom(c, utils.ErrProductNotFound, "")
		return
	}
	utils.Success(c, 200, "Stock updated successfully", product)
}
