package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_console/internal/cache"
	"github.com/GTDGit/gtd_console/internal/database"
	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/repository"
	"github.com/GTDGit/gtd_console/internal/utils"
)

// ProductService handles product CRUD for a merchant.
type ProductService struct {
	db        *sqlx.DB
	products  *repository.ProductRepository
	inventory *repository.InventoryRepository
	lowStock  *cache.LowStockCache
	resolver  DuplicateResolver
}

// NewProductService constructs a ProductService. lowStock may be nil, in
// which case counts are always computed live.
func NewProductService(db *sqlx.DB, products *repository.ProductRepository, inventory *repository.InventoryRepository, lowStock *cache.LowStockCache) *ProductService {
	return &ProductService{
		db:        db,
		products:  products,
		inventory: inventory,
		lowStock:  lowStock,
	}
}

// CreateProductRequest represents the request to create a new product.
type CreateProductRequest struct {
	Name         string           `json:"productName" binding:"required"`
	Category     string           `json:"category"`
	Brand        *string          `json:"brand"`
	Description  *string          `json:"description"`
	HSNCode      *string          `json:"hsnCode"`
	GSTRate      *decimal.Decimal `json:"gstRate"`
	Stock        int              `json:"stock" binding:"min=0"`
	ReorderLevel int              `json:"reorderLevel" binding:"min=0"`
	CostPrice    decimal.Decimal  `json:"costPrice"`
	SellingPrice decimal.Decimal  `json:"sellingPrice"`
}

// UpdateProductRequest represents a partial product update.
type UpdateProductRequest struct {
	Name        *string          `json:"productName"`
	Category    *string          `json:"category"`
	Brand       *string          `json:"brand"`
	Description *string          `json:"description"`
	HSNCode     *string          `json:"hsnCode"`
	GSTRate     *decimal.Decimal `json:"gstRate"`
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	return models.StringPtr(*s)
}

// CreateProduct inserts a product and its stock row in one transaction.
// A duplicate name and brand rolls back and returns *utils.DuplicateProductError.
// When only the name collides the product is stored as "<name> (<brand>)".
func (s *ProductService) CreateProduct(ctx context.Context, merchantID int, req *CreateProductRequest) (*models.ProductWithStock, error) {
	if req.Stock < 0 {
		return nil, utils.ErrInvalidStock
	}
	if req.CostPrice.IsNegative() || req.SellingPrice.IsNegative() {
		return nil, fmt.Errorf("%w: prices cannot be negative", utils.ErrInvalidInput)
	}

	brand := optional(req.Brand)
	product := models.Product{
		MerchantID:  merchantID,
		Name:        req.Name,
		Category:    req.Category,
		Brand:       brand,
		Description: optional(req.Description),
		HSNCode:     optional(req.HSNCode),
		GSTRate:     models.DefaultGSTRate,
	}
	if req.GSTRate != nil {
		product.GSTRate = *req.GSTRate
	}
	inv := models.Inventory{
		MerchantID:        merchantID,
		QuantityAvailable: req.Stock,
		ReorderLevel:      req.ReorderLevel,
		CostPrice:         req.CostPrice,
		SellingPrice:      req.SellingPrice,
	}

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		products := s.products.WithTx(tx)

		res, err := s.resolver.Resolve(ctx, products, merchantID, req.Name, brand)
		if err != nil {
			return err
		}
		if res.Kind == ResolutionDuplicate {
			return &utils.DuplicateProductError{Name: res.Name, Brand: brand}
		}
		product.Name = res.Name

		if product.SKU, err = utils.GenerateSKU(); err != nil {
			return fmt.Errorf("generate sku: %w", err)
		}
		if err := products.Create(ctx, &product); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}

		inv.ProductID = product.ID
		if err := s.inventory.WithTx(tx).Create(ctx, &inv); err != nil {
			return fmt.Errorf("insert inventory: %w", err)
		}
		return nil
	})
	if err != nil {
		var dup *utils.DuplicateProductError
		if !errors.As(err, &dup) {
			log.Error().Err(err).Int("merchant_id", merchantID).Str("product_name", req.Name).Msg("Failed to create product")
		}
		return nil, err
	}

	log.Info().Int("merchant_id", merchantID).Int("product_id", product.ID).Str("sku", product.SKU).Msg("Product created")

	return &models.ProductWithStock{
		Product:           product,
		QuantityAvailable: inv.QuantityAvailable,
		ReorderLevel:      inv.ReorderLevel,
		CostPrice:         inv.CostPrice,
		SellingPrice:      inv.SellingPrice,
	}, nil
}

// GetProduct returns one product with its stock.
func (s *ProductService) GetProduct(ctx context.Context, merchantID, id int) (*models.ProductWithStock, error) {
	return s.products.GetByID(ctx, merchantID, id)
}

// ListProducts returns a filtered page of the merchant's inventory.
func (s *ProductService) ListProducts(ctx context.Context, filter *repository.ProductFilter) (*repository.ProductListResult, error) {
	return s.products.List(ctx, filter)
}

// LowStock lists products at or below their reorder level.
func (s *ProductService) LowStock(ctx context.Context, merchantID, page, limit int) (*repository.ProductListResult, error) {
	return s.products.List(ctx, &repository.ProductFilter{
		MerchantID:   merchantID,
		LowStockOnly: true,
		Page:         page,
		Limit:        limit,
	})
}

// LowStockCount returns the dashboard badge count, preferring the value
// cached by the low stock worker.
func (s *ProductService) LowStockCount(ctx context.Context, merchantID int) (int, error) {
	if s.lowStock != nil {
		n, err := s.lowStock.Count(ctx, merchantID)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Int("merchant_id", merchantID).Msg("Low stock cache unavailable, counting live")
		}
	}
	return s.inventory.CountLowStock(ctx, merchantID)
}

// ListCategories returns the merchant's distinct categories.
func (s *ProductService) ListCategories(ctx context.Context, merchantID int) ([]string, error) {
	return s.products.GetDistinctCategories(ctx, merchantID)
}

// UpdateProduct applies a partial update and returns the fresh row.
// The SKU is never changed.
func (s *ProductService) UpdateProduct(ctx context.Context, merchantID, id int, req *UpdateProductRequest) (*models.ProductWithStock, error) {
	if req.Name != nil && *req.Name == "" {
		return nil, fmt.Errorf("%w: product name cannot be empty", utils.ErrInvalidInput)
	}
	if req.GSTRate != nil && req.GSTRate.IsNegative() {
		return nil, fmt.Errorf("%w: gst rate cannot be negative", utils.ErrInvalidInput)
	}

	err := s.products.Update(ctx, merchantID, id, repository.ProductUpdate{
		Name:        req.Name,
		Category:    req.Category,
		Brand:       req.Brand,
		Description: req.Description,
		HSNCode:     req.HSNCode,
		GSTRate:     req.GSTRate,
	})
	if err != nil {
		if isUniqueViolation(err) && req.Name != nil {
			return nil, &utils.DuplicateProductError{Name: *req.Name, Brand: optional(req.Brand)}
		}
		return nil, err
	}
	return s.products.GetByID(ctx, merchantID, id)
}

// DeleteProduct removes a product and, by cascade, its stock row.
func (s *ProductService) DeleteProduct(ctx context.Context, merchantID, id int) error {
	if err := s.products.Delete(ctx, merchantID, id); err != nil {
		return err
	}
	log.Info().Int("merchant_id", merchantID).Int("product_id", id).Msg("Product deleted")
	return nil
}
