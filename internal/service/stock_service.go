package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_console/internal/database"
	"github.com/GTDGit/gtd_console/internal/importer"
	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/repository"
	"github.com/GTDGit/gtd_console/internal/utils"
)

// StockService updates quantities and prices of existing products.
type StockService struct {
	db        *sqlx.DB
	products  *repository.ProductRepository
	inventory *repository.InventoryRepository
	archive   Archiver
	publisher importer.ProgressPublisher
}

// NewStockService constructs a StockService.
func NewStockService(
	db *sqlx.DB,
	products *repository.ProductRepository,
	inventory *repository.InventoryRepository,
	archive Archiver,
	publisher importer.ProgressPublisher,
) *StockService {
	if publisher == nil {
		publisher = importer.NopPublisher{}
	}
	return &StockService{
		db:        db,
		products:  products,
		inventory: inventory,
		archive:   archive,
		publisher: publisher,
	}
}

// UpdatePriceRequest carries optional price corrections.
type UpdatePriceRequest struct {
	CostPrice    *decimal.Decimal `json:"costPrice"`
	SellingPrice *decimal.Decimal `json:"sellingPrice"`
}

// UpdateByNameOrSku sets the stock of the product matching row.Name, or
// row.SKU when no name is given. The SKU is never consulted when a name is
// present. It returns (nil, nil) when nothing matches.
func (s *StockService) UpdateByNameOrSku(ctx context.Context, merchantID int, row models.StockUpdateRow) (*models.ProductWithStock, error) {
	if row.Stock < 0 {
		return nil, utils.ErrInvalidStock
	}
	return updateByNameOrSku(ctx, s.products, s.inventory, merchantID, row)
}

func updateByNameOrSku(ctx context.Context, products *repository.ProductRepository, inventory *repository.InventoryRepository, merchantID int, row models.StockUpdateRow) (*models.ProductWithStock, error) {
	var (
		p   *models.Product
		err error
	)
	switch {
	case row.Name != "":
		p, err = products.FindByName(ctx, merchantID, row.Name)
	case row.SKU != "":
		p, err = products.FindBySKU(ctx, merchantID, row.SKU)
	}
	if err != nil || p == nil {
		return nil, err
	}

	if err := inventory.SetQuantity(ctx, merchantID, p.ID, row.Stock); err != nil {
		if errors.Is(err, utils.ErrProductNotFound) {
			return nil, nil
		}
		return nil, err
	}

	prices := repository.PriceUpdate{CostPrice: row.CostPrice, SellingPrice: row.SellingPrice}
	if !prices.Empty() {
		if err := inventory.SetPrices(ctx, merchantID, p.ID, prices); err != nil {
			return nil, err
		}
	}

	return products.GetByID(ctx, merchantID, p.ID)
}

// UpdateStock sets the quantity of one product.
func (s *StockService) UpdateStock(ctx context.Context, merchantID, productID, qty int) (*models.ProductWithStock, error) {
	if qty < 0 {
		return nil, utils.ErrInvalidStock
	}
	if err := s.inventory.SetQuantity(ctx, merchantID, productID, qty); err != nil {
		return nil, err
	}
	log.Info().Int("merchant_id", merchantID).Int("product_id", productID).Int("quantity", qty).Msg("Stock updated")
	return s.products.GetByID(ctx, merchantID, productID)
}

// UpdatePrices applies the given price corrections to one product.
func (s *StockService) UpdatePrices(ctx context.Context, merchantID, productID int, req *UpdatePriceRequest) (*models.ProductWithStock, error) {
	if (req.CostPrice != nil && req.CostPrice.IsNegative()) ||
		(req.SellingPrice != nil && req.SellingPrice.IsNegative()) {
		return nil, fmt.Errorf("%w: prices cannot be negative", utils.ErrInvalidInput)
	}
	err := s.inventory.SetPrices(ctx, merchantID, productID, repository.PriceUpdate{
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
	})
	if err != nil {
		return nil, err
	}
	return s.products.GetByID(ctx, merchantID, productID)
}

// ImportStockFile applies a stock update file in one transaction. Each row
// runs under a savepoint, so a failing row is rolled back alone and the rows
// before it are still committed. Rows matching no product are skipped and
// not reported.
func (s *StockService) ImportStockFile(ctx context.Context, merchantID int, up Upload) (*models.StockImportSummary, error) {
	archiveUpload(ctx, s.archive, "stock", merchantID, up)

	rows, err := importer.ReadTable(bytes.NewReader(up.Data), up.Format)
	if err != nil {
		return nil, err
	}
	parsed := importer.ParseStockUpdates(rows)

	tracker := importer.NewTracker(s.publisher, merchantID, up.ID, len(parsed.Records))
	tracker.AddErrors(parsed.Errors...)
	tracker.Start(fmt.Sprintf("Updating stock for %d rows", len(parsed.Records)))

	var (
		updated int
		rowErrs []string
	)
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		products := s.products.WithTx(tx)
		inventory := s.inventory.WithTx(tx)

		for _, rec := range parsed.Records {
			label := rec.Name
			if label == "" {
				label = rec.SKU
			}

			var res *models.ProductWithStock
			err := database.Savepoint(ctx, tx, "stock_row", func(*sqlx.Tx) error {
				var err error
				res, err = updateByNameOrSku(ctx, products, inventory, merchantID, rec)
				return err
			})
			switch {
			case err != nil:
				msg := fmt.Sprintf("Row %d: failed to update %q: %v", rec.Row, label, err)
				rowErrs = append(rowErrs, msg)
				tracker.Step(label, 1, msg)
			case res != nil:
				updated++
				tracker.Step(label, 1)
			default:
				tracker.Step(label, 1)
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("upload_id", up.ID).Int("merchant_id", merchantID).Msg("Stock update transaction failed")
		tracker.Finish("Stock update failed")
		return nil, err
	}

	details := slices.Concat(parsed.Errors, rowErrs)
	if details == nil {
		details = []string{}
	}
	summary := &models.StockImportSummary{
		UploadID:     up.ID,
		Updated:      updated,
		Errors:       len(details),
		ErrorDetails: details,
	}

	tracker.Finish(fmt.Sprintf("Updated %d products with %d errors", summary.Updated, summary.Errors))

	log.Info().
		Str("upload_id", up.ID).
		Int("merchant_id", merchantID).
		Int("updated", summary.Updated).
		Int("errors", summary.Errors).
		Msg("Stock update finished")

	return summary, nil
}
