package service

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/database"
	"github.com/GTDGit/gtd_console/internal/importer"
	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/repository"
)

// Upload is a file received by one of the import endpoints.
type Upload struct {
	ID       string
	Filename string
	Format   importer.Format
	Data     []byte
}

// Archiver stores raw upload files. *storage.UploadArchive implements it.
type Archiver interface {
	Archive(ctx context.Context, kind string, merchantID int, uploadID, filename string, data []byte) (string, error)
}

// archiveUpload keeps a copy of the file. Failures never block the import.
func archiveUpload(ctx context.Context, a Archiver, kind string, merchantID int, up Upload) {
	if a == nil {
		return
	}
	if _, err := a.Archive(ctx, kind, merchantID, up.ID, up.Filename, up.Data); err != nil {
		log.Warn().Err(err).Str("upload_id", up.ID).Int("merchant_id", merchantID).Msg("Failed to archive upload")
	}
}

// BatchOutcome is the fold of all chunks of one import.
type BatchOutcome struct {
	Succeeded []models.WrittenRecord
	Errors    []string
}

// ImportService runs the bulk product import pipeline.
type ImportService struct {
	db        *sqlx.DB
	products  *repository.ProductRepository
	inventory *repository.InventoryRepository
	archive   Archiver
	publisher importer.ProgressPublisher
	batchSize int
}

// NewImportService constructs an ImportService. The publisher receives every
// progress event; archive may be nil.
func NewImportService(
	db *sqlx.DB,
	products *repository.ProductRepository,
	inventory *repository.InventoryRepository,
	archive Archiver,
	publisher importer.ProgressPublisher,
	batchSize int,
) *ImportService {
	if publisher == nil {
		publisher = importer.NopPublisher{}
	}
	return &ImportService{
		db:        db,
		products:  products,
		inventory: inventory,
		archive:   archive,
		publisher: publisher,
		batchSize: importer.BatchSize(batchSize),
	}
}

// ImportProducts parses a product file and writes it in chunked transactions.
// Only file-level problems (unreadable or empty file) are returned as errors;
// row and chunk failures are reported in the summary.
func (s *ImportService) ImportProducts(ctx context.Context, merchantID int, up Upload) (*models.ImportSummary, error) {
	archiveUpload(ctx, s.archive, "products", merchantID, up)

	rows, err := importer.ReadTable(bytes.NewReader(up.Data), up.Format)
	if err != nil {
		return nil, err
	}
	parsed := importer.ParseProducts(rows)
	records, superseded := lastByName(parsed.Records)

	tracker := importer.NewTracker(s.publisher, merchantID, up.ID, len(records))
	tracker.AddErrors(parsed.Errors...)
	tracker.AddErrors(superseded...)
	tracker.Start(fmt.Sprintf("Importing %d products", len(records)))

	outcome := s.writeBatches(ctx, merchantID, records, s.batchSize, tracker)

	details := slices.Concat(parsed.Errors, superseded, outcome.Errors)
	if details == nil {
		details = []string{}
	}
	summary := &models.ImportSummary{
		UploadID:     up.ID,
		Created:      len(outcome.Succeeded),
		Errors:       len(details),
		ErrorDetails: details,
	}

	tracker.Finish(fmt.Sprintf("Imported %d products with %d errors", summary.Created, summary.Errors))

	log.Info().
		Str("upload_id", up.ID).
		Int("merchant_id", merchantID).
		Int("rows", len(rows)).
		Int("created", summary.Created).
		Int("errors", summary.Errors).
		Msg("Product import finished")

	return summary, nil
}

// writeBatches writes records chunk by chunk, each chunk in its own
// transaction. A failed chunk is rolled back, reported once per record and
// skipped; later chunks still run.
func (s *ImportService) writeBatches(ctx context.Context, merchantID int, records []models.ParsedProductRow, batchSize int, tracker *importer.Tracker) BatchOutcome {
	var outcome BatchOutcome

	chunks := importer.Chunk(records, batchSize)
	for i, chunk := range chunks {
		label := fmt.Sprintf("Batch %d of %d", i+1, len(chunks))
		tracker.Step(label, 0)

		written, err := s.writeChunk(ctx, merchantID, chunk)
		if err != nil {
			log.Error().Err(err).
				Int("merchant_id", merchantID).
				Int("batch", i+1).
				Int("records", len(chunk)).
				Msg("Product batch rolled back")

			errs := make([]string, 0, len(chunk))
			for _, rec := range chunk {
				errs = append(errs, fmt.Sprintf("Row %d: failed to save %q: %v", rec.Row, rec.Name, err))
			}
			outcome.Errors = append(outcome.Errors, errs...)
			tracker.Step(label, len(chunk), errs...)
			continue
		}

		outcome.Succeeded = append(outcome.Succeeded, written...)
		tracker.Step(label, len(chunk))

		log.Debug().Int("merchant_id", merchantID).Int("batch", i+1).Int("written", len(written)).Msg("Product batch committed")
	}
	return outcome
}

// writeChunk upserts one chunk. Names must be unique within the chunk;
// Postgres rejects an upsert that touches the same conflict key twice.
func (s *ImportService) writeChunk(ctx context.Context, merchantID int, rows []models.ParsedProductRow) ([]models.WrittenRecord, error) {
	var written []models.WrittenRecord
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		w, err := s.products.WithTx(tx).UpsertBatch(ctx, merchantID, rows)
		if err != nil {
			return fmt.Errorf("upsert products: %w", err)
		}

		ids := make(map[string]int, len(w))
		for _, rec := range w {
			ids[rec.Name] = rec.ProductID
		}

		items := make([]models.Inventory, 0, len(rows))
		for _, row := range rows {
			id, ok := ids[row.Name]
			if !ok {
				return fmt.Errorf("product %q missing from upsert result", row.Name)
			}
			items = append(items, models.Inventory{
				MerchantID:        merchantID,
				ProductID:         id,
				QuantityAvailable: row.Stock,
				ReorderLevel:      row.ReorderLevel,
				CostPrice:         row.CostPrice,
				SellingPrice:      row.SellingPrice,
			})
		}
		if err := s.inventory.WithTx(tx).UpsertBatch(ctx, items); err != nil {
			return fmt.Errorf("upsert inventory: %w", err)
		}

		written = w
		return nil
	})
	return written, err
}

// lastByName keeps the last row of every product name in the file and
// reports each earlier row with the same name as superseded.
func lastByName(records []models.ParsedProductRow) ([]models.ParsedProductRow, []string) {
	last := make(map[string]int, len(records))
	for i, row := range records {
		last[row.Name] = i
	}
	if len(last) == len(records) {
		return records, nil
	}

	kept := make([]models.ParsedProductRow, 0, len(last))
	var superseded []string
	for i, row := range records {
		if j := last[row.Name]; j != i {
			superseded = append(superseded, fmt.Sprintf("Row %d: superseded by row %d (%s)", row.Row, records[j].Row, row.Name))
			continue
		}
		kept = append(kept, row)
	}
	return kept, superseded
}
