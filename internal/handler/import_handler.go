package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/cache"
	"github.com/GTDGit/gtd_console/internal/importer"
	"github.com/GTDGit/gtd_console/internal/middleware"
	"github.com/GTDGit/gtd_console/internal/service"
	"github.com/GTDGit/gtd_console/internal/utils"
)

// ImportHandler handles bulk file uploads and their status.
type ImportHandler struct {
	importService *service.ImportService
	stockService  *service.StockService
	status        *cache.UploadStatusCache
	maxFileSize   int64
}

// NewImportHandler constructs an ImportHandler. status may be nil.
func NewImportHandler(importService *service.ImportService, stockService *service.StockService, status *cache.UploadStatusCache, maxFileSize int64) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		stockService:  stockService,
		status:        status,
		maxFileSize:   maxFileSize,
	}
}

// readUpload reads the multipart "file" field. The optional "uploadId" form
// field lets the browser subscribe to progress before posting the file.
func (h *ImportHandler) readUpload(c *gin.Context) (service.Upload, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "file is required")
		return service.Upload{}, false
	}
	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		utils.Error(c, 413, "FILE_TOO_LARGE", fmt.Sprintf("File exceeds the %d byte limit", h.maxFileSize))
		return service.Upload{}, false
	}

	format, err := importer.DetectFormat(header.Filename)
	if err != nil {
		utils.ErrorFrom(c, err, "")
		return service.Upload{}, false
	}

	f, err := header.Open()
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Failed to read file")
		return service.Upload{}, false
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Failed to read file")
		return service.Upload{}, false
	}

	uploadID := c.PostForm("uploadId")
	if uploadID == "" {
		uploadID = uuid.New().String()
	}

	return service.Upload{
		ID:       uploadID,
		Filename: header.Filename,
		Format:   format,
		Data:     buf.Bytes(),
	}, true
}

// ImportProducts handles POST /v1/imports/products.
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	up, ok := h.readUpload(c)
	if !ok {
		return
	}
	merchantID := middleware.GetMerchantID(c)

	// A closed browser tab must not abort a half written import.
	ctx := context.WithoutCancel(c.Request.Context())
	summary, err := h.importService.ImportProducts(ctx, merchantID, up)
	if err != nil {
		if !errors.Is(err, utils.ErrEmptyFile) && !errors.Is(err, utils.ErrUnsupportedFormat) {
			log.Error().Err(err).Str("upload_id", up.ID).Int("merchant_id", merchantID).Msg("Product import failed")
		}
		utils.ErrorFrom(c, err, "Failed to import products")
		return
	}

	utils.Success(c, 200, "Import completed", summary)
}

// ImportStock handles POST /v1/imports/stock.
func (h *ImportHandler) ImportStock(c *gin.Context) {
	up, ok := h.readUpload(c)
	if !ok {
		return
	}
	merchantID := middleware.GetMerchantID(c)

	ctx := context.WithoutCancel(c.Request.Context())
	summary, err := h.stockService.ImportStockFile(ctx, merchantID, up)
	if err != nil {
		if !errors.Is(err, utils.ErrEmptyFile) && !errors.Is(err, utils.ErrUnsupportedFormat) {
			log.Error().Err(err).Str("upload_id", up.ID).Int("merchant_id", merchantID).Msg("Stock import failed")
		}
		utils.ErrorFrom(c, err, "Failed to update stock")
		return
	}

	utils.Success(c, 200, "Stock update completed", summary)
}

// Template handles GET /v1/imports/template?format=csv|xlsx.
func (h *ImportHandler) Template(c *gin.Context) {
	format := importer.Format(c.DefaultQuery("format", string(importer.FormatCSV)))

	var buf bytes.Buffer
	if err := importer.WriteTemplate(&buf, format); err != nil {
		utils.ErrorFrom(c, err, "Failed to build template")
		return
	}

	contentType := "text/csv"
	if format == importer.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="products_template.%s"`, format))
	c.Data(200, contentType, buf.Bytes())
}

// Status handles GET /v1/imports/:uploadId/status.
func (h *ImportHandler) Status(c *gin.Context) {
	if h.status == nil {
		utils.Error(c, 404, "UPLOAD_NOT_FOUND", "Upload status is not available")
		return
	}

	event, err := h.status.Get(c.Request.Context(), middleware.GetMerchantID(c), c.Param("uploadId"))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			utils.Error(c, 404, "UPLOAD_NOT_FOUND", "Upload not found or expired")
			return
		}
		log.Error().Err(err).Str("upload_id", c.Param("uploadId")).Msg("Failed to read upload status")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to read upload status")
		return
	}

	utils.Success(c, 200, "Upload status retrieved successfully", event)
}
