package utils

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response defines the standard API response envelope.
type Response struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// ErrorInfo provides details for error responses.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta contains request-scoped metadata.
type Meta struct {
	RequestID  string      `json:"requestId"`
	Timestamp  string      `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// Success writes a success response with the standard envelope.
func Success(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: time.Now().Format(time.RFC3339),
		},
	})
}

// SuccessWithPagination writes a success response with pagination metadata.
func SuccessWithPagination(c *gin.Context, code int, message string, data interface{}, page, limit, totalItems int) {
	// safety defaults
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (totalItems + limit - 1) / limit
	}
	c.JSON(code, Response{
		Success: true,
		Code:    code,
		Message: message,
		Data:    data,
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: time.Now().Format(time.RFC3339),
			Pagination: &Pagination{
				Page:       page,
				Limit:      limit,
				TotalItems: totalItems,
				TotalPages: totalPages,
			},
		},
	})
}

// Error writes an error response with provided API error code and message.
func Error(c *gin.Context, code int, errCode, message string) {
	c.JSON(code, Response{
		Success: false,
		Code:    code,
		Message: message,
		Error: &ErrorInfo{
			Code:    errCode,
			Message: message,
		},
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: time.Now().Format(time.RFC3339),
		},
	})
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.New().String()[:8]
}

// ErrorFrom maps a service error to the response envelope. Unknown errors
// become a 500 with the fallback message so internals do not leak.
func ErrorFrom(c *gin.Context, err error, fallback string) {
	var dup *DuplicateProductError
	switch {
	case errors.As(err, &dup):
		Error(c, 409, "DUPLICATE_PRODUCT", dup.Error())
	case errors.Is(err, ErrProductNotFound):
		Error(c, 404, "PRODUCT_NOT_FOUND", "Product not found")
	case errors.Is(err, ErrMerchantNotFound):
		Error(c, 403, "MERCHANT_NOT_FOUND", "No merchant is linked to this account")
	case errors.Is(err, ErrEmptyFile):
		Error(c, 400, "EMPTY_FILE", "The file contains no data rows")
	case errors.Is(err, ErrUnsupportedFormat):
		Error(c, 400, "INVALID_FORMAT", "Only CSV and XLSX files are supported")
	case errors.Is(err, ErrInvalidStock):
		Error(c, 400, "INVALID_STOCK", "Stock must be zero or greater")
	case errors.Is(err, ErrNoFieldsToUpdate):
		Error(c, 400, "INVALID_REQUEST", "No fields to update")
	case errors.Is(err, ErrInvalidCredentials):
		Error(c, 401, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, ErrAccountInactive):
		Error(c, 403, "ACCOUNT_INACTIVE", "Account is inactive")
	case errors.Is(err, ErrInvalidInput):
		Error(c, 400, "INVALID_REQUEST", err.Error())
	default:
		Error(c, 500, "INTERNAL_ERROR", fallback)
	}
}
