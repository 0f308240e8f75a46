package utils

import (
	"errors"
	"fmt"
)

// Common application errors used across services.
var (
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
	ErrInvalidInput       = errors.New("INVALID_INPUT")
	ErrMerchantNotFound   = errors.New("MERCHANT_NOT_FOUND")
	ErrProductNotFound    = errors.New("PRODUCT_NOT_FOUND")
	ErrDuplicateProduct   = errors.New("DUPLICATE_PRODUCT")
	ErrEmptyFile          = errors.New("EMPTY_FILE")
	ErrUnsupportedFormat  = errors.New("UNSUPPORTED_FORMAT")
	ErrInvalidStock       = errors.New("INVALID_STOCK")
	ErrNoFieldsToUpdate   = errors.New("NO_FIELDS_TO_UPDATE")
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	ErrAccountInactive    = errors.New("ACCOUNT_INACTIVE")
)

// DuplicateProductError reports a creation rejected because the merchant
// already owns a product with the same name and brand.
type DuplicateProductError struct {
	Name  string
	Brand *string
}

func (e *DuplicateProductError) Error() string {
	if e.Brand == nil {
		return fmt.Sprintf("product %q without a brand already exists", e.Name)
	}
	return fmt.Sprintf("product %q with brand %q already exists", e.Name, *e.Brand)
}

func (e *DuplicateProductError) Unwrap() error { return ErrDuplicateProduct }
