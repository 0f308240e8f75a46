package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateSKU returns a new stock-keeping unit code.
// Format: SKU-XXXXXXXXXXXXXXXX (16 upper-case hex characters).
func GenerateSKU() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("SKU-%s", strings.ToUpper(hex.EncodeToString(b))), nil
}
