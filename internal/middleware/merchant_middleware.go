package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/utils"
)

// MerchantResolver finds the merchant owned by a user.
// *repository.MerchantRepository implements it.
type MerchantResolver interface {
	GetMerchantID(ctx context.Context, userID int) (*int, error)
}

// MerchantMiddleware resolves the merchant behind the authenticated user.
// It must run after JWTMiddleware.
type MerchantMiddleware struct {
	merchants MerchantResolver
}

// NewMerchantMiddleware constructs a new MerchantMiddleware.
func NewMerchantMiddleware(merchants MerchantResolver) *MerchantMiddleware {
	return &MerchantMiddleware{merchants: merchants}
}

// Handle returns a Gin middleware function that sets merchant_id.
func (m *MerchantMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt("user_id")
		if userID == 0 {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing user")
			c.Abort()
			return
		}

		merchantID, err := m.merchants.GetMerchantID(c.Request.Context(), userID)
		if err != nil {
			log.Error().Err(err).Int("user_id", userID).Msg("Failed to resolve merchant")
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to resolve merchant")
			c.Abort()
			return
		}
		if merchantID == nil {
			utils.ErrorFrom(c, utils.ErrMerchantNotFound, "")
			c.Abort()
			return
		}

		c.Set("merchant_id", *merchantID)
		c.Next()
	}
}

// GetMerchantID returns the merchant resolved for the request.
func GetMerchantID(c *gin.Context) int {
	return c.GetInt("merchant_id")
}
