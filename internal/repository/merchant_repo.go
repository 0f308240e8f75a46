package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_console/internal/models"
)

// MerchantRepository resolves the tenant behind a console user.
type MerchantRepository struct {
	db *sqlx.DB
}

// NewMerchantRepository creates a new MerchantRepository.
func NewMerchantRepository(db *sqlx.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

// GetMerchantID returns the merchant owned by userID, or nil when the user
// has no merchant.
func (r *MerchantRepository) GetMerchantID(ctx context.Context, userID int) (*int, error) {
	const q = `SELECT id FROM merchants WHERE user_id = $1 LIMIT 1`
	var id int
	if err := r.db.GetContext(ctx, &id, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &id, nil
}

// Create inserts a merchant for a user.
func (r *MerchantRepository) Create(ctx context.Context, m *models.Merchant) error {
	const q = `INSERT INTO merchants (user_id, name) VALUES ($1, $2) RETURNING id, created_at`
	return r.db.QueryRowxContext(ctx, q, m.UserID, m.Name).Scan(&m.ID, &m.CreatedAt)
}
