package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/gtd_console/internal/repository"
	"github.com/GTDGit/gtd_console/internal/utils"
)

var userColumns = []string{"id", "email", "password_hash", "name", "is_active", "created_at", "updated_at"}

func userRows(t *testing.T, password string, active bool) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.NewRows(userColumns).AddRow(3, "ops@example.com", string(hash), "Ops", active, now, now)
}

func TestLogin(t *testing.T) {
	utils.ConfigureJWT("test-secret", time.Hour)
	db, mock := setupMockDB(t)
	svc := NewAuthService(repository.NewUserRepository(db))
	getUser := regexp.QuoteMeta(`FROM users`)

	mock.ExpectQuery(getUser).WithArgs("ops@example.com").WillReturnRows(userRows(t, "s3cret", true))
	token, err := svc.Login(context.Background(), "ops@example.com", "s3cret")
	require.NoError(t, err)

	claims, err := utils.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, 3, claims.UserID)

	mock.ExpectQuery(getUser).WithArgs("ops@example.com").WillReturnRows(userRows(t, "s3cret", true))
	_, err = svc.Login(context.Background(), "ops@example.com", "wrong")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)

	mock.ExpectQuery(getUser).WithArgs("ops@example.com").WillReturnRows(userRows(t, "s3cret", false))
	_, err = svc.Login(context.Background(), "ops@example.com", "s3cret")
	assert.ErrorIs(t, err, utils.ErrAccountInactive)

	mock.ExpectQuery(getUser).WithArgs("nobody@example.com").WillReturnRows(sqlmock.NewRows(userColumns))
	_, err = svc.Login(context.Background(), "nobody@example.com", "x")
	assert.ErrorIs(t, err, utils.ErrInvalidCredentials)

	assert.NoError(t, mock.ExpectationsWereMet())
}
