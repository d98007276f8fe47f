package database

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shortlink/internal/auth"
	"shortlink/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	return db
}

func TestAutoMigrate(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db, zap.NewNop()))

	for _, table := range []string{"admin_users", "links", "click_events"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	// Re-running is a no-op, not an error.
	assert.NoError(t, AutoMigrate(db, zap.NewNop()))
}

func TestSeedDefaultAdmin(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db, zap.NewNop()))
	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)

	require.NoError(t, SeedDefaultAdmin(db, passwords, "admin", "admin123", zap.NewNop()))

	var admin domain.AdminUser
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.NotEqual(t, "admin123", admin.PasswordHash)
	assert.NoError(t, passwords.VerifyPassword(admin.PasswordHash, "admin123"))

	// Seeding again must not touch the existing row.
	require.NoError(t, SeedDefaultAdmin(db, passwords, "admin", "different", zap.NewNop()))
	var count int64
	require.NoError(t, db.Model(&domain.AdminUser{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.NoError(t, passwords.VerifyPassword(admin.PasswordHash, "admin123"))
}
