package database

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shortlink/internal/auth"
	"shortlink/internal/domain"
)

// AutoMigrate runs schema migrations for all domain models. Order matters
// because of foreign keys.
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	models := []interface{}{
		&domain.AdminUser{},
		&domain.Link{},
		&domain.ClickEvent{}, // depends on links
	}

	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			log.Error("failed to migrate model", zap.String("model", fmt.Sprintf("%T", model)), zap.Error(err))
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Info("database auto-migration completed", zap.Int("models", len(models)))
	return nil
}

// SeedDefaultAdmin creates the bootstrap admin account when the configured
// username has no row yet. The password is stored bcrypt-hashed and should
// be changed on first login.
func SeedDefaultAdmin(db *gorm.DB, passwords *auth.PasswordService, username, password string, log *zap.Logger) error {
	var existing domain.AdminUser
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := passwords.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash default admin password: %w", err)
	}

	admin := domain.AdminUser{Username: username, PasswordHash: hash}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create default admin: %w", err)
	}

	log.Info("created default admin account", zap.String("username", username))
	return nil
}
