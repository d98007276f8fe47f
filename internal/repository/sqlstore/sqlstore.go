// Package sqlstore implements repository.Storage on a relational database
// through GORM. It runs against PostgreSQL in production and against an
// in-memory SQLite database in tests; only the day-bucketing expression
// differs between the two dialects.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shortlink/internal/domain"
	"shortlink/internal/repository"
)

// SQLStore implements repository.Storage.
type SQLStore struct {
	db  *gorm.DB
	log *zap.Logger
}

// New creates a new SQL-backed storage instance.
func New(db *gorm.DB, log *zap.Logger) *SQLStore {
	return &SQLStore{db: db, log: log}
}

// --- Link Methods ---

// SaveLink inserts a new link. The unique index on short_code is the final
// collision guard: a duplicate insert comes back as ErrCodeExists.
func (s *SQLStore) SaveLink(ctx context.Context, link *domain.Link) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrCodeExists
		}
		s.log.Error("failed to save link", zap.String("short_code", link.ShortCode), zap.Error(err))
		return fmt.Errorf("failed to save link: %w", err)
	}
	return nil
}

func (s *SQLStore) GetLinkByID(ctx context.Context, id int64) (*domain.Link, error) {
	var link domain.Link
	err := s.db.WithContext(ctx).First(&link, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.Int64("link_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return &link, nil
}

func (s *SQLStore) FindActiveByCode(ctx context.Context, code string) (*domain.Link, error) {
	var link domain.Link
	err := s.db.WithContext(ctx).Where("short_code = ? AND is_active = ?", code, true).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to find link by code", zap.String("short_code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to find link by code: %w", err)
	}
	return &link, nil
}

func (s *SQLStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Link{}).Where("short_code = ?", code).Count(&count).Error
	if err != nil {
		s.log.Error("failed to check code existence", zap.String("short_code", code), zap.Error(err))
		return false, fmt.Errorf("failed to check code existence: %w", err)
	}
	return count > 0, nil
}

func (s *SQLStore) ListLinks(ctx context.Context, page, limit int) ([]*domain.Link, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Link{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count links: %w", err)
	}

	var links []*domain.Link
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&links).Error
	if err != nil {
		s.log.Error("failed to list links", zap.Int("page", page), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list links: %w", err)
	}
	return links, total, nil
}

// UpdateLink applies the set fields of the update to one link. The short
// code and counter stay out of reach of this path.
func (s *SQLStore) UpdateLink(ctx context.Context, id int64, update repository.LinkUpdate) error {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if update.OriginalURL != nil {
		updates["original_url"] = *update.OriginalURL
	}
	if update.Title != nil {
		updates["title"] = *update.Title
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.ExpiresAt != nil {
		updates["expires_at"] = *update.ExpiresAt
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}

	result := s.db.WithContext(ctx).Model(&domain.Link{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		s.log.Error("failed to update link", zap.Int64("link_id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to update link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}
	return nil
}

func (s *SQLStore) SoftDeleteLink(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if result.Error != nil {
		s.log.Error("failed to soft delete link", zap.Int64("link_id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to soft delete link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}
	return nil
}

// HardDeleteLink destroys the row and its click events. Events go first so
// referential integrity holds even on engines without enforced foreign keys.
func (s *SQLStore) HardDeleteLink(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id = ?", id).Delete(&domain.ClickEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete click events: %w", err)
		}
		result := tx.Delete(&domain.Link{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete link: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrLinkNotFound
		}
		return nil
	})
}

func (s *SQLStore) HardDeleteLinks(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id IN ?", ids).Delete(&domain.ClickEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete click events: %w", err)
		}
		result := tx.Where("id IN ?", ids).Delete(&domain.Link{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete links: %w", result.Error)
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		s.log.Error("failed to hard delete links", zap.Int("requested", len(ids)), zap.Error(err))
		return 0, err
	}
	return deleted, nil
}

// CleanupInactiveLinks destroys every soft-deleted or expired link together
// with its click events.
func (s *SQLStore) CleanupInactiveLinks(ctx context.Context) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []int64
		err := tx.Model(&domain.Link{}).
			Where("is_active = ? OR (expires_at IS NOT NULL AND expires_at < ?)", false, time.Now()).
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("failed to select inactive links: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("link_id IN ?", ids).Delete(&domain.ClickEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete click events: %w", err)
		}
		result := tx.Where("id IN ?", ids).Delete(&domain.Link{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete links: %w", result.Error)
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		s.log.Error("failed to cleanup inactive links", zap.Error(err))
		return 0, err
	}
	s.log.Info("cleaned up inactive links", zap.Int64("removed", removed))
	return removed, nil
}

// --- Click Accounting ---

// RecordClick increments the link's counter and inserts the click event in a
// single transaction. The increment runs in the database (count = count + 1)
// so concurrent clicks serialize without lost updates.
func (s *SQLStore) RecordClick(ctx context.Context, linkID int64, event *domain.ClickEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Link{}).
			Where("id = ?", linkID).
			Updates(map[string]interface{}{
				"click_count": gorm.Expr("click_count + 1"),
				"updated_at":  time.Now(),
			})
		if result.Error != nil {
			s.log.Error("failed to increment click count", zap.Int64("link_id", linkID), zap.Error(result.Error))
			return fmt.Errorf("failed to increment click count: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrLinkNotFound
		}

		event.LinkID = linkID
		if event.ClickedAt.IsZero() {
			event.ClickedAt = time.Now()
		}
		if err := tx.Create(event).Error; err != nil {
			s.log.Error("failed to create click event", zap.Int64("link_id", linkID), zap.Error(err))
			return fmt.Errorf("failed to create click event: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) CountClicks(ctx context.Context, linkID int64, since *time.Time) (int64, error) {
	query := s.db.WithContext(ctx).Model(&domain.ClickEvent{})
	if linkID != 0 {
		query = query.Where("link_id = ?", linkID)
	}
	if since != nil {
		query = query.Where("clicked_at >= ?", *since)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		s.log.Error("failed to count clicks", zap.Int64("link_id", linkID), zap.Error(err))
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

// dayExpr returns the dialect-specific expression bucketing clicked_at into
// a YYYY-MM-DD string.
func (s *SQLStore) dayExpr() string {
	if s.db.Dialector.Name() == "sqlite" {
		return "strftime('%Y-%m-%d', clicked_at)"
	}
	return "to_char(clicked_at, 'YYYY-MM-DD')"
}

func (s *SQLStore) DailyClickCounts(ctx context.Context, linkID int64, since time.Time) ([]repository.DayCount, error) {
	query := s.db.WithContext(ctx).Model(&domain.ClickEvent{}).
		Select(s.dayExpr()+" AS day, count(*) AS count").
		Where("clicked_at >= ?", since)
	if linkID != 0 {
		query = query.Where("link_id = ?", linkID)
	}

	var rows []repository.DayCount
	err := query.Group("day").Order("day ASC").Find(&rows).Error
	if err != nil {
		s.log.Error("failed to compute daily click counts", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to compute daily click counts: %w", err)
	}
	return rows, nil
}

// ReferrerCounts groups clicks by their exact referrer string; normalization
// and bucketing happen above the storage layer. NULL referrers come back as
// the empty string.
func (s *SQLStore) ReferrerCounts(ctx context.Context, linkID int64, since time.Time) ([]repository.ReferrerCount, error) {
	query := s.db.WithContext(ctx).Model(&domain.ClickEvent{}).
		Select("COALESCE(referer, '') AS referer, count(*) AS count").
		Where("clicked_at >= ?", since)
	if linkID != 0 {
		query = query.Where("link_id = ?", linkID)
	}

	var rows []repository.ReferrerCount
	err := query.Group("referer").Order("count DESC").Find(&rows).Error
	if err != nil {
		s.log.Error("failed to compute referrer counts", zap.Int64("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to compute referrer counts: %w", err)
	}
	return rows, nil
}

func (s *SQLStore) TopLinksByClicks(ctx context.Context, limit int) ([]*domain.Link, error) {
	var links []*domain.Link
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("click_count DESC").
		Limit(limit).
		Find(&links).Error
	if err != nil {
		s.log.Error("failed to select top links", zap.Error(err))
		return nil, fmt.Errorf("failed to select top links: %w", err)
	}
	return links, nil
}

func (s *SQLStore) CountLinks(ctx context.Context) (repository.LinkCounts, error) {
	var counts repository.LinkCounts
	if err := s.db.WithContext(ctx).Model(&domain.Link{}).Count(&counts.Total).Error; err != nil {
		return counts, fmt.Errorf("failed to count links: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&domain.Link{}).Where("is_active = ?", true).Count(&counts.Active).Error; err != nil {
		return counts, fmt.Errorf("failed to count active links: %w", err)
	}
	counts.Inactive = counts.Total - counts.Active
	return counts, nil
}

// --- Bulk Transfer ---

func (s *SQLStore) AllLinks(ctx context.Context) ([]domain.Link, error) {
	var links []domain.Link
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}
	return links, nil
}

func (s *SQLStore) AllClickEvents(ctx context.Context) ([]domain.ClickEvent, error) {
	var events []domain.ClickEvent
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to read click events: %w", err)
	}
	return events, nil
}

func (s *SQLStore) AllAdminUsers(ctx context.Context) ([]domain.AdminUser, error) {
	var admins []domain.AdminUser
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&admins).Error; err != nil {
		return nil, fmt.Errorf("failed to read admin users: %w", err)
	}
	return admins, nil
}

// UpsertLinkByCode updates the row holding this short code or inserts a new
// one. The snapshot's surrogate id is never carried over; the returned id is
// whatever this store assigned.
func (s *SQLStore) UpsertLinkByCode(ctx context.Context, link *domain.Link) (int64, error) {
	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Link
		err := tx.Where("short_code = ?", link.ShortCode).First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up short code: %w", err)
		}

		if err == nil {
			updates := map[string]interface{}{
				"original_url":       link.OriginalURL,
				"title":              link.Title,
				"description":        link.Description,
				"click_count":        link.ClickCount,
				"expires_at":         link.ExpiresAt,
				"is_active":          link.IsActive,
				"creator_ip":         link.CreatorIP,
				"creator_user_agent": link.CreatorUserAgent,
				"updated_at":         time.Now(),
			}
			if err := tx.Model(&domain.Link{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update link: %w", err)
			}
			id = existing.ID
			return nil
		}

		fresh := *link
		fresh.ID = 0
		if err := tx.Create(&fresh).Error; err != nil {
			return fmt.Errorf("failed to insert link: %w", err)
		}
		id = fresh.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// InsertClickEvents writes one batch of events as a single insert statement.
// Chunking across batches is the caller's concern.
func (s *SQLStore) InsertClickEvents(ctx context.Context, events []domain.ClickEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	for i := range events {
		events[i].ID = 0
	}
	if err := s.db.WithContext(ctx).Create(&events).Error; err != nil {
		s.log.Error("failed to insert click events batch", zap.Int("batch_size", len(events)), zap.Error(err))
		return 0, fmt.Errorf("failed to insert click events: %w", err)
	}
	return int64(len(events)), nil
}

// PurgeAll removes every click event, then every link. Events go first to
// respect the foreign key.
func (s *SQLStore) PurgeAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM click_events").Error; err != nil {
			return fmt.Errorf("failed to purge click events: %w", err)
		}
		if err := tx.Exec("DELETE FROM links").Error; err != nil {
			return fmt.Errorf("failed to purge links: %w", err)
		}
		return nil
	})
}

// --- Admin Methods ---

func (s *SQLStore) GetAdminUser(ctx context.Context, username string) (*domain.AdminUser, error) {
	var admin domain.AdminUser
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrAdminNotFound
	}
	if err != nil {
		s.log.Error("failed to get admin user", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}
	return &admin, nil
}

func (s *SQLStore) CreateAdminUser(ctx context.Context, admin *domain.AdminUser) error {
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		s.log.Error("failed to create admin user", zap.String("username", admin.Username), zap.Error(err))
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateAdminPassword(ctx context.Context, username, passwordHash string) error {
	result := s.db.WithContext(ctx).Model(&domain.AdminUser{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{"password_hash": passwordHash, "updated_at": time.Now()})
	if result.Error != nil {
		s.log.Error("failed to update admin password", zap.String("username", username), zap.Error(result.Error))
		return fmt.Errorf("failed to update admin password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrAdminNotFound
	}
	return nil
}
