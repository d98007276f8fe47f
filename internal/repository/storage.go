package repository

import (
	"context"
	"errors"
	"time"

	"shortlink/internal/domain"
)

var (
	ErrLinkNotFound  = errors.New("link not found")
	ErrCodeExists    = errors.New("short code already exists")
	ErrAdminNotFound = errors.New("admin user not found")
)

// DayCount is one bucket of a day-grouped click histogram. Day is formatted
// as YYYY-MM-DD; days without clicks have no bucket.
type DayCount struct {
	Day   string `json:"date"`
	Count int64  `json:"count"`
}

// ReferrerCount is the number of clicks carrying one exact referrer string.
type ReferrerCount struct {
	Referer string `json:"referer"`
	Count   int64  `json:"count"`
}

// LinkCounts breaks the link corpus down by lifecycle state.
type LinkCounts struct {
	Total    int64 `json:"totalLinks"`
	Active   int64 `json:"activeLinks"`
	Inactive int64 `json:"inactiveLinks"`
}

// LinkUpdate carries the mutable link attributes; nil fields stay untouched.
// The short code and click counter are not updatable through this path.
type LinkUpdate struct {
	OriginalURL *string
	Title       *string
	Description *string
	ExpiresAt   *time.Time
	IsActive    *bool
}

// Storage is the single seam through which all entities are read and
// written. All mutating operations are atomic with respect to a single Link
// row; nothing here requires cross-link atomicity.
type Storage interface {
	// Link methods
	SaveLink(ctx context.Context, link *domain.Link) error
	GetLinkByID(ctx context.Context, id int64) (*domain.Link, error)
	// FindActiveByCode returns a link only if it is active. Expiry is not a
	// storage filter: callers check it so admin tooling still sees expired rows.
	FindActiveByCode(ctx context.Context, code string) (*domain.Link, error)
	// CodeExists spans soft-deleted rows: a retired code stays taken.
	CodeExists(ctx context.Context, code string) (bool, error)
	ListLinks(ctx context.Context, page, limit int) ([]*domain.Link, int64, error)
	UpdateLink(ctx context.Context, id int64, update LinkUpdate) error
	SoftDeleteLink(ctx context.Context, id int64) error
	HardDeleteLink(ctx context.Context, id int64) error
	HardDeleteLinks(ctx context.Context, ids []int64) (int64, error)
	CleanupInactiveLinks(ctx context.Context) (int64, error)

	// Click accounting
	// RecordClick increments the link's click counter and inserts the event
	// in one transaction; both effects commit together or not at all.
	RecordClick(ctx context.Context, linkID int64, event *domain.ClickEvent) error
	// CountClicks counts events for one link, or for all links when linkID
	// is zero; since narrows to events at or after that instant.
	CountClicks(ctx context.Context, linkID int64, since *time.Time) (int64, error)
	DailyClickCounts(ctx context.Context, linkID int64, since time.Time) ([]DayCount, error)
	ReferrerCounts(ctx context.Context, linkID int64, since time.Time) ([]ReferrerCount, error)
	TopLinksByClicks(ctx context.Context, limit int) ([]*domain.Link, error)
	CountLinks(ctx context.Context) (LinkCounts, error)

	// Bulk transfer
	AllLinks(ctx context.Context) ([]domain.Link, error)
	AllClickEvents(ctx context.Context) ([]domain.ClickEvent, error)
	AllAdminUsers(ctx context.Context) ([]domain.AdminUser, error)
	// UpsertLinkByCode updates an existing row keyed by short code or inserts
	// a new one, returning the storage-assigned id.
	UpsertLinkByCode(ctx context.Context, link *domain.Link) (int64, error)
	InsertClickEvents(ctx context.Context, events []domain.ClickEvent) (int64, error)
	// PurgeAll removes every click event, then every link, in one transaction.
	PurgeAll(ctx context.Context) error

	// Admin methods
	GetAdminUser(ctx context.Context, username string) (*domain.AdminUser, error)
	CreateAdminUser(ctx context.Context, admin *domain.AdminUser) error
	UpdateAdminPassword(ctx context.Context, username, passwordHash string) error
}
