package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shortlink/internal/domain"
	"shortlink/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.AdminUser{}, &domain.Link{}, &domain.ClickEvent{}))
	return db
}

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	return New(setupTestDB(t), zap.NewNop())
}

func mustSaveLink(t *testing.T, store *SQLStore, code string) *domain.Link {
	t.Helper()
	link := &domain.Link{ShortCode: code, OriginalURL: "https://example.com/" + code, IsActive: true}
	require.NoError(t, store.SaveLink(context.Background(), link))
	return link
}

func TestSaveLink(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	link := mustSaveLink(t, store, "save01")
	assert.NotZero(t, link.ID)

	t.Run("duplicate code", func(t *testing.T) {
		err := store.SaveLink(ctx, &domain.Link{ShortCode: "save01", OriginalURL: "https://other.com", IsActive: true})
		assert.ErrorIs(t, err, repository.ErrCodeExists)
	})
}

func TestFindActiveByCode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	link := mustSaveLink(t, store, "find01")

	got, err := store.FindActiveByCode(ctx, "find01")
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)

	t.Run("unknown code", func(t *testing.T) {
		_, err := store.FindActiveByCode(ctx, "nope")
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	})

	t.Run("soft deleted link is invisible", func(t *testing.T) {
		require.NoError(t, store.SoftDeleteLink(ctx, link.ID))
		_, err := store.FindActiveByCode(ctx, "find01")
		assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	})
}

func TestCodeExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	link := mustSaveLink(t, store, "exists1")

	exists, err := store.CodeExists(ctx, "exists1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.CodeExists(ctx, "absent1")
	require.NoError(t, err)
	assert.False(t, exists)

	// Soft deletion keeps the code reserved.
	require.NoError(t, store.SoftDeleteLink(ctx, link.ID))
	exists, err = store.CodeExists(ctx, "exists1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		mustSaveLink(t, store, fmt.Sprintf("list%02d", i))
	}

	links, total, err := store.ListLinks(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, links, 2)

	links, total, err = store.ListLinks(ctx, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, links, 1)

	t.Run("clamps bad paging", func(t *testing.T) {
		links, _, err := store.ListLinks(ctx, 0, -1)
		require.NoError(t, err)
		assert.NotEmpty(t, links)
	})
}

func TestUpdateLink(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	link := mustSaveLink(t, store, "upd01")

	newURL := "https://updated.example.com"
	title := "Updated"
	require.NoError(t, store.UpdateLink(ctx, link.ID, repository.LinkUpdate{
		OriginalURL: &newURL,
		Title:       &title,
	}))

	got, err := store.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, newURL, got.OriginalURL)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Updated", *got.Title)
	assert.Equal(t, "upd01", got.ShortCode, "short code stays immutable")

	t.Run("nil fields untouched", func(t *testing.T) {
		inactive := false
		require.NoError(t, store.UpdateLink(ctx, link.ID, repository.LinkUpdate{IsActive: &inactive}))
		got, err := store.GetLinkByID(ctx, link.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		assert.Equal(t, newURL, got.OriginalURL)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, store.UpdateLink(ctx, 9999, repository.LinkUpdate{Title: &title}), repository.ErrLinkNotFound)
	})
}

func TestSoftDeleteLink(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	link := mustSaveLink(t, store, "soft01")

	require.NoError(t, store.SoftDeleteLink(ctx, link.ID))

	got, err := store.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, domain.StateSoftDeleted, got.State())

	assert.ErrorIs(t, store.SoftDeleteLink(ctx, 9999), repository.ErrLinkNotFound)
}

func TestHardDeleteLink(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	link := mustSaveLink(t, store, "hard01")
	require.NoError(t, store.RecordClick(ctx, link.ID, &domain.ClickEvent{}))

	require.NoError(t, store.HardDeleteLink(ctx, link.ID))

	_, err := store.GetLinkByID(ctx, link.ID)
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	count, err := store.CountClicks(ctx, link.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, count, "events must not outlive their link")

	assert.ErrorIs(t, store.HardDeleteLink(ctx, link.ID), repository.ErrLinkNotFound)
}

func TestHardDeleteLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := mustSaveLink(t, store, "batch1")
	b := mustSaveLink(t, store, "batch2")
	keep := mustSaveLink(t, store, "batch3")

	deleted, err := store.HardDeleteLinks(ctx, []int64{a.ID, b.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = store.GetLinkByID(ctx, keep.ID)
	assert.NoError(t, err)

	deleted, err = store.HardDeleteLinks(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestCleanupInactiveLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	soft := mustSaveLink(t, store, "cln-soft")
	require.NoError(t, store.RecordClick(ctx, soft.ID, &domain.ClickEvent{}))
	require.NoError(t, store.SoftDeleteLink(ctx, soft.ID))

	past := time.Now().Add(-time.Hour)
	expired := &domain.Link{ShortCode: "cln-exp", OriginalURL: "https://a.com", IsActive: true, ExpiresAt: &past}
	require.NoError(t, store.SaveLink(ctx, expired))

	active := mustSaveLink(t, store, "cln-keep")

	removed, err := store.CleanupInactiveLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = store.GetLinkByID(ctx, active.ID)
	assert.NoError(t, err)
	_, err = store.GetLinkByID(ctx, soft.ID)
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	count, err := store.CountClicks(ctx, 0, nil)
	require.NoError(t, err)
	assert.Zero(t, count, "cleanup takes the click events with it")
}

func TestRecordClickIncrementsAndLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	link := mustSaveLink(t, store, "click1")

	ref := "https://a.com"
	require.NoError(t, store.RecordClick(ctx, link.ID, &domain.ClickEvent{Referer: &ref}))
	require.NoError(t, store.RecordClick(ctx, link.ID, &domain.ClickEvent{}))

	got, err := store.GetLinkByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ClickCount)

	assert.ErrorIs(t, store.RecordClick(ctx, 9999, &domain.ClickEvent{}), repository.ErrLinkNotFound)
}

func TestDailyClickCounts(t *testing.T) {
	store := newTestStore(t)
	db := store.db
	ctx := context.Background()
	link := mustSaveLink(t, store, "daily1")

	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{base, base.Add(time.Hour), base.Add(24 * time.Hour)} {
		require.NoError(t, db.Create(&domain.ClickEvent{LinkID: link.ID, ClickedAt: ts}).Error)
	}

	rows, err := store.DailyClickCounts(ctx, link.ID, base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-05-10", rows[0].Day)
	assert.Equal(t, int64(2), rows[0].Count)
	assert.Equal(t, "2026-05-11", rows[1].Day)
	assert.Equal(t, int64(1), rows[1].Count)
}

func TestReferrerCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	link := mustSaveLink(t, store, "refs1")

	refs := []*string{nil, strPtr("https://a.com"), strPtr("https://a.com"), strPtr("https://b.com")}
	for _, ref := range refs {
		require.NoError(t, store.RecordClick(ctx, link.ID, &domain.ClickEvent{Referer: ref}))
	}

	rows, err := store.ReferrerCounts(ctx, link.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byRef := make(map[string]int64, len(rows))
	for _, row := range rows {
		byRef[row.Referer] = row.Count
	}
	assert.Equal(t, int64(2), byRef["https://a.com"])
	assert.Equal(t, int64(1), byRef["https://b.com"])
	assert.Equal(t, int64(1), byRef[""], "NULL referrers come back as the empty string")
}

func TestCountLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustSaveLink(t, store, "cnt1")
	b := mustSaveLink(t, store, "cnt2")
	require.NoError(t, store.SoftDeleteLink(ctx, b.ID))

	counts, err := store.CountLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.LinkCounts{Total: 2, Active: 1, Inactive: 1}, counts)
}

func TestUpsertLinkByCode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("inserts fresh row ignoring snapshot id", func(t *testing.T) {
		id, err := store.UpsertLinkByCode(ctx, &domain.Link{
			ID: 12345, ShortCode: "up-new", OriginalURL: "https://a.com", IsActive: true,
		})
		require.NoError(t, err)
		assert.NotEqual(t, int64(12345), id)
	})

	t.Run("updates existing row in place", func(t *testing.T) {
		existing := mustSaveLink(t, store, "up-old")
		id, err := store.UpsertLinkByCode(ctx, &domain.Link{
			ID: 777, ShortCode: "up-old", OriginalURL: "https://changed.com", ClickCount: 9, IsActive: false,
		})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, id)

		got, err := store.GetLinkByID(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://changed.com", got.OriginalURL)
		assert.Equal(t, int64(9), got.ClickCount)
		assert.False(t, got.IsActive)
	})
}

func TestInsertClickEventsAndPurge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	link := mustSaveLink(t, store, "bulk1")

	events := []domain.ClickEvent{
		{ID: 500, LinkID: link.ID, ClickedAt: time.Now()},
		{ID: 501, LinkID: link.ID, ClickedAt: time.Now()},
	}
	inserted, err := store.InsertClickEvents(ctx, events)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	inserted, err = store.InsertClickEvents(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	require.NoError(t, store.PurgeAll(ctx))
	links, err := store.AllLinks(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
	eventsLeft, err := store.AllClickEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, eventsLeft)
}

func TestAdminUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateAdminUser(ctx, &domain.AdminUser{Username: "admin", PasswordHash: "hash1"}))

	admin, err := store.GetAdminUser(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "hash1", admin.PasswordHash)

	_, err = store.GetAdminUser(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrAdminNotFound)

	require.NoError(t, store.UpdateAdminPassword(ctx, "admin", "hash2"))
	admin, err = store.GetAdminUser(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "hash2", admin.PasswordHash)

	assert.ErrorIs(t, store.UpdateAdminPassword(ctx, "ghost", "x"), repository.ErrAdminNotFound)
}

func strPtr(s string) *string { return &s }
