// Package transfer serializes the link/click corpus to a portable snapshot
// and restores it with ID remapping and chunked batched inserts.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shortlink/internal/domain"
	"shortlink/internal/repository"
)

// ErrInvalidFormat marks a snapshot missing required top-level fields.
var ErrInvalidFormat = errors.New("snapshot missing required fields")

const (
	// DefaultChunkSize is the click insert batch size when none is configured.
	DefaultChunkSize = 1000
	// MaxChunkSize caps any requested batch size.
	MaxChunkSize = 10000
)

// Engine exports and imports full data snapshots through the storage seam.
type Engine struct {
	storage   repository.Storage
	chunkSize int
	log       *zap.Logger
}

// NewEngine creates a bulk transfer engine. chunkSize zero or negative
// falls back to the default.
func NewEngine(storage repository.Storage, chunkSize int, log *zap.Logger) *Engine {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize > MaxChunkSize {
		chunkSize = MaxChunkSize
	}
	return &Engine{storage: storage, chunkSize: chunkSize, log: log}
}

// Export reads the whole corpus and wraps it with version and timestamp.
// The read is point-in-time but not snapshot-isolated: the artifact is a
// backup, not a replication stream.
func (e *Engine) Export(ctx context.Context) (*Snapshot, error) {
	links, err := e.storage.AllLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export links: %w", err)
	}
	events, err := e.storage.AllClickEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export click events: %w", err)
	}
	admins, err := e.storage.AllAdminUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export admin users: %w", err)
	}

	return &Snapshot{
		Version:    SnapshotVersion,
		ExportTime: time.Now().UTC().Format(time.RFC3339),
		Data: SnapshotData{
			Links:          links,
			ClickAnalytics: events,
			AdminUsers:     admins,
		},
		Stats: SnapshotStats{
			TotalLinks:  len(links),
			TotalClicks: len(events),
		},
	}, nil
}

// Import restores a snapshot. Links are upserted by short code while a
// source-id to destination-id map is built; click events are remapped
// through it and inserted in independent chunks. Events whose parent link
// failed to import are skipped, never inserted dangling. All links import
// before the first click chunk is submitted.
func (e *Engine) Import(ctx context.Context, snapshot *Snapshot, opts ImportOptions) (*ImportReport, error) {
	if snapshot == nil || snapshot.Version == "" || snapshot.Data.Links == nil {
		return nil, ErrInvalidFormat
	}

	report := &ImportReport{}

	if opts.OverwriteExisting {
		if err := e.storage.PurgeAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to purge existing data: %w", err)
		}
		e.log.Info("purged existing data before import")
	}

	// Destination ids are storage-assigned and generally differ from the
	// snapshot's, so every click has to be remapped through this table.
	idMap := make(map[int64]int64, len(snapshot.Data.Links))
	for i := range snapshot.Data.Links {
		src := snapshot.Data.Links[i]
		newID, err := e.storage.UpsertLinkByCode(ctx, &src)
		if err != nil {
			report.Skipped.Links++
			report.Errors = append(report.Errors,
				fmt.Sprintf("link %q: %v", src.ShortCode, err))
			continue
		}
		if src.ID != 0 {
			idMap[src.ID] = newID
		}
		report.Imported.Links++
	}

	prepared := make([]domain.ClickEvent, 0, len(snapshot.Data.ClickAnalytics))
	for _, event := range snapshot.Data.ClickAnalytics {
		targetID, ok := idMap[event.LinkID]
		if !ok {
			report.Skipped.ClickAnalytics++
			continue
		}
		event.ID = 0
		event.LinkID = targetID
		prepared = append(prepared, event)
	}

	chunkSize := e.chunkSize
	if opts.BatchSize > 0 {
		chunkSize = opts.BatchSize
		if chunkSize > MaxChunkSize {
			chunkSize = MaxChunkSize
		}
	}

	// Chunks are independent commit units: a failed chunk is reported and
	// skipped without rolling back the ones already committed.
	for start := 0; start < len(prepared); start += chunkSize {
		end := start + chunkSize
		if end > len(prepared) {
			end = len(prepared)
		}
		chunk := prepared[start:end]
		inserted, err := e.storage.InsertClickEvents(ctx, chunk)
		if err != nil {
			report.Skipped.ClickAnalytics += len(chunk)
			report.Errors = append(report.Errors,
				fmt.Sprintf("click chunk %d-%d: %v", start, end, err))
			continue
		}
		report.Imported.ClickAnalytics += int(inserted)
	}

	e.log.Info("import completed",
		zap.Int("links_imported", report.Imported.Links),
		zap.Int("links_skipped", report.Skipped.Links),
		zap.Int("clicks_imported", report.Imported.ClickAnalytics),
		zap.Int("clicks_skipped", report.Skipped.ClickAnalytics),
		zap.Int("errors", len(report.Errors)))

	return report, nil
}
