package transfer

import "shortlink/internal/domain"

// SnapshotVersion is the format version written into exports.
const SnapshotVersion = "1.0"

// Snapshot is the versioned, portable export of the full link, click and
// admin corpus. Field names are stable: consumers must ignore unknown extra
// fields, and missing optional fields default.
type Snapshot struct {
	Version    string        `json:"version"`
	ExportTime string        `json:"exportTime"`
	Data       SnapshotData  `json:"data"`
	Stats      SnapshotStats `json:"stats"`
}

// SnapshotData holds the exported collections.
type SnapshotData struct {
	Links          []domain.Link       `json:"links"`
	ClickAnalytics []domain.ClickEvent `json:"clickAnalytics"`
	AdminUsers     []domain.AdminUser  `json:"adminUsers"`
}

// SnapshotStats summarizes the snapshot for quick inspection.
type SnapshotStats struct {
	TotalLinks  int `json:"totalLinks"`
	TotalClicks int `json:"totalClicks"`
}

// ImportOptions controls an import run.
type ImportOptions struct {
	// OverwriteExisting purges all click events and links before importing.
	OverwriteExisting bool
	// BatchSize is the click insert chunk size; zero means the configured
	// default, and values above the hard cap are clamped.
	BatchSize int
}

// ImportCounts tallies one collection pair of an import run.
type ImportCounts struct {
	Links          int `json:"links"`
	ClickAnalytics int `json:"clickAnalytics"`
}

// ImportReport enumerates what an import did. Errors carries per-record
// messages; a bad record never aborts the batch.
type ImportReport struct {
	Imported ImportCounts `json:"imported"`
	Skipped  ImportCounts `json:"skipped"`
	Errors   []string     `json:"errors,omitempty"`
}
