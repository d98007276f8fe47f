package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"shortlink/internal/domain"
	"shortlink/internal/repository"
)

const topReferrerLimit = 10

// ReferrerStat is one normalized referrer bucket with its click count.
type ReferrerStat struct {
	Referer string `json:"referer"`
	Clicks  int64  `json:"clicks"`
}

// LinkStats is the per-link rollup as of the query instant.
type LinkStats struct {
	TotalClicks  int64                 `json:"totalClicks"`
	TodayClicks  int64                 `json:"todayClicks"`
	WeekClicks   int64                 `json:"weekClicks"`
	MonthClicks  int64                 `json:"monthClicks"`
	DailyStats   []repository.DayCount `json:"dailyStats"`
	TopReferrers []ReferrerStat        `json:"topReferrers"`
}

// TopLink is one entry of the global by-clicks leaderboard.
type TopLink struct {
	ShortCode   string  `json:"shortCode"`
	OriginalURL string  `json:"originalUrl"`
	Title       *string `json:"title,omitempty"`
	Clicks      int64   `json:"clicks"`
}

// GlobalStats is the service-wide rollup across all links.
type GlobalStats struct {
	TotalLinks    int64                 `json:"totalLinks"`
	ActiveLinks   int64                 `json:"activeLinks"`
	InactiveLinks int64                 `json:"inactiveLinks"`
	TotalClicks   int64                 `json:"totalClicks"`
	TodayClicks   int64                 `json:"todayClicks"`
	WeekClicks    int64                 `json:"weekClicks"`
	TopLinks      []TopLink             `json:"topLinks"`
	DailyClicks   []repository.DayCount `json:"dailyClicks"`
	TopReferrers  []ReferrerStat        `json:"topReferrers"`
}

// Engine executes the atomic click-accounting unit and computes
// time-windowed rollups. Window math is UTC: "today" starts at UTC
// midnight, week and month windows roll.
type Engine struct {
	storage repository.Storage
	level   AggLevel
	log     *zap.Logger
}

// NewEngine creates a click accounting engine with the configured referrer
// aggregation level.
func NewEngine(storage repository.Storage, level AggLevel, log *zap.Logger) *Engine {
	return &Engine{storage: storage, level: level, log: log}
}

// RecordClick increments the link counter and appends the analytics row as
// one all-or-nothing unit.
func (e *Engine) RecordClick(ctx context.Context, linkID int64, event *domain.ClickEvent) error {
	if err := e.storage.RecordClick(ctx, linkID, event); err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}
	return nil
}

// LinkStats computes the rollup for one link. The total is the
// authoritative ClickEvent count, not the cached counter, so drift in the
// cache never reaches readers.
func (e *Engine) LinkStats(ctx context.Context, linkID int64) (*LinkStats, error) {
	today, weekAgo, monthAgo := windows(time.Now())

	total, err := e.storage.CountClicks(ctx, linkID, nil)
	if err != nil {
		return nil, err
	}
	todayClicks, err := e.storage.CountClicks(ctx, linkID, &today)
	if err != nil {
		return nil, err
	}
	weekClicks, err := e.storage.CountClicks(ctx, linkID, &weekAgo)
	if err != nil {
		return nil, err
	}
	monthClicks, err := e.storage.CountClicks(ctx, linkID, &monthAgo)
	if err != nil {
		return nil, err
	}

	daily, err := e.storage.DailyClickCounts(ctx, linkID, monthAgo)
	if err != nil {
		return nil, err
	}
	referrers, err := e.topReferrers(ctx, linkID, monthAgo)
	if err != nil {
		return nil, err
	}

	return &LinkStats{
		TotalClicks:  total,
		TodayClicks:  todayClicks,
		WeekClicks:   weekClicks,
		MonthClicks:  monthClicks,
		DailyStats:   daily,
		TopReferrers: referrers,
	}, nil
}

// GlobalStats computes the rollup across all links plus the top-10 active
// links by cached click count.
func (e *Engine) GlobalStats(ctx context.Context) (*GlobalStats, error) {
	today, weekAgo, monthAgo := windows(time.Now())

	counts, err := e.storage.CountLinks(ctx)
	if err != nil {
		return nil, err
	}
	total, err := e.storage.CountClicks(ctx, 0, nil)
	if err != nil {
		return nil, err
	}
	todayClicks, err := e.storage.CountClicks(ctx, 0, &today)
	if err != nil {
		return nil, err
	}
	weekClicks, err := e.storage.CountClicks(ctx, 0, &weekAgo)
	if err != nil {
		return nil, err
	}

	topLinks, err := e.storage.TopLinksByClicks(ctx, topReferrerLimit)
	if err != nil {
		return nil, err
	}
	daily, err := e.storage.DailyClickCounts(ctx, 0, monthAgo)
	if err != nil {
		return nil, err
	}
	referrers, err := e.topReferrers(ctx, 0, monthAgo)
	if err != nil {
		return nil, err
	}

	stats := &GlobalStats{
		TotalLinks:    counts.Total,
		ActiveLinks:   counts.Active,
		InactiveLinks: counts.Inactive,
		TotalClicks:   total,
		TodayClicks:   todayClicks,
		WeekClicks:    weekClicks,
		DailyClicks:   daily,
		TopReferrers:  referrers,
	}
	for _, link := range topLinks {
		stats.TopLinks = append(stats.TopLinks, TopLink{
			ShortCode:   link.ShortCode,
			OriginalURL: link.OriginalURL,
			Title:       link.Title,
			Clicks:      link.ClickCount,
		})
	}
	return stats, nil
}

// topReferrers folds exact referrer strings into normalized buckets and
// returns the ten largest. linkID zero spans all links.
func (e *Engine) topReferrers(ctx context.Context, linkID int64, since time.Time) ([]ReferrerStat, error) {
	rows, err := e.storage.ReferrerCounts(ctx, linkID, since)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]int64, len(rows))
	for _, row := range rows {
		buckets[NormalizeReferrer(row.Referer, e.level)] += row.Count
	}

	stats := make([]ReferrerStat, 0, len(buckets))
	for referer, clicks := range buckets {
		stats = append(stats, ReferrerStat{Referer: referer, Clicks: clicks})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Clicks != stats[j].Clicks {
			return stats[i].Clicks > stats[j].Clicks
		}
		return stats[i].Referer < stats[j].Referer
	})
	if len(stats) > topReferrerLimit {
		stats = stats[:topReferrerLimit]
	}
	return stats, nil
}

// windows returns the UTC-midnight "today" boundary and the rolling 7- and
// 30-day boundaries for the given instant.
func windows(now time.Time) (today, weekAgo, monthAgo time.Time) {
	utc := now.UTC()
	today = time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo = utc.Add(-7 * 24 * time.Hour)
	monthAgo = utc.Add(-30 * 24 * time.Hour)
	return today, weekAgo, monthAgo
}
