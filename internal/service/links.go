package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"shortlink/internal/config"
	"shortlink/internal/domain"
	"shortlink/internal/repository"
	"shortlink/pkg/random"
)

// ErrInvalidURL marks a destination that is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid original url")

var reservedCodes = map[string]bool{
	"api":         true,
	"health":      true,
	"ready":       true,
	"favicon.ico": true,
}

// saveRetries bounds how often a create regenerates after losing the
// check-then-insert race on a random code.
const saveRetries = 3

// CreateLinkInput carries everything needed to create a link.
type CreateLinkInput struct {
	OriginalURL      string
	Title            *string
	Description      *string
	ExpiresAt        *time.Time
	CustomCode       string
	CreatorIP        *string
	CreatorUserAgent *string
}

// LinkService creates links and owns short code generation.
type LinkService struct {
	storage repository.Storage
	cfg     *config.ShortCode
	log     *zap.Logger

	// generate is swapped out by tests to force collisions.
	generate func(length int) (string, error)
}

// NewLinkService creates a new link service.
func NewLinkService(storage repository.Storage, cfg *config.ShortCode, log *zap.Logger) *LinkService {
	return &LinkService{
		storage:  storage,
		cfg:      cfg,
		log:      log,
		generate: random.NewRandomString,
	}
}

// CreateLink validates the destination, settles on a short code and persists
// the link. A custom code is used verbatim after an existence check spanning
// soft-deleted rows. Random codes that lose the check-then-insert race are
// regenerated; custom codes are not.
func (s *LinkService) CreateLink(ctx context.Context, in CreateLinkInput) (*domain.Link, error) {
	if !isValidURL(in.OriginalURL) {
		return nil, ErrInvalidURL
	}

	if in.CustomCode != "" {
		// Route names the redirect handler reserves; a link under one of
		// them could never resolve.
		if reservedCodes[in.CustomCode] {
			return nil, repository.ErrCodeExists
		}
		exists, err := s.storage.CodeExists(ctx, in.CustomCode)
		if err != nil {
			return nil, fmt.Errorf("failed to check custom code: %w", err)
		}
		if exists {
			return nil, repository.ErrCodeExists
		}
		return s.save(ctx, in, in.CustomCode)
	}

	var lastErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		code, err := s.generateCode(ctx)
		if err != nil {
			return nil, err
		}
		link, err := s.save(ctx, in, code)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return nil, err
		}
		// Lost the race to a concurrent create; generate a fresh code.
		s.log.Debug("short code collided on insert, regenerating", zap.String("short_code", code))
		lastErr = err
	}
	return nil, lastErr
}

// UpdateLink applies a partial update after validating any new destination
// and returns the refreshed row.
func (s *LinkService) UpdateLink(ctx context.Context, id int64, update repository.LinkUpdate) (*domain.Link, error) {
	if update.OriginalURL != nil && !isValidURL(*update.OriginalURL) {
		return nil, ErrInvalidURL
	}
	if err := s.storage.UpdateLink(ctx, id, update); err != nil {
		return nil, err
	}
	s.log.Info("updated link", zap.Int64("link_id", id))
	return s.storage.GetLinkByID(ctx, id)
}

func (s *LinkService) save(ctx context.Context, in CreateLinkInput, code string) (*domain.Link, error) {
	link := &domain.Link{
		ShortCode:        code,
		OriginalURL:      in.OriginalURL,
		Title:            in.Title,
		Description:      in.Description,
		ExpiresAt:        in.ExpiresAt,
		IsActive:         true,
		CreatorIP:        in.CreatorIP,
		CreatorUserAgent: in.CreatorUserAgent,
	}
	if err := s.storage.SaveLink(ctx, link); err != nil {
		return nil, err
	}
	s.log.Info("created link", zap.String("short_code", link.ShortCode), zap.Int64("link_id", link.ID))
	return link, nil
}

// generateCode draws random codes of the configured length until one is
// free, bounded by the configured attempt count. When the bound is
// exhausted it falls back to a longer code without another lookup; the
// unique index on short_code is the final guard for that path.
func (s *LinkService) generateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		code, err := s.generate(s.cfg.Length)
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}
		exists, err := s.storage.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check short code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	s.log.Warn("short code attempts exhausted, falling back to longer code",
		zap.Int("attempts", s.cfg.MaxAttempts),
		zap.Int("fallback_length", s.cfg.FallbackLength))
	code, err := s.generate(s.cfg.FallbackLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate fallback short code: %w", err)
	}
	return code, nil
}

func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
