package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"shortlink/internal/analytics"
	"shortlink/internal/domain"
	"shortlink/internal/geo"
	"shortlink/internal/repository"
	"shortlink/pkg/useragent"
)

// RedirectHandler resolves short codes and hands clicks to the async
// processor. The visitor is redirected even when accounting fails: a
// dropped click must never block the redirect.
type RedirectHandler struct {
	storage   repository.Storage
	processor *analytics.Processor
	resolver  *geo.HeaderResolver
	uaParser  *useragent.Parser
	log       *zap.Logger
}

// NewRedirectHandler creates a new redirect handler.
func NewRedirectHandler(storage repository.Storage, processor *analytics.Processor, resolver *geo.HeaderResolver, uaParser *useragent.Parser, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		storage:   storage,
		processor: processor,
		resolver:  resolver,
		uaParser:  uaParser,
		log:       log,
	}
}

// HandleRedirect resolves the code and answers with a redirect, not found,
// or gone for expired links.
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/")

	// Reserved names are matched exactly; generated codes may well start
	// with "api" and must still resolve.
	if code == "" || strings.ContainsRune(code, '/') ||
		code == "api" || code == "health" || code == "ready" || code == "favicon.ico" {
		http.NotFound(w, r)
		return
	}

	link, err := h.storage.FindActiveByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			http.NotFound(w, r)
			return
		}
		h.log.Error("failed to resolve short code", zap.String("short_code", code), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if link.IsExpired(time.Now()) {
		h.log.Debug("expired link requested", zap.String("short_code", code))
		http.Error(w, "Link expired", http.StatusGone)
		return
	}

	// Fire-and-forget accounting: the processor owns its own context, so a
	// client disconnect here cannot tear down the recording transaction.
	if err := h.processor.Submit(&analytics.ClickJob{
		LinkID: link.ID,
		Event:  h.buildClickEvent(r),
	}); err != nil {
		h.log.Error("failed to submit click", zap.String("short_code", code), zap.Error(err))
	}

	h.log.Info("redirect",
		zap.String("short_code", code),
		zap.String("original_url", link.OriginalURL))
	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}

func (h *RedirectHandler) buildClickEvent(r *http.Request) *domain.ClickEvent {
	event := &domain.ClickEvent{ClickedAt: time.Now()}

	if ip := h.resolver.ClientIP(r); ip != "" {
		event.IPAddress = &ip
	}
	if ua := r.UserAgent(); ua != "" {
		event.UserAgent = &ua
		device := h.uaParser.Parse(ua).DeviceType
		event.DeviceType = &device
	}
	if referer := r.Referer(); referer != "" {
		event.Referer = &referer
	}

	loc := h.resolver.Resolve(r.Header)
	event.Country = loc.Country
	event.City = loc.City
	event.CountryName = loc.CountryName
	event.CountryID = loc.CountryID
	event.ProvinceName = loc.ProvinceName
	event.ProvinceID = loc.ProvinceID
	event.CityName = loc.CityName
	event.CityID = loc.CityID

	return event
}
