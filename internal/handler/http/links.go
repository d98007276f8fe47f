package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"shortlink/internal/analytics"
	"shortlink/internal/domain"
	"shortlink/internal/repository"
	"shortlink/internal/service"
)

// LinksHandler serves link CRUD and per-link statistics.
type LinksHandler struct {
	storage repository.Storage
	links   *service.LinkService
	engine  *analytics.Engine
	log     *zap.Logger
	baseURL string
}

// NewLinksHandler creates a new links handler.
func NewLinksHandler(storage repository.Storage, links *service.LinkService, engine *analytics.Engine, log *zap.Logger, baseURL string) *LinksHandler {
	return &LinksHandler{
		storage: storage,
		links:   links,
		engine:  engine,
		log:     log,
		baseURL: baseURL,
	}
}

// CreateLinkRequest is the link creation request body.
type CreateLinkRequest struct {
	OriginalURL string `json:"originalUrl"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	CustomCode  string `json:"customCode,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

// CreateLinkResponse is the link creation response body.
type CreateLinkResponse struct {
	Link     *domain.Link `json:"link"`
	ShortURL string       `json:"shortUrl"`
}

// ListLinksResponse is the paginated link listing response body.
type ListLinksResponse struct {
	Links       []*domain.Link `json:"links"`
	Total       int64          `json:"total"`
	Pages       int64          `json:"pages"`
	CurrentPage int            `json:"currentPage"`
}

// UpdateLinkRequest is the partial link update request body. Absent fields
// are left untouched.
type UpdateLinkRequest struct {
	OriginalURL *string `json:"originalUrl,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	ExpiresAt   *string `json:"expiresAt,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// BatchDeleteRequest names the links a batch hard delete destroys.
type BatchDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// HandleLinks dispatches the /api/links collection endpoint.
func (h *LinksHandler) HandleLinks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createLink(w, r)
	case http.MethodGet:
		h.listLinks(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LinksHandler) createLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	in := service.CreateLinkInput{
		OriginalURL: req.OriginalURL,
		CustomCode:  req.CustomCode,
	}
	if req.Title != "" {
		in.Title = &req.Title
	}
	if req.Description != "" {
		in.Description = &req.Description
	}
	if req.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, "Invalid expiresAt format, use RFC3339", http.StatusBadRequest)
			return
		}
		in.ExpiresAt = &expiresAt
	}
	if ip := clientAddr(r); ip != "" {
		in.CreatorIP = &ip
	}
	if ua := r.UserAgent(); ua != "" {
		in.CreatorUserAgent = &ua
	}

	link, err := h.links.CreateLink(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			writeError(w, "Invalid URL", http.StatusBadRequest)
		case errors.Is(err, repository.ErrCodeExists):
			writeError(w, "Short code already taken", http.StatusConflict)
		default:
			h.log.Error("failed to create link", zap.Error(err))
			writeError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, CreateLinkResponse{
		Link:     link,
		ShortURL: strings.TrimSuffix(h.baseURL, "/") + "/" + link.ShortCode,
	})
}

func (h *LinksHandler) listLinks(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	links, total, err := h.storage.ListLinks(r.Context(), page, limit)
	if err != nil {
		h.log.Error("failed to list links", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	writeJSON(w, http.StatusOK, ListLinksResponse{
		Links:       links,
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
	})
}

// HandleLink dispatches /api/links/{id} and /api/links/{id}/stats.
func (h *LinksHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/links/")
	idPart, sub, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, "Invalid link id", http.StatusBadRequest)
		return
	}

	switch {
	case sub == "stats" && r.Method == http.MethodGet:
		h.linkStats(w, r, id)
	case sub == "" && r.Method == http.MethodDelete:
		h.deleteLink(w, r, id)
	case sub == "" && r.Method == http.MethodPut:
		h.updateLink(w, r, id)
	case sub == "" && r.Method == http.MethodGet:
		h.getLink(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LinksHandler) getLink(w http.ResponseWriter, r *http.Request, id int64) {
	link, err := h.storage.GetLinkByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			writeError(w, "Link not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to get link", zap.Int64("link_id", id), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *LinksHandler) linkStats(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := h.storage.GetLinkByID(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			writeError(w, "Link not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to get link", zap.Int64("link_id", id), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	stats, err := h.engine.LinkStats(r.Context(), id)
	if err != nil {
		h.log.Error("failed to compute link stats", zap.Int64("link_id", id), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *LinksHandler) updateLink(w http.ResponseWriter, r *http.Request, id int64) {
	var req UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	update := repository.LinkUpdate{
		OriginalURL: req.OriginalURL,
		Title:       req.Title,
		Description: req.Description,
		IsActive:    req.IsActive,
	}
	if req.ExpiresAt != nil {
		expiresAt, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			writeError(w, "Invalid expiresAt format, use RFC3339", http.StatusBadRequest)
			return
		}
		update.ExpiresAt = &expiresAt
	}

	link, err := h.links.UpdateLink(r.Context(), id, update)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			writeError(w, "Invalid URL", http.StatusBadRequest)
		case errors.Is(err, repository.ErrLinkNotFound):
			writeError(w, "Link not found", http.StatusNotFound)
		default:
			h.log.Error("failed to update link", zap.Int64("link_id", id), zap.Error(err))
			writeError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// deleteLink soft-deletes by default; ?hard=true destroys the row and its
// click events.
func (h *LinksHandler) deleteLink(w http.ResponseWriter, r *http.Request, id int64) {
	hard := r.URL.Query().Get("hard") == "true"

	var err error
	if hard {
		err = h.storage.HardDeleteLink(r.Context(), id)
	} else {
		err = h.storage.SoftDeleteLink(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			writeError(w, "Link not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to delete link", zap.Int64("link_id", id), zap.Bool("hard", hard), zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.log.Info("deleted link", zap.Int64("link_id", id), zap.Bool("hard", hard))
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// BatchDelete hard-deletes a set of links in one transaction.
func (h *LinksHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BatchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	deleted, err := h.storage.HardDeleteLinks(r.Context(), req.IDs)
	if err != nil {
		h.log.Error("failed to batch delete links", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deletedCount": deleted})
}

// Cleanup destroys every soft-deleted or expired link with its events.
func (h *LinksHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	removed, err := h.storage.CleanupInactiveLinks(r.Context())
	if err != nil {
		h.log.Error("failed to cleanup links", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deletedCount": removed})
}

// GlobalStats serves the service-wide rollup.
func (h *LinksHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.engine.GlobalStats(r.Context())
	if err != nil {
		h.log.Error("failed to compute global stats", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func clientAddr(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
