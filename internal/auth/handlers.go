package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"shortlink/internal/repository"
)

// Handlers serves login, logout and password change for the admin account.
type Handlers struct {
	storage    repository.Storage
	sessions   *SessionService
	passwords  *PasswordService
	cookieName string
	secure     bool
	log        *zap.Logger
}

// NewHandlers creates the authentication handlers. secure controls the
// Secure flag on the session cookie.
func NewHandlers(storage repository.Storage, sessions *SessionService, passwords *PasswordService, cookieName string, secure bool, log *zap.Logger) *Handlers {
	return &Handlers{
		storage:    storage,
		sessions:   sessions,
		passwords:  passwords,
		cookieName: cookieName,
		secure:     secure,
		log:        log,
	}
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the password change request body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Login verifies credentials and sets the session cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	admin, err := h.storage.GetAdminUser(r.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, repository.ErrAdminNotFound) {
			h.log.Error("failed to load admin user", zap.Error(err))
			h.writeError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		// Unknown user and wrong password are indistinguishable to the caller.
		h.writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := h.passwords.VerifyPassword(admin.PasswordHash, req.Password); err != nil {
		h.log.Debug("failed login attempt", zap.String("username", req.Username))
		h.writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.sessions.Issue(admin.Username)
	if err != nil {
		h.log.Error("failed to issue session token", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessions.TTL().Seconds()),
	})

	h.log.Info("admin logged in", zap.String("username", admin.Username))
	h.writeJSON(w, http.StatusOK, map[string]string{"username": admin.Username})
}

// Logout clears the session cookie. The token itself stays valid until
// expiry; there is no server-side revocation list.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// ChangePassword replaces the admin credential after re-verifying the
// current one. The hash is replaced wholesale.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	username, ok := GetUsernameFromContext(r.Context())
	if !ok {
		h.writeError(w, "Authorization required", http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if err := IsValidPassword(req.NewPassword); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	admin, err := h.storage.GetAdminUser(r.Context(), username)
	if err != nil {
		h.log.Error("failed to load admin user", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := h.passwords.VerifyPassword(admin.PasswordHash, req.CurrentPassword); err != nil {
		h.writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	hash, err := h.passwords.HashPassword(req.NewPassword)
	if err != nil {
		h.log.Error("failed to hash password", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := h.storage.UpdateAdminPassword(r.Context(), username, hash); err != nil {
		h.log.Error("failed to update admin password", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.log.Info("admin password changed", zap.String("username", username))
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
