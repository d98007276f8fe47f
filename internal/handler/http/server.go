package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"shortlink/internal/analytics"
	"shortlink/internal/auth"
	"shortlink/internal/geo"
	"shortlink/internal/repository"
	"shortlink/internal/service"
	"shortlink/internal/transfer"
	"shortlink/pkg/useragent"
)

// Server bundles all HTTP handlers and routing.
type Server struct {
	authHandlers    *auth.Handlers
	linksHandler    *LinksHandler
	dataHandler     *DataHandler
	redirectHandler *RedirectHandler
	healthHandler   *HealthHandler
	authMiddleware  *auth.Middleware
	log             *zap.Logger
}

// NewServer wires the HTTP surface from its collaborators.
func NewServer(
	storage repository.Storage,
	links *service.LinkService,
	engine *analytics.Engine,
	processor *analytics.Processor,
	transferEngine *transfer.Engine,
	sessions *auth.SessionService,
	passwords *auth.PasswordService,
	resolver *geo.HeaderResolver,
	uaParser *useragent.Parser,
	cookieName string,
	secureCookies bool,
	baseURL string,
	log *zap.Logger,
) *Server {
	return &Server{
		authHandlers:    auth.NewHandlers(storage, sessions, passwords, cookieName, secureCookies, log),
		linksHandler:    NewLinksHandler(storage, links, engine, log, baseURL),
		dataHandler:     NewDataHandler(transferEngine, log),
		redirectHandler: NewRedirectHandler(storage, processor, resolver, uaParser, log),
		healthHandler:   NewHealthHandler(storage, processor, log),
		authMiddleware:  auth.NewMiddleware(sessions, cookieName, log),
		log:             log,
	}
}

// SetupRoutes builds the request mux. The redirect route stays last: every
// unclaimed path is a short code candidate.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Probes (no authentication)
	mux.HandleFunc("/health", s.healthHandler.Health)
	mux.HandleFunc("/ready", s.healthHandler.Ready)

	// Auth endpoints
	mux.HandleFunc("/api/auth/login", s.withCORS(s.authHandlers.Login))
	mux.HandleFunc("/api/auth/logout", s.withCORS(s.authHandlers.Logout))
	mux.HandleFunc("/api/auth/change-password", s.withCORS(s.authMiddleware.RequireAuth(s.authHandlers.ChangePassword)))

	// Link management (session-gated)
	mux.HandleFunc("/api/links", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.HandleLinks)))
	mux.HandleFunc("/api/links/", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.HandleLink)))
	mux.HandleFunc("/api/admin/links/batch-delete", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.BatchDelete)))
	mux.HandleFunc("/api/admin/links/cleanup", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.Cleanup)))

	// Statistics and bulk transfer (session-gated)
	mux.HandleFunc("/api/stats/global", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.GlobalStats)))
	mux.HandleFunc("/api/admin/data/export", s.withCORS(s.authMiddleware.RequireAuth(s.dataHandler.Export)))
	mux.HandleFunc("/api/admin/data/import", s.withCORS(s.authMiddleware.RequireAuth(s.dataHandler.Import)))

	// Redirect endpoint (no authentication) - must be last
	mux.HandleFunc("/", s.redirectHandler.HandleRedirect)

	return mux
}

// withCORS adds permissive CORS headers for the admin dashboard.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
