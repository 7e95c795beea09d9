// Package api exposes the HTTP handlers of the points ledger.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"example.com/bjjpoints/internal/auth"
	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/realtime"
)

// PublicPaths are served without a bearer token.
var PublicPaths = []string{
	"/healthz",
	"/metrics",
	"/config.json",
	"/v1/auth/register",
	"/v1/auth/login",
}

const maxBodyBytes = 1 << 20

// ClientConfig is handed to browser clients by /config.json.
type ClientConfig struct {
	PublicURL string
	AnonKey   string
}

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service   *domain.Service
	auth      auth.Config
	hub       *realtime.Hub
	refresher *realtime.Refresher
	client    ClientConfig
	keepAlive time.Duration
	logger    *log.Logger
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithRealtime enables the leaderboard stream and cached leaderboards.
func WithRealtime(hub *realtime.Hub, refresher *realtime.Refresher) Option {
	return func(h *Handler) {
		h.hub = hub
		h.refresher = refresher
	}
}

// WithClientConfig sets the values returned by /config.json.
func WithClientConfig(cfg ClientConfig) Option {
	return func(h *Handler) {
		h.client = cfg
	}
}

// WithKeepAlive sets the interval of stream keepalive comments.
func WithKeepAlive(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// WithLogger overrides the handler logger.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler builds a Handler. Tokens are issued with authCfg.
func NewHandler(service *domain.Service, authCfg auth.Config, opts ...Option) *Handler {
	h := &Handler{
		service:   service,
		auth:      authCfg,
		keepAlive: 25 * time.Second,
		logger:    log.New(log.Writer(), "[api] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", healthz)
	mux.HandleFunc("GET /config.json", h.clientConfig)

	mux.HandleFunc("POST /v1/auth/register", h.register)
	mux.HandleFunc("POST /v1/auth/login", h.login)
	mux.HandleFunc("POST /v1/auth/logout", h.logout)

	mux.HandleFunc("GET /v1/me", h.me)
	mux.HandleFunc("GET /v1/me/activities", h.history)
	mux.HandleFunc("POST /v1/me/activities", h.recordActivity)
	mux.HandleFunc("POST /v1/me/undo", h.undo)
	mux.HandleFunc("GET /v1/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /v1/stream", h.stream)

	mux.HandleFunc("GET /v1/athletes", h.listAthletes)
	mux.HandleFunc("POST /v1/athletes", h.createAthlete)
	mux.HandleFunc("GET /v1/athletes/{id}", h.athleteDetail)
	mux.HandleFunc("PATCH /v1/athletes/{id}", h.updateAthlete)
	mux.HandleFunc("POST /v1/athletes/{id}/entries", h.logEntry)
	mux.HandleFunc("POST /v1/athletes/{id}/promote", h.promote)
	mux.HandleFunc("GET /v1/roster", h.roster)
	mux.HandleFunc("GET /v1/roster/export.xlsx", h.exportRoster)
}

// Router returns the complete API handler: routes, bearer authentication, CORS and request logging.
// mount registers additional routes such as /metrics.
func (h *Handler) Router(corsOrigin string, mount ...func(*http.ServeMux)) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	for _, m := range mount {
		m(mux)
	}
	authed := auth.NewMiddleware(h.auth, auth.PathSkipper(PublicPaths...)).Wrap(mux)
	return RequestLogger(h.logger, CORS(corsOrigin, authed))
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) clientConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, ClientConfigResponse{
		SupabaseURL:     h.client.PublicURL,
		SupabaseAnonKey: h.client.AnonKey,
	})
}

// session resolves the open session behind the bearer token.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*domain.Session, *auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, nil, false
	}
	session, err := h.service.Session(claims.SessionID)
	if err != nil || session.UserID != claims.Subject {
		writeError(w, http.StatusUnauthorized, "session_closed", domain.ErrSessionClosed.Error())
		return nil, nil, false
	}
	return session, claims, true
}

func (h *Handler) athlete(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	session, claims, ok := h.session(w, r)
	if !ok {
		return nil, false
	}
	if !claims.HasScope(auth.ScopeLedgerSelf) {
		writeError(w, http.StatusForbidden, "forbidden", "scope ledger:self required")
		return nil, false
	}
	return session, true
}

func (h *Handler) trainer(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	session, claims, ok := h.session(w, r)
	if !ok {
		return nil, false
	}
	if !claims.HasScope(auth.ScopeLedgerTrainer) || !session.IsTrainer {
		writeError(w, http.StatusForbidden, "forbidden", "scope ledger:trainer required")
		return nil, false
	}
	return session, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	if parsed > max {
		return max
	}
	return parsed
}

// writeDomainError maps service errors to status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, domain.ErrSessionClosed):
		writeError(w, http.StatusUnauthorized, "session_closed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())
	case errors.Is(err, domain.ErrNothingToUndo):
		writeError(w, http.StatusConflict, "nothing_to_undo", err.Error())
	case errors.Is(err, domain.ErrNotBeltReady):
		writeError(w, http.StatusConflict, "not_belt_ready", err.Error())
	case errors.Is(err, domain.ErrBeltChanged):
		writeError(w, http.StatusConflict, "belt_changed", err.Error())
	default:
		h.logger.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
