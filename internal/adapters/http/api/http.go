// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/s3m-esports/standings/internal/adapters/http/auth"
	"github.com/s3m-esports/standings/internal/app/gateway"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/pkg/logger"
)

const (
	defaultMaxLimit  = 500
	defaultKeepAlive = 15 * time.Second
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LeaderboardDependencies
	PlayerDependencies
	AdminDependencies
	InboxDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	playerHandler      *PlayerHandler
	adminHandler       *AdminHandler
	inboxHandler       *InboxHandler
	dashboardHandler   *dashboardHandler

	guard *guard
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{maxLimit: defaultMaxLimit, keepAlive: defaultKeepAlive}
	for _, opt := range opts {
		opt(&cfg)
	}
	g := &guard{tokens: cfg.tokens, limiter: cfg.limiter}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit, cfg.keepAlive),
		playerHandler:      NewPlayerHandler(deps, cfg.keepAlive),
		adminHandler:       NewAdminHandler(deps),
		inboxHandler:       NewInboxHandler(deps, cfg.keepAlive),
		dashboardHandler:   newdashboardHandler(),
		guard:              g,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	g := s.guard

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	lb := s.leaderboardHandler
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(lb.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /leaderboard/stream", MetricsMiddleware(lb.HandleStream, "leaderboard_stream"))
	mux.HandleFunc("GET /leaderboard/export.xlsx", MetricsMiddleware(lb.HandleExport, "leaderboard_export"))

	ph := s.playerHandler
	mux.HandleFunc("GET /players/{id}", MetricsMiddleware(ph.HandleGetPlayer, "player"))
	mux.HandleFunc("GET /players/{id}/stream", MetricsMiddleware(ph.HandleStream, "player_stream"))
	mux.HandleFunc("POST /players", MetricsMiddleware(g.authenticated(ph.HandleRegister), "register"))

	ah := s.adminHandler
	mux.HandleFunc("PUT /admin/players/{id}/stats", MetricsMiddleware(g.admin(ah.HandleSetStats), "admin_stats"))
	mux.HandleFunc("PUT /admin/players/{id}/visibility", MetricsMiddleware(g.admin(ah.HandleSetVisibility), "admin_visibility"))
	mux.HandleFunc("POST /admin/players/{id}/points", MetricsMiddleware(g.admin(ah.HandleAddPoints), "admin_points"))
	mux.HandleFunc("POST /admin/players/{id}/notifications", MetricsMiddleware(g.admin(ah.HandleNotify), "admin_notify"))
	mux.HandleFunc("POST /admin/recompute", MetricsMiddleware(g.admin(ah.HandleRecompute), "admin_recompute"))
	mux.HandleFunc("GET /admin/summary", MetricsMiddleware(g.authenticated(ah.HandleSummary), "admin_summary"))

	ih := s.inboxHandler
	mux.HandleFunc("GET /inbox", MetricsMiddleware(g.authenticated(ih.HandleList), "inbox"))
	mux.HandleFunc("GET /inbox/stream", MetricsMiddleware(g.authenticated(ih.HandleStream), "inbox_stream"))
	mux.HandleFunc("POST /inbox/{nid}/read", MetricsMiddleware(g.authenticated(ih.HandleMarkRead), "inbox_read"))
	mux.HandleFunc("DELETE /inbox/{nid}", MetricsMiddleware(g.authenticated(ih.HandleDelete), "inbox_delete"))
}

// actorHandler is a handler that runs with a verified actor.
type actorHandler func(w http.ResponseWriter, r *http.Request, actor model.Actor)

// guard authenticates bearer tokens and rate limits mutations per actor.
type guard struct {
	tokens  *auth.Tokens
	limiter *auth.RateLimiter
}

func (g *guard) authenticated(next actorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.authenticate"
		if g.tokens == nil {
			writeError(w, r, NewKind(op, auth.ErrInvalidToken))
			return
		}
		actor, err := g.tokens.FromRequest(r)
		if err != nil {
			writeError(w, r, Wrap(op, err))
			return
		}
		next(w, r.WithContext(model.WithActor(r.Context(), actor)), actor)
	}
}

func (g *guard) admin(next actorHandler) http.HandlerFunc {
	return g.authenticated(func(w http.ResponseWriter, r *http.Request, actor model.Actor) {
		const op = "api.admin"
		if !actor.IsAdmin() {
			writeError(w, r, NewKind(op, ErrForbidden))
			return
		}
		if g.limiter != nil && !g.limiter.Allow(actor.ID) {
			writeError(w, r, NewKind(op, ErrRateLimited))
			return
		}
		next(w, r, actor)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// recomputeFailedResponse reports a stored write whose ranks are stale.
type recomputeFailedResponse struct {
	errorResponse
	Record model.ScoreRecord `json:"record"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	noteErrorCode(w, code)
	if status >= http.StatusInternalServerError {
		logger.Named("api").Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path), logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// writeMutation answers a gateway call. A failed recompute still returns the
// stored record so the caller knows the write stood.
func writeMutation(w http.ResponseWriter, r *http.Request, op string, status int, rec model.ScoreRecord, err error) {
	switch {
	case err == nil:
		writeJSON(w, status, rec)
	case errors.Is(err, gateway.ErrRecomputationFailed):
		code, name := classify(err)
		noteErrorCode(w, name)
		writeJSON(w, code, recomputeFailedResponse{
			errorResponse: errorResponse{Code: name, Message: Wrap(op, err).Error()},
			Record:        rec,
		})
	default:
		writeError(w, r, Wrap(op, err))
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
