package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/types"
)

// AdminDependencies defines the interface for admin operations.
type AdminDependencies interface {
	SetStats(ctx context.Context, actor model.Actor, playerID string, patch model.Patch) (model.ScoreRecord, error)
	SetVisibility(ctx context.Context, actor model.Actor, playerID string, visible bool) (model.ScoreRecord, error)
	AddPoints(ctx context.Context, actor model.Actor, playerID string, delta int64, requestID string) (model.ScoreRecord, error)
	Recompute(ctx context.Context, actor model.Actor) ([]string, error)
	SendNotification(ctx context.Context, actor model.Actor, playerID, title, message string, typ model.NotificationType) (model.Notification, error)
	Summary(ctx context.Context) (types.Summary, error)
}

// AdminHandler handles admin requests.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// HandleSetStats handles PUT /admin/players/{id}/stats.
func (h *AdminHandler) HandleSetStats(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	const op = "api.set_stats"
	var patch model.Patch
	if err := decode(r, &patch); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.SetStats(r.Context(), actor, r.PathValue("id"), patch)
	writeMutation(w, r, op, http.StatusOK, rec, err)
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

// HandleSetVisibility handles PUT /admin/players/{id}/visibility.
func (h *AdminHandler) HandleSetVisibility(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	const op = "api.set_visibility"
	var req visibilityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Visible == nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, errors.New("missing visible")))
		return
	}
	rec, err := h.deps.SetVisibility(r.Context(), actor, r.PathValue("id"), *req.Visible)
	writeMutation(w, r, op, http.StatusOK, rec, err)
}

// pointsRequest grants delta points; request_id makes retries safe.
type pointsRequest struct {
	Delta     int64  `json:"delta"`
	RequestID string `json:"request_id"`
}

// HandleAddPoints handles POST /admin/players/{id}/points. The Idempotency-Key
// header is used when the body has no request id.
func (h *AdminHandler) HandleAddPoints(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	const op = "api.add_points"
	var req pointsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.RequestID == "" {
		req.RequestID = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}
	rec, err := h.deps.AddPoints(r.Context(), actor, r.PathValue("id"), req.Delta, req.RequestID)
	writeMutation(w, r, op, http.StatusOK, rec, err)
}

type notifyRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// HandleNotify handles POST /admin/players/{id}/notifications.
func (h *AdminHandler) HandleNotify(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	const op = "api.notify"
	var req notifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	n, err := h.deps.SendNotification(r.Context(), actor, r.PathValue("id"),
		req.Title, req.Message, model.NotificationType(req.Type))
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

type recomputeResponse struct {
	Changed []string `json:"changed"`
}

// HandleRecompute handles POST /admin/recompute.
func (h *AdminHandler) HandleRecompute(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	const op = "api.recompute"
	changed, err := h.deps.Recompute(r.Context(), actor)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	if changed == nil {
		changed = []string{}
	}
	writeJSON(w, http.StatusOK, recomputeResponse{Changed: changed})
}

// HandleSummary handles GET /admin/summary for admins and moderators.
func (h *AdminHandler) HandleSummary(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	const op = "api.summary"
	if !actor.CanView() {
		writeError(w, r, NewKind(op, ErrForbidden))
		return
	}
	sum, err := h.deps.Summary(r.Context())
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
