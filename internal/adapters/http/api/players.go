package api

import (
	"context"
	"net/http"
	"time"

	"github.com/s3m-esports/standings/internal/app/session"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/types"
)

// PlayerDependencies defines the interface for player card and registration operations.
type PlayerDependencies interface {
	session.Subscriber
	Player(ctx context.Context, playerID string) (types.PlayerCard, error)
	Register(ctx context.Context, actor model.Actor, p model.Profile) (model.ScoreRecord, bool, error)
}

// PlayerHandler handles player requests.
type PlayerHandler struct {
	deps      PlayerDependencies
	keepAlive time.Duration
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps PlayerDependencies, keepAlive time.Duration) *PlayerHandler {
	return &PlayerHandler{deps: deps, keepAlive: keepAlive}
}

// HandleGetPlayer handles GET /players/{id} requests.
func (h *PlayerHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player"
	id := r.PathValue("id")
	if !model.ValidPlayerID(id) {
		writeError(w, r, WrapKind(op, ErrBadRequest, errInvalidParam("player id")))
		return
	}
	card, err := h.deps.Player(r.Context(), id)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// HandleStream handles GET /players/{id}/stream requests.
func (h *PlayerHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream_player"
	id := r.PathValue("id")
	if !model.ValidPlayerID(id) {
		writeError(w, r, WrapKind(op, ErrBadRequest, errInvalidParam("player id")))
		return
	}
	stream(w, r, op, h.deps, model.PlayerTopic(id), "player", h.keepAlive,
		func(ctx context.Context) (types.PlayerCard, error) {
			return h.deps.Player(ctx, id)
		})
}

// registerRequest mirrors the OpenAPI schema for POST /players.
type registerRequest struct {
	PlayerID  string `json:"player_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// HandleRegister handles POST /players. The player id defaults to the caller.
func (h *PlayerHandler) HandleRegister(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	const op = "api.register_player"
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.PlayerID == "" {
		req.PlayerID = actor.ID
	}
	rec, created, err := h.deps.Register(r.Context(), actor, model.Profile{
		PlayerID:  req.PlayerID,
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
	})
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeMutation(w, r, op, status, rec, err)
}
