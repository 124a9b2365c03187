package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/s3m-esports/standings/internal/app/session"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/types"
)

// InboxDependencies defines the interface for a player's own inbox.
type InboxDependencies interface {
	session.Subscriber
	Inbox(ctx context.Context, playerID string, unreadOnly bool) (types.Inbox, error)
	MarkRead(ctx context.Context, playerID, id string) error
	DeleteNotification(ctx context.Context, playerID, id string) error
}

// InboxHandler handles inbox requests. The caller's actor id is the player id.
type InboxHandler struct {
	deps      InboxDependencies
	keepAlive time.Duration
}

// NewInboxHandler creates a new inbox handler.
func NewInboxHandler(deps InboxDependencies, keepAlive time.Duration) *InboxHandler {
	return &InboxHandler{deps: deps, keepAlive: keepAlive}
}

// HandleList handles GET /inbox?unread=true.
func (h *InboxHandler) HandleList(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	const op = "api.inbox"
	unread, err := unreadParam(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	box, err := h.deps.Inbox(r.Context(), actor.ID, unread)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, box)
}

// HandleStream handles GET /inbox/stream.
func (h *InboxHandler) HandleStream(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	const op = "api.stream_inbox"
	unread, err := unreadParam(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	stream(w, r, op, h.deps, model.InboxTopic(actor.ID), "inbox", h.keepAlive,
		func(ctx context.Context) (types.Inbox, error) {
			return h.deps.Inbox(ctx, actor.ID, unread)
		})
}

// HandleMarkRead handles POST /inbox/{nid}/read.
func (h *InboxHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	const op = "api.inbox_read"
	if err := h.deps.MarkRead(r.Context(), actor.ID, r.PathValue("nid")); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /inbox/{nid}.
func (h *InboxHandler) HandleDelete(w http.ResponseWriter, r *http.Request, actor model.Actor) {
	const op = "api.inbox_delete"
	if err := h.deps.DeleteNotification(r.Context(), actor.ID, r.PathValue("nid")); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func unreadParam(r *http.Request) (bool, error) {
	s := r.URL.Query().Get("unread")
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, errInvalidParam("unread")
	}
	return v, nil
}
