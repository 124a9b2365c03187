package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/s3m-esports/standings/internal/app/session"
	"github.com/s3m-esports/standings/internal/app/view"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	session.Subscriber
	Board(ctx context.Context, page view.Page) (types.Board, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps      LeaderboardDependencies
	maxLimit  int
	keepAlive time.Duration
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int, keepAlive time.Duration) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:      deps,
		maxLimit:  maxLimit,
		keepAlive: keepAlive,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N&offset=M requests.
// Limits above the configured maximum are capped.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	page, err := h.page(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	board, err := h.deps.Board(r.Context(), page)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleStream handles GET /leaderboard/stream: a server-sent event per
// refreshed board page.
func (h *LeaderboardHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream_leaderboard"
	page, err := h.page(r)
	if err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	stream(w, r, op, h.deps, model.TopicLeaderboard, "board", h.keepAlive,
		func(ctx context.Context) (types.Board, error) {
			return h.deps.Board(ctx, page)
		})
}

func (h *LeaderboardHandler) page(r *http.Request) (view.Page, error) {
	q := r.URL.Query()
	page := view.Page{Limit: h.maxLimit}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return view.Page{}, errInvalidParam("limit")
		}
		page.Limit = min(n, h.maxLimit)
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return view.Page{}, errInvalidParam("offset")
		}
		page.Offset = n
	}
	return page, nil
}

type paramError string

func (p paramError) Error() string { return "invalid " + string(p) }

func errInvalidParam(name string) error { return paramError(name) }
