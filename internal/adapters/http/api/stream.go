package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/s3m-esports/standings/internal/app/session"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/pkg/logger"
)

// stream serves a session as server-sent events until the client leaves.
// Each refreshed value is one "event: <name>" frame; comments keep idle
// connections open.
func stream[T any](w http.ResponseWriter, r *http.Request, op string, sub session.Subscriber,
	topic model.Topic, name string, keepAlive time.Duration, load session.Loader[T],
) {
	rc := http.NewResponseController(w)
	s := session.New(sub, topic, topic.Kind(), load)
	if err := s.Open(r.Context()); err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	defer s.Close()

	// The server write timeout would otherwise cut the stream.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Named("api").Warn(r.Context(), "cannot clear write deadline", logger.Error(err))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case v, ok := <-s.Views():
			if !ok {
				return
			}
			data, err := json.Marshal(v)
			if err != nil {
				logger.Named("api").Error(r.Context(), "encode stream frame", logger.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
