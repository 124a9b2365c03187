package loadgen

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/types"
)

// ErrRecomputeFailed reports a write the service stored without re-ranking.
var ErrRecomputeFailed = errors.New("write stored but ranks are stale")

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to the standings HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	stream  *http.Client
}

// NewClient creates a client. Streams ignore timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		stream:  &http.Client{},
	}
}

// Health checks that the service answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, c.http, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Register creates the player's profile and score record.
func (c *Client) Register(ctx context.Context, p Player) (model.ScoreRecord, error) {
	var rec model.ScoreRecord
	body := map[string]string{"player_id": p.PlayerID, "username": p.Username, "avatar_url": p.AvatarURL}
	err := c.call(ctx, http.MethodPost, "/players", body, &rec)
	return rec, err
}

// SetStats applies a stats patch.
func (c *Client) SetStats(ctx context.Context, playerID string, patch model.Patch) (model.ScoreRecord, error) {
	var rec model.ScoreRecord
	err := c.call(ctx, http.MethodPut, "/admin/players/"+url.PathEscape(playerID)+"/stats", patch, &rec)
	return rec, err
}

// AddPoints grants delta points once per requestID.
func (c *Client) AddPoints(ctx context.Context, playerID string, delta int64, requestID string) (model.ScoreRecord, error) {
	var rec model.ScoreRecord
	body := map[string]any{"delta": delta, "request_id": requestID}
	err := c.call(ctx, http.MethodPost, "/admin/players/"+url.PathEscape(playerID)+"/points", body, &rec)
	return rec, err
}

// Recompute forces a rank recomputation and returns the changed players.
func (c *Client) Recompute(ctx context.Context) ([]string, error) {
	var out struct {
		Changed []string `json:"changed"`
	}
	err := c.call(ctx, http.MethodPost, "/admin/recompute", nil, &out)
	return out.Changed, err
}

// Board fetches one leaderboard page.
func (c *Client) Board(ctx context.Context, limit, offset int) (types.Board, error) {
	var b types.Board
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	err := c.call(ctx, http.MethodGet, "/leaderboard?"+q.Encode(), nil, &b)
	return b, err
}

// Player fetches one player card.
func (c *Client) Player(ctx context.Context, playerID string) (types.PlayerCard, error) {
	var card types.PlayerCard
	err := c.call(ctx, http.MethodGet, "/players/"+url.PathEscape(playerID), nil, &card)
	return card, err
}

// Export downloads the XLSX leaderboard into w.
func (c *Client) Export(ctx context.Context, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, c.http, http.MethodGet, "/leaderboard/export.xlsx", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}

// Frame is one server-sent event.
type Frame struct {
	Event string
	Data  []byte
}

// Watch reads the event stream at path and calls fn for every frame until
// ctx ends, the server closes the stream or fn returns an error.
func (c *Client) Watch(ctx context.Context, path string, fn func(Frame) error) error {
	resp, err := c.do(ctx, c.stream, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var f Frame
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if f.Event != "" || f.Data != nil {
				if err := fn(f); err != nil {
					return err
				}
			}
			f = Frame{}
		case strings.HasPrefix(line, ":"):
			// keepalive
		case strings.HasPrefix(line, "event:"):
			f.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			f.Data = append(f.Data, strings.TrimSpace(strings.TrimPrefix(line, "data:"))...)
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return ctx.Err()
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	resp, err := c.do(ctx, c.http, method, path, body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "recompute_failed" {
			return fmt.Errorf("%w: %w", ErrRecomputeFailed, err)
		}
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return nil, apiErr
	}
	return resp, nil
}
