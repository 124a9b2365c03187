package loadgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/s3m-esports/standings/internal/domain/scoring"
	"github.com/s3m-esports/standings/internal/domain/types"
	"github.com/s3m-esports/standings/pkg/logger"
)

// ErrInconsistent is returned when the served leaderboard breaks an ordering
// or derived-field rule.
var ErrInconsistent = errors.New("leaderboard inconsistent")

const defaultPageSize = 100

// Report is the result of a verify run.
type Report struct {
	Rows   int
	Total  int
	Stale  bool
	Issues []string
}

// Verify pages through the whole leaderboard and checks that ranks are dense
// from 1, points never increase down the board and derived fields match the
// row's counters.
func Verify(ctx context.Context, cfg *Config, c *Client) (*Report, error) {
	size := cfg.PageSize
	if size <= 0 {
		size = defaultPageSize
	}

	var rows []types.Row
	report := &Report{}
	for offset := 0; ; offset += size {
		b, err := c.Board(ctx, size, offset)
		if err != nil {
			return report, fmt.Errorf("fetch page at %d: %w", offset, err)
		}
		report.Total = b.Total
		report.Stale = report.Stale || b.Stale
		rows = append(rows, b.Rows...)
		if len(b.Rows) == 0 || offset+len(b.Rows) >= b.Total {
			break
		}
	}
	report.Rows = len(rows)
	report.Issues = CheckRows(rows)
	if report.Rows != report.Total {
		report.Issues = append(report.Issues, fmt.Sprintf("fetched %d rows but total is %d", report.Rows, report.Total))
	}

	logger.Named("loadgen").Info(ctx, "verify finished",
		logger.Int("rows", report.Rows),
		logger.Int("total", report.Total),
		logger.Bool("stale", report.Stale),
		logger.Int("issues", len(report.Issues)))

	if len(report.Issues) > 0 {
		return report, fmt.Errorf("%w: %s", ErrInconsistent, report.Issues[0])
	}
	return report, nil
}

// CheckRows returns one message per broken rule in a board ordered from rank 1.
func CheckRows(rows []types.Row) []string {
	var issues []string
	for i, r := range rows {
		if r.Rank != i+1 {
			issues = append(issues, fmt.Sprintf("row %d (%s) has rank %d", i, r.PlayerID, r.Rank))
		}
		if i > 0 && r.Points > rows[i-1].Points {
			issues = append(issues, fmt.Sprintf("rank %d (%s) has more points than rank %d", r.Rank, r.PlayerID, rows[i-1].Rank))
		}
		if want := scoring.Tier(r.Rank); r.Tier != want {
			issues = append(issues, fmt.Sprintf("rank %d tier %q, want %q", r.Rank, r.Tier, want))
		}
		if want := scoring.KDRatio(r.Kills, r.Deaths); r.KD != want {
			issues = append(issues, fmt.Sprintf("%s kd %.1f, want %.1f", r.PlayerID, r.KD, want))
		}
		if want := scoring.WinRate(r.Wins, r.GamesPlayed); r.WinRate != want {
			issues = append(issues, fmt.Sprintf("%s win rate %.1f, want %.1f", r.PlayerID, r.WinRate, want))
		}
	}
	return issues
}
