package ranking

import (
	"fmt"
	"slices"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// Validate checks the stored positions of records: visible records hold exactly
// {1..N}, positions follow the rank order and hidden records hold none.
func Validate(records []model.ScoreRecord) error {
	var visible []model.ScoreRecord
	for _, r := range records {
		if !r.Visible {
			if r.RankPosition != nil {
				return fmt.Errorf("%w: hidden player %s holds position %d", ErrHiddenRanked, r.PlayerID, *r.RankPosition)
			}
			continue
		}
		if r.RankPosition == nil {
			return fmt.Errorf("%w: visible player %s has no position", ErrGap, r.PlayerID)
		}
		visible = append(visible, r)
	}

	slices.SortFunc(visible, func(a, b model.ScoreRecord) int { return *a.RankPosition - *b.RankPosition })
	for i, r := range visible {
		want := i + 1
		got := *r.RankPosition
		switch {
		case got < want:
			return fmt.Errorf("%w: position %d held twice", ErrDuplicate, got)
		case got > want:
			return fmt.Errorf("%w: position %d missing", ErrGap, want)
		}
		if i > 0 && Less(r, visible[i-1]) {
			return fmt.Errorf("%w: %s at %d outranks %s at %d", ErrOrder,
				r.PlayerID, got, visible[i-1].PlayerID, *visible[i-1].RankPosition)
		}
	}
	return nil
}
