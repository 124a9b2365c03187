// Package directory resolves player ids to display profiles.
//
// Profiles are owned by the registration flow; the ranking core only reads
// them, in one batched lookup per view.
package directory

import (
	"context"
	"errors"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// ErrInvalidProfile is returned when a profile is missing its id or username.
var ErrInvalidProfile = errors.New("profile requires player id and username")

// Directory looks up profiles. Ids without a profile are absent from the result.
type Directory interface {
	Lookup(ctx context.Context, playerIDs []string) (map[string]model.Profile, error)
}

// Writer stores profiles on registration.
type Writer interface {
	Put(ctx context.Context, p model.Profile) error
}

// ReadWriter is a directory that also accepts registrations.
type ReadWriter interface {
	Directory
	Writer
}

func validate(p model.Profile) error {
	if !model.ValidPlayerID(p.PlayerID) || p.Username == "" {
		return ErrInvalidProfile
	}
	return nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
