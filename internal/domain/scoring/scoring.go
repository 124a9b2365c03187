// Package scoring derives display ratios from raw score counters.
//
// Every function here is pure and is recomputed on each view build.
package scoring

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Podium tiers.
const (
	TierGold   = "gold"
	TierSilver = "silver"
	TierBronze = "bronze"
)

// PlaceholderName is shown when a player's profile cannot be found.
const PlaceholderName = "Unknown player"

// placeholderInitials mirror PlaceholderName on avatar badges.
const placeholderInitials = "U"

// KDRatio returns kills/deaths rounded to one decimal, or kills when deaths is 0.
func KDRatio(kills, deaths int64) float64 {
	if deaths <= 0 {
		return float64(kills)
	}
	return round1(float64(kills) / float64(deaths))
}

// WinRate returns wins/games as a percentage rounded to one decimal, or 0 when no games were played.
func WinRate(wins, games int64) float64 {
	if games <= 0 {
		return 0
	}
	return round1(float64(wins) / float64(games) * 100)
}

// Tier returns the podium tier for rank, or "" outside the top three.
func Tier(rank int) string {
	switch rank {
	case 1:
		return TierGold
	case 2:
		return TierSilver
	case 3:
		return TierBronze
	default:
		return ""
	}
}

// Initials returns the upper-cased first two letters of name.
func Initials(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return placeholderInitials
	}
	var b strings.Builder
	for i := 0; i < 2 && name != ""; i++ {
		r, size := utf8.DecodeRuneInString(name)
		b.WriteRune(unicode.ToUpper(r))
		name = name[size:]
	}
	return b.String()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
