// Package frecency implements the fasd-style time-weighted ranking
// described in component E: the stepwise recency weight ladder, the
// aging rule, and the three-tier fragment matcher. All functions here are
// pure so the scoring law and matcher can be tested without a database.
package frecency

import "strings"

// DefaultAgingThreshold, DefaultAgingFactor and DefaultPruneBelow are the
// aging defaults: once the sum of all ranks for a path_type exceeds
// DefaultAgingThreshold, every rank in that group is multiplied by
// DefaultAgingFactor and rows whose rank falls below DefaultPruneBelow
// are deleted.
const (
	DefaultAgingThreshold = 2000.0
	DefaultAgingFactor    = 0.9
	DefaultPruneBelow     = 1.0
)

// Entry is the subset of a frecent_paths row the scoring law needs.
type Entry struct {
	Path       string
	Rank       float64
	LastAccess int64 // unix seconds
}

// Score computes frecency_score: a stepwise weight ladder over the age of
// the last access, applied multiplicatively to rank.
//
//	age < 1 hour:   rank * 6
//	age < 1 day:    rank * 4
//	age < 1 week:   rank * 2
//	otherwise:      rank * 1
func Score(e Entry, now int64) float64 {
	age := now - e.LastAccess
	if age < 0 {
		age = 0
	}

	var weight float64
	switch {
	case age < 3600:
		weight = 6
	case age < 86400:
		weight = 4
	case age < 604800:
		weight = 2
	default:
		weight = 1
	}

	return e.Rank * weight
}

// Bump computes the updated rank for an access. In normal mode each visit
// adds a diminishing-returns increment of 1/max(rank, 0.01), so frequently
// bumped paths keep climbing but ever more slowly; in import mode (seeding
// rank from an external source, e.g. shell history replay) the result is
// the larger of the current rank and the supplied rank.
func Bump(currentRank float64, importRank *float64) float64 {
	if importRank != nil {
		if *importRank > currentRank {
			return *importRank
		}
		return currentRank
	}
	divisor := currentRank
	if divisor < 0.01 {
		divisor = 0.01
	}
	return currentRank + 1.0/divisor
}

// NeedsAging reports whether the sum of ranks in a path_type group has
// crossed threshold and every rank in the group should be decayed.
func NeedsAging(sumOfRanks, threshold float64) bool {
	return sumOfRanks > threshold
}

// Age applies factor to rank, as the aging step does to every row in a
// path_type group once NeedsAging is true.
func Age(rank, factor float64) float64 {
	return rank * factor
}

// MatchTier is which of the three fragment-matching strategies produced a
// match, used to prefer stronger matches when multiple tiers succeed.
type MatchTier int

const (
	NoMatch MatchTier = iota
	TierFuzzy
	TierCaseInsensitive
	TierExact
)

// Match attempts, in order, an ordered case-sensitive substring match of
// every term (Tier 1), then case-insensitive (Tier 2), then a fuzzy
// single-cursor subsequence match of the concatenated terms (Tier 3).
// Term order in terms is preserved as the required match order.
func Match(path string, terms []string) MatchTier {
	if len(terms) == 0 {
		return NoMatch
	}

	if matchOrderedSubstrings(path, terms, false) {
		return TierExact
	}
	if matchOrderedSubstrings(path, terms, true) {
		return TierCaseInsensitive
	}
	if matchFuzzy(path, strings.Join(terms, "")) {
		return TierFuzzy
	}
	return NoMatch
}

// matchOrderedSubstrings requires every term to appear as a contiguous
// substring, in order, with later terms occurring no earlier than the end
// of the previous match.
func matchOrderedSubstrings(path string, terms []string, foldCase bool) bool {
	hay := path
	if foldCase {
		hay = strings.ToLower(hay)
	}

	cursor := 0
	for _, term := range terms {
		needle := term
		if foldCase {
			needle = strings.ToLower(needle)
		}
		idx := strings.Index(hay[cursor:], needle)
		if idx < 0 {
			return false
		}
		cursor += idx + len(needle)
	}
	return true
}

// matchFuzzy requires every rune of needle to occur in path in order,
// case-insensitively, not necessarily contiguously: a single cursor walks
// forward through path looking for each needle rune in turn.
func matchFuzzy(path, needle string) bool {
	if needle == "" {
		return true
	}

	hay := []rune(strings.ToLower(path))
	want := []rune(strings.ToLower(needle))

	cursor := 0
	for _, w := range want {
		found := false
		for cursor < len(hay) {
			if hay[cursor] == w {
				cursor++
				found = true
				break
			}
			cursor++
		}
		if !found {
			return false
		}
	}
	return true
}
