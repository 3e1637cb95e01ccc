// Package rank implements the pure scoring math of the prediction ranker
// (component D): the composite six-signal score and the n-gram bonus
// lookup table. It has no database dependency so the scoring law itself
// can be tested in isolation from storage.
package rank

import (
	"math"

	"github.com/runger/nicehist/internal/rpc"
)

// Candidate carries the raw per-signal inputs for one candidate command,
// gathered by the caller from the store's queries.
type Candidate struct {
	Cmd            string
	Frequency      int64
	LastUsed       int64 // unix seconds
	ExactDirFreq   int64   // occurrences with Place.dir == cwd
	HierarchyScore float64 // §4.D step 2: weighted ancestor-directory match
	FailureRate    float64
	NgramBonus     float64 // precomputed bigram/trigram bonus lookup (step 1)
	FrecentBoost   float64 // §4.D step 4, already capped at weights.frecent_boost_max
}

// Score computes the composite prediction score described in §4.D step 5.
// dir_exact and dir_hierarchy are mutually exclusive: an exact cwd match
// contributes the flat dir_exact weight, otherwise an ancestor match
// contributes dir_hierarchy scaled by the (clamped) hierarchy score. The
// five weighted signals are summed and clamped to 1.0 before the
// failure-rate penalty is applied.
func Score(c Candidate, w rpc.RankingWeights, now int64) float64 {
	ageDays := float64(now-c.LastUsed) / 86400.0
	if ageDays < 0 {
		ageDays = 0
	}
	recencyScore := math.Exp(-ageDays / 30.0)

	freqScore := 0.0
	if c.Frequency > 0 {
		freqScore = math.Log(float64(c.Frequency)) / 10.0
		if freqScore < 0 {
			freqScore = 0
		}
	}

	var dirScore float64
	switch {
	case c.ExactDirFreq > 0:
		dirScore = w.DirExact
	case c.HierarchyScore > 0:
		h := c.HierarchyScore
		if h > 1 {
			h = 1
		}
		dirScore = w.DirHierarchy * h
	}

	ngramScore := c.NgramBonus * w.Ngram

	sum := freqScore*w.Frequency + recencyScore*w.Recency + dirScore + c.FrecentBoost + ngramScore
	if sum > 1.0 {
		sum = 1.0
	}

	failurePenalty := 1.0 - c.FailureRate*w.FailurePenalty
	if failurePenalty < 0 {
		failurePenalty = 0
	}

	return sum * failurePenalty
}

// NgramBonus computes the bonus contribution of a single bigram or trigram
// frequency observation (§4.D step 1): ln(freq)/10, scaled by 1.5 for a
// trigram hit since a three-command sequence is a stronger signal than a
// pairwise one, then clamped to at most 1.0.
func NgramBonus(freq int64, isTrigram bool) float64 {
	if freq <= 0 {
		return 0
	}
	score := math.Log(float64(freq)) / 10.0
	if score < 0 {
		score = 0
	}
	if isTrigram {
		score *= 1.5
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Rank sorts candidates by descending score and returns the top limit as
// suggestions. Ties are broken by lexical command order for determinism.
func Rank(candidates []Candidate, w rpc.RankingWeights, now int64, limit int) []rpc.Suggestion {
	type scored struct {
		cmd   string
		score float64
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		scoredList = append(scoredList, scored{cmd: c.Cmd, score: Score(c, w, now)})
	}

	for i := 1; i < len(scoredList); i++ {
		for j := i; j > 0; j-- {
			a, b := scoredList[j-1], scoredList[j]
			if a.score > b.score || (a.score == b.score && a.cmd <= b.cmd) {
				break
			}
			scoredList[j-1], scoredList[j] = scoredList[j], scoredList[j-1]
		}
	}

	if limit > 0 && len(scoredList) > limit {
		scoredList = scoredList[:limit]
	}

	out := make([]rpc.Suggestion, len(scoredList))
	for i, s := range scoredList {
		out[i] = rpc.Suggestion{Cmd: s.cmd, Score: s.score}
	}
	return out
}
