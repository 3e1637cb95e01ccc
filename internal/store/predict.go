package store

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/runger/nicehist/internal/parser"
	"github.com/runger/nicehist/internal/rank"
	"github.com/runger/nicehist/internal/rpc"
)

// Predict implements the "predict" RPC method (component D). Step 0
// checks for an in-progress argument (the prefix parses to a known
// program/subcommand with a trailing partial token) and, if so, ranks
// ArgPattern completions instead of whole commands. Otherwise it gathers
// frequency, recency, directory, n-gram, and frecent signals for commands
// matching the prefix and scores them with rank.Score.
func (s *Store) Predict(ctx context.Context, p rpc.PredictParams) (rpc.PredictResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}
	weights := rpc.DefaultRankingWeights()
	if p.Weights != nil {
		weights = *p.Weights
	}
	now := time.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	parsed := parser.Parse(p.Prefix)
	if parsed.Partial && parsed.Program != "" {
		placeID, err := lookupPlaceID(ctx, s.db, Hostname(), p.Cwd)
		if err != nil {
			return rpc.PredictResult{}, err
		}
		if suggestions, ok, err := s.predictArgs(ctx, parsed, placeID, limit); err != nil {
			return rpc.PredictResult{}, err
		} else if ok {
			return rpc.PredictResult{Suggestions: suggestions}, nil
		}
	}

	candidates, err := s.gatherCandidates(ctx, p.Prefix, p.Cwd, p.LastCmds, limit, now)
	if err != nil {
		return rpc.PredictResult{}, err
	}

	frecentEnabled := p.FrecentBoost == nil || *p.FrecentBoost
	if err := s.attachFrecentBoost(ctx, candidates, p.Cwd, frecentEnabled, weights.FrecentBoostMax); err != nil {
		return rpc.PredictResult{}, err
	}

	return rpc.PredictResult{Suggestions: rank.Rank(candidates, weights, now, limit)}, nil
}

// lookupPlaceID resolves an existing places row without inserting one; a
// directory never before visited has no place row, so callers treat 0 (no
// SQLite rowid is ever 0) as "no directory-specific data".
func lookupPlaceID(ctx context.Context, db *sql.DB, host, dir string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM places WHERE host = ? AND dir = ?`, host, dir).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}

// predictArgs handles step 0: when the user has typed a known program
// (and subcommand, if applicable) followed by trailing whitespace, the
// most frequent historical ArgPattern values become the suggestions,
// ordered by directory-specific frequency first, then global frequency,
// then recency, rendered as the full prefix with the candidate argument
// appended.
func (s *Store) predictArgs(ctx context.Context, parsed parser.Parsed, placeID int64, limit int) ([]rpc.Suggestion, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT arg_value,
			SUM(frequency) AS total_freq,
			SUM(CASE WHEN place_id = ? THEN frequency ELSE 0 END) AS dir_freq,
			MAX(last_used) AS last_used
		FROM arg_patterns
		WHERE program = ? AND subcommand IS ?
		GROUP BY arg_value
		ORDER BY dir_freq DESC, total_freq DESC, last_used DESC
		LIMIT ?`, placeID, parsed.Program, nullableString(parsed.Subcommand), limit)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var out []rpc.Suggestion
	for rows.Next() {
		var argValue string
		var totalFreq, dirFreq, lastUsed int64
		if err := rows.Scan(&argValue, &totalFreq, &dirFreq, &lastUsed); err != nil {
			return nil, false, err
		}

		score := math.Log(float64(totalFreq)) / 10.0
		if score < 0 {
			score = 0
		}
		if score > 1.0 {
			score = 1.0
		}
		if dirFreq > 0 {
			score += 0.3
		}
		if score > 1.0 {
			score = 1.0
		}

		out = append(out, rpc.Suggestion{
			Cmd:   strings.TrimRight(parsed.Full, " \t") + " " + argValue,
			Score: score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return out, len(out) > 0, nil
}

// hierarchyDirs builds D, the list named in §4.D step 2: cwd followed by
// up to 3 ancestor directories, stopping at "/" or empty.
func hierarchyDirs(cwd string) []string {
	if cwd == "" {
		return nil
	}
	dirs := []string{cwd}
	cur := strings.TrimRight(cwd, "/")
	for i := 0; i < 3; i++ {
		idx := strings.LastIndex(cur, "/")
		if idx <= 0 {
			break
		}
		cur = cur[:idx]
		dirs = append(dirs, cur)
	}
	return dirs
}

// hierarchyWeight is the per-directory contribution named in step 2:
// closer ancestors (smaller length difference from cwd) score higher.
func hierarchyWeight(cwd, dir string) float64 {
	return 1.0 / (1.0 + float64(len(cwd)-len(dir))/10.0)
}

// gatherCandidates runs the main candidate query (step 3) and attaches the
// n-gram bonus table (step 1). Frecent boost (step 4) is attached
// separately by the caller once weights are known.
func (s *Store) gatherCandidates(ctx context.Context, prefix, cwd string, lastCmds []string, limit int, now int64) ([]rank.Candidate, error) {
	dirs := hierarchyDirs(cwd)

	hierarchyCase := "0"
	args := []any{cwd}
	if len(dirs) > 0 {
		var b strings.Builder
		b.WriteString("CASE p.dir")
		for _, d := range dirs {
			b.WriteString(" WHEN ? THEN ?")
			args = append(args, d, hierarchyWeight(cwd, d))
		}
		b.WriteString(" ELSE 0 END")
		hierarchyCase = b.String()
	}

	query := `
		SELECT c.argv, COUNT(*) AS freq, MAX(h.start_time) AS last_used,
			SUM(CASE WHEN p.dir = ? THEN 1 ELSE 0 END) AS exact_dir_freq,
			SUM(` + hierarchyCase + `) AS hierarchy_score,
			AVG(CASE WHEN h.exit_status IS NOT NULL AND h.exit_status != 0 THEN 1.0 ELSE 0.0 END) AS failure_rate
		FROM history h
		JOIN commands c ON c.id = h.command_id
		JOIN places p ON p.id = h.place_id
		WHERE c.argv LIKE ? || '%' ESCAPE '\' AND p.host = ?
		GROUP BY c.id
		ORDER BY exact_dir_freq DESC, hierarchy_score DESC, last_used DESC
		LIMIT ?`
	args = append(args, escapeLike(prefix), Hostname(), 2*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []rank.Candidate
	for rows.Next() {
		var c rank.Candidate
		if err := rows.Scan(&c.Cmd, &c.Frequency, &c.LastUsed, &c.ExactDirFreq, &c.HierarchyScore, &c.FailureRate); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bonus, err := s.buildNgramBonusTable(ctx, prefix, lastCmds, limit)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		candidates[i].NgramBonus = bonus[candidates[i].Cmd]
	}

	return candidates, nil
}

// buildNgramBonusTable implements step 1: resolve last_cmds[0] and
// last_cmds[1] to specific Command rows, then look up Bigram/Trigram rows
// keyed to those specific predecessor ids (not "ever a successor to
// anything"). A trigram hit is inserted first; the bigram pass then
// inserts only into slots still absent, per the spec's tie-break rule.
func (s *Store) buildNgramBonusTable(ctx context.Context, prefix string, lastCmds []string, limit int) (map[string]float64, error) {
	bonus := make(map[string]float64)

	var prev1ID int64
	if len(lastCmds) > 0 && lastCmds[0] != "" {
		id, err := lookupCommandID(ctx, s.db, lastCmds[0])
		if err != nil {
			return nil, err
		}
		prev1ID = id
	}
	if prev1ID == 0 {
		return bonus, nil
	}

	var prev2ID int64
	if len(lastCmds) > 1 && lastCmds[1] != "" {
		id, err := lookupCommandID(ctx, s.db, lastCmds[1])
		if err != nil {
			return nil, err
		}
		prev2ID = id
	}

	if prev2ID != 0 {
		rows, err := s.db.QueryContext(ctx, `
			SELECT c.argv, n.frequency
			FROM ngrams_3 n
			JOIN commands c ON c.id = n.command_id
			WHERE n.prev2_command_id = ? AND n.prev1_command_id = ? AND c.argv LIKE ? || '%' ESCAPE '\'
			ORDER BY n.frequency DESC
			LIMIT ?`, prev2ID, prev1ID, escapeLike(prefix), limit)
		if err != nil {
			return nil, err
		}
		err = scanNgramBonusRows(rows, bonus, true, false)
		if err != nil {
			return nil, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.argv, n.frequency
		FROM ngrams_2 n
		JOIN commands c ON c.id = n.command_id
		WHERE n.prev_command_id = ? AND c.argv LIKE ? || '%' ESCAPE '\'
		ORDER BY n.frequency DESC
		LIMIT ?`, prev1ID, escapeLike(prefix), limit)
	if err != nil {
		return nil, err
	}
	if err := scanNgramBonusRows(rows, bonus, false, true); err != nil {
		return nil, err
	}

	return bonus, nil
}

// scanNgramBonusRows drains rows into bonus, computing each entry's bonus
// via rank.NgramBonus. When insertIfAbsent is true, an existing entry for
// the same command is left untouched (the bigram pass, run after trigram).
func scanNgramBonusRows(rows *sql.Rows, bonus map[string]float64, isTrigram, insertIfAbsent bool) error {
	defer rows.Close()
	for rows.Next() {
		var argv string
		var freq int64
		if err := rows.Scan(&argv, &freq); err != nil {
			return err
		}
		if insertIfAbsent {
			if _, exists := bonus[argv]; exists {
				continue
			}
		}
		bonus[argv] = rank.NgramBonus(freq, isTrigram)
	}
	return rows.Err()
}

func lookupCommandID(ctx context.Context, db *sql.DB, argv string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM commands WHERE argv = ?`, argv).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}

// attachFrecentBoost implements step 4: when enabled, look up
// FrecentPath.rank for (cwd, 'd') and cap the log-scaled boost at
// weights.frecent_boost_max.
func (s *Store) attachFrecentBoost(ctx context.Context, candidates []rank.Candidate, cwd string, enabled bool, maxBoost float64) error {
	if !enabled || len(candidates) == 0 {
		return nil
	}

	var r float64
	err := s.db.QueryRowContext(ctx, `
		SELECT rank FROM frecent_paths WHERE path = ? AND path_type = 'd'`, cwd).Scan(&r)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	boost := math.Log(r+1) / 100.0
	if boost < 0 {
		boost = 0
	}
	if boost > maxBoost {
		boost = maxBoost
	}
	for i := range candidates {
		candidates[i].FrecentBoost = boost
	}
	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
