package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"github.com/runger/nicehist/internal/frecency"
	"github.com/runger/nicehist/internal/parser"
	"github.com/runger/nicehist/internal/rpc"
)

// extractFrecentPaths is the ingestion hook named in §4.E: every command
// bumps the frecency of its working directory, and a "cd" invocation's
// target additionally bumps the directory it navigates to.
func extractFrecentPaths(ctx context.Context, tx *sql.Tx, cwd string, parsed parser.Parsed, learnable []string, now int64) error {
	if err := bumpFrecentPath(ctx, tx, cwd, "d", nil, now); err != nil {
		return err
	}

	if parsed.Program == "cd" && len(learnable) > 0 {
		target := learnable[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(cwd, target)
		}
		target = filepath.Clean(target)
		if err := bumpFrecentPath(ctx, tx, target, "d", nil, now); err != nil {
			return err
		}
	}

	return nil
}

// bumpFrecentPath finds-or-inserts a frecent_paths row and applies the
// bump rule (§4.E), then ages the path_type group if its rank sum has
// crossed the aging threshold. A new row starts at rank 1.0, or at the
// supplied rank in import mode.
func bumpFrecentPath(ctx context.Context, tx *sql.Tx, path, pathType string, importRank *float64, now int64) error {
	var currentRank float64
	err := tx.QueryRowContext(ctx, `
		SELECT rank FROM frecent_paths WHERE path = ? AND path_type = ?`, path, pathType,
	).Scan(&currentRank)

	switch {
	case err == nil:
		newRank := frecency.Bump(currentRank, importRank)
		if _, err := tx.ExecContext(ctx, `
			UPDATE frecent_paths SET rank = ?, last_access = ?, access_count = access_count + 1
			WHERE path = ? AND path_type = ?`, newRank, now, path, pathType); err != nil {
			return err
		}
	case err == sql.ErrNoRows:
		newRank := 1.0
		if importRank != nil {
			newRank = frecency.Bump(0, importRank)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO frecent_paths (path, path_type, rank, last_access, access_count)
			VALUES (?, ?, ?, ?, 1)`, path, pathType, newRank, now); err != nil {
			return err
		}
	default:
		return err
	}

	return ageIfNeeded(ctx, tx, pathType)
}

func ageIfNeeded(ctx context.Context, tx *sql.Tx, pathType string) error {
	var sum float64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(rank), 0) FROM frecent_paths WHERE path_type = ?`, pathType,
	).Scan(&sum); err != nil {
		return err
	}
	if !frecency.NeedsAging(sum, frecency.DefaultAgingThreshold) {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE frecent_paths SET rank = rank * ? WHERE path_type = ?`,
		frecency.DefaultAgingFactor, pathType); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		DELETE FROM frecent_paths WHERE path_type = ? AND rank < ?`,
		pathType, frecency.DefaultPruneBelow)
	return err
}

// FrecentAdd implements the "frecent_add" RPC method: an explicit bump or
// import-mode seed of a single path.
func (s *Store) FrecentAdd(ctx context.Context, p rpc.FrecentAddParams) error {
	if p.Path == "" {
		return rpc.NewError(rpc.CodeInvalidParams, "path must not be empty")
	}
	pathType := p.PathType
	if pathType == "" {
		pathType = "d"
	}
	now := time.Now().Unix()
	if p.Timestamp != nil {
		now = *p.Timestamp
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := beginImmediate(ctx, s.db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := bumpFrecentPath(ctx, tx, p.Path, pathType, p.Rank, now); err != nil {
		return err
	}
	return tx.Commit()
}

// FrecentQuery implements the "frecent_query" RPC method: the three-tier
// fragment matcher against stored paths, scored by the stepwise weight
// ladder and sorted descending. Raw bypasses scoring and matching, and
// simply returns every row in the path_type group ordered by rank.
func (s *Store) FrecentQuery(ctx context.Context, p rpc.FrecentQueryParams) (rpc.FrecencyResultList, error) {
	pathType := p.PathType
	if pathType == "" {
		pathType = "d"
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, path_type, rank, last_access FROM frecent_paths WHERE path_type = ?`, pathType)
	if err != nil {
		return rpc.FrecencyResultList{}, err
	}
	defer rows.Close()

	type candidate struct {
		path       string
		pathType   string
		rank       float64
		lastAccess int64
		tier       frecency.MatchTier
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.path, &c.pathType, &c.rank, &c.lastAccess); err != nil {
			return rpc.FrecencyResultList{}, err
		}
		if !p.Raw && len(p.Terms) > 0 {
			c.tier = frecency.Match(c.path, p.Terms)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return rpc.FrecencyResultList{}, err
	}

	// Tiered matching picks one tier globally across the whole candidate
	// set (the first, in precedence order, that yields >= 1 hit), not per
	// row: a path that only qualifies at a weaker tier must not appear
	// alongside one that qualifies at a stronger tier.
	if !p.Raw && len(p.Terms) > 0 {
		best := frecency.NoMatch
		for _, c := range candidates {
			if c.tier > best {
				best = c.tier
			}
		}
		filtered := candidates[:0]
		for _, c := range candidates {
			if c.tier == best && best != frecency.NoMatch {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	now := time.Now().Unix()
	matched := make([]rpc.FrecencyResult, 0, len(candidates))
	for _, c := range candidates {
		score := c.rank
		if !p.Raw {
			score = frecency.Score(frecency.Entry{Path: c.path, Rank: c.rank, LastAccess: c.lastAccess}, now)
		}

		r := c.rank
		la := c.lastAccess
		matched = append(matched, rpc.FrecencyResult{
			Path: c.path, PathType: c.pathType, Score: score, Rank: &r, LastAccess: &la,
		})
	}

	sortFrecencyDesc(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	return rpc.FrecencyResultList{Results: matched}, nil
}

func sortFrecencyDesc(results []rpc.FrecencyResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j-1].Score < results[j].Score; j-- {
			results[j-1], results[j] = results[j], results[j-1]
		}
	}
}
