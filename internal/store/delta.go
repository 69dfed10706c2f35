package store

import (
	"context"
	"database/sql"
	"fmt"
)

// DeltaSummary is the response shape of GetDeltaSummary.
type DeltaSummary struct {
	NewTestFailures   int `json:"new_test_failures"`
	FixedTestFailures int `json:"fixed_test_failures"`
	NewFindings       int `json:"new_findings"`
	FixedFindings     int `json:"fixed_findings"`
}

// GetDeltaSummary computes the set-symmetric difference of stable ids
// between the latest run and its immediate predecessor for
// (workspaceID, packageScope). With no predecessor, the run is a baseline:
// fixed counts are zero and new counts equal the latest run's own count.
func (s *Store) GetDeltaSummary(ctx context.Context, workspaceID, packageScope string) (DeltaSummary, error) {
	latest, previous, err := s.latestTwoRuns(ctx, workspaceID, packageScope)
	if err != nil {
		return DeltaSummary{}, err
	}
	if latest == "" {
		return DeltaSummary{}, nil
	}

	newT, fixedT, err := s.symmetricDiffCount(ctx, "test_failures", latest, previous)
	if err != nil {
		return DeltaSummary{}, fmt.Errorf("computing test failure delta: %w", err)
	}
	newF, fixedF, err := s.symmetricDiffCount(ctx, "findings", latest, previous)
	if err != nil {
		return DeltaSummary{}, fmt.Errorf("computing finding delta: %w", err)
	}

	return DeltaSummary{
		NewTestFailures:   newT,
		FixedTestFailures: fixedT,
		NewFindings:       newF,
		FixedFindings:     fixedF,
	}, nil
}

// latestTwoRuns returns the latest run_id (A) and its immediate
// predecessor (B, possibly "") for (workspaceID, packageScope).
func (s *Store) latestTwoRuns(ctx context.Context, workspaceID, packageScope string) (latest, previous string, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM runs WHERE workspace_id = ? AND package_scope = ? ORDER BY started_at DESC LIMIT 2`,
		workspaceID, packageScope,
	)
	if err != nil {
		return "", "", fmt.Errorf("querying latest runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", "", fmt.Errorf("scanning run_id: %w", err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return "", "", nil
	}
	if len(ids) == 1 {
		return ids[0], "", nil
	}
	return ids[0], ids[1], nil
}

// symmetricDiffCount returns |A - B| (new) and |B - A| (fixed) of distinct
// stable_id values in table for run A vs run B. B may be "" (baseline).
func (s *Store) symmetricDiffCount(ctx context.Context, table, runA, runB string) (newCount, fixedCount int, err error) {
	if runB == "" {
		var count int
		row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(DISTINCT stable_id) FROM %s WHERE run_id = ?`, table), runA)
		if err := row.Scan(&count); err != nil {
			return 0, 0, fmt.Errorf("counting baseline %s: %w", table, err)
		}
		return count, 0, nil
	}

	query := fmt.Sprintf(`
SELECT
	(SELECT COUNT(DISTINCT a.stable_id) FROM %[1]s a
		WHERE a.run_id = ? AND NOT EXISTS (
			SELECT 1 FROM %[1]s b WHERE b.run_id = ? AND b.stable_id = a.stable_id
		)),
	(SELECT COUNT(DISTINCT b.stable_id) FROM %[1]s b
		WHERE b.run_id = ? AND NOT EXISTS (
			SELECT 1 FROM %[1]s a WHERE a.run_id = ? AND a.stable_id = b.stable_id
		))
`, table)

	row := s.db.QueryRowContext(ctx, query, runA, runB, runB, runA)
	if err := row.Scan(&newCount, &fixedCount); err != nil && err != sql.ErrNoRows {
		return 0, 0, fmt.Errorf("computing symmetric diff on %s: %w", table, err)
	}
	return newCount, fixedCount, nil
}
